// Package archive persists capture sessions to a Lode dataset.
//
// Records are Hive-partitioned by source/day/job_id/record_kind. A session
// writes one session record, one frame record per sent message (payload
// sizes and pose, not the image bytes), and one session_end record with
// the final counters. With StorePayloads the compressed image and depth
// payloads are written as sidecar files next to the records.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"
)

// DefaultDataset is the Lode dataset ID used when none is configured.
const DefaultDataset = "depthstream"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"source", "day", "job_id", "record_kind"}

// DeriveDay computes the partition day from the session start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Client abstracts archive storage.
type Client interface {
	// WriteRecords writes one batch of records. Every record in a batch
	// shares its partition values.
	WriteRecords(ctx context.Context, records []map[string]any) error
	// PutFile writes a sidecar file at path relative to the store root.
	PutFile(ctx context.Context, path string, data []byte) error
	// Close releases client resources.
	Close() error
}

// LodeClient is a Lode-backed Client.
type LodeClient struct {
	dataset      lode.Dataset
	storeFactory lode.StoreFactory

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
}

var _ Client = (*LodeClient)(nil)

// NewLodeClient creates a client with filesystem storage under root.
func NewLodeClient(dataset, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(dataset, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(dataset string, factory lode.StoreFactory) (*LodeClient, error) {
	ds, err := NewReadDataset(dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return &LodeClient{dataset: ds, storeFactory: factory}, nil
}

// WriteRecords writes records as one Lode snapshot.
func (c *LodeClient) WriteRecords(ctx context.Context, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}
	batch := make([]any, len(records))
	for i, r := range records {
		batch[i] = r
	}
	if _, err := c.dataset.Write(ctx, batch, lode.Metadata{}); err != nil {
		return WrapWriteError(err, string(c.dataset.ID()))
	}
	return nil
}

// PutFile writes data to the store, bypassing dataset manifests.
func (c *LodeClient) PutFile(ctx context.Context, path string, data []byte) error {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	if c.storeErr != nil {
		return fmt.Errorf("file write store init failed: %w", c.storeErr)
	}
	if err := c.store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, path)
	}
	return nil
}

// Close releases client resources. Datasets hold no open handles.
func (c *LodeClient) Close() error {
	return nil
}

// StubClient records writes in memory.
type StubClient struct {
	// WriteErr, when set, fails every write.
	WriteErr error

	mu      sync.Mutex
	batches [][]map[string]any
	files   map[string][]byte
	closed  bool
}

var _ Client = (*StubClient)(nil)

// NewStubClient creates a stub client.
func NewStubClient() *StubClient {
	return &StubClient{files: make(map[string][]byte)}
}

// WriteRecords implements Client.
func (c *StubClient) WriteRecords(_ context.Context, records []map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.batches = append(c.batches, records)
	return nil
}

// PutFile implements Client.
func (c *StubClient) PutFile(_ context.Context, path string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.files[path] = data
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Records returns every written record in write order.
func (c *StubClient) Records() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

// Batches returns the number of WriteRecords calls that succeeded.
func (c *StubClient) Batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

// Files returns the paths of written sidecar files.
func (c *StubClient) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.files))
	for p := range c.files {
		out = append(out, p)
	}
	return out
}

// Closed reports whether Close was called.
func (c *StubClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
