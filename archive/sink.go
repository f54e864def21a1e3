package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pithecene-io/depthstream/log"
	"github.com/pithecene-io/depthstream/metrics"
	"github.com/pithecene-io/depthstream/policy"
	"github.com/pithecene-io/depthstream/session"
	"github.com/pithecene-io/depthstream/types"
)

// Sink defaults.
const (
	DefaultFlushEvery    = 30
	DefaultFlushInterval = 2 * time.Second
	DefaultMaxBuffered   = 1024
	DefaultWriteTimeout  = 30 * time.Second
)

var (
	// ErrNoSession is returned by Record outside Begin/End.
	ErrNoSession = errors.New("archive: no session open")
	// ErrSessionOpen is returned by Begin while a session is open.
	ErrSessionOpen = errors.New("archive: session already open")
	// ErrBufferFull is returned by Record when the flusher is behind.
	ErrBufferFull = errors.New("archive: buffer full")
)

// Config configures a Sink.
type Config struct {
	// Dataset is the Lode dataset ID. Empty means DefaultDataset.
	Dataset string
	// Source is the source partition value, usually the capturing device.
	// Empty means the host name.
	Source string
	// FlushEvery triggers a background flush after this many buffered frames.
	FlushEvery int
	// FlushInterval bounds how long a frame stays buffered.
	FlushInterval time.Duration
	// MaxBuffered bounds buffered frames; beyond it Record fails.
	MaxBuffered int
	// StorePayloads writes image and depth payloads as sidecar files.
	StorePayloads bool
	// WriteTimeout bounds each flush.
	WriteTimeout time.Duration

	Logger    *log.Logger
	Collector *metrics.Collector
	// Clock returns the wall time. Nil means time.Now.
	Clock func() time.Time
}

type sidecar struct {
	path string
	data []byte
}

type pendingFrame struct {
	record map[string]any
	files  []sidecar
}

// Sink archives sessions through a Client. It implements session.Recorder:
// Record only buffers, and a background flusher writes batches while the
// session runs. End flushes synchronously.
type Sink struct {
	config Config
	client Client
	logger *log.Logger

	mu        sync.Mutex
	job       *types.CaptureJob
	part      partition
	seq       int64
	headerOut bool
	pending   []pendingFrame
	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}

	// writeMu serializes client writes so batches land in order.
	writeMu sync.Mutex
}

var _ session.Recorder = (*Sink)(nil)

// NewSink creates a sink over client.
func NewSink(config Config, client Client) *Sink {
	if config.Dataset == "" {
		config.Dataset = DefaultDataset
	}
	if config.Source == "" {
		config.Source = hostSource()
	}
	if config.FlushEvery <= 0 {
		config.FlushEvery = DefaultFlushEvery
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.MaxBuffered <= 0 {
		config.MaxBuffered = DefaultMaxBuffered
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Sink{config: config, client: client, logger: logger.Named("archive")}
}

func hostSource() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}

// Source returns the source partition value written with every record.
func (s *Sink) Source() string {
	return s.config.Source
}

// Dataset returns the dataset id records are written to.
func (s *Sink) Dataset() string {
	return s.config.Dataset
}

// Begin opens a session and starts the background flusher.
func (s *Sink) Begin(job *types.CaptureJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job != nil {
		return ErrSessionOpen
	}
	j := *job
	s.job = &j
	s.part = partition{Source: s.config.Source, Day: DeriveDay(job.StartedAt), JobID: job.JobID}
	s.seq = 0
	s.headerOut = false
	s.pending = nil
	s.kick = make(chan struct{}, 1)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.flusher(s.kick, s.stop, s.done)
	return nil
}

// Record buffers one sent message. It never blocks on storage.
func (s *Sink) Record(msg *types.WireMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return ErrNoSession
	}
	if len(s.pending) >= s.config.MaxBuffered {
		return ErrBufferFull
	}

	seq := s.seq
	s.seq++

	var files []sidecar
	var imageFile, depthFile string
	if s.config.StorePayloads {
		imageFile = fmt.Sprintf("%06d_%d.jpg", seq, msg.TimestampMs)
		files = append(files, sidecar{path: s.part.filePath(s.config.Dataset, imageFile), data: msg.Image})
		if msg.HasDepth() {
			depthFile = fmt.Sprintf("%06d_%d_depth.png", seq, msg.TimestampMs)
			files = append(files, sidecar{path: s.part.filePath(s.config.Dataset, depthFile), data: msg.Depth})
		}
	}

	s.pending = append(s.pending, pendingFrame{
		record: frameRecord(s.part, s.job.SessionID, seq, msg, imageFile, depthFile),
		files:  files,
	})
	if len(s.pending) >= s.config.FlushEvery {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// End stops the flusher, writes the remaining frames and the session_end
// record, and closes the session.
func (s *Sink) End(outcome types.Outcome, sessionErr error, stats policy.Stats) error {
	s.mu.Lock()
	if s.job == nil {
		s.mu.Unlock()
		return nil
	}
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()
	flushErr := s.flush(ctx)

	s.mu.Lock()
	job, part := s.job, s.part
	s.job = nil
	s.mu.Unlock()

	end := sessionEndRecord(part, job, outcome, sessionErr, stats, s.config.Clock())
	endErr := s.write(ctx, []map[string]any{end})
	s.logger.ForJob(job).Info("session archived", map[string]any{
		"outcome": string(outcome),
		"dataset": s.config.Dataset,
		"source":  part.Source,
	})
	return errors.Join(flushErr, endErr)
}

// Close closes the client. An open session is ended as failed.
func (s *Sink) Close() error {
	s.mu.Lock()
	open := s.job != nil
	s.mu.Unlock()
	var endErr error
	if open {
		endErr = s.End(types.OutcomeFailed, errors.New("archive closed"), policy.Stats{})
	}
	return errors.Join(endErr, s.client.Close())
}

func (s *Sink) flusher(kick <-chan struct{}, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-kick:
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
		if err := s.flush(ctx); err != nil {
			s.logger.Warn("archive flush failed", map[string]any{"error": err.Error()})
		}
		cancel()
	}
}

// flush writes the session header once, then every buffered frame.
// Frames that fail to write are dropped.
func (s *Sink) flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	job, part := s.job, s.part
	header := !s.headerOut && job != nil
	s.headerOut = s.headerOut || header
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	var errs []error
	if header {
		errs = append(errs, s.writeLocked(ctx, []map[string]any{sessionRecord(part, job)}))
	}
	if len(batch) == 0 {
		return errors.Join(errs...)
	}

	records := make([]map[string]any, 0, len(batch))
	for _, f := range batch {
		for _, file := range f.files {
			if err := s.client.PutFile(ctx, file.path, file.data); err != nil {
				s.config.Collector.IncArchiveWriteFailure()
				errs = append(errs, err)
				continue
			}
			s.config.Collector.IncArchiveWriteSuccess()
		}
		records = append(records, f.record)
	}
	errs = append(errs, s.writeLocked(ctx, records))
	return errors.Join(errs...)
}

func (s *Sink) write(ctx context.Context, records []map[string]any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked(ctx, records)
}

// writeLocked writes one batch and counts the outcome. Caller holds writeMu.
func (s *Sink) writeLocked(ctx context.Context, records []map[string]any) error {
	if err := s.client.WriteRecords(ctx, records); err != nil {
		s.config.Collector.IncArchiveWriteFailure()
		return err
	}
	s.config.Collector.IncArchiveWriteSuccess()
	return nil
}
