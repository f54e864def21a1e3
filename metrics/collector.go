// Package metrics provides process-level capture metrics.
//
// The Collector accumulates counters across the sessions of one process.
// It is a leaf package with no internal dependencies. Frame counters are
// absorbed from policy.Stats when a session ends rather than recorded
// live, avoiding double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Session lifecycle
	SessionsStarted     int64 `json:"sessions_started" yaml:"sessions_started"`
	SessionsCompleted   int64 `json:"sessions_completed" yaml:"sessions_completed"`
	SessionsFailed      int64 `json:"sessions_failed" yaml:"sessions_failed"`
	SessionsUnsupported int64 `json:"sessions_unsupported" yaml:"sessions_unsupported"`
	SessionsRejected    int64 `json:"sessions_rejected" yaml:"sessions_rejected"`

	// Transport
	ConnectFailures int64 `json:"connect_failures" yaml:"connect_failures"`
	ConnectionsLost int64 `json:"connections_lost" yaml:"connections_lost"`
	ControlMessages int64 `json:"control_messages" yaml:"control_messages"`

	// Frames (absorbed from policy.Stats at session end)
	FramesReceived int64 `json:"frames_received" yaml:"frames_received"`
	FramesSent     int64 `json:"frames_sent" yaml:"frames_sent"`
	FramesDropped  int64 `json:"frames_dropped" yaml:"frames_dropped"`
	EncodeFailures int64 `json:"encode_failures" yaml:"encode_failures"`
	SendFailures   int64 `json:"send_failures" yaml:"send_failures"`
	BytesSent      int64 `json:"bytes_sent" yaml:"bytes_sent"`

	// Archive / Storage
	ArchiveWriteSuccess int64 `json:"archive_write_success" yaml:"archive_write_success"`
	ArchiveWriteFailure int64 `json:"archive_write_failure" yaml:"archive_write_failure"`

	// Dimensions (informational, set at construction)
	WireFormat     string `json:"wire_format" yaml:"wire_format"`
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`
}

// Collector accumulates capture metrics.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
// storageBackend is empty when no archive is configured.
func NewCollector(wireFormat, storageBackend string) *Collector {
	return &Collector{s: Snapshot{WireFormat: wireFormat, StorageBackend: storageBackend}}
}

func (c *Collector) inc(field func(s *Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	field(&c.s)
	c.mu.Unlock()
}

// --- Session lifecycle ---

// IncSessionStarted records a session that reached streaming.
func (c *Collector) IncSessionStarted() { c.inc(func(s *Snapshot) { s.SessionsStarted++ }) }

// IncSessionCompleted records a session stopped by its caller.
func (c *Collector) IncSessionCompleted() { c.inc(func(s *Snapshot) { s.SessionsCompleted++ }) }

// IncSessionFailed records a session that ended on an unrecoverable error.
func (c *Collector) IncSessionFailed() { c.inc(func(s *Snapshot) { s.SessionsFailed++ }) }

// IncSessionUnsupported records a start refused for lack of capability.
func (c *Collector) IncSessionUnsupported() { c.inc(func(s *Snapshot) { s.SessionsUnsupported++ }) }

// IncSessionRejected records a start refused because a session was active.
func (c *Collector) IncSessionRejected() { c.inc(func(s *Snapshot) { s.SessionsRejected++ }) }

// --- Transport ---

// IncConnectFailure records a channel that could not be opened.
func (c *Collector) IncConnectFailure() { c.inc(func(s *Snapshot) { s.ConnectFailures++ }) }

// IncConnectionLost records a channel lost mid-session.
func (c *Collector) IncConnectionLost() { c.inc(func(s *Snapshot) { s.ConnectionsLost++ }) }

// IncControlMessage records an inbound backend control message.
func (c *Collector) IncControlMessage() { c.inc(func(s *Snapshot) { s.ControlMessages++ }) }

// --- Archive / Storage ---
// Archive counters are per-write call, not per record.

// IncArchiveWriteSuccess records a successful archive dataset write.
func (c *Collector) IncArchiveWriteSuccess() { c.inc(func(s *Snapshot) { s.ArchiveWriteSuccess++ }) }

// IncArchiveWriteFailure records a failed archive dataset write.
func (c *Collector) IncArchiveWriteFailure() { c.inc(func(s *Snapshot) { s.ArchiveWriteFailure++ }) }

// --- Frames (absorbed from policy.Stats) ---

// AbsorbFrameStats adds one session's final frame counters.
// Plain integers keep this package free of a policy dependency.
func (c *Collector) AbsorbFrameStats(received, sent, dropped, encodeFailures, sendFailures, bytesSent int64) {
	c.inc(func(s *Snapshot) {
		s.FramesReceived += received
		s.FramesSent += sent
		s.FramesDropped += dropped
		s.EncodeFailures += encodeFailures
		s.SendFailures += sendFailures
		s.BytesSent += bytesSent
	})
}

// --- Snapshot ---

// Snapshot returns a point-in-time copy of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
