package policy

import "sync"

// Stats are the frame counters of one capture session.
//
// FramesReceived = FramesAccepted + FramesThrottled + FramesBusy, and every
// accepted frame ends in exactly one of FramesSent, FramesAbandoned,
// EncodeFailures or SendFailures.
type Stats struct {
	// FramesReceived is the number of sensor callbacks while streaming.
	FramesReceived int64 `json:"frames_received" yaml:"frames_received"`
	// FramesAccepted is the number of frames the governor admitted.
	FramesAccepted int64 `json:"frames_accepted" yaml:"frames_accepted"`
	// FramesThrottled is the number of frames the governor rejected.
	FramesThrottled int64 `json:"frames_throttled" yaml:"frames_throttled"`
	// FramesBusy is the number of frames dropped while another was in flight.
	FramesBusy int64 `json:"frames_busy" yaml:"frames_busy"`
	// FramesSent is the number of messages handed to the channel.
	FramesSent int64 `json:"frames_sent" yaml:"frames_sent"`
	// FramesAbandoned is the number of accepted frames whose session ended
	// before they were sent.
	FramesAbandoned int64 `json:"frames_abandoned" yaml:"frames_abandoned"`
	EncodeFailures  int64 `json:"encode_failures" yaml:"encode_failures"`
	SendFailures    int64 `json:"send_failures" yaml:"send_failures"`
	// RecordFailures counts recorder errors; the frame was still sent.
	RecordFailures int64 `json:"record_failures" yaml:"record_failures"`
	// BytesSent is the sum of compressed payload bytes sent.
	BytesSent int64 `json:"bytes_sent" yaml:"bytes_sent"`
	// AcksReceived is the number of control messages from the backend.
	AcksReceived int64 `json:"acks_received" yaml:"acks_received"`
	// LastAckFrames is the backend's last reported frame count.
	LastAckFrames int64 `json:"last_ack_frames" yaml:"last_ack_frames"`
}

// Dropped returns the number of received frames that were not sent.
func (s Stats) Dropped() int64 {
	return s.FramesThrottled + s.FramesBusy + s.FramesAbandoned + s.EncodeFailures + s.SendFailures
}

// StatsRecorder is a thread-safe Stats accumulator.
// Callers record explicit outcomes; the recorder makes no decisions.
//
// Lock discipline: the plain methods lock internally. The Locked variants
// must only be called between Lock and Unlock, so a caller can update
// several counters atomically with respect to Snapshot.
type StatsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

// NewStatsRecorder creates an empty recorder.
func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{}
}

// Lock acquires the recorder for a batch of Locked updates.
func (r *StatsRecorder) Lock() { r.mu.Lock() }

// Unlock releases the recorder.
func (r *StatsRecorder) Unlock() { r.mu.Unlock() }

// IncReceived records one sensor callback and its governor decision.
func (r *StatsRecorder) IncReceived(accepted bool) {
	r.mu.Lock()
	r.IncReceivedLocked(accepted)
	r.mu.Unlock()
}

// IncBusy records a frame received and dropped because another was in
// flight. The governor is not consulted for such frames.
func (r *StatsRecorder) IncBusy() {
	r.mu.Lock()
	r.stats.FramesReceived++
	r.stats.FramesBusy++
	r.mu.Unlock()
}

// IncAbandoned records an accepted frame whose session ended before it
// was sent.
func (r *StatsRecorder) IncAbandoned() {
	r.mu.Lock()
	r.stats.FramesAbandoned++
	r.mu.Unlock()
}

// IncSent records a message handed to the channel.
func (r *StatsRecorder) IncSent(payloadBytes int) {
	r.mu.Lock()
	r.IncSentLocked(payloadBytes)
	r.mu.Unlock()
}

// IncSendFailure records a rejected send.
func (r *StatsRecorder) IncSendFailure() {
	r.mu.Lock()
	r.IncSendFailureLocked()
	r.mu.Unlock()
}

// IncEncodeFailure records a failed encode.
func (r *StatsRecorder) IncEncodeFailure() {
	r.mu.Lock()
	r.stats.EncodeFailures++
	r.mu.Unlock()
}

// IncAck records a backend control message. frames < 0 means the message
// carried no frame count.
func (r *StatsRecorder) IncAck(frames int64) {
	r.mu.Lock()
	r.stats.AcksReceived++
	if frames >= 0 {
		r.stats.LastAckFrames = frames
	}
	r.mu.Unlock()
}

// Snapshot returns a consistent copy of the counters.
func (r *StatsRecorder) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Reset zeroes all counters.
func (r *StatsRecorder) Reset() {
	r.mu.Lock()
	r.stats = Stats{}
	r.mu.Unlock()
}

// --- Locked methods ---
// Caller must hold the recorder via Lock.

// IncReceivedLocked records one sensor callback and its governor decision.
func (r *StatsRecorder) IncReceivedLocked(accepted bool) {
	r.stats.FramesReceived++
	if accepted {
		r.stats.FramesAccepted++
	} else {
		r.stats.FramesThrottled++
	}
}

// IncSentLocked records a message handed to the channel.
func (r *StatsRecorder) IncSentLocked(payloadBytes int) {
	r.stats.FramesSent++
	r.stats.BytesSent += int64(payloadBytes)
}

// IncSendFailureLocked records a rejected send.
func (r *StatsRecorder) IncSendFailureLocked() {
	r.stats.SendFailures++
}

// IncRecordFailureLocked records a recorder error.
func (r *StatsRecorder) IncRecordFailureLocked() {
	r.stats.RecordFailures++
}
