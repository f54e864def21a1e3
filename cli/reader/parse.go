package reader

import (
	"errors"

	"github.com/pithecene-io/depthstream/archive"
)

// ParseSessionSummary converts an archived session to SessionStats.
// Handles both int64 (direct writes) and float64 (JSON round-trips) for
// numeric fields.
func ParseSessionSummary(summary *archive.SessionSummary) (*SessionStats, error) {
	if summary == nil {
		return nil, errors.New("nil session summary")
	}
	if summary.Session == nil {
		return nil, errors.New("archived session missing its session record")
	}

	s := summary.Session
	stats := &SessionStats{
		JobID:           summary.JobID,
		SessionID:       toString(s["session_id"]),
		Source:          toString(s["source"]),
		Day:             toString(s["day"]),
		Mode:            toString(s["mode"]),
		ChannelURL:      toString(s["channel_url"]),
		StartedAt:       toString(s["started_at"]),
		ProtocolVersion: toString(s["protocol_version"]),
		Outcome:         OutcomeTruncated,
		FramesArchived:  len(summary.Frames),
	}

	for _, f := range summary.Frames {
		if b, ok := f["has_depth"].(bool); ok && b {
			stats.DepthFrames++
		}
		stats.PayloadBytes += toInt64(f["payload_size"])
	}

	if e := summary.End; e != nil {
		stats.Outcome = toString(e["outcome"])
		stats.Error = toString(e["error"])
		stats.EndedAt = toString(e["ended_at"])
		stats.DurationMs = toInt64(e["duration_ms"])
		stats.FramesReceived = toInt64(e["frames_received_total"])
		stats.FramesSent = toInt64(e["frames_sent_total"])
		stats.FramesDropped = toInt64(e["frames_dropped_total"])
		stats.FramesThrottled = toInt64(e["frames_throttled_total"])
		stats.FramesBusy = toInt64(e["frames_busy_total"])
		stats.EncodeFailures = toInt64(e["encode_failures_total"])
		stats.SendFailures = toInt64(e["send_failures_total"])
		stats.RecordFailures = toInt64(e["record_failures_total"])
		stats.BytesSent = toInt64(e["bytes_sent_total"])
		stats.AcksReceived = toInt64(e["acks_received_total"])
		stats.BackendLastAck = toInt64(e["backend_frames_last_ack"])
		if stats.Outcome == "" {
			return nil, errors.New("session_end record missing required field: outcome")
		}
	}

	if stats.SessionID == "" {
		return nil, errors.New("session record missing required field: session_id")
	}
	if stats.Mode == "" {
		return nil, errors.New("session record missing required field: mode")
	}
	return stats, nil
}

// toInt64 converts a value to int64, handling float64 from JSON and int64 from direct writes.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
