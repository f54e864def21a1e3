// Package reader provides the read-side data model for the depthstream CLI.
//
// It turns recordings and archived sessions into flat response structs
// that cli/render and cli/tui display. Read-only commands build their
// output here and never touch session internals.
package reader

import "time"

// OutcomeTruncated marks a recording or archived session that has no end
// record.
const OutcomeTruncated = "truncated"

// InspectRecordingResponse summarizes one recording file.
type InspectRecordingResponse struct {
	Path            string     `json:"path" yaml:"path"`
	ProtocolVersion string     `json:"protocol_version" yaml:"protocol_version"`
	JobID           string     `json:"job_id" yaml:"job_id"`
	SessionID       string     `json:"session_id" yaml:"session_id"`
	BackendURL      string     `json:"backend_url" yaml:"backend_url"`
	Mode            string     `json:"mode" yaml:"mode"`
	Outcome         string     `json:"outcome" yaml:"outcome"`
	Error           string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt         *time.Time `json:"ended_at" yaml:"ended_at"`

	Frames      int     `json:"frames" yaml:"frames"`
	DepthFrames int     `json:"depth_frames" yaml:"depth_frames"`
	ImageBytes  int64   `json:"image_bytes" yaml:"image_bytes"`
	DepthBytes  int64   `json:"depth_bytes" yaml:"depth_bytes"`
	ImageSize   string  `json:"image_size" yaml:"image_size"`
	DepthSize   string  `json:"depth_size,omitempty" yaml:"depth_size,omitempty"`
	FirstTs     int64   `json:"first_ts" yaml:"first_ts"`
	LastTs      int64   `json:"last_ts" yaml:"last_ts"`
	SpanMs      int64   `json:"span_ms" yaml:"span_ms"`
	EffectiveHz float64 `json:"effective_hz" yaml:"effective_hz"`
	MinDeltaMs  int64   `json:"min_delta_ms" yaml:"min_delta_ms"`

	// Session counters from the end record; zero when truncated.
	FramesReceived int64 `json:"frames_received" yaml:"frames_received"`
	FramesSent     int64 `json:"frames_sent" yaml:"frames_sent"`
	FramesDropped  int64 `json:"frames_dropped" yaml:"frames_dropped"`
}

// FrameItem is one row of list frames.
type FrameItem struct {
	Seq         int    `json:"seq" yaml:"seq"`
	TimestampMs int64  `json:"ts" yaml:"ts"`
	DeltaMs     int64  `json:"delta_ms" yaml:"delta_ms"`
	HasDepth    bool   `json:"has_depth" yaml:"has_depth"`
	ImageBytes  int    `json:"image_bytes" yaml:"image_bytes"`
	DepthBytes  int    `json:"depth_bytes" yaml:"depth_bytes"`
	ImageSize   string `json:"image_size" yaml:"image_size"`
}

// ListFramesOptions filters list frames.
type ListFramesOptions struct {
	// DepthOnly keeps frames carrying depth.
	DepthOnly bool
	// Limit caps the rows returned. Zero means no limit.
	Limit int
}

// SessionStats is an archived session read back from the dataset.
type SessionStats struct {
	JobID           string `json:"job_id" yaml:"job_id"`
	SessionID       string `json:"session_id" yaml:"session_id"`
	Source          string `json:"source" yaml:"source"`
	Day             string `json:"day" yaml:"day"`
	Mode            string `json:"mode" yaml:"mode"`
	ChannelURL      string `json:"channel_url" yaml:"channel_url"`
	ProtocolVersion string `json:"protocol_version" yaml:"protocol_version"`
	Outcome         string `json:"outcome" yaml:"outcome"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt       string `json:"started_at" yaml:"started_at"`
	EndedAt         string `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	DurationMs      int64  `json:"duration_ms" yaml:"duration_ms"`

	FramesArchived int   `json:"frames_archived" yaml:"frames_archived"`
	DepthFrames    int   `json:"depth_frames" yaml:"depth_frames"`
	PayloadBytes   int64 `json:"payload_bytes" yaml:"payload_bytes"`

	FramesReceived  int64 `json:"frames_received" yaml:"frames_received"`
	FramesSent      int64 `json:"frames_sent" yaml:"frames_sent"`
	FramesDropped   int64 `json:"frames_dropped" yaml:"frames_dropped"`
	FramesThrottled int64 `json:"frames_throttled" yaml:"frames_throttled"`
	FramesBusy      int64 `json:"frames_busy" yaml:"frames_busy"`
	EncodeFailures  int64 `json:"encode_failures" yaml:"encode_failures"`
	SendFailures    int64 `json:"send_failures" yaml:"send_failures"`
	RecordFailures  int64 `json:"record_failures" yaml:"record_failures"`
	BytesSent       int64 `json:"bytes_sent" yaml:"bytes_sent"`
	AcksReceived    int64 `json:"acks_received" yaml:"acks_received"`
	BackendLastAck  int64 `json:"backend_frames_last_ack" yaml:"backend_frames_last_ack"`
}
