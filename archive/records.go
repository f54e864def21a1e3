package archive

import (
	"fmt"
	"time"

	"github.com/pithecene-io/depthstream/policy"
	"github.com/pithecene-io/depthstream/types"
)

// Record kind discriminators. record_kind is also the last partition key.
const (
	RecordKindSession    = "session"
	RecordKindFrame      = "frame"
	RecordKindSessionEnd = "session_end"
)

// partition holds the partition values shared by a session's records.
type partition struct {
	Source string
	Day    string
	JobID  string
}

func (p partition) apply(m map[string]any, kind string) map[string]any {
	m["record_kind"] = kind
	m["source"] = p.Source
	m["day"] = p.Day
	m["job_id"] = p.JobID
	return m
}

// filePath is the sidecar file location for a session payload:
// datasets/<dataset>/partitions/source=<s>/day=<d>/job_id=<j>/files/<name>
func (p partition) filePath(dataset, name string) string {
	return fmt.Sprintf("datasets/%s/partitions/source=%s/day=%s/job_id=%s/files/%s",
		dataset, p.Source, p.Day, p.JobID, name)
}

func sessionRecord(p partition, job *types.CaptureJob) map[string]any {
	return p.apply(map[string]any{
		"session_id":       job.SessionID,
		"backend_url":      job.BackendURL,
		"channel_url":      job.ChannelURL,
		"mode":             string(job.Mode),
		"started_at":       job.StartedAt.UTC().Format(time.RFC3339Nano),
		"protocol_version": types.ProtocolVersion,
	}, RecordKindSession)
}

// frameRecord describes one sent message. Payload bytes are referenced by
// file name when stored, never inlined.
func frameRecord(p partition, sessionID string, seq int64, msg *types.WireMessage, imageFile, depthFile string) map[string]any {
	m := map[string]any{
		"session_id":   sessionID,
		"seq":          seq,
		"ts":           msg.TimestampMs,
		"image_bytes":  int64(len(msg.Image)),
		"depth_bytes":  int64(len(msg.Depth)),
		"image_size":   map[string]any{"w": msg.ImageSize.W, "h": msg.ImageSize.H},
		"intrinsics":   msg.Intrinsics,
		"camera_pose":  msg.CameraPose,
		"has_depth":    msg.HasDepth(),
		"payload_size": int64(msg.PayloadBytes()),
	}
	if msg.DepthSize != nil {
		m["depth_size"] = map[string]any{"w": msg.DepthSize.W, "h": msg.DepthSize.H}
	}
	if imageFile != "" {
		m["image_file"] = imageFile
	}
	if depthFile != "" {
		m["depth_file"] = depthFile
	}
	return p.apply(m, RecordKindFrame)
}

func sessionEndRecord(p partition, job *types.CaptureJob, outcome types.Outcome, sessionErr error, stats policy.Stats, endedAt time.Time) map[string]any {
	m := map[string]any{
		"session_id":              job.SessionID,
		"outcome":                 string(outcome),
		"ended_at":                endedAt.UTC().Format(time.RFC3339Nano),
		"duration_ms":             endedAt.Sub(job.StartedAt).Milliseconds(),
		"frames_received_total":   stats.FramesReceived,
		"frames_accepted_total":   stats.FramesAccepted,
		"frames_throttled_total":  stats.FramesThrottled,
		"frames_busy_total":       stats.FramesBusy,
		"frames_sent_total":       stats.FramesSent,
		"frames_dropped_total":    stats.Dropped(),
		"encode_failures_total":   stats.EncodeFailures,
		"send_failures_total":     stats.SendFailures,
		"record_failures_total":   stats.RecordFailures,
		"bytes_sent_total":        stats.BytesSent,
		"acks_received_total":     stats.AcksReceived,
		"backend_frames_last_ack": stats.LastAckFrames,
	}
	if sessionErr != nil {
		m["error"] = sessionErr.Error()
	}
	return p.apply(m, RecordKindSessionEnd)
}
