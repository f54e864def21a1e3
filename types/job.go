// Package types defines core domain types for the depthstream capture pipeline.
// Wire-facing types carry both json and msgpack tags so either codec in the
// wire package produces the same field names.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CaptureState is the state of a capture session.
type CaptureState string

// Capture session states.
const (
	StateIdle      CaptureState = "idle"
	StateStarting  CaptureState = "starting"
	StateStreaming CaptureState = "streaming"
	StateStopping  CaptureState = "stopping"
	StateFailed    CaptureState = "failed"
)

// IsActive reports whether a session occupies the controller in this state.
// Failed is not active: the next Start or Stop acknowledges it.
func (s CaptureState) IsActive() bool {
	return s == StateStarting || s == StateStreaming || s == StateStopping
}

// CaptureMode selects whether depth is streamed alongside color.
type CaptureMode string

const (
	// ModeDepth streams color and depth.
	ModeDepth CaptureMode = "depth"
	// ModeColorOnly streams color only; depth payloads are omitted.
	ModeColorOnly CaptureMode = "color_only"
)

// Status is the normalized result of a facade Start call.
type Status string

// Facade statuses. Connection failures are returned as errors, not statuses.
const (
	StatusStarted       Status = "started"
	StatusUnsupported   Status = "unsupported"
	StatusAlreadyActive Status = "alreadyActive"
)

// Outcome is the terminal outcome of a capture session.
type Outcome string

const (
	// OutcomeCompleted indicates the caller stopped a healthy session.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailed indicates the session ended on an unrecoverable error.
	OutcomeFailed Outcome = "failed"
)

// CaptureJob identifies one scanning session.
type CaptureJob struct {
	// JobID is caller-supplied and unique per session.
	JobID string `json:"job_id"`
	// SessionID is generated per Start for log correlation.
	SessionID string `json:"session_id"`
	// BackendURL is the base address supplied by the caller.
	BackendURL string `json:"backend_url"`
	// ChannelURL is the resolved per-job streaming address.
	ChannelURL string `json:"channel_url"`
	// Mode is the capture mode chosen at Start.
	Mode CaptureMode `json:"mode"`
	// StartedAt is the wall-clock time Start was accepted.
	StartedAt time.Time `json:"started_at"`
}

// ValidateJobID checks a caller-supplied job identifier.
// The id becomes a URL path segment and a storage partition value, so
// separators are rejected rather than escaped twice downstream.
func ValidateJobID(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return errors.New("job_id must be non-empty")
	}
	if strings.ContainsAny(jobID, "/\\") {
		return fmt.Errorf("job_id %q must not contain path separators", jobID)
	}
	if jobID == "." || jobID == ".." {
		return fmt.Errorf("job_id %q is not a valid identifier", jobID)
	}
	return nil
}

// Validate checks the identity fields of a job.
func (j *CaptureJob) Validate() error {
	if err := ValidateJobID(j.JobID); err != nil {
		return err
	}
	if j.BackendURL == "" {
		return errors.New("backend_url must be non-empty")
	}
	switch j.Mode {
	case ModeDepth, ModeColorOnly:
	default:
		return fmt.Errorf("unknown capture mode %q", j.Mode)
	}
	return nil
}
