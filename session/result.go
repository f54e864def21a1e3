package session

import (
	"errors"
	"time"

	"github.com/pithecene-io/depthstream/policy"
	"github.com/pithecene-io/depthstream/types"
)

var (
	// ErrSessionActive is returned by Start while another session occupies
	// the controller.
	ErrSessionActive = errors.New("session already active")
	// ErrConnection marks connection-category failures: the channel could
	// not be opened, was lost, the backend reported an error, or per-frame
	// failures escalated.
	ErrConnection = errors.New("connection error")
	// ErrSensorUnavailable marks a sensor session that could not start.
	ErrSensorUnavailable = errors.New("sensor unavailable")
	// ErrInvalidArgument marks a rejected job id or backend url.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAborted is returned by Start when Stop interrupted it.
	ErrAborted = errors.New("start aborted by stop")
)

// Result is the terminal summary of one session.
type Result struct {
	Job     types.CaptureJob `json:"job" yaml:"job"`
	Outcome types.Outcome    `json:"outcome" yaml:"outcome"`
	// Err is the failure cause; nil for completed sessions.
	Err      error         `json:"-" yaml:"-"`
	Stats    policy.Stats  `json:"stats" yaml:"stats"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// ErrorMessage returns the failure message, or "".
func (r *Result) ErrorMessage() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
