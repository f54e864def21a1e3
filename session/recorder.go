package session

import (
	"errors"

	"github.com/pithecene-io/depthstream/policy"
	"github.com/pithecene-io/depthstream/types"
)

// Recorder observes the messages of a session.
//
// Record is called on the capture path with the controller locked and
// must not block on I/O; implementations that persist remotely buffer and
// flush in the background. Recorder errors are per-frame and never fail
// the session.
type Recorder interface {
	// Begin is called once the session is streaming.
	Begin(job *types.CaptureJob) error
	// Record observes one sent message.
	Record(msg *types.WireMessage) error
	// End is called once after the session stops or fails.
	End(outcome types.Outcome, sessionErr error, stats policy.Stats) error
}

// MultiRecorder fans out to several recorders.
type MultiRecorder []Recorder

var _ Recorder = MultiRecorder(nil)

// Begin calls Begin on every recorder.
func (m MultiRecorder) Begin(job *types.CaptureJob) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Begin(job))
	}
	return errors.Join(errs...)
}

// Record calls Record on every recorder.
func (m MultiRecorder) Record(msg *types.WireMessage) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Record(msg))
	}
	return errors.Join(errs...)
}

// End calls End on every recorder.
func (m MultiRecorder) End(outcome types.Outcome, sessionErr error, stats policy.Stats) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.End(outcome, sessionErr, stats))
	}
	return errors.Join(errs...)
}
