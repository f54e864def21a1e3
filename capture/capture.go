// Package capture is the public entry point for starting and stopping a
// capture session.
//
// New selects a strategy from the platform probe once: a streaming facade
// backed by a session.Controller when capture is supported, or a facade
// that always answers unsupported. The streaming facade re-probes depth
// support on every Start to choose the capture mode.
package capture

import (
	"context"
	"errors"

	"github.com/pithecene-io/depthstream/log"
	"github.com/pithecene-io/depthstream/probe"
	"github.com/pithecene-io/depthstream/session"
	"github.com/pithecene-io/depthstream/types"
)

// Facade starts and stops capture sessions.
type Facade interface {
	// Start begins streaming jobID to backendURL. Capability and
	// exclusivity outcomes are statuses; connection and argument failures
	// are *Error values.
	Start(ctx context.Context, jobID, backendURL string) (types.Status, error)
	// Stop ends the current session. It is idempotent.
	Stop(ctx context.Context)
	// State returns the current session state.
	State() types.CaptureState
	// LastResult returns the most recently ended session, or nil.
	LastResult() *session.Result
}

// Config configures a Facade.
type Config struct {
	// Probe answers capability questions. Nil means probe.Full.
	Probe probe.Probe
	// Session configures the controller of the streaming strategy.
	Session session.Config
}

// New returns the facade strategy matching the platform's capabilities.
func New(cfg Config) Facade {
	p := cfg.Probe
	if p == nil {
		p = probe.Full
	}
	logger := cfg.Session.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.Named("capture")

	if !p.SupportsCapture() {
		logger.Warn("capture not supported on this platform", nil)
		return &unsupportedFacade{cfg: cfg}
	}
	return &streamingFacade{
		probe:  p,
		ctrl:   session.NewController(cfg.Session),
		logger: logger,
	}
}

type streamingFacade struct {
	probe  probe.Probe
	ctrl   *session.Controller
	logger *log.Logger
}

var _ Facade = (*streamingFacade)(nil)

func (f *streamingFacade) Start(ctx context.Context, jobID, backendURL string) (types.Status, error) {
	mode := types.ModeDepth
	if !f.probe.SupportsSynchronizedDepth() {
		mode = types.ModeColorOnly
		f.logger.Info("synchronized depth unavailable, streaming color only", map[string]any{"job_id": jobID})
	}

	err := f.ctrl.Start(ctx, jobID, backendURL, mode)
	switch {
	case err == nil:
		return types.StatusStarted, nil
	case errors.Is(err, session.ErrSessionActive):
		return types.StatusAlreadyActive, nil
	case errors.Is(err, session.ErrSensorUnavailable):
		return types.StatusUnsupported, nil
	default:
		return "", wrap(err)
	}
}

func (f *streamingFacade) Stop(ctx context.Context) {
	f.ctrl.Stop(ctx)
}

func (f *streamingFacade) State() types.CaptureState {
	return f.ctrl.State()
}

func (f *streamingFacade) LastResult() *session.Result {
	return f.ctrl.LastResult()
}

// Controller exposes the controller behind a streaming facade, or nil.
func Controller(f Facade) *session.Controller {
	if s, ok := f.(*streamingFacade); ok {
		return s.ctrl
	}
	return nil
}

type unsupportedFacade struct {
	cfg Config
}

var _ Facade = (*unsupportedFacade)(nil)

func (f *unsupportedFacade) Start(context.Context, string, string) (types.Status, error) {
	f.cfg.Session.Collector.IncSessionUnsupported()
	return types.StatusUnsupported, nil
}

func (f *unsupportedFacade) Stop(context.Context) {}

func (f *unsupportedFacade) State() types.CaptureState {
	return types.StateIdle
}

func (f *unsupportedFacade) LastResult() *session.Result {
	return nil
}
