// Package sensor defines the boundary to the platform sensor subsystem.
//
// Platform bindings deliver synchronized color and depth samples through a
// FrameHandler at their own native rate, on their own goroutine. The
// package ships a deterministic synthetic source for the CLI and tests and
// a manual source for callers that push frames from their own binding.
package sensor

import (
	"context"
	"errors"

	"github.com/pithecene-io/depthstream/types"
)

// ErrUnavailable indicates the camera cannot be opened (missing hardware
// or permission denied).
var ErrUnavailable = errors.New("sensor unavailable")

// ErrAlreadyStarted is returned by Start on a running source.
var ErrAlreadyStarted = errors.New("sensor already started")

// FrameHandler receives sensor samples. Frames may omit depth.
type FrameHandler func(frame *types.SensorFrame)

// Source is a platform sensor session.
type Source interface {
	// Start begins delivering frames to handler. It returns once the
	// sensor session is ready.
	Start(ctx context.Context, handler FrameHandler) error
	// Stop ends delivery. No handler call begins after Stop returns.
	// Stop must not be called from inside the handler.
	Stop() error
}
