// Package transport implements the per-session frame channel to the
// reconstruction backend.
//
// A Channel is ordered and best-effort: messages are written in Send order
// by a single writer goroutine, and a message that cannot be queued or
// written is not retried. Close is idempotent. Loss of the underlying
// connection closes Done and sets Err.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/depthstream/types"
)

var (
	// ErrClosed is returned by Send after the channel is closed.
	ErrClosed = errors.New("channel closed")
	// ErrQueueFull is returned by Send while the previous message is still
	// waiting for the writer.
	ErrQueueFull = errors.New("channel send queue full")
	// ErrConnectionLost is wrapped by Err when the connection fails.
	ErrConnectionLost = errors.New("connection lost")
)

// ControlHandler receives inbound control messages. It is called from the
// channel's reader goroutine and must not block for long.
type ControlHandler func(msg *types.ControlMessage)

// Dialer opens channels.
type Dialer interface {
	// Open connects to url. It blocks until the channel is usable, ctx is
	// done, or the connection fails.
	Open(ctx context.Context, url string, onControl ControlHandler) (Channel, error)
}

// Channel is one open connection bound to one capture job.
type Channel interface {
	// Send queues msg for delivery without waiting for the network.
	Send(msg *types.WireMessage) error
	// Close tears the connection down. Safe to call more than once.
	Close() error
	// Done is closed once the channel has terminated for any reason.
	Done() <-chan struct{}
	// Err is non-nil after Done if the connection was lost rather than
	// closed; it wraps ErrConnectionLost.
	Err() error
}

// OpenError reports a failed channel open.
type OpenError struct {
	URL string
	// StatusCode is the HTTP status of a rejected upgrade, or 0.
	StatusCode int
	Err        error
}

func (e *OpenError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("open channel %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("open channel %s: %v", e.URL, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}
