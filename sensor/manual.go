package sensor

import (
	"context"
	"sync"

	"github.com/pithecene-io/depthstream/types"
)

// Manual is a Source driven by explicit Push calls. Platform bindings
// outside this module use it to feed frames from their own callbacks.
type Manual struct {
	// StartErr, when set, is returned by Start.
	StartErr error

	mu      sync.RWMutex
	handler FrameHandler
	starts  int
	stops   int
}

var _ Source = (*Manual)(nil)

// NewManual creates a manual source.
func NewManual() *Manual {
	return &Manual{}
}

// Start registers handler.
func (m *Manual) Start(_ context.Context, handler FrameHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return m.StartErr
	}
	if m.handler != nil {
		return ErrAlreadyStarted
	}
	m.handler = handler
	m.starts++
	return nil
}

// Stop unregisters the handler. Pushes in progress complete first.
func (m *Manual) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handler != nil {
		m.handler = nil
		m.stops++
	}
	return nil
}

// Push delivers frame synchronously. It reports false when no session is
// running and the frame was discarded.
func (m *Manual) Push(frame *types.SensorFrame) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.handler == nil {
		return false
	}
	m.handler(frame)
	return true
}

// Running reports whether a handler is registered.
func (m *Manual) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handler != nil
}

// Counts returns how many sessions were started and stopped.
func (m *Manual) Counts() (starts, stops int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.starts, m.stops
}
