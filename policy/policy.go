// Package policy implements the frame admission policy of a capture session.
//
// The rate governor decides, from timestamps alone, whether a sensor frame
// may enter the encode-and-send path. Frames it rejects are dropped, never
// queued: excess is shed at the newest frame rather than buffered.
//
// The package also carries the per-session frame statistics and the
// consecutive-failure escalation tracker the session controller uses to
// decide when per-frame failures become a session failure.
package policy

import "sync"

// DefaultTargetHz is the default maximum frame publish rate.
const DefaultTargetHz = 10

// ShouldAccept reports whether a frame captured at nowMs may be accepted
// given the previously accepted frame at lastAcceptedMs.
//
// It returns true iff nowMs - lastAcceptedMs >= 1000/targetHz.
// A targetHz of zero or less disables throttling.
func ShouldAccept(nowMs, lastAcceptedMs int64, targetHz float64) bool {
	if targetHz <= 0 {
		return true
	}
	return float64(nowMs-lastAcceptedMs) >= 1000/targetHz
}

// Governor applies ShouldAccept to a frame stream and owns the
// last-accepted timestamp of one session.
// The first frame after construction or Reset is always accepted.
//
// Governor is safe for concurrent use.
type Governor struct {
	targetHz float64

	mu             sync.Mutex
	lastAcceptedMs int64
	hasAccepted    bool
}

// NewGovernor creates a governor for targetHz.
func NewGovernor(targetHz float64) *Governor {
	return &Governor{targetHz: targetHz}
}

// TargetHz returns the configured rate.
func (g *Governor) TargetHz() float64 {
	return g.targetHz
}

// Admit reports whether a frame at nowMs is accepted and, if so, records
// it as the last accepted frame.
func (g *Governor) Admit(nowMs int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasAccepted && !ShouldAccept(nowMs, g.lastAcceptedMs, g.targetHz) {
		return false
	}
	g.lastAcceptedMs = nowMs
	g.hasAccepted = true
	return true
}

// LastAccepted returns the last accepted timestamp and whether any frame
// has been accepted since the last Reset.
func (g *Governor) LastAccepted() (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastAcceptedMs, g.hasAccepted
}

// Reset forgets the last accepted frame.
func (g *Governor) Reset() {
	g.mu.Lock()
	g.lastAcceptedMs = 0
	g.hasAccepted = false
	g.mu.Unlock()
}
