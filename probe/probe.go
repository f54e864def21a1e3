// Package probe answers capability questions about the capture platform.
//
// Answers are recomputed on every call. A platform update can change what
// the device supports, so callers must not cache a Probe result across
// sessions.
package probe

import "time"

// Probe reports capture capabilities at call time.
type Probe interface {
	// SupportsSynchronizedDepth reports whether color and depth frames can
	// be delivered in lockstep. False means color-only degraded mode.
	SupportsSynchronizedDepth() bool
	// SupportsCapture reports whether any camera streaming is available.
	// False means the platform is unsupported.
	SupportsCapture() bool
}

// Func adapts caller-supplied check functions to a Probe.
// A nil function reports false.
type Func struct {
	Depth   func() bool
	Capture func() bool
}

var _ Probe = Func{}

// SupportsSynchronizedDepth evaluates the depth check.
func (f Func) SupportsSynchronizedDepth() bool {
	if f.Depth == nil {
		return false
	}
	return f.Depth()
}

// SupportsCapture evaluates the capture check.
func (f Func) SupportsCapture() bool {
	if f.Capture == nil {
		return false
	}
	return f.Capture()
}

// Static is a Probe with fixed answers.
type Static struct {
	Depth   bool
	Capture bool
}

var _ Probe = Static{}

// SupportsSynchronizedDepth returns the fixed depth answer.
// A platform without capture never reports depth.
func (s Static) SupportsSynchronizedDepth() bool { return s.Capture && s.Depth }

// SupportsCapture returns the fixed capture answer.
func (s Static) SupportsCapture() bool { return s.Capture }

// Full is a Static probe reporting full depth capture support.
var Full = Static{Depth: true, Capture: true}

// Report is a point-in-time capability snapshot.
type Report struct {
	Capture           bool      `json:"capture" yaml:"capture"`
	SynchronizedDepth bool      `json:"synchronized_depth" yaml:"synchronized_depth"`
	Mode              string    `json:"mode" yaml:"mode"`
	CheckedAt         time.Time `json:"checked_at" yaml:"checked_at"`
}

// Check evaluates p once and returns a Report.
func Check(p Probe) Report {
	r := Report{
		Capture:   p.SupportsCapture(),
		CheckedAt: time.Now().UTC(),
	}
	if r.Capture {
		r.SynchronizedDepth = p.SupportsSynchronizedDepth()
	}
	switch {
	case !r.Capture:
		r.Mode = "unsupported"
	case r.SynchronizedDepth:
		r.Mode = "depth"
	default:
		r.Mode = "color_only"
	}
	return r
}
