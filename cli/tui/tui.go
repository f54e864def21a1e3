package tui

import "fmt"

// Views that have an interactive form.
const (
	ViewInspectRecording = "inspect_recording"
	ViewSessionStats     = "stats_session"
)

var programs = map[string]func(view string, data any) error{
	ViewInspectRecording: RunInspectTUI,
	ViewSessionStats:     RunStatsTUI,
}

// Supports reports whether view has an interactive form.
func Supports(view string) bool {
	_, ok := programs[view]
	return ok
}

// Run shows data in the interactive form of view until the user quits.
func Run(view string, data any) error {
	run, ok := programs[view]
	if !ok {
		return fmt.Errorf("no interactive view for %q", view)
	}
	return run(view, data)
}
