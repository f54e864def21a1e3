package policy

// DefaultFailureThreshold is the number of consecutive per-frame failures
// that escalates to a session failure.
const DefaultFailureThreshold = 5

// Escalation tracks consecutive per-frame failures.
// A single failure is recovered locally; Threshold failures in a row with
// no success in between escalate.
//
// Escalation is not safe for concurrent use; the session controller
// guards it with its own mutex.
type Escalation struct {
	// Threshold is the escalation point. Zero or less uses
	// DefaultFailureThreshold.
	Threshold int

	consecutive int
}

// RecordFailure counts a failure and reports whether the threshold has
// been reached.
func (e *Escalation) RecordFailure() bool {
	e.consecutive++
	return e.consecutive >= e.threshold()
}

// RecordSuccess resets the consecutive failure count.
func (e *Escalation) RecordSuccess() {
	e.consecutive = 0
}

// Consecutive returns the current run of failures.
func (e *Escalation) Consecutive() int {
	return e.consecutive
}

func (e *Escalation) threshold() int {
	if e.Threshold <= 0 {
		return DefaultFailureThreshold
	}
	return e.Threshold
}
