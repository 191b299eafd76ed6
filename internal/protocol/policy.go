package protocol

import "fmt"

// Policy decides what a task failure does to the rest of the batch.
type Policy string

const (
	// Propagate aborts the whole batch with the first task failure.
	Propagate Policy = "propagate"

	// LogAndContinue prints the failure into the task's output and keeps going.
	LogAndContinue Policy = "log-and-continue"
)

// ParsePolicy accepts the policy names used in config files and flags.
// The empty string selects Propagate.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", Propagate:
		return Propagate, nil
	case LogAndContinue, "continue", "log":
		return LogAndContinue, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want %q or %q)", s, Propagate, LogAndContinue)
	}
}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == Propagate || p == LogAndContinue
}
