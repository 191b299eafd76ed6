package executor

// State is a step in the life of one batch
type State int

const (
	StateIdle State = iota
	StatePoolStarting
	StateRunning
	StateCompleted
	StateTimedOut
	StateInterrupted
	StateFailed
	StateTeardown
	StateDone
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StatePoolStarting: "pool-starting",
	StateRunning:      "running",
	StateCompleted:    "completed",
	StateTimedOut:     "timed-out",
	StateInterrupted:  "interrupted",
	StateFailed:       "failed",
	StateTeardown:     "teardown",
	StateDone:         "done",
}

// String returns the lowercase name of the state
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the batch has reached one of its outcome states
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateTimedOut, StateInterrupted, StateFailed:
		return true
	}
	return false
}
