package transform

import "fmt"

// State is a position in a driver run's lifecycle.
//
//	INITIALIZED -> STEPPING -> {GROWING_BUFFER -> STEPPING}* -> COMPLETED
//	INITIALIZED -> STEPPING -> FAILED
type State int

const (
	// StateInitialized means a session exists and no step has run.
	StateInitialized State = iota
	// StateStepping means the session is consuming input or producing output.
	StateStepping
	// StateGrowingBuffer is entered when the output window is full but the
	// session has neither finished nor failed.
	StateGrowingBuffer
	// StateCompleted is terminal: the session signalled end of stream.
	StateCompleted
	// StateFailed is terminal: a hard error stopped the run.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateStepping:
		return "stepping"
	case StateGrowingBuffer:
		return "growing_buffer"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// canTransition holds the edges of the run state machine.
func canTransition(from, to State) bool {
	switch from {
	case StateInitialized:
		return to == StateStepping || to == StateFailed
	case StateStepping:
		return to == StateStepping || to == StateGrowingBuffer || to == StateCompleted || to == StateFailed
	case StateGrowingBuffer:
		return to == StateStepping || to == StateFailed
	default:
		return false
	}
}
