package transform

import (
	"errors"
	"fmt"
)

// Error categories. A run error matches exactly one of ErrInit, ErrStep,
// ErrOutputLimit or ErrEnd, and step errors may also match ErrData,
// ErrTruncated or ErrStalled.
var (
	ErrInit        = errors.New("transform init failed")
	ErrStep        = errors.New("transform step failed")
	ErrData        = errors.New("invalid or corrupt input data")
	ErrTruncated   = errors.New("input stream truncated")
	ErrStalled     = errors.New("transform made no progress")
	ErrOutputLimit = errors.New("output exceeds maximum size")
	ErrEnd         = errors.New("transform teardown failed")
)

// Error describes why a driver run stopped.
type Error struct {
	kind      error
	err       error
	engine    string
	direction Direction
	state     State
}

func newError(kind, err error, engine Engine, state State) *Error {
	return &Error{
		kind:      kind,
		err:       err,
		engine:    engine.Name(),
		direction: engine.Direction(),
		state:     state,
	}
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s %s [%s]: %v", e.engine, e.direction, e.state, e.kind)
	}

	return fmt.Sprintf("%s %s [%s]: %v: %v", e.engine, e.direction, e.state, e.kind, e.err)
}

// Unwrap exposes both the category and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}

	return []error{e.kind, e.err}
}

// Kind returns the error category.
func (e *Error) Kind() error {
	return e.kind
}

// Engine returns the name of the engine that failed.
func (e *Error) Engine() string {
	return e.engine
}

// Direction returns the direction of the failed run.
func (e *Error) Direction() Direction {
	return e.direction
}

// State returns the state the run was in when it failed.
func (e *Error) State() State {
	return e.state
}

// DataError marks cause as malformed input.
func DataError(cause error) error {
	if cause == nil || errors.Is(cause, ErrData) {
		return cause
	}

	return fmt.Errorf("%w: %w", ErrData, cause)
}

// TruncatedError marks cause as input that ended before the stream did.
func TruncatedError(cause error) error {
	if cause == nil || errors.Is(cause, ErrTruncated) {
		return cause
	}

	return fmt.Errorf("%w: %w", ErrTruncated, cause)
}
