package sim

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the service error taxonomy. Callers match them
// with errors.Is; the API layer maps them to HTTP statuses.
var (
	ErrNotFound          = errors.New("simulation not found")
	ErrConflict          = errors.New("simulation already exists")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid transition")
)

// TransitionError reports a lifecycle operation requested from a state that
// forbids it. It matches ErrInvalidTransition under errors.Is.
type TransitionError struct {
	From  Status
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s simulation in %s state", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
