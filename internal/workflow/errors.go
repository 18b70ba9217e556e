package workflow

import (
	"fmt"

	"github.com/fonpesca/alertbot/internal/domain"
)

// InputValidationError means the user's answer was malformed. The current
// question is asked again.
type InputValidationError struct {
	State  State
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid input in %s: %s", e.State, e.Reason)
}

// AuthorizationError means the cédula is not in the identity directory.
type AuthorizationError struct {
	Cedula string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("cedula %s is not authorized", e.Cedula)
}

// UnknownBranchError means the draft's severity/category pair has no
// question sequence. The conversation cannot continue.
type UnknownBranchError struct {
	Severity domain.Severity
	Category domain.Category
	Field    Field
}

func (e *UnknownBranchError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("question %q is not part of branch %q/%q", e.Field, e.Severity, e.Category)
	}
	return fmt.Sprintf("unknown branch %q/%q", e.Severity, e.Category)
}

// TransportError wraps a failed outbound delivery.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "deliver message: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed identity lookup or report save.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// InvalidTransitionError means the event has no meaning in the current state.
type InvalidTransitionError struct {
	State State
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("event %s not valid in %s", e.Event, e.State)
}
