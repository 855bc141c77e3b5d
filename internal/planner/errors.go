package planner

import "errors"

// ErrInvalidInput matches every *ValidationError via errors.Is.
var ErrInvalidInput = errors.New("invalid planning input")

// ValidationError rejects a whole run before scheduling begins.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Is lets callers test for ErrInvalidInput.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
