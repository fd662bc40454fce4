package errors

import "errors"

// StopProcessingError is returned when the user quits the book picker
// instead of choosing a candidate. Commands treat it as a clean exit.
type StopProcessingError struct {
	Reason string
}

func (e *StopProcessingError) Error() string {
	return e.Reason
}

// NewStopProcessingError wraps the reason the selection ended.
func NewStopProcessingError(reason string) *StopProcessingError {
	return &StopProcessingError{Reason: reason}
}

// IsStopProcessingError reports whether err, possibly wrapped, ends a selection.
func IsStopProcessingError(err error) bool {
	var stopErr *StopProcessingError
	return errors.As(err, &stopErr)
}
