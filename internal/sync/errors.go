package sync

import "fmt"

// ValidationError indicates malformed construction input (empty IDs,
// negative counters, payload/type mismatch).
type ValidationError struct {
	msg string
}

func newValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.msg
}

// TransformationError indicates that two operations cannot be transformed
// against each other, or that a transform violated its identity invariant.
type TransformationError struct {
	msg string
}

func newTransformationError(format string, args ...interface{}) *TransformationError {
	return &TransformationError{msg: fmt.Sprintf(format, args...)}
}

func (e *TransformationError) Error() string {
	return e.msg
}

// ConflictResolutionError indicates that a conflict could not be resolved
// with the requested strategy.
type ConflictResolutionError struct {
	msg string
}

func newConflictResolutionError(format string, args ...interface{}) *ConflictResolutionError {
	return &ConflictResolutionError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConflictResolutionError) Error() string {
	return e.msg
}

// OrderingError indicates a circular causal dependency in a batch.
type OrderingError struct {
	msg string
}

func newOrderingError(format string, args ...interface{}) *OrderingError {
	return &OrderingError{msg: fmt.Sprintf(format, args...)}
}

func (e *OrderingError) Error() string {
	return e.msg
}
