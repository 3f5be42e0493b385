package model

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
)

// ValidationError reports malformed input. It is returned before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError reports a state precondition that does not hold, such as
// starting usage of an item that is already in use.
type ConflictError struct {
	ItemID  int64
	Status  ItemStatus
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("item %d %s (status %s)", e.ItemID, e.Message, e.Status)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AggregationError wraps a read failure inside one statistic or rule. It is
// recorded at the engine boundary and never stops sibling computations.
type AggregationError struct {
	Component string
	Err       error
}

func (e *AggregationError) Error() string {
	return e.Component + ": " + e.Err.Error()
}

func (e *AggregationError) Unwrap() error { return e.Err }
