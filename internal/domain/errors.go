package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError rejects malformed or out-of-range input. Never retried.
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

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewEnumError builds a validation error that enumerates the valid set, as
// required for enumerable fields.
func NewEnumError(field, got string, valid []string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("invalid value %q, must be one of: %s", got, strings.Join(valid, ", ")),
	}
}

// NotFoundError signals a referenced aggregate that does not exist or is
// deleted.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func NewNotFoundError(kind string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id.String()}
}

// ConflictError is an optimistic-version mismatch on event append. The
// caller must reload state and retry; it is the only retryable-by-caller
// error.
type ConflictError struct {
	AggregateID     uuid.UUID
	ExpectedVersion int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on aggregate %s (expected version %d)", e.AggregateID, e.ExpectedVersion)
}

// ProjectionError is a transient failure applying an event to a projection
// store; the outbox dispatcher retries it with backoff.
type ProjectionError struct {
	Target  string
	EventID uuid.UUID
	Err     error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projection %s failed for event %s: %v", e.Target, e.EventID, e.Err)
}

func (e *ProjectionError) Unwrap() error { return e.Err }

// TimeoutError reports a query or projection that exceeded its budget.
type TimeoutError struct {
	Op     string
	Budget string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded its %s budget", e.Op, e.Budget)
}
