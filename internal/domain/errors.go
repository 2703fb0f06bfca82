package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input: bad level or parent, an
	// inconsistent date triple, an invalid dependency target.
	ErrValidation = errors.New("validation error")

	// ErrStructuralConflict marks requests that would break the task tree or
	// the dependency graphs.
	ErrStructuralConflict = errors.New("structural conflict")

	// ErrConcurrencyConflict marks a transaction aborted by a racing writer.
	// Callers may retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ValidationError rejects a request because of one offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type ConflictKind string

const (
	ConflictCircularDependency ConflictKind = "circular_dependency"
	ConflictParentIsDescendant ConflictKind = "parent_is_descendant"
	ConflictDepthExceeded      ConflictKind = "depth_exceeded"
	ConflictParentHasDeps      ConflictKind = "parent_has_dependencies"
	ConflictHasChildren        ConflictKind = "has_children"
	ConflictHasDependents      ConflictKind = "has_dependents"
)

// StructuralConflictError rejects a request whose effect would corrupt the
// hierarchy or introduce a dependency cycle. Chain holds the cycle, when one
// could be reconstructed.
type StructuralConflictError struct {
	Kind    ConflictKind
	Message string
	Chain   []string
}

func (e *StructuralConflictError) Error() string {
	if len(e.Chain) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Chain, " -> "))
}

func (e *StructuralConflictError) Unwrap() error { return ErrStructuralConflict }

// ConcurrencyConflictError wraps the storage error raised when a serializable
// transaction loses a race.
type ConcurrencyConflictError struct {
	Op  string
	Err error
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s: concurrent modification, retry: %v", e.Op, e.Err)
}

func (e *ConcurrencyConflictError) Unwrap() []error { return []error{ErrConcurrencyConflict, e.Err} }

// IsRetryable reports whether err came from a lost serialization race or a
// lock wait that timed out.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
