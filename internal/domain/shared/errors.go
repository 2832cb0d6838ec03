// Package shared contains the error vocabulary used by every domain package.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// External service errors
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "grouping", "stats"
	Op      string // Operation that failed, e.g., "Group", "Record"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches both the kind and the wrapped error.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound   = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrInvalidStudentID  = NewDomainError("student", "Validate", ErrInvalidID, "student ID is required")
	ErrEmptyStudentName  = NewDomainError("student", "Validate", ErrEmptyValue, "student name is required")
	ErrEmptyClassName    = NewDomainError("student", "Validate", ErrEmptyValue, "class name is required")
	ErrNegativeAttempts  = NewDomainError("student", "Validate", ErrNegativeValue, "attempt counters cannot be negative")
	ErrCorrectExceedsAll = NewDomainError("student", "Validate", ErrValueOutOfRange, "correct attempts exceed total attempts")
	ErrBadFamiliarity    = NewDomainError("student", "Validate", ErrValueOutOfRange, "familiarity must be a finite number")
)

// Grouping domain errors
var (
	ErrInvalidGroupSize = NewDomainError("grouping", "Group", ErrValueOutOfRange, "group size must be at least 1")
	ErrUnknownStrategy  = NewDomainError("grouping", "Group", ErrInvalidInput, "unknown grouping strategy")
)

// Game domain errors
var (
	ErrNotEnoughStudents = NewDomainError("game", "NewQuestion", ErrInvalidInput, "at least 4 students are required for a question")
	ErrSessionComplete   = NewDomainError("game", "Answer", ErrInvalidState, "session already has all answers")
	ErrEmptyAnswerID     = NewDomainError("game", "Answer", ErrInvalidID, "answer must reference a student")
)

// Stats domain errors
var (
	ErrNoAnswers       = NewDomainError("stats", "Record", ErrEmptyValue, "session has no answers")
	ErrTooManyAnswers  = NewDomainError("stats", "Record", ErrValueOutOfRange, "session has more answers than questions")
	ErrSessionNotFound = NewDomainError("stats", "Find", ErrNotFound, "session not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsInvalidState checks if the error is a state conflict.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
