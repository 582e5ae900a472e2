// Package apperrors defines the error taxonomy shared by the registry, the
// session controller and the reporting services. Handlers map each kind to a
// transport status via Code.
package apperrors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown       Code = "UNKNOWN"
	CodeValidation    Code = "VALIDATION_FAILED"
	CodeDuplicateKey  Code = "DUPLICATE_KEY"
	CodeConflict      Code = "CONFLICT"
	CodeNotFound      Code = "NOT_FOUND"
	CodeActiveSession Code = "ACTIVE_SESSION_EXISTS"
)

// ValidationError reports malformed or missing input. The operation was
// aborted before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for field.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DuplicateKeyError reports a uniqueness violation on a person key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("person key %q already exists", e.Key)
}

// ConflictError reports an operation refused because of current state, such
// as starting a session while one is active.
type ConflictError struct {
	Code   Code
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// Conflict builds a ConflictError with the generic conflict code.
func Conflict(format string, args ...any) error {
	return &ConflictError{Code: CodeConflict, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a reference to a person or session that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
}

// CodeOf returns the code for the first taxonomy error found in err's chain.
func CodeOf(err error) Code {
	var (
		validationErr *ValidationError
		duplicateErr  *DuplicateKeyError
		conflictErr   *ConflictError
		notFoundErr   *NotFoundError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validationErr):
		return CodeValidation
	case errors.As(err, &duplicateErr):
		return CodeDuplicateKey
	case errors.As(err, &conflictErr):
		if conflictErr.Code != "" {
			return conflictErr.Code
		}
		return CodeConflict
	case errors.As(err, &notFoundErr):
		return CodeNotFound
	default:
		return CodeUnknown
	}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsDuplicateKey(err error) bool {
	var target *DuplicateKeyError
	return errors.As(err, &target)
}
