package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jellydator/validation"
)

// Error categories. Every error returned by a service either wraps one of
// these or is an unexpected infrastructure failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error is a categorized failure whose message is safe to show to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match the category.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Conflicts reported by the marketplace and social workflows.
var (
	ErrNotListed        = newError(ErrConflict, "NFT is not listed for sale")
	ErrSelfPurchase     = newError(ErrConflict, "You cannot buy your own NFT")
	ErrSelfFollow       = newError(ErrConflict, "You cannot follow yourself")
	ErrAlreadyFollowing = newError(ErrConflict, "Already following this user")
	ErrUsernameTaken    = newError(ErrConflict, "Username already taken")
	ErrEmailTaken       = newError(ErrConflict, "Email already registered")
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = newError(ErrUnauthorized, "Invalid credentials")

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of an input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// invalid builds a single-field ValidationError.
func invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// fromValidation converts the result of validation.ValidateStruct.
func fromValidation(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validating input: %w", err)
	}
	fields := make([]FieldError, 0, len(errs))
	for name, fieldErr := range errs {
		fields = append(fields, FieldError{Field: name, Message: fieldErr.Error()})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &ValidationError{Fields: fields}
}
