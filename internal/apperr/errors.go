// Package apperr holds the error taxonomy shared by the roster services and
// its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrInvalidToken      = errors.New("invalid token")
	ErrValidation        = errors.New("validation failed")
	ErrBadCredentials    = errors.New("invalid credentials")
	ErrForbidden         = errors.New("forbidden")
)

// NotFoundError names the entity kind and the key that was looked up.
type NotFoundError struct {
	Kind string
	Key  string
}

func NotFound(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidEnumValueError is returned when a closed-enumeration field gets a
// value outside its set.
type InvalidEnumValueError struct {
	Field string
	Value string
}

func (e *InvalidEnumValueError) Error() string {
	return fmt.Sprintf("%s: %q is not a valid value", e.Field, e.Value)
}

type InvalidTokenError struct {
	Reason string
}

func InvalidToken(reason string) *InvalidTokenError {
	return &InvalidTokenError{Reason: reason}
}

func (e *InvalidTokenError) Error() string { return "invalid token: " + e.Reason }

func (e *InvalidTokenError) Is(target error) bool { return target == ErrInvalidToken }

// ValidationError carries the offending field. Cause keeps the underlying
// error (an enum parse failure, a validator error) reachable via errors.As.
type ValidationError struct {
	Field string
	Msg   string
	Cause error
}

func Validation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// WrapValidation re-raises err as a validation failure on field.
func WrapValidation(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Msg: err.Error(), Cause: err}
}

func (e *ValidationError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("invalid field %s", e.Field)
	}
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Cause }

// StatusCode maps an error from any layer to the HTTP status the API answers with.
func StatusCode(err error) int {
	var enumErr *InvalidEnumValueError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.As(err, &enumErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateUsername):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
