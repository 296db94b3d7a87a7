package storage

import (
	"errors"
	"fmt"
)

// ErrorType classifies storage failures so callers can map them to protocol
// responses without inspecting messages.
type ErrorType string

const (
	ErrTypeNotFound          ErrorType = "not_found"
	ErrTypeInvalidIdentifier ErrorType = "invalid_identifier"
	ErrTypeCorruptData       ErrorType = "corrupt_data"
	ErrTypeUnsupportedFilter ErrorType = "unsupported_filter"
	ErrTypeIOFailure         ErrorType = "io_failure"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a storage error of the same type, which makes
// errors.Is(err, ErrNotFound) work for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

var (
	// ErrNotFound is returned when a requested calendar or object doesn't exist
	ErrNotFound = &Error{Type: ErrTypeNotFound, Message: "resource not found"}
	// ErrInvalidIdentifier is returned for malformed or unsafe calendar paths and UIDs
	ErrInvalidIdentifier = &Error{Type: ErrTypeInvalidIdentifier, Message: "invalid identifier"}
	// ErrCorruptData is returned when a file exists but cannot be decoded
	ErrCorruptData = &Error{Type: ErrTypeCorruptData, Message: "corrupt data"}
	// ErrUnsupportedFilter is returned when a filter uses a construct the engine cannot evaluate
	ErrUnsupportedFilter = &Error{Type: ErrTypeUnsupportedFilter, Message: "unsupported filter"}
	// ErrIOFailure is returned when the underlying storage is unavailable
	ErrIOFailure = &Error{Type: ErrTypeIOFailure, Message: "storage unavailable"}
)

func newError(t ErrorType, err error, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFoundError builds a not-found error for the described resource.
func NotFoundError(format string, args ...any) error {
	return newError(ErrTypeNotFound, nil, format, args...)
}

// InvalidIdentifierError builds an invalid-identifier error.
func InvalidIdentifierError(format string, args ...any) error {
	return newError(ErrTypeInvalidIdentifier, nil, format, args...)
}

// CorruptDataError wraps a decoding failure.
func CorruptDataError(err error, format string, args ...any) error {
	return newError(ErrTypeCorruptData, err, format, args...)
}

// UnsupportedFilterError builds an unsupported-filter error.
func UnsupportedFilterError(format string, args ...any) error {
	return newError(ErrTypeUnsupportedFilter, nil, format, args...)
}

// IOFailureError wraps an error from the underlying storage.
func IOFailureError(err error, format string, args ...any) error {
	return newError(ErrTypeIOFailure, err, format, args...)
}

// TypeOf returns the ErrorType carried by err, or "" if err is not a storage error.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsRecoverable reports whether err only affects a single entry of an
// enumeration (missing or undecodable), as opposed to the whole operation.
func IsRecoverable(err error) bool {
	switch TypeOf(err) {
	case ErrTypeNotFound, ErrTypeCorruptData:
		return true
	default:
		return false
	}
}
