package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := fs.ErrPermission
	tests := []struct {
		name        string
		err         error
		sentinel    error
		typ         ErrorType
		recoverable bool
	}{
		{"not found", NotFoundError("calendar %s", "work"), ErrNotFound, ErrTypeNotFound, true},
		{"invalid identifier", InvalidIdentifierError("bad %q", ".."), ErrInvalidIdentifier, ErrTypeInvalidIdentifier, false},
		{"corrupt data", CorruptDataError(errors.New("eof"), "object x"), ErrCorruptData, ErrTypeCorruptData, true},
		{"unsupported filter", UnsupportedFilterError("regex"), ErrUnsupportedFilter, ErrTypeUnsupportedFilter, false},
		{"io failure", IOFailureError(cause, "write"), ErrIOFailure, ErrTypeIOFailure, false},
		{"wrapped", fmt.Errorf("saving: %w", NotFoundError("x")), ErrNotFound, ErrTypeNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.typ, TypeOf(tt.err))
			assert.Equal(t, tt.recoverable, IsRecoverable(tt.err))

			// distinct types never match
			for _, other := range []error{ErrNotFound, ErrInvalidIdentifier, ErrCorruptData, ErrUnsupportedFilter, ErrIOFailure} {
				if other != tt.sentinel {
					assert.NotErrorIs(t, tt.err, other)
				}
			}
		})
	}

	// the cause stays reachable
	err := IOFailureError(cause, "write")
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.Equal(t, "io_failure: write: permission denied", err.Error())
	assert.Equal(t, "not_found: calendar work", NotFoundError("calendar %s", "work").Error())

	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.False(t, IsRecoverable(nil))
}
