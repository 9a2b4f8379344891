package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimestamp signals a timestamp that does not parse to an instant.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrMalformedInput signals a structurally invalid event batch.
	ErrMalformedInput = errors.New("malformed input")
	// ErrNotLoaded signals that no event collection has been loaded yet.
	ErrNotLoaded = errors.New("no events loaded")
)

// TimestampError wraps ErrInvalidTimestamp with the offending field and value.
type TimestampError struct {
	Field string
	Value string
	Err   error
}

func (e *TimestampError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %q: %v", ErrInvalidTimestamp.Error(), e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %s %q", ErrInvalidTimestamp.Error(), e.Field, e.Value)
}

func (e *TimestampError) Unwrap() error { return ErrInvalidTimestamp }

// NewTimestampError creates a timestamp error for field.
func NewTimestampError(field, value string, cause error) error {
	return &TimestampError{Field: field, Value: value, Err: cause}
}
