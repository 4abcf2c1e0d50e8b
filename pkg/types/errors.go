package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the converter wraps exactly one of these.
var (
	// ErrUsage reports conflicting flags or a wrong source/destination kind.
	ErrUsage = errors.New("usage error")
	// ErrNotFound reports an absent source path.
	ErrNotFound = errors.New("not found")
	// ErrMalformed reports a required element missing from an input file.
	ErrMalformed = errors.New("malformed input")
	// ErrInconsistent reports a lookup that cannot fail for well-formed internal state.
	ErrInconsistent = errors.New("internal consistency error")
)

// FieldError reports a required field missing from (or unparsable in) an input file
type FieldError struct {
	Path  string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: field %q: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: missing required field %q", e.Path, e.Field)
}

// Unwrap lets errors.Is match both ErrMalformed and the underlying cause
func (e *FieldError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformed, e.Err}
	}
	return []error{ErrMalformed}
}

// Missing returns a FieldError for a required field that is absent
func Missing(path, field string) error {
	return &FieldError{Path: path, Field: field}
}
