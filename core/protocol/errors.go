package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyVerb is returned when an envelope's verb is missing or blank.
var ErrEmptyVerb = errors.New("verb is missing or empty")

// UnknownVerbError is returned when a non-empty verb is not in the
// registered set. It carries the valid list so callers can surface it.
type UnknownVerbError struct {
	Verb  string
	Valid []string
}

func (e *UnknownVerbError) Error() string {
	return fmt.Sprintf("unknown verb %q (valid: %s)", e.Verb, strings.Join(e.Valid, ", "))
}

// ValidationError describes why an inbound envelope was rejected. It is
// always caught at the process boundary and turned into one error envelope.
type ValidationError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid envelope: field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
