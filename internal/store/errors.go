package store

import (
	"errors"
	"fmt"
)

// ErrNotFound marks operations that referenced an unknown project id. Fatal
// to that operation only; never retried automatically.
var ErrNotFound = errors.New("project not found")

// ValidationError reports malformed create/edit input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ImmutableFieldError reports an attempt to patch id or created.
type ImmutableFieldError struct {
	Field string
}

func (e ImmutableFieldError) Error() string {
	return fmt.Sprintf("field %s is immutable", e.Field)
}
