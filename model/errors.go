package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
)

// ValidationError collects every violation found in one field or option
// payload. It is never swallowed by the engine; controllers surface it as
// a 4xx response.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// QueryExecutionError wraps a statement the store rejected. It is fatal to
// the current operation and never retried.
type QueryExecutionError struct {
	Op  string
	Err error
}

func (e *QueryExecutionError) Error() string {
	return fmt.Sprintf("query %s: %s", e.Op, e.Err)
}

func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}
