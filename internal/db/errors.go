package db

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedStatement marks faults the endpoint attributes to the
	// statement itself (syntax, constraint, unknown parameter) rather than to
	// the transport.
	ErrMalformedStatement = errors.New("malformed statement")
	ErrUnknownTransaction = errors.New("unknown transaction id")
)

// StatementError carries the rejected SQL alongside the driver or API error.
type StatementError struct {
	SQL string
	Err error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedStatement, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

func (e *StatementError) Is(target error) bool { return target == ErrMalformedStatement }
