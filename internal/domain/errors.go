package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap them with OpError so callers can test with errors.Is.
var (
	ErrFileAccess      = errors.New("block file access failed")
	ErrProcessControl  = errors.New("process control failed")
	ErrNetworkToggle   = errors.New("network toggle failed")
	ErrLockContention  = errors.New("resource busy")
	ErrSecretNotFound  = errors.New("secret not found")
	ErrProcessNotFound = errors.New("no running process matches")
	ErrInvalidInput    = errors.New("invalid input")
)

// OpError ties a failed operation to its error kind.
type OpError struct {
	Kind error
	Op   string
	Err  error
}

// NewOpError wraps err with kind; a nil err yields nil.
func NewOpError(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Kind: kind, Op: op, Err: err}
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *OpError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
