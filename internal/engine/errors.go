package engine

import (
	"errors"
	"fmt"
)

// Code categorizes operation errors.
type Code string

const (
	// CodeNotFound indicates a referenced id, selector, or token does
	// not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidOperation indicates a structurally disallowed request:
	// deleting the last page, deleting a page root directly, moving a
	// node under its own descendant.
	CodeInvalidOperation Code = "INVALID_OPERATION"
)

// OpError is the error type returned by every engine operation.
//
// Op names the operation as exposed on the external surface
// ("createNode", "deletePage", ...) so user-visible failures carry both
// the operation name and the specific reason.
type OpError struct {
	Op      string
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

// IsNotFound reports whether err is a NOT_FOUND operation error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Code == CodeNotFound
}

// IsInvalidOperation reports whether err is an INVALID_OPERATION error.
// Uses errors.As to handle wrapped errors.
func IsInvalidOperation(err error) bool {
	var oe *OpError
	return errors.As(err, &oe) && oe.Code == CodeInvalidOperation
}

// notFound builds a NOT_FOUND error for the given operation.
func notFound(op, format string, args ...any) *OpError {
	return &OpError{Op: op, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// invalidOp builds an INVALID_OPERATION error for the given operation.
func invalidOp(op, format string, args ...any) *OpError {
	return &OpError{Op: op, Code: CodeInvalidOperation, Message: fmt.Sprintf(format, args...)}
}
