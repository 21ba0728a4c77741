package mtree

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess                 RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                          // 1: Operation failed due to an internal error.
	RetCNotReady                               // 2: Initialization of the multitree failed.
	RetCNotFound                               // 3: The path has no value anywhere in the namespace.
	RetCMultipleTargets                        // 4: A write resolved to more than one owning tree.
	RetCInvalidParentAttachment                // 5: Parents were declared on a tree that already has history.
	RetCReadOnlyTarget                         // 6: A write was attempted on a pinned version.
	RetCInvalidOperation                       // 7: Invalid operation (e.g. writing the root).
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCNotReady:
		return "NotReady"
	case RetCNotFound:
		return "NotFound"
	case RetCMultipleTargets:
		return "MultipleTargets"
	case RetCInvalidParentAttachment:
		return "InvalidParentAttachment"
	case RetCReadOnlyTarget:
		return "ReadOnlyTarget"
	case RetCInvalidOperation:
		return "InvalidOperation"
	default:
		return fmt.Sprintf("Unknown(%d)", uint64(c))
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code, a message and an optional cause.
// errors.Is matches an *Error against the sentinels below by code.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The cause (optional)
}

// Sentinels to be used with errors.Is
var (
	ErrNotReady                = &Error{Code: RetCNotReady}
	ErrNotFound                = &Error{Code: RetCNotFound}
	ErrMultipleTargets         = &Error{Code: RetCMultipleTargets}
	ErrInvalidParentAttachment = &Error{Code: RetCInvalidParentAttachment}
	ErrReadOnlyTarget          = &Error{Code: RetCReadOnlyTarget}
	ErrInvalidOperation        = &Error{Code: RetCInvalidOperation}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("MultiTreeError (code %s)", e.Code)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// wrapError creates a new error with the given code and message wrapping err.
func wrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// notFound builds the NotFound error for a path
func notFound(name string) *Error {
	return NewError(RetCNotFound, fmt.Sprintf("%s not found", name))
}
