// Package fighterr defines the typed errors returned by the encounter engine.
//
// Every error carries a Kind, which callers use to tell a bad request
// (validation) from an "already exists" (conflict) from a missing row
// (not found), and a Code naming the specific failure.
package fighterr

import (
	"errors"
	"fmt"
)

// Kind groups codes into the classes a caller reacts to.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeSelfReference               Code = "SELF_REFERENCE"
	CodeDuplicateActiveRelationship Code = "DUPLICATE_ACTIVE_RELATIONSHIP"
	CodeDuplicateName               Code = "DUPLICATE_NAME"
	CodeInvalidPosition             Code = "INVALID_POSITION"
	CodeInvalidScope                Code = "INVALID_SCOPE"
	CodeMissingReference            Code = "MISSING_REFERENCE"
	CodeInvalidValue                Code = "INVALID_VALUE"
	CodeCrossFightReference         Code = "CROSS_FIGHT_REFERENCE"
	CodeNotFound                    Code = "NOT_FOUND"
	CodeInternal                    Code = "INTERNAL"
)

// Kind maps a code to its class.
func (c Code) Kind() Kind {
	switch c {
	case CodeSelfReference,
		CodeInvalidPosition,
		CodeInvalidScope,
		CodeMissingReference,
		CodeInvalidValue,
		CodeCrossFightReference:
		return KindValidation
	case CodeDuplicateActiveRelationship,
		CodeDuplicateName:
		return KindConflict
	case CodeNotFound:
		return KindNotFound
	default:
		return KindInternal
	}
}

// Sentinels for errors.Is. Matching is by code, so any *Error with the same
// code matches regardless of message.
var (
	ErrSelfReference               = &Error{Code: CodeSelfReference, Message: "a shot cannot reference itself"}
	ErrDuplicateActiveRelationship = &Error{Code: CodeDuplicateActiveRelationship, Message: "an active chase relationship already exists"}
	ErrDuplicateName               = &Error{Code: CodeDuplicateName, Message: "name already exists in scope"}
	ErrInvalidPosition             = &Error{Code: CodeInvalidPosition, Message: "invalid chase position"}
	ErrInvalidScope                = &Error{Code: CodeInvalidScope, Message: "location must belong to exactly one of fight or site"}
	ErrMissingReference            = &Error{Code: CodeMissingReference, Message: "missing required reference"}
	ErrInvalidValue                = &Error{Code: CodeInvalidValue, Message: "invalid value"}
	ErrCrossFightReference         = &Error{Code: CodeCrossFightReference, Message: "referenced record belongs to another fight"}
	ErrNotFound                    = &Error{Code: CodeNotFound, Message: "not found"}
)

// Error is the engine's error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the class of the error.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a code and a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NotFound reports a missing record of the given entity.
func NotFound(entity string, id any) *Error {
	return Newf(CodeNotFound, "%s %v not found", entity, id)
}

// KindOf returns the kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindInternal
}

// CodeOf returns the code of err, or CodeInternal if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func IsNotFound(err error) bool   { return err != nil && KindOf(err) == KindNotFound }
func IsConflict(err error) bool   { return err != nil && KindOf(err) == KindConflict }
func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }
