package domain

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by repositories on a miss. Services translate
// it to ErrUnknownAccount or ErrUnknownTransaction.
var ErrRecordNotFound = errors.New("Record not found")

type ErrorCode string

const (
	CodeIllegalStateOperation ErrorCode = "ILLEGAL_STATE_OPERATION"
	CodeLimitExceeded         ErrorCode = "LIMIT_EXCEEDED"
	CodeInsufficientPrivilege ErrorCode = "INSUFFICIENT_PRIVILEGE"
	CodeInvalidTransition     ErrorCode = "INVALID_TRANSITION"
	CodeUnknownAccount        ErrorCode = "UNKNOWN_ACCOUNT"
	CodeUnknownTransaction    ErrorCode = "UNKNOWN_TRANSACTION"
	CodeNonPositiveAmount     ErrorCode = "NON_POSITIVE_AMOUNT"
	CodePersistenceFailure    ErrorCode = "PERSISTENCE_FAILURE"
	CodeInvalidInput          ErrorCode = "INVALID_INPUT"
)

// Error is a structured, recoverable domain failure. Two errors match under
// errors.Is when their codes are equal, so callers compare against the
// sentinels below regardless of message.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	} else {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrIllegalStateOperation = &Error{Code: CodeIllegalStateOperation}
	ErrLimitExceeded         = &Error{Code: CodeLimitExceeded}
	ErrInsufficientPrivilege = &Error{Code: CodeInsufficientPrivilege}
	ErrInvalidTransition     = &Error{Code: CodeInvalidTransition}
	ErrUnknownAccount        = &Error{Code: CodeUnknownAccount}
	ErrUnknownTransaction    = &Error{Code: CodeUnknownTransaction}
	ErrNonPositiveAmount     = &Error{Code: CodeNonPositiveAmount}
	ErrPersistenceFailure    = &Error{Code: CodePersistenceFailure}
	ErrInvalidInput          = &Error{Code: CodeInvalidInput}
)

func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// PersistenceFailure wraps an external repository error.
func PersistenceFailure(op string, err error) *Error {
	return &Error{Code: CodePersistenceFailure, Message: op, Err: err}
}

// CodeOf returns the code carried by err, or "" when err is not a domain error.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
