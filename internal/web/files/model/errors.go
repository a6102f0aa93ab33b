package model

import (
	"fmt"

	"github.com/Laisky/errors/v2"
)

// ErrorCode identifies a machine-stable failure class.
type ErrorCode string

const (
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeValidation         ErrorCode = "VALIDATION"
	ErrCodeInvalidParent      ErrorCode = "INVALID_PARENT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeStoreUnavailable   ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED"
)

// Error is a typed failure that is safe to show to the caller.
// Message never carries driver or filesystem details.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "files error: <nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("files error: %s", e.Code)
	}
	return e.Message
}

// NewError constructs a typed error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError extracts a typed error from the error chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode reports whether the error chain contains the given code.
func IsCode(err error, code ErrorCode) bool {
	if typed, ok := AsError(err); ok {
		return typed.Code == code
	}
	return false
}

// Common messages, kept identical to the public API of the service.
const (
	MsgUnauthorized       = "Unauthorized"
	MsgNotFound           = "Not found"
	MsgMissingEmail       = "Missing email"
	MsgMissingPassword    = "Missing password"
	MsgPasswordTooLong    = "Password too long"
	MsgAlreadyExist       = "Already exist"
	MsgMissingName        = "Missing name"
	MsgMissingType        = "Missing type"
	MsgMissingData        = "Missing data"
	MsgInvalidData        = "Invalid data"
	MsgParentNotFound     = "Parent not found"
	MsgParentNotFolder    = "Parent is not a folder"
	MsgStoreUnavailable   = "Storage backend unavailable"
	MsgStorageWriteFailed = "Cannot write file content"
)

// ErrUnauthorized is returned for every authentication failure.
func ErrUnauthorized() *Error {
	return NewError(ErrCodeUnauthorized, MsgUnauthorized)
}

// ErrNotFound is returned when a record is missing or owned by someone else.
func ErrNotFound() *Error {
	return NewError(ErrCodeNotFound, MsgNotFound)
}

// ErrStoreUnavailable is returned when the backing store is not connected.
func ErrStoreUnavailable() *Error {
	return NewError(ErrCodeStoreUnavailable, MsgStoreUnavailable)
}
