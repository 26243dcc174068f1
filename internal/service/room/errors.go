package room

import "errors"

type ErrorCode string

const (
	ErrorCodeAuthRequired  ErrorCode = "authentication_required"
	ErrorCodeNotFound      ErrorCode = "not_found"
	ErrorCodeUnauthorized  ErrorCode = "unauthorized"
	ErrorCodeRoomFull      ErrorCode = "room_full"
	ErrorCodeAlreadyMember ErrorCode = "already_member"
	ErrorCodeTransient     ErrorCode = "transient"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf extracts the service error code, or empty for unknown errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether the caller may retry the operation as-is.
func IsRetryable(err error) bool {
	return CodeOf(err) == ErrorCodeTransient
}
