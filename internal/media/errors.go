package media

import (
	"errors"
	"fmt"
)

// Error is a capture failure with a stable code and a user facing message.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code, so errors.Is(err, media.ErrPermissionDenied) works
// for any permission failure regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Error codes
const (
	CodePermissionDenied      = "permission_denied"
	CodeDeviceUnavailable     = "device_unavailable"
	CodeUnsupportedConstraint = "unsupported_constraint"
	CodeRecorderFailure       = "recorder_failure"
)

// Sentinels for errors.Is comparisons.
var (
	ErrPermissionDenied      = &Error{Code: CodePermissionDenied}
	ErrDeviceUnavailable     = &Error{Code: CodeDeviceUnavailable}
	ErrUnsupportedConstraint = &Error{Code: CodeUnsupportedConstraint}
	ErrRecorderFailure       = &Error{Code: CodeRecorderFailure}
)

// NewError creates a new media error.
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode returns the code of the first *Error in err's chain, or "" if none.
func ErrorCode(err error) string {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// UserMessage maps a failure to the text shown to a person holding the camera.
func UserMessage(err error) string {
	switch ErrorCode(err) {
	case CodePermissionDenied:
		return "Camera access was denied. Grant permission and try again."
	case CodeDeviceUnavailable:
		return "The selected camera is not available. Check that it is connected and not used by another application."
	case CodeUnsupportedConstraint:
		return "The selected camera does not support the requested format."
	case CodeRecorderFailure:
		return "Recording failed. The partial recording was discarded."
	case "":
		if err == nil {
			return ""
		}
	}
	return "Could not access the camera."
}
