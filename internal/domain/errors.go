package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrorKind classifies a generation failure. Kinds marked user-safe carry
// messages that may cross the response boundary verbatim; everything else is
// replaced by MsgFallback before reaching the caller.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindRateLimited    ErrorKind = "rate_limited"
	KindCapacity       ErrorKind = "capacity"
	KindSafetyBlocked  ErrorKind = "safety_blocked"
	KindTimeout        ErrorKind = "timeout"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindProtocol       ErrorKind = "protocol"
	KindInternal       ErrorKind = "internal"
)

// Canonical user-safe messages. Tests assert on these verbatim.
const (
	MsgNotFound           = "Provider not found or access denied"
	MsgRateLimited        = "Rate limit reached. Please wait a moment before generating again."
	MsgCapacity           = "The provider is experiencing high demand. Please try again in a few minutes."
	MsgSafetyBlocked      = "The prompt was blocked by the provider's safety filter. Please rephrase and try again."
	MsgCopyrightBlocked   = "The prompt was blocked because it may reference copyrighted material."
	MsgEmptyResult        = "The provider returned no images"
	MsgUnexpectedResponse = "The provider returned an unexpected response"
	MsgMissingEndpoint    = "Custom providers require an endpoint URL"
	MsgOversizedPayload   = "The reference images are too large for this provider"
	MsgFallback           = "Image generation failed. Please try again."
)

// GenError is the typed failure used across the validator, the adapters, and
// both delivery paths.
type GenError struct {
	Kind    ErrorKind
	Message string
	Safe    bool
	Err     error
}

func (e *GenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GenError) Unwrap() error { return e.Err }

// Validation builds a caller-input error; the message is part of the exact
// response contract.
func Validation(message string) *GenError {
	return &GenError{Kind: KindValidation, Message: message, Safe: true}
}

// NotFoundOrDenied collapses missing and inaccessible providers into one
// message so callers cannot probe which case applies.
func NotFoundOrDenied() *GenError {
	return &GenError{Kind: KindNotFound, Message: MsgNotFound, Safe: true}
}

// Timeout reports an upstream deadline breach carrying the elapsed budget.
func Timeout(budget time.Duration) *GenError {
	return &GenError{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("Image generation timed out after %d seconds. Please try again.", int(budget.Seconds())),
		Safe:    true,
	}
}

// Protocol reports a malformed or unusable vendor response with one of the
// canonical messages.
func Protocol(message string) *GenError {
	return &GenError{Kind: KindProtocol, Message: message, Safe: true}
}

// Internal wraps an unexpected failure whose detail must not leak.
func Internal(err error) *GenError {
	return &GenError{Kind: KindInternal, Message: "internal error", Safe: false, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to internal.
func KindOf(err error) ErrorKind {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

// SafeMessage returns a message fit for the caller: the error's own message
// when its kind is user-safe, the generic fallback otherwise.
func SafeMessage(err error) string {
	var ge *GenError
	if errors.As(err, &ge) && ge.Safe {
		return ge.Message
	}
	return MsgFallback
}
