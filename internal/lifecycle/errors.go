package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies lifecycle failures so transports can map them to stable responses
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindInvalidCredential
	KindExpired
	KindInvariantViolation
	KindTimeout
	KindCanceled
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindInvalidInput:       "invalid_input",
	KindNotFound:           "not_found",
	KindConflict:           "conflict",
	KindUnauthorized:       "unauthorized",
	KindForbidden:          "forbidden",
	KindInvalidCredential:  "invalid_credential",
	KindExpired:            "expired",
	KindInvariantViolation: "invariant_violation",
	KindTimeout:            "timeout",
	KindCanceled:           "canceled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a typed lifecycle failure. Code is stable and safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err, ErrInvalidOtp)
// holds for wrapped copies too.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// with returns a copy of e carrying cause
func (e *Error) with(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// withMessage returns a copy of e with a more specific message
func (e *Error) withMessage(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput, Code: "invalid_input", Message: "invalid input"}

	ErrLockerNotFound    = &Error{Kind: KindNotFound, Code: "locker_not_found", Message: "locker not found"}
	ErrItemNotFound      = &Error{Kind: KindNotFound, Code: "item_not_found", Message: "item not found"}
	ErrNoActiveItem      = &Error{Kind: KindNotFound, Code: "no_active_item", Message: "no item to collect"}
	ErrLockerUnavailable = &Error{Kind: KindConflict, Code: "locker_unavailable", Message: "locker is not available"}
	ErrLockerNotOccupied = &Error{Kind: KindConflict, Code: "locker_not_occupied", Message: "locker is not occupied"}
	ErrLockerOccupied    = &Error{Kind: KindConflict, Code: "locker_occupied", Message: "locker holds an item"}

	ErrUnauthorizedReceiver = &Error{Kind: KindUnauthorized, Code: "unauthorized_receiver", Message: "unauthorized receiver"}
	ErrNotPrivileged        = &Error{Kind: KindForbidden, Code: "not_privileged", Message: "operation requires an administrator"}
	ErrNotOwner             = &Error{Kind: KindForbidden, Code: "not_owner", Message: "history belongs to another sender"}

	ErrOtpNotRequested     = &Error{Kind: KindInvalidCredential, Code: "otp_not_requested", Message: "no OTP has been requested for this item"}
	ErrInvalidOtp          = &Error{Kind: KindInvalidCredential, Code: "invalid_otp", Message: "invalid OTP"}
	ErrOtpAttemptsExceeded = &Error{Kind: KindConflict, Code: "otp_attempts_exceeded", Message: "too many wrong OTP attempts; request a new code"}
	ErrOtpExpired          = &Error{Kind: KindExpired, Code: "otp_expired", Message: "OTP expired"}

	ErrTransactionMissing = &Error{Kind: KindInvariantViolation, Code: "transaction_missing", Message: "open transaction missing for active item"}
	ErrTimeout            = &Error{Kind: KindTimeout, Code: "timeout", Message: "storage did not respond in time"}
	// ErrCanceled means the caller gave up; nothing was committed
	ErrCanceled = &Error{Kind: KindCanceled, Code: "canceled", Message: "request canceled"}
)

// KindOf returns the kind of a lifecycle error, or KindUnknown for anything else
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the stable code of a lifecycle error, or "internal_error"
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// IsRetryable reports whether the caller may retry the same intent unchanged
func IsRetryable(err error) bool {
	return KindOf(err) == KindTimeout
}
