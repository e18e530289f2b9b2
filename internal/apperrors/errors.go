package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindTransient  Kind = "transient"
	KindInternal   Kind = "internal"
)

const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeSlotTaken            = "SLOT_TAKEN"
	CodeSlotConflict         = "SLOT_CONFLICT"
	CodeDuplicateBooking     = "DUPLICATE_BOOKING"
	CodeInsufficientQuantity = "INSUFFICIENT_QUANTITY"
	CodeNoActiveChallenge    = "NO_ACTIVE_CHALLENGE"
	CodeAttemptsExhausted    = "ATTEMPTS_EXHAUSTED"
	CodeInvalidCode          = "INVALID_CODE"
	CodeCooldownActive       = "COOLDOWN_ACTIVE"
	CodeEmailTaken           = "EMAIL_TAKEN"
	CodePasswordMismatch     = "PASSWORD_CONFIRMATION_MISMATCH"
	CodeDeliveryFailed       = "DELIVERY_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeForbidden            = "FORBIDDEN"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInternal             = "INTERNAL_ERROR"
)

// Error is the error type surfaced across service boundaries. Field names the
// request field the message belongs to, when there is one.
type Error struct {
	Kind    Kind           `json:"-"`
	Code    string         `json:"code"`
	Field   string         `json:"field,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so the sentinels below work
// with errors.Is regardless of message or details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		if e.Code == CodeUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrSlotTaken            = &Error{Kind: KindConflict, Code: CodeSlotTaken}
	ErrSlotConflict         = &Error{Kind: KindConflict, Code: CodeSlotConflict}
	ErrDuplicateBooking     = &Error{Kind: KindConflict, Code: CodeDuplicateBooking}
	ErrInsufficientQuantity = &Error{Kind: KindConflict, Code: CodeInsufficientQuantity}
	ErrNoActiveChallenge    = &Error{Kind: KindAuth, Code: CodeNoActiveChallenge}
	ErrAttemptsExhausted    = &Error{Kind: KindAuth, Code: CodeAttemptsExhausted}
	ErrInvalidCode          = &Error{Kind: KindAuth, Code: CodeInvalidCode}
	ErrCooldownActive       = &Error{Kind: KindAuth, Code: CodeCooldownActive}
	ErrEmailTaken           = &Error{Kind: KindConflict, Code: CodeEmailTaken}
	ErrPasswordMismatch     = &Error{Kind: KindValidation, Code: CodePasswordMismatch}
	ErrDeliveryFailed       = &Error{Kind: KindTransient, Code: CodeDeliveryFailed}
	ErrValidation           = &Error{Kind: KindValidation, Code: CodeValidation}
	ErrNotFound             = &Error{Kind: KindNotFound, Code: CodeNotFound}
	ErrForbidden            = &Error{Kind: KindForbidden, Code: CodeForbidden}
	ErrUnauthorized         = &Error{Kind: KindAuth, Code: CodeUnauthorized}
	ErrInternal             = &Error{Kind: KindInternal, Code: CodeInternal}
)

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Field: field, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindAuth, Code: CodeUnauthorized, Message: message}
}

func SlotTaken(slot, date string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeSlotTaken,
		Field:   "selected_items",
		Message: fmt.Sprintf("Time slot %s is already booked on %s", slot, date),
	}
}

func SlotConflict(slot, existing string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeSlotConflict,
		Field:   "selected_items",
		Message: fmt.Sprintf("Time slot %s conflicts with existing booking %s", slot, existing),
	}
}

func DuplicateBooking(equipment, date string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeDuplicateBooking,
		Field:   "selected_items",
		Message: fmt.Sprintf("You already have a booking for %s on %s", equipment, date),
	}
}

func InsufficientQuantity(equipment string, available, requested int) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeInsufficientQuantity,
		Field:   "selected_items",
		Message: fmt.Sprintf("Not enough quantity available for %s. Available: %d, Requested: %d", equipment, available, requested),
		Details: map[string]any{"available": available, "requested": requested},
	}
}

func NoActiveChallenge() *Error {
	return &Error{
		Kind:    KindAuth,
		Code:    CodeNoActiveChallenge,
		Field:   "otp",
		Message: "OTP session expired. Please restart the registration process.",
	}
}

func AttemptsExhausted() *Error {
	return &Error{
		Kind:    KindAuth,
		Code:    CodeAttemptsExhausted,
		Field:   "otp",
		Message: "Too many failed attempts. Please restart the registration process.",
	}
}

func InvalidCode(remaining int) *Error {
	return &Error{
		Kind:    KindAuth,
		Code:    CodeInvalidCode,
		Field:   "otp",
		Message: fmt.Sprintf("Invalid OTP code. %d attempts remaining.", remaining),
		Details: map[string]any{"remaining_attempts": remaining},
	}
}

func CooldownActive() *Error {
	return &Error{
		Kind:    KindAuth,
		Code:    CodeCooldownActive,
		Field:   "otp",
		Message: "Please wait before requesting another OTP.",
	}
}

func EmailTaken() *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeEmailTaken,
		Field:   "email",
		Message: "The email has already been taken.",
	}
}

func PasswordMismatch() *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodePasswordMismatch,
		Field:   "password_confirmation",
		Message: "The password confirmation does not match.",
	}
}

func DeliveryFailed(field string, err error) *Error {
	return &Error{
		Kind:    KindTransient,
		Code:    CodeDeliveryFailed,
		Field:   field,
		Message: "Failed to send OTP. Please try again.",
		Err:     err,
	}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// As returns err as *Error, wrapping anything unknown as an internal error
// with a generic message.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
