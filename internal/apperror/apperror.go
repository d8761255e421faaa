// Package apperror defines the structured errors surfaced by the booking
// services. Each error carries a stable code and the HTTP status handlers
// translate it to.
package apperror

import (
	"errors"
	"net/http"
)

// Error is a domain error with a machine readable code.
type Error struct {
	Code    string
	Status  int
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so copies returned by
// WithDetails or Wrap still satisfy errors.Is against the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of e carrying an extra detail entry.
func (e *Error) WithDetails(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// WithMessage returns a copy of e with a different human readable message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// Wrap returns a copy of e that wraps cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func newError(status int, code, msg string) *Error {
	return &Error{Code: code, Status: status, Message: msg}
}

var (
	ErrValidation             = newError(http.StatusBadRequest, "VALIDATION_FAILED", "invalid request")
	ErrUnauthorized           = newError(http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	ErrForbidden              = newError(http.StatusForbidden, "FORBIDDEN", "forbidden")
	ErrShowtimeNotFound       = newError(http.StatusNotFound, "SHOWTIME_NOT_FOUND", "showtime not found")
	ErrSeatsNotFound          = newError(http.StatusNotFound, "SEATS_NOT_FOUND", "some seats do not exist")
	ErrCustomerNotFound       = newError(http.StatusNotFound, "CUSTOMER_NOT_FOUND", "customer not found")
	ErrFoodUnavailable        = newError(http.StatusNotFound, "FOOD_UNAVAILABLE", "food item does not exist or is unavailable")
	ErrBookingNotFound        = newError(http.StatusNotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrNotFound               = newError(http.StatusNotFound, "NOT_FOUND", "resource not found")
	ErrSeatsAlreadyBooked     = newError(http.StatusConflict, "SEATS_ALREADY_BOOKED", "some seats are already booked")
	ErrInvalidBookingState    = newError(http.StatusConflict, "INVALID_BOOKING_STATE", "booking is not in a valid state for this operation")
	ErrConflict               = newError(http.StatusConflict, "CONFLICT", "resource already exists")
	ErrShowtimeAlreadyStarted = newError(http.StatusUnprocessableEntity, "SHOWTIME_ALREADY_STARTED", "showtime has already started")
	ErrShowtimeNotBookable    = newError(http.StatusUnprocessableEntity, "SHOWTIME_NOT_BOOKABLE", "showtime is not open for booking")
	ErrRateLimited            = newError(http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
	ErrInternal               = newError(http.StatusInternalServerError, "INTERNAL", "internal server error")
)

// Validation returns ErrValidation with a specific message.
func Validation(msg string) *Error { return ErrValidation.WithMessage(msg) }

// From extracts the *Error carried by err. Anything that is not a domain
// error becomes ErrInternal wrapping the original cause.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.Wrap(err)
}
