package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := ErrSeatsAlreadyBooked.WithDetails("seat_ids", []uint64{7})
	wrapped := fmt.Errorf("create booking: %w", err)

	assert.ErrorIs(t, wrapped, ErrSeatsAlreadyBooked)
	assert.NotErrorIs(t, wrapped, ErrSeatsNotFound)
	assert.Nil(t, ErrSeatsAlreadyBooked.Details, "sentinel must not be mutated")
}

func TestFrom(t *testing.T) {
	e := From(fmt.Errorf("x: %w", ErrBookingNotFound))
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.Equal(t, "BOOKING_NOT_FOUND", e.Code)

	cause := errors.New("dial tcp: connection refused")
	internal := From(cause)
	require.NotNil(t, internal)
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.Equal(t, "internal server error", internal.Message)
	assert.ErrorIs(t, internal, cause)

	assert.Nil(t, From(nil))
}

func TestValidation(t *testing.T) {
	e := Validation("seats is required")
	assert.Equal(t, "seats is required", e.Error())
	assert.ErrorIs(t, e, ErrValidation)
}
