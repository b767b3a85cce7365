package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := InvalidInput("quantity must be greater than 0")
	assert.Equal(t, "INVALID_INPUT: quantity must be greater than 0", err.Error())

	wrapped := Internal(errors.New("boom"))
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestSentinelUnwrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", NotFound("cart", "user-1"), ErrNotFound},
		{"invalid input", InvalidInput("bad"), ErrInvalidInput},
		{"conflict", Conflict("already reserved"), ErrConflict},
		{"invalid state", InvalidState("cart is reserving"), ErrInvalidState},
		{"service unavailable", ServiceUnavailable("down"), ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestSagaAborted_WrapsCause(t *testing.T) {
	cause := Conflict("cannot reserve the same product twice")
	err := SagaAborted(cause)

	assert.ErrorIs(t, err, ErrSagaAborted)
	assert.ErrorIs(t, err, ErrConflict)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SAGA_ABORTED", appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
}

func TestSagaAborted_WrapsTransportErrors(t *testing.T) {
	cause := fmt.Errorf("reserve product p-1: %w", ErrServiceUnavail)
	err := SagaAborted(cause)

	assert.ErrorIs(t, err, ErrSagaAborted)
	assert.ErrorIs(t, err, ErrServiceUnavail)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NotFound("reservation", "user-1"), http.StatusNotFound},
		{InvalidInput("bad"), http.StatusBadRequest},
		{Conflict("dup"), http.StatusConflict},
		{InvalidState("wrong status"), http.StatusConflict},
		{SagaAborted(errors.New("cause")), http.StatusUnprocessableEntity},
		{ServiceUnavailable("down"), http.StatusServiceUnavailable},
		{errors.New("unknown"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", ErrInvalidState), http.StatusConflict},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "error: %v", tt.err)
	}
}

func TestWrap(t *testing.T) {
	base := ErrNotFound
	err := Wrap(base, "load cart")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "load cart")
}
