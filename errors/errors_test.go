package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New(ValidationError, "bad input", "capacity must be positive")
	assert.Equal(t, "VALIDATION_ERROR: bad input (capacity must be positive)", err.Error())

	err = New(ServerError, "boom", "")
	assert.Equal(t, "SERVER_ERROR: boom", err.Error())
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		errType ErrorType
		status  int
	}{
		{ValidationError, http.StatusBadRequest},
		{NotFoundError, http.StatusNotFound},
		{AuthError, http.StatusUnauthorized},
		{PermissionError, http.StatusForbidden},
		{CapacityExceededError, http.StatusConflict},
		{DuplicateRequestError, http.StatusConflict},
		{RemoteWriteError, http.StatusBadGateway},
		{InvalidStatusTransitionError, http.StatusBadRequest},
		{DatabaseError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.errType), func(t *testing.T) {
			assert.Equal(t, tc.status, New(tc.errType, "msg", "").HTTPStatus)
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, DatabaseError, "ignored"))

	cause := fmt.Errorf("connection reset")
	wrapped := Wrap(cause, RemoteWriteError, "push failed")
	assert.Equal(t, RemoteWriteError, wrapped.Type)
	assert.Equal(t, "connection reset", wrapped.Detail)
	assert.True(t, errors.Is(wrapped, cause))
}

func TestIsType(t *testing.T) {
	err := CapacityExceeded("tour-1", 2)
	assert.True(t, IsType(err, CapacityExceededError))
	assert.False(t, IsType(err, NotFoundError))
	assert.False(t, IsType(errors.New("plain"), CapacityExceededError))

	wrapped := fmt.Errorf("coordinator: %w", DuplicateRequest("tour-1", "user-1"))
	assert.True(t, IsType(wrapped, DuplicateRequestError))
}
