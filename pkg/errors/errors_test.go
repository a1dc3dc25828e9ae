package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors_SentinelAndStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
		status   int
	}{
		{"validation", Validation("bad input"), ErrValidation, http.StatusBadRequest},
		{"authentication", Authentication("who are you"), ErrAuthentication, http.StatusUnauthorized},
		{"authorization", Authorization("not for you"), ErrAuthorization, http.StatusForbidden},
		{"not found", NotFound("gone"), ErrNotFound, http.StatusNotFound},
		{"already exists", AlreadyExists("user", "email", "a@b.c"), ErrAlreadyExists, http.StatusBadRequest},
		{"internal", Internal("boom", errors.New("cause")), ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestInternal_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("database unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus_WrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("handling request: %w", NotFound("no such user"))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))
}

func TestHTTPStatus_BareSentinels(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrAuthentication))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("mystery")))
}

func TestAlreadyExists_Message(t *testing.T) {
	err := AlreadyExists("user", "email", "ayush@example.com")
	assert.Contains(t, err.Message, `email "ayush@example.com"`)
}
