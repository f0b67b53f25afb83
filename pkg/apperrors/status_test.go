package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"conflict", ErrConflict, http.StatusConflict},
		{"validation", ErrValidation, http.StatusBadRequest},
		{"type mismatch", ErrTypeMismatch, http.StatusBadRequest},
		{"unsupported type", ErrUnsupportedType, http.StatusBadRequest},
		{"auth required", ErrAuthRequired, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"expired link", ErrLinkExpired, http.StatusForbidden},
		{"usage limit", ErrUsageLimitExceeded, http.StatusForbidden},
		{"method not allowed", ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"key mismatch", ErrCredentialsKeyMismatch, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// Wrapped sentinels must keep their mapping.
func TestHTTPStatusWrapped(t *testing.T) {
	err := fmt.Errorf("link %q: %w", "tok", ErrLinkExpired)
	if got := HTTPStatus(err); got != http.StatusForbidden {
		t.Errorf("HTTPStatus(wrapped) = %d, want %d", got, http.StatusForbidden)
	}
}

// Expired and exhausted links must be indistinguishable by status code.
func TestExpiredAndExhaustedShareStatus(t *testing.T) {
	if HTTPStatus(ErrLinkExpired) != HTTPStatus(ErrUsageLimitExceeded) {
		t.Error("expired and exhausted links must return the same status")
	}
}
