package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/npezzotti/mob-vibe/internal/generate"
	"github.com/stretchr/testify/assert"
)

func TestErrorFor(t *testing.T) {
	tcases := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{"api error", NewForbiddenError(), http.StatusForbidden},
		{"wrapped api error", fmt.Errorf("ctx: %w", NewNotFoundError()), http.StatusNotFound},
		{"not found", fmt.Errorf("get game: %w", database.ErrNotFound), http.StatusNotFound},
		{"already friends", database.ErrAlreadyFriends, http.StatusBadRequest},
		{"request exists", database.ErrRequestExists, http.StatusBadRequest},
		{"upstream", fmt.Errorf("%w: boom", generate.ErrUpstream), http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedCode, errorFor(tc.err).StatusCode)
		})
	}
}

func TestApiError(t *testing.T) {
	err := NewInternalServerError(errors.New("db down"))
	assert.Equal(t, "internal server error: db down", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "db down")

	assert.Equal(t, "game not found", NewNotFoundError().WithMessage("game not found").Error())
}
