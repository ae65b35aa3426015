package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"bad request", BadRequest("x"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("x"), http.StatusUnauthorized},
		{"forbidden", Forbidden("x"), http.StatusForbidden},
		{"not found", NotFound("x"), http.StatusNotFound},
		{"too many requests", TooManyRequests("x"), http.StatusTooManyRequests},
		{"internal", Internal("x"), http.StatusInternalServerError},
		{"service unavailable", ServiceUnavailable("x"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Status())
		})
	}
}

func TestFormattedConstructors(t *testing.T) {
	err := BadRequestf("Invalid room size: %d. Must be between 2 and 4.", 5)
	assert.Equal(t, "Invalid room size: 5. Must be between 2 and 4.", err.Error())
	assert.Equal(t, KindBadRequest, err.Kind)

	err = Forbiddenf("Room is full. Max user count is %d.", 4)
	assert.Equal(t, "Room is full. Max user count is 4.", err.Error())
}

func TestFromError(t *testing.T) {
	orig := NotFound("Room not found.")
	assert.Same(t, orig, FromError(orig))

	wrapped := fmt.Errorf("handling request: %w", orig)
	assert.Same(t, orig, FromError(wrapped))

	plain := errors.New("boom")
	got := FromError(plain)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, "boom", got.Message)
}
