package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *APIError
		want int
	}{
		{NotFound("agent not found"), http.StatusNotFound},
		{InvalidRequest("empty transcript"), http.StatusBadRequest},
		{Conflict("Username already registered"), http.StatusBadRequest},
		{AuthFailure("Incorrect username or password"), http.StatusUnauthorized},
		{UpstreamFailure("llm failed", nil), http.StatusInternalServerError},
		{UpstreamFailure("voice failed", nil).WithStatus(http.StatusBadGateway), http.StatusBadGateway},
		{RateLimitExceeded("slow down"), http.StatusTooManyRequests},
		{Internal("boom", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestErrorChain(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := fmt.Errorf("merge: %w", UpstreamFailure("chat completion failed", cause))

	assert.True(t, IsCode(err, ErrCodeUpstreamFailure))
	assert.False(t, IsCode(err, ErrCodeNotFound))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, ErrCodeInternal, GetCodeFromError(cause, ErrCodeInternal))

	apiErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "[UPSTREAM_FAILURE] chat completion failed: connection reset", apiErr.Error())
}
