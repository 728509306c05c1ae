package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		statusCode int
		sentinel   error
	}{
		{"not found", NotFound("report"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"bad request", BadRequest("missing id or type"), "BAD_REQUEST", http.StatusBadRequest, ErrBadRequest},
		{"timeout", Timeout("slow"), "TIMEOUT", http.StatusGatewayTimeout, ErrTimeout},
		{"precondition", PreconditionFailed("Please select a reference image"), "PRECONDITION_FAILED", http.StatusUnprocessableEntity, ErrPrecondition},
		{"in flight", CompareInFlight(), "COMPARE_IN_FLIGHT", http.StatusConflict, ErrCompareInFlight},
		{"network", Network("backend unreachable", fmt.Errorf("dial tcp: refused")), "NETWORK_ERROR", http.StatusBadGateway, ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.statusCode, tt.err.StatusCode)
			assert.True(t, Is(tt.err, tt.sentinel))
		})
	}
}

func TestUpstream_KeepsErrorStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, Upstream("gone", http.StatusNotFound).StatusCode)
	assert.Equal(t, http.StatusBadGateway, Upstream("odd", http.StatusOK).StatusCode)
}

func TestAs_WrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", BadRequest("bad"))

	var appErr *AppError
	assert.True(t, As(wrapped, &appErr))
	assert.Equal(t, "bad", appErr.Message)
}
