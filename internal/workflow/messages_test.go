package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/internal/comparison"
	apperrors "github.com/veriscope/console/pkg/errors"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestMessageFor(t *testing.T) {
	const fallback = "Failed to compare photos"

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), TimeoutMessage},
		{"net timeout", &backend.TransportError{Method: "POST", URL: "/verify-photo", Err: timeoutErr{}}, TimeoutMessage},
		{"server message", &backend.APIError{StatusCode: 400, Message: "Reference photo has no face"}, "Reference photo has no face"},
		{"server without message", &backend.APIError{StatusCode: 500}, fallback},
		{"network", &backend.TransportError{Method: "POST", URL: "/verify-photo", Err: errors.New("connection refused")}, fallback},
		{
			"blob fetch",
			&comparison.FetchError{Role: comparison.RoleReference, Noun: "image", Err: &backend.APIError{StatusCode: 404, Status: "Not Found"}},
			"Failed to load reference image: 404 Not Found",
		},
		{"app error", apperrors.BadRequest("bad input"), "bad input"},
		{"plain", errors.New("something broke"), "something broke"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MessageFor(tt.err, fallback))
		})
	}
}

func TestCompareError(t *testing.T) {
	assert.Equal(t, "TIMEOUT", compareError(context.DeadlineExceeded, TimeoutMessage).Code)
	assert.Equal(t, 422, compareError(&backend.APIError{StatusCode: 422}, "x").StatusCode)
	assert.Equal(t, "NETWORK_ERROR", compareError(&backend.TransportError{Err: errors.New("refused")}, "x").Code)
	assert.Equal(t, 502, compareError(&comparison.FetchError{Err: &backend.APIError{StatusCode: 404}}, "x").StatusCode)
}
