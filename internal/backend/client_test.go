package backend

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veriscope/console/pkg/config"
	"github.com/veriscope/console/pkg/logger"
	"github.com/veriscope/console/pkg/testutil"
)

func newClient(t *testing.T, fb *testutil.FakeBackend) *Client {
	t.Helper()
	c, err := NewClient(fb.Config(), logger.Nop())
	require.NoError(t, err)
	return c
}

func TestClient_GetJSON(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.HandleJSON(http.MethodGet, "/api/ping", http.StatusOK, map[string]any{"success": true, "n": 3})

	var out struct {
		Success bool `json:"success"`
		N       int  `json:"n"`
	}
	require.NoError(t, newClient(t, fb).GetJSON(context.Background(), "/ping", &out))
	assert.True(t, out.Success)
	assert.Equal(t, 3, out.N)
}

func TestClient_APIErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		message string
	}{
		{"message field", map[string]any{"message": "Reference file too large"}, "Reference file too large"},
		{"error string", map[string]any{"error": "Python service unavailable"}, "Python service unavailable"},
		{"error object", map[string]any{"error": map[string]any{"message": "bad image"}}, "bad image"},
		{"message wins", map[string]any{"message": "first", "error": "second"}, "first"},
		{"no message", map[string]any{"success": false}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := testutil.NewFakeBackend(t)
			fb.HandleJSON(http.MethodPost, "/api/verify-photo", http.StatusBadRequest, tt.body)

			err := newClient(t, fb).DoJSON(context.Background(), http.MethodPost, "/verify-photo", map[string]string{}, nil)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.False(t, IsTimeout(err))
			assert.False(t, IsTransport(err))
		})
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Handle(http.MethodGet, "/api/uploads/recent", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	err := newClient(t, fb).GetJSON(context.Background(), "/uploads/recent", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, apiErr.Message)
	assert.Equal(t, "Bad Gateway", apiErr.Status)
	assert.Equal(t, "request failed with status 502", apiErr.Error())
}

func TestClient_Timeout(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	fb.Handle(http.MethodPost, "/api/verify-signature", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	c, err := NewClient(config.BackendConfig{APIURL: fb.APIURL(), Timeout: 50 * time.Millisecond}, logger.Nop())
	require.NoError(t, err)

	err = c.DoJSON(context.Background(), http.MethodPost, "/verify-signature", nil, nil)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.True(t, IsTransport(err))
}

func TestClient_Unreachable(t *testing.T) {
	c, err := NewClient(config.BackendConfig{APIURL: "http://127.0.0.1:1/api", Timeout: time.Second}, logger.Nop())
	require.NoError(t, err)

	err = c.GetJSON(context.Background(), "/uploads/recent", nil)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsTimeout(err))
}

func TestClient_SessionCookie(t *testing.T) {
	fb := testutil.NewFakeBackend(t)
	fb.Handle(http.MethodPost, "/api/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc", Path: "/"})
		w.Write([]byte(`{"success":true}`))
	})
	fb.HandleJSON(http.MethodGet, "/api/verify", http.StatusOK, map[string]any{"success": true})

	c := newClient(t, fb)
	ctx := context.Background()
	require.NoError(t, c.DoJSON(ctx, http.MethodPost, "/login", map[string]string{"email": "a"}, nil))
	require.NoError(t, c.GetJSON(ctx, "/verify", nil))

	last, ok := fb.Last(http.MethodGet, "/api/verify")
	require.True(t, ok)
	require.Len(t, last.Cookies, 1)
	assert.Equal(t, "abc", last.Cookies[0].Value)

	c.ResetSession()
	require.NoError(t, c.GetJSON(ctx, "/verify", nil))
	last, _ = fb.Last(http.MethodGet, "/api/verify")
	assert.Empty(t, last.Cookies)
}

func TestIsTimeout_ContextDeadline(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(nil))
}
