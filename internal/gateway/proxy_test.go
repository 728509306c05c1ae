package gateway

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/pkg/logger"
	"github.com/veriscope/console/pkg/testutil"
)

func newProxy(t *testing.T) (*testutil.FakeBackend, *backend.Client, http.Handler) {
	t.Helper()
	fb := testutil.NewFakeBackend(t)
	b, err := backend.NewClient(fb.Config(), logger.Nop())
	require.NoError(t, err)

	p, err := NewStorageProxy(b, logger.Nop())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/storage/*", p.ServeHTTP)
	return fb, b, r
}

func TestStorageProxy_CarriesAPISession(t *testing.T) {
	fb, b, r := newProxy(t)
	fb.Handle(http.MethodPost, "/api/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "opaque", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})
	fb.Handle(http.MethodGet, "/temp/a.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "rotated", Path: "/"})
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(testutil.JPEG)
	})
	require.NoError(t, b.DoJSON(testutil.DefaultTestContext(t), http.MethodPost, "/login", map[string]string{}, nil))

	req := testutil.NewHTTPRequest(http.MethodGet, "/storage/temp/a.jpg", nil)
	req.AddCookie(&http.Cookie{Name: "console_sid", Value: "browser"})
	rr := testutil.ExecuteRequest(r, req)

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, testutil.JPEG, rr.Body.Bytes())
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	assert.Empty(t, rr.Header().Get("Set-Cookie"))

	sent, ok := fb.Last(http.MethodGet, "/temp/a.jpg")
	require.True(t, ok)
	require.Len(t, sent.Cookies, 1)
	assert.Equal(t, "token", sent.Cookies[0].Name)
	assert.Equal(t, "opaque", sent.Cookies[0].Value)
}

func TestStorageProxy_RejectsPathsOutsideTemp(t *testing.T) {
	fb, _, r := newProxy(t)

	for _, p := range []string{"/storage/api/verifications", "/storage/temp/../api/login", "/storage/"} {
		t.Run(p, func(t *testing.T) {
			rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, p, nil))
			testutil.AssertStatus(t, rr, http.StatusBadRequest)
		})
	}
	assert.Empty(t, fb.Requests())
}

func TestStorageProxy_PassesMissingFiles(t *testing.T) {
	_, _, r := newProxy(t)

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/storage/temp/gone.jpg", nil))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}
