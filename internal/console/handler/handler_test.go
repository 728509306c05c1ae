package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriscope/console/internal/auth"
	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/internal/comparison"
	"github.com/veriscope/console/internal/events"
	"github.com/veriscope/console/internal/gateway"
	"github.com/veriscope/console/internal/history"
	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/report"
	"github.com/veriscope/console/internal/snapshot"
	"github.com/veriscope/console/internal/workflow"
	"github.com/veriscope/console/pkg/logger"
	"github.com/veriscope/console/pkg/testutil"
)

var operator = map[string]interface{}{"_id": "u1", "name": "Dana", "email": "dana@example.com"}

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type harness struct {
	fb     *testutil.FakeBackend
	router http.Handler
	store  *snapshot.MemoryStore
}

// newHarness wires the real clients against a fake backend. verified controls
// what GET /verify answers.
func newHarness(t *testing.T, verified bool) *harness {
	t.Helper()
	fb := testutil.NewFakeBackend(t)
	if verified {
		fb.HandleJSON(http.MethodGet, "/api/verify", http.StatusOK, map[string]interface{}{"success": true, "user": operator})
	} else {
		fb.HandleJSON(http.MethodGet, "/api/verify", http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "no token"})
	}

	log := logger.Nop()
	b, err := backend.NewClient(fb.Config(), log)
	require.NoError(t, err)

	reg := registry.NewClient(b, log)
	store := snapshot.NewMemoryStore()
	ws := workflow.NewWorkspace(reg, comparison.NewClient(b, log), store, events.New(nil, log), log)
	renderer := report.NewRenderer(report.WithoutCompression(), report.WithClock(func() time.Time { return fixedNow }))
	manager := auth.NewManager(b, log)
	storage, err := gateway.NewStorageProxy(b, log)
	require.NoError(t, err)

	r := chi.NewRouter()
	Mount(r, Handlers{
		Auth:        NewAuthHandler(manager, log),
		Files:       NewFileHandler(reg, ws, 0, log),
		Comparisons: NewComparisonHandler(ws, renderer, log),
		Reports:     NewReportHandler(history.NewClient(b, log), renderer, log),
		Storage:     storage,
	}, manager.RequireSession)

	return &harness{fb: fb, router: r, store: store}
}

func (h *harness) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	return testutil.ExecuteRequest(h.router, testutil.NewHTTPRequest(method, path, body))
}

func (h *harness) serveUploads() {
	h.fb.HandleJSON(http.MethodGet, "/api/uploads/recent", http.StatusOK, testutil.RecentUploadsSplit(
		[]testutil.UploadFixture{
			{ID: "r1", Name: "ref.jpg", URL: "/temp/ref.jpg", Type: "photo"},
			{ID: "r2", Name: "sig-ref.png", URL: "/temp/sig-ref.png", Type: "signature"},
		},
		[]testutil.UploadFixture{
			{ID: "p1", Name: "p1.jpg", URL: "/temp/p1.jpg", Type: "photo"},
			{ID: "p2", Name: "p2.jpg", URL: "/temp/p2.jpg", Type: "photo"},
		},
	))
	h.fb.ServeBlob("/temp/ref.jpg", testutil.JPEG)
	h.fb.ServeBlob("/temp/p1.jpg", testutil.JPEG)
	h.fb.ServeBlob("/temp/p2.jpg", testutil.JPEG)
}

func TestRoutes_RequireSession(t *testing.T) {
	h := newHarness(t, false)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/files"},
		{http.MethodGet, "/api/v1/comparisons/photo"},
		{http.MethodPost, "/api/v1/comparisons/photo/compare"},
		{http.MethodGet, "/api/v1/reports"},
		{http.MethodGet, "/api/v1/reports/cost-summary"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rr := h.do(p.method, p.path, nil)
			testutil.AssertStatus(t, rr, http.StatusUnauthorized)
			_, code, _ := testutil.ParseEnvelope(t, rr, nil)
			assert.Equal(t, "UNAUTHORIZED", code)
		})
	}

	assert.Equal(t, 1, h.fb.Count(http.MethodGet, "/api/verify"))
	assert.Zero(t, h.fb.Count(http.MethodGet, "/api/uploads/recent"))
}

func TestAuth_SessionLoginLogout(t *testing.T) {
	h := newHarness(t, false)
	h.fb.Handle(http.MethodPost, "/api/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "opaque", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testutil.MustJSON(map[string]interface{}{"success": true, "user": operator})))
	})
	h.fb.HandleJSON(http.MethodPost, "/api/logout", http.StatusOK, map[string]interface{}{"success": true})
	h.fb.HandleJSON(http.MethodGet, "/api/verifications/cost-summary", http.StatusOK, map[string]interface{}{"success": true})

	rr := h.do(http.MethodGet, "/api/v1/auth/session", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var session auth.Session
	testutil.ParseEnvelope(t, rr, &session)
	assert.Equal(t, auth.StatusAnonymous, session.Status)

	rr = h.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "dana@example.com", "password": "secret"})
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseEnvelope(t, rr, &session)
	assert.Equal(t, auth.StatusAuthenticated, session.Status)

	rr = h.do(http.MethodGet, "/api/v1/reports/cost-summary", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	last, ok := h.fb.Last(http.MethodGet, "/api/verifications/cost-summary")
	require.True(t, ok)
	require.Len(t, last.Cookies, 1)
	assert.Equal(t, "opaque", last.Cookies[0].Value)

	rr = h.do(http.MethodPost, "/api/v1/auth/logout", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.ParseEnvelope(t, rr, &session)
	assert.Equal(t, auth.StatusAnonymous, session.Status)

	rr = h.do(http.MethodGet, "/api/v1/reports/cost-summary", nil)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestAuth_LoginFailures(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{
			name:   "invalid email",
			body:   map[string]string{"email": "dana", "password": "secret"},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "rejected by backend",
			body:   map[string]string{"email": "dana@example.com", "password": "wrong"},
			status: http.StatusUnauthorized,
			code:   "INVALID_CREDENTIALS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			h.fb.HandleJSON(http.MethodPost, "/api/login", http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "Invalid credentials"})

			rr := h.do(http.MethodPost, "/api/v1/auth/login", tt.body)
			testutil.AssertStatus(t, rr, tt.status)
			_, code, _ := testutil.ParseEnvelope(t, rr, nil)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestFiles_List(t *testing.T) {
	h := newHarness(t, true)
	h.serveUploads()

	rr := h.do(http.MethodGet, "/api/v1/files?kind=photo", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var listing registry.Listing
	success, _, _ := testutil.ParseEnvelope(t, rr, &listing)
	assert.True(t, success)
	require.Len(t, listing.Reference, 1)
	assert.Equal(t, "ref.jpg", listing.Reference[0].Name)
	assert.Equal(t, h.fb.URL+"/temp/ref.jpg", listing.Reference[0].ResolvedURL)
	assert.Len(t, listing.Provided, 2)

	rr = h.do(http.MethodGet, "/api/v1/files", nil)
	testutil.ParseEnvelope(t, rr, &listing)
	assert.Len(t, listing.Reference, 2)

	rr = h.do(http.MethodGet, "/api/v1/files?kind=video", nil)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestFiles_ListFailure(t *testing.T) {
	h := newHarness(t, true)
	h.fb.HandleJSON(http.MethodGet, "/api/uploads/recent", http.StatusInternalServerError, map[string]interface{}{"success": false, "message": "storage offline"})

	rr := h.do(http.MethodGet, "/api/v1/files", nil)
	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	_, code, msg := testutil.ParseEnvelope(t, rr, nil)
	assert.Equal(t, "UPSTREAM_ERROR", code)
	assert.Equal(t, "Failed to load files: storage offline", msg)
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFiles_Upload(t *testing.T) {
	h := newHarness(t, true)
	h.serveUploads()
	h.fb.HandleJSON(http.MethodPost, "/api/upload/photos/reference", http.StatusOK, map[string]interface{}{
		"success": true,
		"file":    map[string]interface{}{"_id": "r9", "name": "new.jpg", "url": "/temp/new.jpg"},
	})

	rr := testutil.ExecuteRequest(h.router, multipartRequest(t, "/api/v1/files/photo/reference", "file", "new.jpg", testutil.JPEG))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var ack registry.UploadAck
	testutil.ParseEnvelope(t, rr, &ack)
	assert.True(t, ack.Success)
	require.NotNil(t, ack.File)
	assert.Equal(t, "new.jpg", ack.File.Name)
	assert.Equal(t, registry.KindPhoto, ack.File.Kind)

	sent, ok := h.fb.Last(http.MethodPost, "/api/upload/photos/reference")
	require.True(t, ok)
	parts := sent.Multipart(t)
	require.NotEmpty(t, parts)
	assert.Equal(t, "file", parts[0].Field)
	assert.Equal(t, testutil.JPEG, parts[0].Content)

	assert.Equal(t, 1, h.fb.Count(http.MethodGet, "/api/uploads/recent"))
}

func TestFiles_UploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		field   string
		backend func(fb *testutil.FakeBackend)
		status  int
		message string
	}{
		{
			name:   "bad slot",
			path:   "/api/v1/files/photo/elsewhere",
			field:  "file",
			status: http.StatusBadRequest,
		},
		{
			name:   "missing file field",
			path:   "/api/v1/files/photo/provided",
			field:  "attachment",
			status: http.StatusBadRequest,
		},
		{
			name:  "server rejects",
			path:  "/api/v1/files/signature/provided",
			field: "file",
			backend: func(fb *testutil.FakeBackend) {
				fb.HandleJSON(http.MethodPost, "/api/upload/signatures/provided", http.StatusRequestEntityTooLarge, map[string]interface{}{"success": false, "message": "File too large"})
			},
			status:  http.StatusRequestEntityTooLarge,
			message: "Upload failed: File too large",
		},
		{
			name:  "unsuccessful ack",
			path:  "/api/v1/files/photo/provided",
			field: "file",
			backend: func(fb *testutil.FakeBackend) {
				fb.HandleJSON(http.MethodPost, "/api/upload/photos/provided", http.StatusOK, map[string]interface{}{"success": false, "message": "Unsupported format"})
			},
			status:  http.StatusBadGateway,
			message: "Upload failed: Unsupported format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true)
			if tt.backend != nil {
				tt.backend(h.fb)
			}

			rr := testutil.ExecuteRequest(h.router, multipartRequest(t, tt.path, tt.field, "x.jpg", testutil.JPEG))
			testutil.AssertStatus(t, rr, tt.status)
			if tt.message != "" {
				_, _, msg := testutil.ParseEnvelope(t, rr, nil)
				assert.Equal(t, tt.message, msg)
			}
		})
	}
}

func TestFiles_Delete(t *testing.T) {
	h := newHarness(t, true)
	h.serveUploads()
	h.fb.HandleJSON(http.MethodDelete, "/api/uploads/photo/p1", http.StatusOK, map[string]interface{}{"success": true})

	rr := h.do(http.MethodDelete, "/api/v1/files/photo/p1", nil)
	testutil.AssertStatus(t, rr, http.StatusNoContent)
	assert.Equal(t, 1, h.fb.Count(http.MethodDelete, "/api/uploads/photo/p1"))
	assert.Equal(t, 1, h.fb.Count(http.MethodGet, "/api/uploads/recent"))

	rr = h.do(http.MethodDelete, "/api/v1/files/photo/missing", nil)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	_, code, msg := testutil.ParseEnvelope(t, rr, nil)
	assert.Equal(t, "UPSTREAM_ERROR", code)
	assert.Equal(t, "Failed to delete file: not found", msg)
}

func TestStorage_ServesUploadsBehindSession(t *testing.T) {
	h := newHarness(t, true)
	h.serveUploads()

	rr := h.do(http.MethodGet, "/api/v1/storage/temp/p1.jpg", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, testutil.JPEG, rr.Body.Bytes())

	anon := newHarness(t, false)
	rr = anon.do(http.MethodGet, "/api/v1/storage/temp/p1.jpg", nil)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}
