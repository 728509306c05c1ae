package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/veriscope/console/pkg/config"
)

// RecordedRequest is one request the fake backend received
type RecordedRequest struct {
	Method      string
	Path        string
	Query       url.Values
	ContentType string
	Body        []byte
	Cookies     []*http.Cookie
}

// MultipartPart is one decoded part of a multipart request
type MultipartPart struct {
	Field    string
	Filename string
	Content  []byte
}

// Multipart decodes the recorded body as multipart form data
func (r RecordedRequest) Multipart(t *testing.T) []MultipartPart {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(r.ContentType)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(mediaType, "multipart/"), "not multipart: %s", r.ContentType)

	var parts []MultipartPart
	reader := multipart.NewReader(bytes.NewReader(r.Body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(part)
		require.NoError(t, err)
		parts = append(parts, MultipartPart{
			Field:    part.FormName(),
			Filename: part.FileName(),
			Content:  content,
		})
	}
	return parts
}

// FakeBackend is an httptest server that stands in for the verification API.
// Routes are matched on method and exact path. Unknown routes answer 404.
type FakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewFakeBackend starts a fake backend that is closed when the test ends
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{routes: make(map[string]http.HandlerFunc)}
	fb.Server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.Close)
	return fb
}

// APIURL is the API root, the server URL plus /api
func (fb *FakeBackend) APIURL() string {
	return fb.URL + "/api"
}

// Config returns a backend configuration pointing at the fake
func (fb *FakeBackend) Config() config.BackendConfig {
	return config.BackendConfig{
		APIURL:        fb.APIURL(),
		Timeout:       5 * time.Second,
		MaxUploadSize: 10 << 20,
	}
}

// Handle registers h for method and path. API paths include the /api prefix.
func (fb *FakeBackend) Handle(method, path string, h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[method+" "+path] = h
}

// HandleJSON registers a fixed JSON reply
func (fb *FakeBackend) HandleJSON(method, path string, status int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	fb.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(payload)
	})
}

// ServeBlob serves content at path, as a storage URL would
func (fb *FakeBackend) ServeBlob(path string, content []byte) {
	fb.Handle(http.MethodGet, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(content)
	})
}

// Requests returns a copy of every recorded request
func (fb *FakeBackend) Requests() []RecordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]RecordedRequest, len(fb.requests))
	copy(out, fb.requests)
	return out
}

// Count returns how many requests matched method and path
func (fb *FakeBackend) Count(method, path string) int {
	n := 0
	for _, r := range fb.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request for method and path
func (fb *FakeBackend) Last(method, path string) (RecordedRequest, bool) {
	reqs := fb.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return RecordedRequest{}, false
}

func (fb *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	fb.mu.Lock()
	fb.requests = append(fb.requests, RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.Query(),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
		Cookies:     r.Cookies(),
	})
	h, ok := fb.routes[r.Method+" "+r.URL.Path]
	fb.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"not found"}`))
		return
	}
	h(w, r)
}
