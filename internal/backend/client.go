// Package backend is the HTTP transport to the verification API.
// Every call carries the operator's session cookie, which the API sets on login.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/veriscope/console/pkg/config"
	"github.com/veriscope/console/pkg/logger"
)

const maxErrorBody = 64 << 10

// Client calls the verification API
type Client struct {
	apiURL     string
	httpClient *http.Client
	jar        *sessionJar
	logger     *logger.Logger
}

// NewClient creates a client for the configured API root.
// Timeout zero means no client-side deadline.
func NewClient(cfg config.BackendConfig, log *logger.Logger) (*Client, error) {
	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}

	return &Client{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		jar:    jar,
		logger: log.WithComponent("backend"),
	}, nil
}

// APIURL returns the API root the client was configured with
func (c *Client) APIURL() string {
	return c.apiURL
}

// ResetSession drops every cookie the API has set
func (c *Client) ResetSession() {
	c.jar.reset()
}

// SessionCookies returns the cookies the API has set that apply to u
func (c *Client) SessionCookies(u *url.URL) []*http.Cookie {
	return c.jar.Cookies(u)
}

// Do sends a request to path under the API root. Non-2xx responses are
// returned as *APIError with the body already consumed.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	return c.do(ctx, method, c.apiURL+path, body, contentType)
}

// Fetch downloads an absolute URL (a stored upload) with the session cookie.
func (c *Client) Fetch(ctx context.Context, url string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, url, nil, "")
}

// GetJSON decodes the JSON body of a GET under the API root into out
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

// DoJSON sends in (if non-nil) as JSON and decodes the response into out (if non-nil)
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	resp, err := c.Do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeBody(resp, out)
}

// PostMultipart submits an already-encoded multipart body and decodes the JSON reply into out
func (c *Client) PostMultipart(ctx context.Context, path string, body io.Reader, contentType string, out any) error {
	resp, err := c.Do(ctx, http.MethodPost, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeBody(resp, out)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("method", method).
			Str("url", url).
			Bool("timeout", IsTimeout(err)).
			Msg("backend request failed")
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}

	c.logger.Debug().
		Str("method", method).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := readAPIError(resp)
		c.logger.Warn().
			Str("method", method).
			Str("url", url).
			Int("status", resp.StatusCode).
			Str("message", apiErr.Message).
			Msg("backend returned error status")
		return nil, apiErr
	}

	return resp, nil
}

func decodeBody(resp *http.Response, out any) error {
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// sessionJar is a cookie jar that can be emptied while requests are in flight
type sessionJar struct {
	mu  sync.Mutex
	jar *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &sessionJar{jar: jar}, nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

func (j *sessionJar) reset() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}
