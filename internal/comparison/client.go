// Package comparison submits reference and provided files to the
// verification endpoints.
//
// Files are never uploaded from here: they already live in backend storage,
// so the client downloads each blob by URL and re-submits the bytes as a
// multipart form.
package comparison

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/result"
	"github.com/veriscope/console/pkg/logger"
)

// Client runs comparisons against the verification API
type Client struct {
	backend *backend.Client
	logger  *logger.Logger
}

// NewClient creates a comparison client
func NewClient(b *backend.Client, log *logger.Logger) *Client {
	return &Client{
		backend: b,
		logger:  log.WithComponent("comparison"),
	}
}

// endpoint describes one verify route
type endpoint struct {
	kind           registry.Kind
	path           string
	referenceField string
	decode         func([]byte) *result.Result
}

var endpoints = map[registry.Kind]endpoint{
	registry.KindPhoto: {
		kind:           registry.KindPhoto,
		path:           "/verify-photo",
		referenceField: "reference_photo",
		decode:         result.DecodePhoto,
	},
	registry.KindSignature: {
		kind:           registry.KindSignature,
		path:           "/verify-signature",
		referenceField: "reference_signature",
		decode:         result.DecodeSignature,
	},
}

// ComparePhotos compares one reference photo against the provided photos
func (c *Client) ComparePhotos(ctx context.Context, referenceURL string, providedURLs ...string) (*result.Result, error) {
	return c.Compare(ctx, registry.KindPhoto, referenceURL, providedURLs...)
}

// CompareSignatures compares one reference signature against the provided documents
func (c *Client) CompareSignatures(ctx context.Context, referenceURL string, providedURLs ...string) (*result.Result, error) {
	return c.Compare(ctx, registry.KindSignature, referenceURL, providedURLs...)
}

// Compare fetches the reference, then every provided file in parallel, and
// submits them in one multipart request. A failed download fails the whole
// comparison before anything is submitted.
func (c *Client) Compare(ctx context.Context, kind registry.Kind, referenceURL string, providedURLs ...string) (*result.Result, error) {
	ep, ok := endpoints[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported comparison kind %q", kind)
	}

	start := time.Now()
	log := c.logger.WithKind(string(kind))

	ref, err := c.fetch(ctx, referenceURL)
	if err != nil {
		return nil, &FetchError{Role: RoleReference, Noun: kind.Noun(), URL: referenceURL, Err: err}
	}

	provided := make([]blob, len(providedURLs))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range providedURLs {
		i, u := i, u
		g.Go(func() error {
			b, err := c.fetch(gctx, u)
			if err != nil {
				return &FetchError{Role: RoleProvided, Noun: kind.Noun(), URL: u, Err: err}
			}
			provided[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeFile(mw, ep.referenceField, filename(referenceURL, "reference.jpg"), ref); err != nil {
		return nil, err
	}
	for i, b := range provided {
		if err := writeFile(mw, "file", filename(providedURLs[i], fmt.Sprintf("provided_%d.jpg", i+1)), b); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode form: %w", err)
	}

	resp, err := c.backend.Do(ctx, http.MethodPost, ep.path, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &backend.TransportError{Method: http.MethodPost, URL: ep.path, Err: err}
	}

	res := ep.decode(body)
	log.Info().
		Int("provided", len(providedURLs)).
		Int("entries", res.EntryCount()).
		Str("result_kind", string(res.Kind)).
		Dur("duration", time.Since(start)).
		Msg("comparison completed")
	if !res.Recognized() {
		log.Warn().Msg("verification response had an unexpected shape")
	}

	return res, nil
}

type blob struct {
	contentType string
	data        []byte
}

func (c *Client) fetch(ctx context.Context, u string) (blob, error) {
	resp, err := c.backend.Fetch(ctx, u)
	if err != nil {
		return blob{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return blob{}, &backend.TransportError{Method: http.MethodGet, URL: u, Err: err}
	}
	return blob{contentType: resp.Header.Get("Content-Type"), data: data}, nil
}

func writeFile(mw *multipart.Writer, field, name string, b blob) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	ct := b.contentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(b.data); err != nil {
		return fmt.Errorf("failed to write form part: %w", err)
	}
	return nil
}

// filename is the last path segment of u without its query
func filename(u, fallback string) string {
	if parsed, err := url.Parse(u); err == nil && parsed.Path != "" {
		u = parsed.Path
	} else if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if u == "" || strings.HasSuffix(u, "/") {
		return fallback
	}
	name := path.Base(u)
	if name == "." || name == "/" || name == "" {
		return fallback
	}
	return name
}
