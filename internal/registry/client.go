package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/pkg/errors"
	"github.com/veriscope/console/pkg/logger"
)

// Client talks to the upload endpoints of the verification API
type Client struct {
	backend  *backend.Client
	resolver Resolver
	logger   *logger.Logger
}

// NewClient creates a registry client. Storage URLs resolve against the
// backend's API root.
func NewClient(b *backend.Client, log *logger.Logger) *Client {
	return &Client{
		backend:  b,
		resolver: NewResolver(b.APIURL()),
		logger:   log.WithComponent("registry"),
	}
}

// Resolver returns the URL resolver the client stamps descriptors with
func (c *Client) Resolver() Resolver {
	return c.resolver
}

// FileUpload is one file to send
type FileUpload struct {
	Name    string
	Content io.Reader
}

// UploadAck is the backend's answer to an upload
type UploadAck struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	File    *FileDescriptor `json:"file,omitempty"`
}

// rawFile is an upload entry as the backend sends it
type rawFile struct {
	ID         string  `json:"_id"`
	AltID      string  `json:"id"`
	Name       string  `json:"name"`
	StoredName string  `json:"storedName"`
	URL        string  `json:"url"`
	Size       float64 `json:"size"`
	UploadedAt string  `json:"uploadedAt"`
	Type       string  `json:"type"`
	FileType   string  `json:"fileType"`
	Kind       string  `json:"kind"`
	Slot       string  `json:"slot"`
}

type recentResponse struct {
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	Files          []rawFile  `json:"files"`
	ReferenceFiles *[]rawFile `json:"referenceFiles"`
	ProvidedFiles  *[]rawFile `json:"providedFiles"`
}

// List fetches every known upload. On failure it returns an empty listing
// together with the error; callers log it and carry on.
func (c *Client) List(ctx context.Context) (Listing, error) {
	var resp recentResponse
	if err := c.backend.GetJSON(ctx, "/uploads/recent", &resp); err != nil {
		c.logger.Warn().Err(err).Msg("failed to list uploads")
		return Listing{}, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Server returned an error"
		}
		c.logger.Warn().Str("message", msg).Msg("upload listing unsuccessful")
		return Listing{}, errors.Upstream(msg, http.StatusBadGateway)
	}

	listing := Listing{
		Reference: []FileDescriptor{},
		Provided:  []FileDescriptor{},
	}

	if resp.ReferenceFiles != nil || resp.ProvidedFiles != nil {
		if resp.ReferenceFiles != nil {
			for _, f := range *resp.ReferenceFiles {
				listing.Reference = append(listing.Reference, c.describe(f, SlotReference))
			}
		}
		if resp.ProvidedFiles != nil {
			for _, f := range *resp.ProvidedFiles {
				listing.Provided = append(listing.Provided, c.describe(f, SlotProvided))
			}
		}
	} else {
		for _, f := range resp.Files {
			slot := classify(f)
			fd := c.describe(f, slot)
			if slot == SlotReference {
				listing.Reference = append(listing.Reference, fd)
			} else {
				listing.Provided = append(listing.Provided, fd)
			}
		}
	}

	c.logger.Debug().
		Int("reference", len(listing.Reference)).
		Int("provided", len(listing.Provided)).
		Msg("uploads listed")

	return listing, nil
}

// Upload sends one file to /upload/{photos|signatures}/{slot}. Error responses
// come back as *backend.APIError carrying the server's message.
func (c *Client) Upload(ctx context.Context, file FileUpload, kind Kind, slot Slot) (*UploadAck, error) {
	if file.Name == "" || file.Content == nil {
		return nil, errors.BadRequest("missing file")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.WriteField("label", file.Name); err != nil {
		return nil, fmt.Errorf("failed to write label: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	typePath := "photos"
	if kind == KindSignature {
		typePath = "signatures"
	}

	c.logger.Info().
		Str("name", file.Name).
		Str("kind", string(kind)).
		Str("slot", string(slot)).
		Msg("uploading file")

	var raw struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		File    *rawFile `json:"file"`
	}
	path := "/upload/" + typePath + "/" + url.PathEscape(string(slot))
	if err := c.backend.PostMultipart(ctx, path, &body, mw.FormDataContentType(), &raw); err != nil {
		return nil, err
	}

	ack := &UploadAck{Success: raw.Success, Message: raw.Message}
	if raw.File != nil {
		fd := c.describe(*raw.File, slot)
		if fd.Kind == "" || (raw.File.Type == "" && raw.File.FileType == "") {
			fd.Kind = kind
		}
		ack.File = &fd
	}
	return ack, nil
}

// Delete removes a file. Empty id or kind is rejected without calling the API.
func (c *Client) Delete(ctx context.Context, id string, kind Kind) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(string(kind)) == "" {
		return errors.BadRequest("missing id or type")
	}

	path := "/uploads/" + url.PathEscape(string(kind)) + "/" + url.PathEscape(id)
	if err := c.backend.DoJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	c.logger.Info().Str("id", id).Str("kind", string(kind)).Msg("file deleted")
	return nil
}

func (c *Client) describe(f rawFile, slot Slot) FileDescriptor {
	id := f.ID
	if id == "" {
		id = f.AltID
	}

	name := f.Name
	if name == "" {
		name = f.StoredName
	}
	if name == "" {
		name = "Unnamed"
	}

	fd := FileDescriptor{
		ID:         id,
		Name:       name,
		StorageURL: f.URL,
		Size:       int64(f.Size),
		UploadedAt: parseTime(f.UploadedAt),
		Ext:        extension(f.Name),
		Slot:       slot,
		Kind:       kindOf(f),
		Tag:        f.Kind,
	}
	c.resolver.Refresh(&fd)
	return fd
}

// referenceTags are the kind tags that mark a reference upload in a flat list.
// "refrence" is a spelling the backend has been seen to send.
var referenceTags = map[string]bool{
	"reference":           true,
	"refrence":            true,
	"signature_reference": true,
	"photo_reference":     true,
}

// classify places an entry of an unclassified list. An explicit slot wins,
// then the kind tag; anything unrecognized is provided.
func classify(f rawFile) Slot {
	if s, err := ParseSlot(f.Slot); err == nil {
		return s
	}
	if referenceTags[strings.ToLower(strings.TrimSpace(f.Kind))] {
		return SlotReference
	}
	return SlotProvided
}

// kindOf reads the explicit type, then a kind-tag prefix. Untyped entries
// stay unkinded and are offered to both workflows.
func kindOf(f rawFile) Kind {
	for _, candidate := range []string{f.Type, f.FileType} {
		if k, err := ParseKind(candidate); err == nil {
			return k
		}
	}
	tag := strings.ToLower(f.Kind)
	switch {
	case strings.HasPrefix(tag, "signature"):
		return KindSignature
	case strings.HasPrefix(tag, "photo"):
		return KindPhoto
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
