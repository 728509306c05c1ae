package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/workflow"
	"github.com/veriscope/console/pkg/errors"
	"github.com/veriscope/console/pkg/httputil"
	"github.com/veriscope/console/pkg/logger"
)

// FileHandler manages uploads in the remote registry
type FileHandler struct {
	registry  *registry.Client
	workspace *workflow.Workspace
	maxUpload int64
	logger    *logger.Logger
}

// NewFileHandler creates a new file handler. maxUpload bounds the request
// body of an upload in bytes.
func NewFileHandler(reg *registry.Client, ws *workflow.Workspace, maxUpload int64, log *logger.Logger) *FileHandler {
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &FileHandler{
		registry:  reg,
		workspace: ws,
		maxUpload: maxUpload,
		logger:    log,
	}
}

// List refreshes the registry listing, reconciles both workflows with it
// and returns it, narrowed to ?kind= when given
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	var kind registry.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, err := registry.ParseKind(raw)
		if err != nil {
			httputil.Error(w, errors.BadRequest("kind must be photo or signature"))
			return
		}
		kind = k
	}

	listing, err := h.workspace.Refresh(r.Context())
	if err != nil {
		httputil.Error(w, upstream(err, "Failed to load files"))
		return
	}
	if kind != "" {
		listing = listing.Filter(kind)
	}

	httputil.JSON(w, http.StatusOK, listing)
}

// Upload sends the multipart "file" field to the registry
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	slot, err := registry.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		httputil.Error(w, errors.BadRequest("slot must be reference or provided"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		httputil.Error(w, errors.BadRequest("invalid upload: "+err.Error()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing file"))
		return
	}
	defer file.Close()

	ack, err := h.registry.Upload(r.Context(), registry.FileUpload{Name: header.Filename, Content: file}, kind, slot)
	if err != nil {
		httputil.Error(w, upstream(err, "Upload failed"))
		return
	}
	if !ack.Success {
		msg := ack.Message
		if msg == "" {
			msg = "Server returned an error"
		}
		httputil.Error(w, errors.Upstream("Upload failed: "+msg, http.StatusBadGateway))
		return
	}

	h.refresh(r)
	httputil.Created(w, ack)
}

// Delete removes a file from the registry
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.registry.Delete(r.Context(), chi.URLParam(r, "id"), kind); err != nil {
		httputil.Error(w, upstream(err, "Failed to delete file"))
		return
	}

	h.refresh(r)
	httputil.NoContent(w)
}

// refresh reconciles the workflows after a registry change. A failure only
// means the next listing catches up.
func (h *FileHandler) refresh(r *http.Request) {
	if _, err := h.workspace.Refresh(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("refresh after registry change failed")
	}
}
