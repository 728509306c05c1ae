package handler

import (
	"net/http"

	"github.com/veriscope/console/internal/report"
	"github.com/veriscope/console/internal/selection"
	"github.com/veriscope/console/internal/workflow"
	"github.com/veriscope/console/pkg/errors"
	"github.com/veriscope/console/pkg/httputil"
	"github.com/veriscope/console/pkg/logger"
)

// ComparisonHandler drives the per-kind comparison workflows
type ComparisonHandler struct {
	workspace *workflow.Workspace
	reports   *report.Renderer
	logger    *logger.Logger
}

// NewComparisonHandler creates a new comparison handler
func NewComparisonHandler(ws *workflow.Workspace, reports *report.Renderer, log *logger.Logger) *ComparisonHandler {
	return &ComparisonHandler{
		workspace: ws,
		reports:   reports,
		logger:    log,
	}
}

// SelectReferenceRequest picks the reference by storage URL
type SelectReferenceRequest struct {
	URL string `json:"url" validate:"required"`
}

// ConfirmProvidedRequest replaces the provided set, in order
type ConfirmProvidedRequest struct {
	URLs []string `json:"urls" validate:"required,min=1,dive,required"`
}

// CursorRequest moves the provided-file carousel
type CursorRequest struct {
	Action string `json:"action" validate:"required,oneof=next prev set"`
	Index  *int   `json:"index,omitempty"`
}

func (h *ComparisonHandler) controller(w http.ResponseWriter, r *http.Request) (*workflow.Controller, bool) {
	kind, err := kindParam(r)
	if err != nil {
		httputil.Error(w, err)
		return nil, false
	}
	c, err := h.workspace.Controller(kind)
	if err != nil {
		httputil.Error(w, errors.NotFound("comparison"))
		return nil, false
	}
	return c, true
}

// Get returns the workflow state
func (h *ComparisonHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	httputil.JSON(w, http.StatusOK, c.View())
}

// SelectReference picks the reference. An unknown URL triggers one registry
// refresh before it is rejected.
func (h *ComparisonHandler) SelectReference(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req SelectReferenceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	v, err := c.SelectReference(r.Context(), req.URL)
	if errors.Is(err, errors.ErrNotFound) {
		h.refresh(r)
		v, err = c.SelectReference(r.Context(), req.URL)
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, v)
}

// ConfirmProvided replaces the provided set. Unknown URLs trigger one
// registry refresh before they are rejected.
func (h *ComparisonHandler) ConfirmProvided(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req ConfirmProvidedRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	v, err := c.ConfirmProvided(r.Context(), req.URLs)
	if errors.Is(err, errors.ErrBadRequest) {
		h.refresh(r)
		v, err = c.ConfirmProvided(r.Context(), req.URLs)
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, v)
}

// Cursor moves the carousel: next, prev, or set with an index
func (h *ComparisonHandler) Cursor(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req CursorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	switch req.Action {
	case "next":
		httputil.JSON(w, http.StatusOK, c.NextProvided(r.Context()))
	case "prev":
		httputil.JSON(w, http.StatusOK, c.PrevProvided(r.Context()))
	default:
		if req.Index == nil {
			httputil.Error(w, errors.Validation(map[string]string{"Index": "this field is required"}))
			return
		}
		v, err := c.SetCursor(r.Context(), *req.Index)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		httputil.JSON(w, http.StatusOK, v)
	}
}

// Compare runs the comparison and returns the resulting state. The error
// banner text is also kept in the state for the next Get.
func (h *ComparisonHandler) Compare(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	if _, err := c.Compare(r.Context()); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, c.View())
}

// DismissError clears the error banner
func (h *ComparisonHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	httputil.JSON(w, http.StatusOK, c.DismissError())
}

// Clear drops the selection, result and snapshot
func (h *ComparisonHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	httputil.JSON(w, http.StatusOK, c.ClearSession(r.Context()))
}

// Report downloads the current result as a PDF
func (h *ComparisonHandler) Report(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	v := c.View()
	st := selection.State{
		Reference: v.Reference,
		Provided:  v.Provided,
		Cursor:    v.Cursor,
		Result:    v.Result,
	}
	id := h.reports.SessionID(v.Kind)

	body, err := h.reports.RenderResult(v.Kind, id, st)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Binary(w, "application/pdf", report.SessionFilename(id), body)
}

func (h *ComparisonHandler) refresh(r *http.Request) {
	if _, err := h.workspace.Refresh(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("registry refresh failed")
	}
}
