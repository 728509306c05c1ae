package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veriscope/console/internal/history"
	"github.com/veriscope/console/internal/report"
	"github.com/veriscope/console/pkg/errors"
	"github.com/veriscope/console/pkg/httputil"
	"github.com/veriscope/console/pkg/logger"
)

// ReportHandler serves the verification history and its PDF reports
type ReportHandler struct {
	history *history.Client
	reports *report.Renderer
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(h *history.Client, reports *report.Renderer, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		history: h,
		reports: reports,
		logger:  log,
	}
}

// ReportPage is one page of history, sorted locally
type ReportPage struct {
	Items    []history.Record   `json:"items"`
	Sort     history.SortOption `json:"sort"`
	PageCost history.PageCost   `json:"pageCost"`
}

func parseQuery(r *http.Request) (history.Query, error) {
	page, err := intQuery(r, "page")
	if err != nil {
		return history.Query{}, err
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		return history.Query{}, err
	}
	q := history.Query{Page: page, Limit: limit, Type: r.URL.Query().Get("type")}
	if err := httputil.Validate(&q); err != nil {
		return history.Query{}, err
	}
	return q, nil
}

// List returns one page of history. The sort applies to that page only.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	opt, err := history.ParseSortOption(r.URL.Query().Get("sort"))
	if err != nil {
		httputil.Error(w, errors.BadRequest(err.Error()))
		return
	}

	page, err := h.history.List(r.Context(), q)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := page.Total / page.Limit
	if page.Total%page.Limit > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, ReportPage{
		Items:    history.SortPage(page.Items, opt),
		Sort:     opt,
		PageCost: history.Aggregate(page.Items),
	}, &httputil.Meta{
		Page:       page.Page,
		PerPage:    page.Limit,
		Total:      int64(page.Total),
		TotalPages: totalPages,
	})
}

// CostSummary returns the all-time cost totals
func (h *ReportHandler) CostSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.history.CostSummary(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, summary)
}

// PDF renders one record as a PDF. The record is looked up on the page the
// query selects, as listed.
func (h *ReportHandler) PDF(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.history.Find(r.Context(), q, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	body, err := h.reports.RenderRecord(*rec)
	if err != nil {
		h.logger.Error().Err(err).Str("report_id", id).Msg("failed to render report")
		httputil.Error(w, errors.Internal("failed to render report"))
		return
	}

	httputil.Binary(w, "application/pdf", report.RecordFilename(rec.ID), body)
}
