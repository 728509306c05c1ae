package history

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/veriscope/console/internal/backend"
	"github.com/veriscope/console/pkg/errors"
	"github.com/veriscope/console/pkg/logger"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

const (
	reportsFailedMessage = "Failed to load reports"
	summaryFailedMessage = "Failed to load cost summary"
)

// Query selects one page of the log. Page is 1-based; an empty Type means all.
type Query struct {
	Page  int    `json:"page" validate:"gte=0"`
	Limit int    `json:"limit" validate:"gte=0,lte=100"`
	Type  string `json:"type,omitempty" validate:"omitempty,oneof=photo signature"`
}

func (q Query) normalized() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (q Query) values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	return v
}

// Page is one page of records plus the total the backend reports
type Page struct {
	Items []Record `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
}

// TypeCost is the cost attributed to one comparison type
type TypeCost struct {
	TotalCost     float64 `json:"totalCost"`
	TotalRequests int     `json:"totalRequests,omitempty"`
}

// CostSummary is the backend's all-time cost overview
type CostSummary struct {
	Overall struct {
		TotalCost     float64 `json:"totalCost"`
		TotalRequests int     `json:"totalRequests"`
	} `json:"overall"`
	ByType struct {
		Photo     TypeCost `json:"photo"`
		Signature TypeCost `json:"signature"`
	} `json:"byType"`
}

// Client reads the verification log
type Client struct {
	backend *backend.Client
	logger  *logger.Logger
}

// NewClient creates a history client
func NewClient(b *backend.Client, log *logger.Logger) *Client {
	return &Client{
		backend: b,
		logger:  log.WithComponent("history"),
	}
}

// List fetches one page of records. Any failure surfaces as an upstream
// error carrying the server's message or "Failed to load reports".
func (c *Client) List(ctx context.Context, q Query) (*Page, error) {
	q = q.normalized()

	var resp struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Items   []Record `json:"items"`
		Total   int      `json:"total"`
	}
	if err := c.backend.GetJSON(ctx, "/verifications?"+q.values().Encode(), &resp); err != nil {
		c.logger.Error().Err(err).Int("page", q.Page).Str("type", q.Type).Msg("failed to fetch verification reports")
		return nil, errors.Wrap(err, "UPSTREAM_ERROR", reportsFailedMessage, http.StatusBadGateway)
	}
	if !resp.Success {
		return nil, errors.Upstream(messageOr(resp.Message, reportsFailedMessage), http.StatusBadGateway)
	}

	page := &Page{
		Items: resp.Items,
		Total: resp.Total,
		Page:  q.Page,
		Limit: q.Limit,
	}
	if page.Items == nil {
		page.Items = []Record{}
	}

	c.logger.Debug().
		Int("page", q.Page).
		Int("items", len(page.Items)).
		Int("total", page.Total).
		Msg("verification reports fetched")

	return page, nil
}

// Find returns the record with the given id from the page q selects
func (c *Client) Find(ctx context.Context, q Query, id string) (*Record, error) {
	if id == "" {
		return nil, errors.BadRequest("missing report id")
	}

	page, err := c.List(ctx, q)
	if err != nil {
		return nil, err
	}
	for i := range page.Items {
		if page.Items[i].ID == id {
			rec := page.Items[i]
			return &rec, nil
		}
	}
	return nil, errors.NotFound("report")
}

// CostSummary fetches the all-time totals
func (c *Client) CostSummary(ctx context.Context) (*CostSummary, error) {
	var resp struct {
		CostSummary
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.backend.GetJSON(ctx, "/verifications/cost-summary", &resp); err != nil {
		c.logger.Error().Err(err).Msg("failed to fetch cost summary")
		return nil, errors.Wrap(err, "UPSTREAM_ERROR", summaryFailedMessage, http.StatusBadGateway)
	}
	if !resp.Success {
		return nil, errors.Upstream(messageOr(resp.Message, summaryFailedMessage), http.StatusBadGateway)
	}

	summary := resp.CostSummary
	return &summary, nil
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
