package handler

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriscope/console/internal/history"
	"github.com/veriscope/console/pkg/httputil"
	"github.com/veriscope/console/pkg/testutil"
)

func historyFixtures() []testutil.VerificationFixture {
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []testutil.VerificationFixture{
		{
			ID: "v1", Type: "photo", Status: "COMPLETED", CreatedAt: day,
			TotalCost: testutil.PtrFloat(0.02), ReferenceName: "ref.jpg", ProvidedNames: []string{"a.jpg"},
		},
		{
			ID: "v2", Type: "signature", Status: "COMPLETED", CreatedAt: day.Add(2 * time.Hour),
			TotalCost: testutil.PtrFloat(0.10), ReferenceName: "sig.png", ProvidedNames: []string{"d1.pdf", "d2.pdf"},
		},
		{
			ID: "v3", Type: "photo", Status: "FAILED", CreatedAt: day.Add(time.Hour),
			ReferenceName: "ref2.jpg", ProvidedNames: []string{"b.jpg", "c.jpg", "e.jpg"},
		},
	}
}

func ids(records []history.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestReports_List(t *testing.T) {
	h := newHarness(t, true)
	h.fb.HandleJSON(http.MethodGet, "/api/verifications", http.StatusOK, testutil.VerificationsPage(23, historyFixtures()...))

	rr := h.do(http.MethodGet, "/api/v1/reports?page=2&type=photo&sort=highest", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var page ReportPage
	success, _, _ := testutil.ParseEnvelope(t, rr, &page)
	assert.True(t, success)
	assert.Equal(t, history.SortHighestCost, page.Sort)
	assert.Equal(t, []string{"v2", "v1", "v3"}, ids(page.Items))
	assert.Equal(t, 3, page.PageCost.Count)
	assert.InDelta(t, 0.12, page.PageCost.TotalCost, 1e-9)
	assert.Equal(t, 2, page.PageCost.Counts["photo"])

	var env struct {
		Meta httputil.Meta `json:"meta"`
	}
	testutil.ParseJSONBody(t, rr, &env)
	assert.Equal(t, 2, env.Meta.Page)
	assert.Equal(t, 10, env.Meta.PerPage)
	assert.Equal(t, int64(23), env.Meta.Total)
	assert.Equal(t, 3, env.Meta.TotalPages)

	sent, ok := h.fb.Last(http.MethodGet, "/api/verifications")
	require.True(t, ok)
	assert.Equal(t, "2", sent.Query.Get("page"))
	assert.Equal(t, "10", sent.Query.Get("limit"))
	assert.Equal(t, "photo", sent.Query.Get("type"))
}

func TestReports_ListDefaultsToLatest(t *testing.T) {
	h := newHarness(t, true)
	h.fb.HandleJSON(http.MethodGet, "/api/verifications", http.StatusOK, testutil.VerificationsPage(3, historyFixtures()...))

	rr := h.do(http.MethodGet, "/api/v1/reports", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var page ReportPage
	testutil.ParseEnvelope(t, rr, &page)
	assert.Equal(t, history.SortLatest, page.Sort)
	assert.Equal(t, []string{"v2", "v3", "v1"}, ids(page.Items))
}

func TestReports_ListRejectsBadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"page not a number", "?page=two", "BAD_REQUEST"},
		{"limit too large", "?limit=500", "VALIDATION_ERROR"},
		{"unknown type", "?type=video", "VALIDATION_ERROR"},
		{"unknown sort", "?sort=random", "BAD_REQUEST"},
	}

	h := newHarness(t, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := h.do(http.MethodGet, "/api/v1/reports"+tt.query, nil)
			testutil.AssertStatus(t, rr, http.StatusBadRequest)
			_, code, _ := testutil.ParseEnvelope(t, rr, nil)
			assert.Equal(t, tt.code, code)
		})
	}
	assert.Zero(t, h.fb.Count(http.MethodGet, "/api/verifications"))
}

func TestReports_ListUpstreamFailure(t *testing.T) {
	h := newHarness(t, true)
	h.fb.HandleJSON(http.MethodGet, "/api/verifications", http.StatusOK, map[string]interface{}{"success": false})

	rr := h.do(http.MethodGet, "/api/v1/reports", nil)
	testutil.AssertStatus(t, rr, http.StatusBadGateway)
	_, code, msg := testutil.ParseEnvelope(t, rr, nil)
	assert.Equal(t, "UPSTREAM_ERROR", code)
	assert.Equal(t, "Failed to load reports", msg)
}

func TestReports_CostSummary(t *testing.T) {
	h := newHarness(t, true)
	h.fb.HandleJSON(http.MethodGet, "/api/verifications/cost-summary", http.StatusOK, map[string]interface{}{
		"success": true,
		"overall": map[string]interface{}{"totalCost": 1.5, "totalRequests": 30},
		"byType": map[string]interface{}{
			"photo":     map[string]interface{}{"totalCost": 0.5},
			"signature": map[string]interface{}{"totalCost": 1.0},
		},
	})

	rr := h.do(http.MethodGet, "/api/v1/reports/cost-summary", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var summary history.CostSummary
	testutil.ParseEnvelope(t, rr, &summary)
	assert.Equal(t, 30, summary.Overall.TotalRequests)
	assert.InDelta(t, 1.0, summary.ByType.Signature.TotalCost, 1e-9)
}

func TestReports_PDF(t *testing.T) {
	h := newHarness(t, true)
	h.fb.HandleJSON(http.MethodGet, "/api/verifications", http.StatusOK, testutil.VerificationsPage(3, historyFixtures()...))

	rr := h.do(http.MethodGet, "/api/v1/reports/v2/pdf", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="verification-report-v2.pdf"`, rr.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))

	rr = h.do(http.MethodGet, "/api/v1/reports/v9/pdf", nil)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	_, code, _ := testutil.ParseEnvelope(t, rr, nil)
	assert.Equal(t, "NOT_FOUND", code)
}
