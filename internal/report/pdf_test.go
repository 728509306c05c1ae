package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veriscope/console/internal/history"
	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/result"
	"github.com/veriscope/console/internal/selection"
	"github.com/veriscope/console/pkg/errors"
)

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestRenderer() *Renderer {
	return NewRenderer(WithoutCompression(), WithClock(func() time.Time { return fixedNow }))
}

func pages(pdf []byte) int {
	return bytes.Count(pdf, []byte("<</Type /Page\n"))
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestRenderRecord_Photo(t *testing.T) {
	created := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	cost := 0.0125
	rec := history.Record{
		ID:        "665f1c",
		Type:      "photo",
		Status:    "matched",
		CreatedAt: &created,
		TotalCost: &cost,
		Request: history.Request{
			ReferenceFileName: "ref.jpg",
			ProvidedFileNames: []string{"a.jpg", "b.jpg"},
		},
		PythonResponse: mustJSON(t, map[string]interface{}{
			"total_cost": 0.0125,
			"photos": []interface{}{
				map[string]interface{}{
					"filename": "a.jpg",
					"photos": []interface{}{
						map[string]interface{}{
							"photo_index":      0,
							"confidence_score": 0.92,
							"status":           "matched",
							"report": map[string]interface{}{
								"pixel_difference": []interface{}{
									map[string]interface{}{"region": "left eye", "description": "shadow"},
								},
								"jawline_shape": "oval",
							},
						},
						map[string]interface{}{"photo_index": 1, "confidence": 41},
					},
				},
			},
		}),
	}

	out, err := newTestRenderer().RenderRecord(rec)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	text := string(out)
	assert.Contains(t, text, "Verification Report")
	assert.Contains(t, text, "ID: 665f1c")
	assert.Contains(t, text, "Status: ACCEPTED")
	assert.Contains(t, text, "Created At: 2024-05-10 09:30:00 UTC")
	assert.Contains(t, text, "Reference File: ref.jpg")
	assert.Contains(t, text, "2. b.jpg")
	assert.Contains(t, text, "Result #0: Status = ACCEPTED, Confidence = 92.00%")
	assert.Contains(t, text, "Result #1: Status = ACCEPTED, Confidence = 41.00%", "entry without status takes the record status")
	assert.Contains(t, text, "Pixel difference 1:")
	assert.Contains(t, text, "Region: left eye")
	assert.Contains(t, text, "Details: shadow")
	assert.Contains(t, text, "Jawline Shape: oval")
	assert.Equal(t, 1, pages(out))
}

func TestRenderRecord_Signature(t *testing.T) {
	rec := history.Record{
		ID:     "sig-1",
		Type:   "signature",
		Status: "completed",
		PythonResponse: mustJSON(t, map[string]interface{}{
			"files": []interface{}{
				map[string]interface{}{
					"file_index": 0,
					"signatures": []interface{}{
						map[string]interface{}{
							"signature_index": 2,
							"similarity":      "0.3",
							"match_status":    "mismatch",
							"report": `{"stroke_points":{"differences":["pressure varies"]}}`,
						},
					},
				},
			},
		}),
	}

	out, err := newTestRenderer().RenderRecord(rec)
	require.NoError(t, err)

	text := string(out)
	assert.NotContains(t, text, "(Status: COMPLETED)", "undecided statuses are not shown in the header")
	assert.Contains(t, text, "Overall Status: COMPLETED")
	assert.Contains(t, text, "Provided Files: -")
	assert.Contains(t, text, "File #0")
	assert.Contains(t, text, "Signature #2: Status = REJECTED, Confidence = 30.00%")
	assert.Contains(t, text, "Stroke difference 1: pressure varies")
}

func TestRenderRecord_AnalysisFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		response json.RawMessage
		want     string
	}{
		{"missing", nil, "No structured analysis was stored for this comparison."},
		{"empty object", json.RawMessage(`{}`), "No structured analysis was stored for this comparison."},
		{"unknown shape", json.RawMessage(`{"verdict":"ok"}`), "Structured analysis is available but not in a known format."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newTestRenderer().RenderRecord(history.Record{ID: "x", Type: "photo", PythonResponse: tt.response})
			require.NoError(t, err)
			assert.Contains(t, string(out), tt.want)
		})
	}
}

func TestRenderRecord_MissingID(t *testing.T) {
	_, err := newTestRenderer().RenderRecord(history.Record{})
	assert.ErrorIs(t, err, errors.ErrBadRequest)
}

func TestRenderRecord_BreaksPages(t *testing.T) {
	names := make([]string, 80)
	for i := range names {
		names[i] = fmt.Sprintf("provided-%02d.jpg", i)
	}
	rec := history.Record{ID: "long", Type: "photo", Request: history.Request{ProvidedFileNames: names}}

	out, err := newTestRenderer().RenderRecord(rec)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pages(out), 2)
	assert.Contains(t, string(out), "80. provided-79.jpg")
}

func TestRenderResult(t *testing.T) {
	body := []byte(`{"success":true,"totalCost":0.02,"raw_response":{"files":[{"filename":"a.jpg","photos":[
		{"photo_index":0,"confidence_score":0.92,"status":"matched"},
		{"photo_index":1,"confidence_score":0.41,"status":"rejected"}]}]}}`)
	res := result.DecodePhoto(body)
	require.True(t, res.Recognized())

	st := selection.State{
		Reference: &registry.FileDescriptor{Name: "ref.jpg", StorageURL: "/temp/ref.jpg"},
		Provided:  []registry.FileDescriptor{{Name: "a.jpg", StorageURL: "/temp/a.jpg"}},
		Result:    res,
	}

	r := newTestRenderer()
	id := r.SessionID(registry.KindPhoto)
	assert.Equal(t, "photo-20240601-080000", id)

	out, err := r.RenderResult(registry.KindPhoto, id, st)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Status: ACCEPTED")
	assert.Contains(t, text, "Total Cost: 0.0200")
	assert.Contains(t, text, "Result #1: Status = REJECTED, Confidence = 41.00%")
	assert.Equal(t, "comparison-report-"+id+".pdf", SessionFilename(id))
}

func TestRenderResult_RequiresResult(t *testing.T) {
	_, err := newTestRenderer().RenderResult(registry.KindSignature, "s", selection.State{})
	assert.ErrorIs(t, err, errors.ErrPrecondition)
}

func TestSplit_WrapsAndCutsLongWords(t *testing.T) {
	p := newTestRenderer().newPage("t")
	p.body()

	lines := p.split(strings.Repeat("word ", 60), 50)
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, p.pdf.GetStringWidth(l), 50.0)
	}

	long := p.split(strings.Repeat("x", 200), 20)
	assert.Greater(t, len(long), 1)
	assert.Equal(t, strings.Repeat("x", 200), strings.Join(long, ""))

	assert.Equal(t, []string{""}, p.split("", 20))
	assert.Equal(t, "verification-report-abc.pdf", RecordFilename("abc"))
}
