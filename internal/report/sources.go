package report

import (
	"encoding/json"
	"fmt"

	"github.com/veriscope/console/internal/history"
	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/result"
	"github.com/veriscope/console/internal/selection"
	"github.com/veriscope/console/pkg/errors"
)

// RecordFilename is the download name of a history record's report
func RecordFilename(id string) string {
	return "verification-report-" + id + ".pdf"
}

// SessionFilename is the download name of a live session's report
func SessionFilename(id string) string {
	return "comparison-report-" + id + ".pdf"
}

// RenderRecord renders the report of a stored verification
func (r *Renderer) RenderRecord(rec history.Record) ([]byte, error) {
	if rec.ID == "" {
		return nil, errors.BadRequest("missing report id")
	}

	return r.render(document{
		ID:        rec.ID,
		Type:      rec.Type,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
		Reference: rec.Request.ReferenceFileName,
		Provided:  rec.Request.ProvidedFileNames,
		Analysis:  storedAnalysis(rec),

		EntryStatus: rec.Status,
	})
}

// storedAnalysis is nil when the record holds no response at all
func storedAnalysis(rec history.Record) *result.Result {
	if len(rec.PythonResponse) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(rec.PythonResponse, &obj); err == nil && len(obj) == 0 {
		return nil
	}
	return result.DecodeStored(rec.Type, rec.PythonResponse)
}

// SessionID names a live session report after its kind and the render time
func (r *Renderer) SessionID(kind registry.Kind) string {
	return fmt.Sprintf("%s-%s", kind, r.now().In(r.location).Format("20060102-150405"))
}

// RenderResult renders the current result of a comparison session. The
// overall status is the decision of the best match.
func (r *Renderer) RenderResult(kind registry.Kind, id string, st selection.State) ([]byte, error) {
	if st.Result == nil {
		return nil, errors.PreconditionFailed("Run a comparison before exporting a report")
	}

	doc := document{
		ID:       id,
		Type:     string(kind),
		Provided: make([]string, 0, len(st.Provided)),
		Analysis: st.Result,
	}
	now := r.now()
	doc.CreatedAt = &now
	if st.Reference != nil {
		doc.Reference = st.Reference.Name
	}
	for _, f := range st.Provided {
		doc.Provided = append(doc.Provided, f.Name)
	}
	if best := st.Result.Best; best != nil {
		doc.Status = best.Entry.RawStatus
		if doc.Status == "" {
			doc.Status = best.Entry.Decision.Label
		}
	}

	return r.render(doc)
}
