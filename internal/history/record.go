// Package history reads the verification log the backend keeps: paginated
// records, a per-page local sort and the cost summaries.
package history

import (
	"encoding/json"
	"time"
)

// Request is what the operator submitted for one verification
type Request struct {
	ReferenceFileName string   `json:"referenceFileName"`
	ProvidedFileNames []string `json:"providedFileNames"`
}

// Record is one row of the verification log. The backend owns it; the console
// never writes one.
type Record struct {
	ID             string          `json:"_id"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	CreatedAt      *time.Time      `json:"createdAt,omitempty"`
	TotalCost      *float64        `json:"totalCost,omitempty"`
	Request        Request         `json:"request"`
	PythonResponse json.RawMessage `json:"pythonResponse,omitempty"`
}

// Cost is the record's total cost, zero when the backend did not report one
func (r Record) Cost() float64 {
	if r.TotalCost == nil {
		return 0
	}
	return *r.TotalCost
}

// ProvidedCount is the number of provided files in the request
func (r Record) ProvidedCount() int {
	return len(r.Request.ProvidedFileNames)
}

// UnmarshalJSON tolerates the date formats the log has been written with.
// An unparseable createdAt leaves CreatedAt nil instead of failing the page.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	var raw struct {
		alias
		CreatedAt json.RawMessage `json:"createdAt"`
		Request   *Request        `json:"request"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record(raw.alias)
	r.CreatedAt = nil
	if raw.Request != nil {
		r.Request = *raw.Request
	}
	if r.Request.ProvidedFileNames == nil {
		r.Request.ProvidedFileNames = []string{}
	}
	if len(r.PythonResponse) > 0 && string(r.PythonResponse) == "null" {
		r.PythonResponse = nil
	}

	var s string
	if len(raw.CreatedAt) > 0 && json.Unmarshal(raw.CreatedAt, &s) == nil {
		r.CreatedAt = parseTime(s)
	}
	return nil
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
