package result

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Report is the free-form analysis object attached to an entry. It is kept
// verbatim; the accessors below only read it for display.
type Report []byte

// MarshalJSON emits the report object as-is
func (r Report) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON accepts the same inputs the decoders do
func (r *Report) UnmarshalJSON(data []byte) error {
	*r = parseReport(data)
	return nil
}

// Field is one labelled value of a report
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Difference is one pixel or stroke difference. String differences only set
// Text; object differences set Region, Description and the remaining fields.
type Difference struct {
	Text        string  `json:"text,omitempty"`
	Region      string  `json:"region,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

func (r Report) object() map[string]json.RawMessage {
	if len(r) == 0 {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(r, &m); err != nil {
		return nil
	}
	return m
}

// PixelDifferences reads pixel_difference (or pixelDifferences), which may be
// a list or a single value.
func (r Report) PixelDifferences() []Difference {
	m := r.object()
	raw, ok := m["pixel_difference"]
	if !ok {
		raw = m["pixelDifferences"]
	}
	return differences(raw)
}

// StrokeDifferences reads strokePoints.differences (or stroke_points.differences)
func (r Report) StrokeDifferences() []Difference {
	m := r.object()
	raw, ok := m["strokePoints"]
	if !ok {
		raw = m["stroke_points"]
	}
	var sp map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &sp) != nil {
		return nil
	}
	return differences(sp["differences"])
}

var facialKeys = []string{"jawline_shape", "forehead_proportion", "lip_shape_thickness", "nose_bridge_width"}

// FacialFeatures reads the facial descriptors photo reports may carry
func (r Report) FacialFeatures() []Field {
	m := r.object()
	var out []Field
	for _, k := range facialKeys {
		if v := scalar(m[k]); v != "" {
			out = append(out, Field{Label: LabelFromKey(k), Value: v})
		}
	}
	return out
}

// LabelFromKey turns missing_strokes into Missing Strokes
func LabelFromKey(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func differences(raw json.RawMessage) []Difference {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		items = []json.RawMessage{raw}
	}

	out := make([]Difference, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			out = append(out, Difference{Text: scalar(item)})
			continue
		}

		d := Difference{
			Region:      str(obj["region"]),
			Description: str(obj["description"]),
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			if k == "region" || k == "description" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := scalar(obj[k]); v != "" {
				d.Fields = append(d.Fields, Field{Label: LabelFromKey(k), Value: v})
			}
		}
		out = append(out, d)
	}
	return out
}

func str(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// scalar renders a JSON value as display text; null and absent are ""
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	default:
		return string(raw)
	}
}
