package result

import (
	"bytes"
	"encoding/json"
	"sort"
)

type photoEnvelope struct {
	TotalCost   *float64 `json:"totalCost"`
	RawResponse *struct {
		TotalCost *float64 `json:"total_cost"`
		Files     *[]struct {
			Filename string `json:"filename"`
			Photos   []struct {
				PhotoIndex      *int            `json:"photo_index"`
				ConfidenceScore *float64        `json:"confidence_score"`
				Status          string          `json:"status"`
				Report          json.RawMessage `json:"report"`
				Image           string          `json:"image"`
			} `json:"photos"`
		} `json:"files"`
	} `json:"raw_response"`
}

// DecodePhoto decodes a verify-photo response:
// raw_response.files[].photos[] with totalCost or raw_response.total_cost.
func DecodePhoto(body []byte) *Result {
	var env photoEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return unrecognized(costFrom(body))
	}

	cost := env.TotalCost
	if cost == nil && env.RawResponse != nil {
		cost = env.RawResponse.TotalCost
	}
	if env.RawResponse == nil || env.RawResponse.Files == nil {
		return unrecognized(cost)
	}

	r := &Result{Kind: KindPhoto, TotalCost: cost}
	for i, f := range *env.RawResponse.Files {
		name := f.Filename
		if name == "" {
			name = documentName(i)
		}
		g := Group{FileIndex: i, Filename: name, Entries: make([]Entry, 0, len(f.Photos))}
		for j, p := range f.Photos {
			idx := j
			if p.PhotoIndex != nil {
				idx = *p.PhotoIndex
			}
			d := Classify(p.Status)
			g.Entries = append(g.Entries, Entry{
				Index:      idx,
				Confidence: normalizePtr(p.ConfidenceScore),
				RawStatus:  p.Status,
				Decision:   d,
				Matched:    d.Verdict == Accepted,
				Report:     parseReport(p.Report),
				Image:      p.Image,
			})
		}
		r.Groups = append(r.Groups, g)
	}
	return finish(r)
}

type signatureEnvelope struct {
	TotalCost   *float64 `json:"totalCost"`
	RawResponse *struct {
		TotalCost *float64 `json:"total_cost"`
	} `json:"raw_response"`
	Signatures *[]struct {
		FileIndex      *int            `json:"fileIndex"`
		Filename       string          `json:"filename"`
		SignatureIndex *int            `json:"signatureIndex"`
		Confidence     *float64        `json:"confidence"`
		Status         string          `json:"status"`
		Match          *bool           `json:"match"`
		Report         json.RawMessage `json:"report"`
		AnalysisImage  string          `json:"analysisImage"`
	} `json:"signatures"`
}

// DecodeSignature decodes a verify-signature response. Signatures are grouped
// by (fileIndex, filename) and the groups ordered by file index.
func DecodeSignature(body []byte) *Result {
	var env signatureEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return unrecognized(costFrom(body))
	}

	cost := env.TotalCost
	if cost == nil && env.RawResponse != nil {
		cost = env.RawResponse.TotalCost
	}
	if env.Signatures == nil {
		return unrecognized(cost)
	}

	type key struct {
		index int
		name  string
	}
	groups := make(map[key]*Group)
	var order []key

	for j, s := range *env.Signatures {
		fileIndex := 0
		if s.FileIndex != nil {
			fileIndex = *s.FileIndex
		}
		name := s.Filename
		if name == "" {
			name = documentName(fileIndex)
		}
		k := key{fileIndex, name}
		g, ok := groups[k]
		if !ok {
			g = &Group{FileIndex: fileIndex, Filename: name, Entries: []Entry{}}
			groups[k] = g
			order = append(order, k)
		}

		idx := j
		if s.SignatureIndex != nil {
			idx = *s.SignatureIndex
		}
		d := Classify(s.Status)
		g.Entries = append(g.Entries, Entry{
			Index:      idx,
			Confidence: normalizePtr(s.Confidence),
			RawStatus:  s.Status,
			Decision:   d,
			Matched:    (s.Match != nil && *s.Match) || d.Verdict == Accepted,
			Report:     parseReport(s.Report),
			Image:      s.AnalysisImage,
		})
	}

	r := &Result{Kind: KindSignature, TotalCost: cost, Groups: make([]Group, 0, len(order))}
	for _, k := range order {
		r.Groups = append(r.Groups, *groups[k])
	}
	sort.SliceStable(r.Groups, func(i, j int) bool {
		return r.Groups[i].FileIndex < r.Groups[j].FileIndex
	})
	return finish(r)
}

// costFrom salvages totalCost from a body whose shape did not decode
func costFrom(body []byte) *float64 {
	var probe struct {
		TotalCost *float64 `json:"totalCost"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil
	}
	return probe.TotalCost
}

// parseReport accepts a report object or a JSON-encoded string holding one.
// Anything else is treated as no report.
func parseReport(raw json.RawMessage) Report {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		raw = bytes.TrimSpace([]byte(s))
	}

	if len(raw) == 0 || raw[0] != '{' || !json.Valid(raw) {
		return nil
	}
	out := make(Report, len(raw))
	copy(out, raw)
	return out
}
