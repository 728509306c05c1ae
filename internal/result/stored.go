package result

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexNumber accepts a JSON number or a numeric string
type flexNumber struct {
	v *float64
}

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	f.v = &n
	return nil
}

type storedEntry struct {
	SignatureIndex  *int            `json:"signature_index"`
	PhotoIndex      *int            `json:"photo_index"`
	Status          string          `json:"status"`
	MatchStatus     string          `json:"match_status"`
	Result          string          `json:"result"`
	Verdict         string          `json:"verdict"`
	Decision        string          `json:"decision"`
	ConfidenceScore flexNumber      `json:"confidence_score"`
	Confidence      flexNumber      `json:"confidence"`
	Similarity      flexNumber      `json:"similarity"`
	SimilarityScore flexNumber      `json:"similarity_score"`
	Report          json.RawMessage `json:"report"`
	Image           string          `json:"image"`
}

func (e storedEntry) status() string {
	for _, s := range []string{e.Status, e.MatchStatus, e.Result, e.Verdict, e.Decision} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (e storedEntry) confidence() *float64 {
	for _, n := range []flexNumber{e.ConfidenceScore, e.Confidence, e.Similarity, e.SimilarityScore} {
		if n.v != nil {
			return n.v
		}
	}
	return nil
}

type storedFile struct {
	Filename   string        `json:"filename"`
	FileIndex  *int          `json:"file_index"`
	Signatures []storedEntry `json:"signatures"`
	Photos     []storedEntry `json:"photos"`
}

type storedResponse struct {
	TotalCost flexNumber   `json:"total_cost"`
	Files     []storedFile `json:"files"`
	Photos    []storedFile `json:"photos"`
}

// DecodeStored reads the backend response a history record keeps. The stored
// shape predates the live endpoints and varies between backend versions, so
// unlike the live decoders this one is lenient about field names.
// kind is the record type ("photo" or "signature").
func DecodeStored(kind string, raw json.RawMessage) *Result {
	if len(raw) == 0 {
		return unrecognized(nil)
	}

	// some records hold the response JSON-encoded a second time
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return unrecognized(nil)
		}
		raw = json.RawMessage(s)
	}

	var resp storedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return unrecognized(nil)
	}

	files := resp.Files
	k := KindSignature
	if strings.EqualFold(kind, string(KindPhoto)) {
		k = KindPhoto
		if len(files) == 0 {
			files = resp.Photos
		}
	}
	if files == nil {
		return unrecognized(resp.TotalCost.v)
	}

	r := &Result{Kind: k, TotalCost: resp.TotalCost.v, Groups: make([]Group, 0, len(files))}
	for i, f := range files {
		fileIndex := i
		if f.FileIndex != nil {
			fileIndex = *f.FileIndex
		}
		name := f.Filename
		if name == "" {
			name = "File #" + strconv.Itoa(fileIndex)
		}

		items := f.Signatures
		if k == KindPhoto {
			items = f.Photos
		}

		g := Group{FileIndex: fileIndex, Filename: name, Entries: make([]Entry, 0, len(items))}
		for j, it := range items {
			idx := j
			switch {
			case it.SignatureIndex != nil:
				idx = *it.SignatureIndex
			case it.PhotoIndex != nil:
				idx = *it.PhotoIndex
			}
			status := it.status()
			d := Classify(status)
			g.Entries = append(g.Entries, Entry{
				Index:      idx,
				Confidence: normalizePtr(it.confidence()),
				RawStatus:  status,
				Decision:   d,
				Matched:    d.Verdict == Accepted,
				Report:     parseReport(it.Report),
				Image:      it.Image,
			})
		}
		r.Groups = append(r.Groups, g)
	}
	return finish(r)
}
