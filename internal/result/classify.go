package result

import "strings"

// Verdict is the three-way reading of a backend status string
type Verdict string

const (
	Accepted Verdict = "ACCEPTED"
	Rejected Verdict = "REJECTED"
	Unknown  Verdict = "UNKNOWN"
)

// Decision is a classified status. Label is what the operator sees:
// ACCEPTED, REJECTED, or the raw status upper-cased.
type Decision struct {
	Verdict Verdict `json:"verdict"`
	Label   string  `json:"label"`
}

var (
	rejectedExact = map[string]bool{
		"failed":      true,
		"error":       true,
		"not_matched": true,
		"rejected":    true,
	}
	acceptedExact = map[string]bool{
		"success":  true,
		"verified": true,
		"match":    true,
		"accepted": true,
	}
)

// Classify maps a raw backend status onto a Decision. The backend has no
// status enum, so this is a fixed keyword table. Rejection keywords are
// checked first because "not_matched" and "mismatched" contain "matched".
// Anything unrecognized is Unknown, never guessed.
func Classify(status string) Decision {
	s := strings.ToLower(strings.TrimSpace(status))

	switch {
	case strings.Contains(s, "reject"), strings.Contains(s, "mismatch"), rejectedExact[s]:
		return Decision{Verdict: Rejected, Label: string(Rejected)}
	case strings.Contains(s, "matched"), acceptedExact[s]:
		return Decision{Verdict: Accepted, Label: string(Accepted)}
	}

	if s == "" {
		return Decision{Verdict: Unknown, Label: string(Unknown)}
	}
	return Decision{Verdict: Unknown, Label: strings.ToUpper(strings.TrimSpace(status))}
}

// NormalizeConfidence puts a backend score on the 0-100 scale. Values at or
// below 1 are read as fractions. This cannot tell 0.5% from 50% and is kept
// as-is for compatibility with the backend's mixed scales.
func NormalizeConfidence(v float64) float64 {
	if v <= 1 {
		return v * 100
	}
	return v
}

func normalizePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := NormalizeConfidence(*v)
	return &n
}
