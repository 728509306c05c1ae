package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status  string
		verdict Verdict
		label   string
	}{
		{"MATCHED", Accepted, "ACCEPTED"},
		{"accepted", Accepted, "ACCEPTED"},
		{"Verified", Accepted, "ACCEPTED"},
		{"success", Accepted, "ACCEPTED"},
		{"match", Accepted, "ACCEPTED"},
		{"rejected", Rejected, "REJECTED"},
		{"MISMATCH", Rejected, "REJECTED"},
		{"mismatched", Rejected, "REJECTED"},
		{"failed", Rejected, "REJECTED"},
		{"not_matched", Rejected, "REJECTED"},
		{"error", Rejected, "REJECTED"},
		{"pending", Unknown, "PENDING"},
		{"  review ", Unknown, "REVIEW"},
		{"", Unknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			d := Classify(tt.status)
			assert.Equal(t, tt.verdict, d.Verdict)
			assert.Equal(t, tt.label, d.Label)
		})
	}
}

func TestNormalizeConfidence(t *testing.T) {
	for _, v := range []float64{0, 0.01, 0.5, 0.92, 1} {
		assert.InDelta(t, v*100, NormalizeConfidence(v), 1e-9, "value %v", v)
	}
	for _, v := range []float64{1.5, 41, 92, 100} {
		assert.Equal(t, v, NormalizeConfidence(v), "value %v", v)
	}

	// the result always lands on the 0-100 scale for inputs in [0, 100]
	for i := 0; i <= 1000; i++ {
		v := float64(i) / 10
		n := NormalizeConfidence(v)
		assert.GreaterOrEqual(t, n, 0.0)
		assert.LessOrEqual(t, n, 100.0)
	}
}
