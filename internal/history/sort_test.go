package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, at time.Time, cost *float64, provided int) Record {
	names := make([]string, provided)
	for i := range names {
		names[i] = id
	}
	r := Record{ID: id, TotalCost: cost, Request: Request{ProvidedFileNames: names}}
	if !at.IsZero() {
		r.CreatedAt = &at
	}
	return r
}

func ids(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func cost(f float64) *float64 { return &f }

func TestSortPage(t *testing.T) {
	page := []Record{
		rec("a", day, cost(0.2), 1),
		rec("b", day.Add(2*time.Hour), nil, 3),
		rec("c", day.Add(time.Hour), cost(0.5), 0),
		rec("d", time.Time{}, cost(0.2), 3),
	}

	tests := []struct {
		opt  SortOption
		want []string
	}{
		{SortLatest, []string{"b", "c", "a", "d"}},
		{SortOldest, []string{"d", "a", "c", "b"}},
		{SortHighestCost, []string{"c", "a", "d", "b"}},
		{SortLowestCost, []string{"b", "a", "d", "c"}},
		{SortMostProvided, []string{"b", "d", "a", "c"}},
		{SortLeastProvided, []string{"c", "a", "b", "d"}},
		{SortOption("bogus"), []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.opt), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(SortPage(page, tt.opt)))
		})
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(page), "input must not be reordered")
}

func TestParseSortOption(t *testing.T) {
	tests := map[string]SortOption{
		"":               SortLatest,
		"latest":         SortLatest,
		"OLDEST":         SortOldest,
		"highest":        SortHighestCost,
		"lowest":         SortLowestCost,
		"mostProvided":   SortMostProvided,
		"least_provided": SortLeastProvided,
	}
	for in, want := range tests {
		got, err := ParseSortOption(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSortOption("cheapest")
	assert.Error(t, err)
}

func TestAggregate(t *testing.T) {
	records := []Record{
		{ID: "1", Type: "photo", TotalCost: cost(0.25)},
		{ID: "2", Type: "photo", TotalCost: cost(0.5)},
		{ID: "3", Type: "signature"},
		{ID: "4", TotalCost: cost(1)},
	}

	pc := Aggregate(records)
	assert.Equal(t, 4, pc.Count)
	assert.InDelta(t, 1.75, pc.TotalCost, 1e-9)
	assert.InDelta(t, 0.75, pc.ByType["photo"], 1e-9)
	assert.Zero(t, pc.ByType["signature"])
	assert.Equal(t, 1, pc.Counts["signature"])
	assert.InDelta(t, 1.0, pc.ByType["unknown"], 1e-9)

	empty := Aggregate(nil)
	assert.Zero(t, empty.Count)
	assert.NotNil(t, empty.ByType)
}
