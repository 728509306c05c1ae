package history

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortOption orders the records of the current page. Sorting never spans
// pages; a global order would need every page fetched.
type SortOption string

const (
	SortLatest        SortOption = "latest"
	SortOldest        SortOption = "oldest"
	SortHighestCost   SortOption = "highest"
	SortLowestCost    SortOption = "lowest"
	SortMostProvided  SortOption = "most_provided"
	SortLeastProvided SortOption = "least_provided"
)

// ParseSortOption accepts the option names and their camelCase spellings.
// Empty means latest.
func ParseSortOption(s string) (SortOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest":
		return SortLatest, nil
	case "oldest":
		return SortOldest, nil
	case "highest":
		return SortHighestCost, nil
	case "lowest":
		return SortLowestCost, nil
	case "most_provided", "mostprovided":
		return SortMostProvided, nil
	case "least_provided", "leastprovided":
		return SortLeastProvided, nil
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// SortPage returns a sorted copy of records. Equal keys keep their page order.
// Records without a date sort as the oldest.
func SortPage(records []Record, opt SortOption) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	var less func(a, b Record) bool
	switch opt {
	case SortLatest:
		less = func(a, b Record) bool { return created(a).After(created(b)) }
	case SortOldest:
		less = func(a, b Record) bool { return created(a).Before(created(b)) }
	case SortHighestCost:
		less = func(a, b Record) bool { return a.Cost() > b.Cost() }
	case SortLowestCost:
		less = func(a, b Record) bool { return a.Cost() < b.Cost() }
	case SortMostProvided:
		less = func(a, b Record) bool { return a.ProvidedCount() > b.ProvidedCount() }
	case SortLeastProvided:
		less = func(a, b Record) bool { return a.ProvidedCount() < b.ProvidedCount() }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func created(r Record) time.Time {
	if r.CreatedAt == nil {
		return time.Time{}
	}
	return *r.CreatedAt
}
