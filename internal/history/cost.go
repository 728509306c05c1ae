package history

// PageCost totals the cost of the records on one page
type PageCost struct {
	TotalCost float64            `json:"totalCost"`
	Count     int                `json:"count"`
	ByType    map[string]float64 `json:"byType"`
	Counts    map[string]int     `json:"counts"`
}

// Aggregate sums the records of a page. Records without a cost count as zero;
// records without a type are grouped under "unknown".
func Aggregate(records []Record) PageCost {
	pc := PageCost{
		ByType: map[string]float64{},
		Counts: map[string]int{},
	}
	for _, r := range records {
		t := r.Type
		if t == "" {
			t = "unknown"
		}
		pc.TotalCost += r.Cost()
		pc.Count++
		pc.ByType[t] += r.Cost()
		pc.Counts[t]++
	}
	return pc
}
