package processor

import (
	"strconv"

	"deliverydash/src/dataset"
)

// Filters is the current dashboard selection. Dates are inclusive
// YYYY-MM-DD bounds; an empty string leaves that side unbounded. A nil
// slice means "no restriction" (the UI's all-selected default); an empty
// non-nil slice matches nothing.
type Filters struct {
	StartDate    string
	EndDate      string
	Cities       []string
	RatingGroups []int
}

// Apply returns a new table holding the rows matching every filter. Rows
// whose date, city or rating group is null fail any explicit test on that
// field; they only survive when the field is unrestricted. Applying the
// same filters twice is a no-op on the result.
func Apply(t *dataset.Table, f Filters) *dataset.Table {
	n := t.Nrow()
	if n == 0 {
		return t
	}

	var citySet map[string]bool
	if f.Cities != nil {
		citySet = make(map[string]bool, len(f.Cities))
		for _, c := range f.Cities {
			citySet[c] = true
		}
	}

	var ratingSet map[string]bool
	if f.RatingGroups != nil {
		ratingSet = make(map[string]bool, len(f.RatingGroups))
		for _, r := range f.RatingGroups {
			ratingSet[strconv.Itoa(r)] = true
		}
	}

	dates := t.Records(dataset.ColOrderDate)
	cities := t.Records(dataset.ColCity)
	ratings := t.Records(dataset.ColRatingGroup)

	indices := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if f.StartDate != "" || f.EndDate != "" {
			if !dateInRange(value(dates, i), f.StartDate, f.EndDate) {
				continue
			}
		}
		if citySet != nil && !citySet[value(cities, i)] {
			continue
		}
		if ratingSet != nil && !ratingSet[value(ratings, i)] {
			continue
		}
		indices = append(indices, i)
	}

	if len(indices) == n {
		return t
	}
	return t.Subset(indices)
}

// dateInRange tests an inclusive interval on canonical date strings, which
// compare correctly as text. Null dates ("" or NaN) fail closed.
func dateInRange(d, start, end string) bool {
	if d == "" || d == "NaN" {
		return false
	}
	if start != "" && d < start {
		return false
	}
	if end != "" && d > end {
		return false
	}
	return true
}

// value guards against absent columns, whose record slices are nil.
func value(recs []string, i int) string {
	if i >= len(recs) {
		return ""
	}
	return recs[i]
}
