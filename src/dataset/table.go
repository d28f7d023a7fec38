package dataset

import (
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
)

// Column names as they appear in the source workbook. order_hour,
// Rating_Group and order_period may also be derived during normalization.
const (
	ColOrderDate     = "Order_Date"
	ColCity          = "City"
	ColRatingGroup   = "Rating_Group"
	ColRating        = "Delivery_person_Ratings"
	ColTimeTaken     = "Time_taken (min)"
	ColOrderHour     = "order_hour"
	ColTimeOrdered   = "Time_Orderd"
	ColFestival      = "Festival"
	ColWeather       = "Weather_conditions"
	ColTraffic       = "Road_traffic_density"
	ColDeliverySpeed = "delivery_speed"
)

// DateLayout is the canonical form of a normalized Order_Date value. An
// unknown date is stored as the empty string, which fails every interval
// test by construction.
const DateLayout = "2006-01-02"

// Table is the immutable clean dataset. All filtering produces new Tables;
// nothing mutates the wrapped dataframe after construction.
type Table struct {
	df dataframe.DataFrame
}

// NewTable wraps an already-normalized dataframe.
func NewTable(df dataframe.DataFrame) *Table {
	return &Table{df: df}
}

// DataFrame returns the underlying dataframe. Callers must treat it as
// read-only.
func (t *Table) DataFrame() dataframe.DataFrame {
	return t.df
}

func (t *Table) Nrow() int {
	return t.df.Nrow()
}

// HasColumn reports whether the dataset carries the named column. Optional
// columns (delivery_speed) are discovered through this rather than assumed.
func (t *Table) HasColumn(name string) bool {
	for _, n := range t.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Records returns the string values of a column, or nil when the column is
// absent. Missing cells come back as "" or "NaN" depending on series type;
// consumers treat both as null.
func (t *Table) Records(name string) []string {
	if !t.HasColumn(name) || t.df.Nrow() == 0 {
		return nil
	}
	return t.df.Col(name).Records()
}

// Subset returns a new Table containing only the given row indices.
func (t *Table) Subset(indices []int) *Table {
	if len(indices) == 0 {
		return &Table{df: t.df.Subset([]int{})}
	}
	return &Table{df: t.df.Subset(indices)}
}

// Cities lists the distinct non-null cities, sorted. This feeds the UI
// multi-select, which defaults to all of them.
func (t *Table) Cities() []string {
	return t.distinct(ColCity)
}

// RatingGroups lists the distinct rating groups present, ascending.
func (t *Table) RatingGroups() []int {
	var groups []int
	seen := make(map[int]bool)
	for _, r := range t.Records(ColRatingGroup) {
		v, err := strconv.Atoi(r)
		if err != nil {
			continue // null or malformed group is not an option
		}
		if !seen[v] {
			seen[v] = true
			groups = append(groups, v)
		}
	}
	sort.Ints(groups)
	return groups
}

// DateRange returns the min and max known order dates, empty strings when
// the table has no parseable date at all.
func (t *Table) DateRange() (min, max string) {
	for _, d := range t.Records(ColOrderDate) {
		if d == "" || d == "NaN" {
			continue
		}
		if min == "" || d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return min, max
}

func (t *Table) distinct(col string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, v := range t.Records(col) {
		if v == "" || v == "NaN" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
