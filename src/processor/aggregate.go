package processor

import (
	"sort"
	"strconv"
	"strings"

	"deliverydash/src/dataset"
)

// DateCount is one point of the order-volume-over-time series.
type DateCount struct {
	Date   string `json:"date"`
	Orders int    `json:"orders"`
}

// GroupCount is a categorical bucket with a row count.
type GroupCount struct {
	Key    string `json:"key"`
	Orders int    `json:"orders"`
}

// GroupMean is a categorical bucket with the mean of a measure.
type GroupMean struct {
	Key  string  `json:"key"`
	Mean float64 `json:"mean"`
}

// HourFestivalCount counts orders for one (hour, festival) pair.
type HourFestivalCount struct {
	Hour     int    `json:"hour"`
	Festival string `json:"festival"`
	Orders   int    `json:"orders"`
}

// RatingCount is one slice of the rating-group distribution.
type RatingCount struct {
	Rating int `json:"rating"`
	Orders int `json:"orders"`
}

// Summary holds the headline metrics of the filtered table. The means are
// nil when no row carries a usable value, which the UI renders as "no
// data" rather than zero.
type Summary struct {
	Orders       int      `json:"orders"`
	AvgTimeTaken *float64 `json:"avg_time_taken_min"`
	AvgRating    *float64 `json:"avg_rating"`
}

// OrdersByDate counts rows per known order date, ascending by date.
func OrdersByDate(t *dataset.Table) []DateCount {
	counts := make(map[string]int)
	for _, d := range t.Records(dataset.ColOrderDate) {
		if isNull(d) {
			continue
		}
		counts[d]++
	}

	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]DateCount, 0, len(dates))
	for _, d := range dates {
		out = append(out, DateCount{Date: d, Orders: counts[d]})
	}
	return out
}

// AvgTimeByCity is the mean delivery duration per city.
func AvgTimeByCity(t *dataset.Table) []GroupMean {
	return meanBy(t, dataset.ColCity, dataset.ColTimeTaken)
}

// RatingBySpeed is the mean rating per delivery-speed label. Callers must
// check for the optional delivery_speed column first; on a table without it
// this returns nil.
func RatingBySpeed(t *dataset.Table) []GroupMean {
	return meanBy(t, dataset.ColDeliverySpeed, dataset.ColRating)
}

// RatingByWeather is the mean rating per weather condition.
func RatingByWeather(t *dataset.Table) []GroupMean {
	return meanBy(t, dataset.ColWeather, dataset.ColRating)
}

// RatingByTraffic is the mean rating per traffic-density label.
func RatingByTraffic(t *dataset.Table) []GroupMean {
	return meanBy(t, dataset.ColTraffic, dataset.ColRating)
}

// OrdersByHourFestival counts rows per (order_hour, festival) pair. Rows
// with a null festival flag are excluded rather than forming a null bucket.
func OrdersByHourFestival(t *dataset.Table) []HourFestivalCount {
	if !t.HasColumn(dataset.ColOrderHour) || !t.HasColumn(dataset.ColFestival) {
		return nil
	}

	hours := t.Records(dataset.ColOrderHour)
	festivals := t.Records(dataset.ColFestival)

	type key struct {
		hour     int
		festival string
	}
	counts := make(map[key]int)
	var order []key

	for i := range hours {
		f := value(festivals, i)
		if isNull(f) {
			continue
		}
		h, err := strconv.Atoi(hours[i])
		if err != nil {
			continue
		}
		k := key{hour: h, festival: f}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	out := make([]HourFestivalCount, 0, len(order))
	for _, k := range order {
		out = append(out, HourFestivalCount{Hour: k.hour, Festival: k.festival, Orders: counts[k]})
	}
	return out
}

// OrdersByPeriod counts rows per order period, reported in the fixed
// Morning/Afternoon/Evening/Night order. Periods with no orders are
// omitted.
func OrdersByPeriod(t *dataset.Table) []GroupCount {
	if !t.HasColumn(dataset.ColOrderHour) {
		return nil
	}

	counts := make(map[string]int)
	for _, r := range t.Records(dataset.ColOrderHour) {
		h, err := strconv.Atoi(r)
		if err != nil {
			h = 0
		}
		counts[OrderPeriod(h)]++
	}

	out := make([]GroupCount, 0, len(PeriodOrder))
	for _, p := range PeriodOrder {
		if counts[p] > 0 {
			out = append(out, GroupCount{Key: p, Orders: counts[p]})
		}
	}
	return out
}

// RatingDistribution counts rows per rating group, ascending by rating.
func RatingDistribution(t *dataset.Table) []RatingCount {
	counts := make(map[int]int)
	for _, r := range t.Records(dataset.ColRatingGroup) {
		v, err := strconv.Atoi(r)
		if err != nil {
			continue
		}
		counts[v]++
	}

	ratings := make([]int, 0, len(counts))
	for r := range counts {
		ratings = append(ratings, r)
	}
	sort.Ints(ratings)

	out := make([]RatingCount, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, RatingCount{Rating: r, Orders: counts[r]})
	}
	return out
}

// Summarize computes the headline metrics over the filtered table.
func Summarize(t *dataset.Table) Summary {
	return Summary{
		Orders:       t.Nrow(),
		AvgTimeTaken: meanOf(t.Records(dataset.ColTimeTaken)),
		AvgRating:    meanOf(t.Records(dataset.ColRating)),
	}
}

// meanBy groups rows by a categorical column and averages a numeric one.
// Null keys are excluded; groups whose every measure is null are dropped.
// Group order is first appearance in the table.
func meanBy(t *dataset.Table, keyCol, valCol string) []GroupMean {
	if !t.HasColumn(keyCol) || !t.HasColumn(valCol) {
		return nil
	}

	keys := t.Records(keyCol)
	vals := t.Records(valCol)

	sums := make(map[string]float64)
	counts := make(map[string]int)
	var order []string

	for i, k := range keys {
		if isNull(k) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value(vals, i)), 64)
		if err != nil {
			continue
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		sums[k] += v
		counts[k]++
	}

	out := make([]GroupMean, 0, len(order))
	for _, k := range order {
		out = append(out, GroupMean{Key: k, Mean: sums[k] / float64(counts[k])})
	}
	return out
}

// meanOf averages the parseable values of a column, nil when there are
// none.
func meanOf(recs []string) *float64 {
	var sum float64
	var count int
	for _, r := range recs {
		v, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}

func isNull(s string) bool {
	return s == "" || s == "NaN"
}
