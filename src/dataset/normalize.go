package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Spreadsheet date serials count days from this epoch.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Order timestamps arrive either as serials or as localized day-first
// strings. ISO forms are accepted as a fallback.
var dateLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2/1/2006 15:04:05",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
}

var titleCaser = cases.Title(language.English)

// Normalize repairs and derives the columns the dashboard depends on. The
// input dataframe is the raw string table from ReadXLSX; the result is a
// clean dataframe ready to wrap in a Table. Steps run in a fixed order and
// each is idempotent.
func Normalize(df dataframe.DataFrame) dataframe.DataFrame {
	df, stamps := normalizeOrderDate(df)
	df = deriveOrderHour(df, stamps)
	df = deriveRatingGroup(df)
	df = normalizeFestival(df)
	return df
}

// normalizeOrderDate rewrites Order_Date as YYYY-MM-DD strings ("" for
// unknown) and returns the parsed timestamps so hour derivation can still
// see a time-of-day component before it is truncated away.
func normalizeOrderDate(df dataframe.DataFrame) (dataframe.DataFrame, []time.Time) {
	if !hasColumn(df, ColOrderDate) {
		return df, nil
	}

	recs := df.Col(ColOrderDate).Records()
	numeric := isNumericColumn(recs)

	out := make([]string, len(recs))
	stamps := make([]time.Time, len(recs))
	for i, r := range recs {
		r = strings.TrimSpace(r)
		if r == "" || r == "NaN" {
			continue // unknown date, out[i] stays ""
		}

		var t time.Time
		var ok bool
		if numeric {
			f, err := strconv.ParseFloat(r, 64)
			if err == nil {
				t, ok = serialToTime(f), true
			}
		} else {
			t, ok = parseDayFirst(r)
		}

		if ok {
			stamps[i] = t
			out[i] = t.Format(DateLayout)
		}
	}

	return df.Mutate(series.New(out, series.String, ColOrderDate)), stamps
}

// serialToTime converts a spreadsheet day serial to a timestamp. The
// fractional part carries time of day.
func serialToTime(serial float64) time.Time {
	days := int(serial)
	fraction := serial - float64(days)
	return serialEpoch.AddDate(0, 0, days).
		Add(time.Duration(fraction * 24 * float64(time.Hour)))
}

// parseDayFirst parses a localized date string with day-before-month
// convention.
func parseDayFirst(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// deriveOrderHour ensures an integer order_hour column in [0,23]. Prefers
// an existing column, then Time_Orderd, then the hour component of the
// order timestamp. Unknown values land on hour 0.
func deriveOrderHour(df dataframe.DataFrame, stamps []time.Time) dataframe.DataFrame {
	n := df.Nrow()
	hours := make([]int, n)

	switch {
	case hasColumn(df, ColOrderHour):
		for i, r := range df.Col(ColOrderHour).Records() {
			hours[i] = clampHour(parseLooseInt(r))
		}
	case hasColumn(df, ColTimeOrdered):
		for i, r := range df.Col(ColTimeOrdered).Records() {
			hours[i] = parseClockHour(r)
		}
	default:
		for i := 0; i < n; i++ {
			if i < len(stamps) && !stamps[i].IsZero() {
				hours[i] = stamps[i].Hour()
			}
		}
	}

	return df.Mutate(series.New(hours, series.Int, ColOrderHour))
}

// parseClockHour extracts the hour from a time-of-day cell. Cells can be
// clock strings ("11:30:00") or spreadsheet day fractions ("0.48").
// Unparsable cells fall back to 0.
func parseClockHour(s string) int {
	s = strings.TrimSpace(s)
	if s == "" || s == "NaN" {
		return 0
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		return clampHour(int(f * 24))
	}
	return 0
}

func parseLooseInt(s string) int {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func clampHour(h int) int {
	if h < 0 {
		return 0
	}
	if h > 23 {
		return 23
	}
	return h
}

// deriveRatingGroup buckets fractional ratings into integers 1-5 when the
// source does not carry a Rating_Group column already. Missing ratings stay
// null so filters exclude them.
func deriveRatingGroup(df dataframe.DataFrame) dataframe.DataFrame {
	if hasColumn(df, ColRatingGroup) || !hasColumn(df, ColRating) {
		return df
	}

	recs := df.Col(ColRating).Records()
	groups := make([]string, len(recs))
	for i, r := range recs {
		f, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil || math.IsNaN(f) {
			groups[i] = "NaN"
			continue
		}
		groups[i] = strconv.Itoa(clampRating(int(math.Round(f))))
	}

	return df.Mutate(series.New(groups, series.Int, ColRatingGroup))
}

func clampRating(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

// normalizeFestival maps the festival flag onto the {Yes,No} vocabulary.
// Boolean spellings become Yes/No; anything else passes through title-cased.
func normalizeFestival(df dataframe.DataFrame) dataframe.DataFrame {
	if !hasColumn(df, ColFestival) {
		return df
	}

	recs := df.Col(ColFestival).Records()
	out := make([]string, len(recs))
	for i, r := range recs {
		v := titleCaser.String(strings.TrimSpace(r))
		switch v {
		case "True":
			v = "Yes"
		case "False":
			v = "No"
		}
		out[i] = v
	}

	return df.Mutate(series.New(out, series.String, ColFestival))
}

// isNumericColumn reports whether every non-empty cell parses as a number,
// which marks a date column stored as spreadsheet serials.
func isNumericColumn(recs []string) bool {
	seen := false
	for _, r := range recs {
		r = strings.TrimSpace(r)
		if r == "" || r == "NaN" {
			continue
		}
		if _, err := strconv.ParseFloat(r, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}
