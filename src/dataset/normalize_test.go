package dataset

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFrame(cols map[string][]string, order []string) dataframe.DataFrame {
	var list []series.Series
	for _, name := range order {
		list = append(list, series.New(cols[name], series.String, name))
	}
	return dataframe.New(list...)
}

func TestNormalizeOrderDateFromSerials(t *testing.T) {
	// 44562 is 2022-01-01; the fraction carries time of day.
	df := rawFrame(map[string][]string{
		ColOrderDate: {"44562", "44563.5", "", "NaN"},
	}, []string{ColOrderDate})

	clean := Normalize(df)

	dates := clean.Col(ColOrderDate).Records()
	assert.Equal(t, []string{"2022-01-01", "2022-01-02", "", ""}, dates)

	// Without order_hour or Time_Orderd the hour comes from the serial
	// fraction; unknown dates default to 0.
	hours := clean.Col(ColOrderHour).Records()
	assert.Equal(t, []string{"0", "12", "0", "0"}, hours)
}

func TestNormalizeOrderDateDayFirst(t *testing.T) {
	df := rawFrame(map[string][]string{
		ColOrderDate: {"15-03-2022", "02/01/2022", "2022-01-05", "not a date"},
	}, []string{ColOrderDate})

	clean := Normalize(df)

	dates := clean.Col(ColOrderDate).Records()
	assert.Equal(t, []string{"2022-03-15", "2022-01-02", "2022-01-05", ""}, dates)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	df := rawFrame(map[string][]string{
		ColOrderDate: {"15-03-2022", "01-01-2022"},
		ColRating:    {"4.6", "2.2"},
		ColFestival:  {"true", "no"},
	}, []string{ColOrderDate, ColRating, ColFestival})

	once := Normalize(df)
	twice := Normalize(once)

	assert.Equal(t, once.Col(ColOrderDate).Records(), twice.Col(ColOrderDate).Records())
	assert.Equal(t, once.Col(ColRatingGroup).Records(), twice.Col(ColRatingGroup).Records())
	assert.Equal(t, once.Col(ColFestival).Records(), twice.Col(ColFestival).Records())
}

func TestDeriveOrderHourFromTimeOrdered(t *testing.T) {
	df := rawFrame(map[string][]string{
		ColOrderDate:   {"01-01-2022", "01-01-2022", "01-01-2022", "01-01-2022"},
		ColTimeOrdered: {"11:30:00", "23:05", "0.75", "garbage"},
	}, []string{ColOrderDate, ColTimeOrdered})

	clean := Normalize(df)

	hours := clean.Col(ColOrderHour).Records()
	assert.Equal(t, []string{"11", "23", "18", "0"}, hours)
}

func TestDeriveOrderHourKeepsExistingColumn(t *testing.T) {
	df := rawFrame(map[string][]string{
		ColOrderDate: {"01-01-2022", "01-01-2022", "01-01-2022"},
		ColOrderHour: {"7", "23.0", "25"},
	}, []string{ColOrderDate, ColOrderHour})

	clean := Normalize(df)

	hours := clean.Col(ColOrderHour).Records()
	assert.Equal(t, []string{"7", "23", "23"}, hours)
}

func TestDeriveRatingGroup(t *testing.T) {
	df := rawFrame(map[string][]string{
		ColRating: {"4.6", "2.2", "0.4", "5.8", ""},
	}, []string{ColRating})

	clean := Normalize(df)

	groups := clean.Col(ColRatingGroup).Records()
	require.Len(t, groups, 5)
	assert.Equal(t, "5", groups[0])
	assert.Equal(t, "2", groups[1])
	assert.Equal(t, "1", groups[2], "rounded value below 1 clamps up")
	assert.Equal(t, "5", groups[3], "rounded value above 5 clamps down")
	assert.Equal(t, "NaN", groups[4], "missing rating stays null")
}

func TestDeriveRatingGroupRespectsExistingColumn(t *testing.T) {
	df := rawFrame(map[string][]string{
		ColRating:      {"4.6"},
		ColRatingGroup: {"3"},
	}, []string{ColRating, ColRatingGroup})

	clean := Normalize(df)

	assert.Equal(t, []string{"3"}, clean.Col(ColRatingGroup).Records())
}

func TestNormalizeFestival(t *testing.T) {
	df := rawFrame(map[string][]string{
		ColFestival: {"true", "  FALSE ", "yes", "No", "maybe"},
	}, []string{ColFestival})

	clean := Normalize(df)

	got := clean.Col(ColFestival).Records()
	assert.Equal(t, []string{"Yes", "No", "Yes", "No", "Maybe"}, got)
}

func TestOrderPeriodInvariantOnDerivedHours(t *testing.T) {
	df := rawFrame(map[string][]string{
		ColOrderDate: {"44562.99", "44562.01", "bad", ""},
	}, []string{ColOrderDate})

	clean := Normalize(df)

	for _, r := range clean.Col(ColOrderHour).Records() {
		h := parseLooseInt(r)
		assert.GreaterOrEqual(t, h, 0)
		assert.LessOrEqual(t, h, 23)
	}
}

func TestTableColumnDiscovery(t *testing.T) {
	df := rawFrame(map[string][]string{
		ColOrderDate: {"01-01-2022", "02-01-2022", "03-01-2022"},
		ColCity:      {"Urban", "Metropolitian", ""},
		ColRating:    {"4.4", "3.1", "4.9"},
	}, []string{ColOrderDate, ColCity, ColRating})

	table := NewTable(Normalize(df))

	assert.True(t, table.HasColumn(ColCity))
	assert.False(t, table.HasColumn(ColDeliverySpeed))

	assert.Equal(t, []string{"Metropolitian", "Urban"}, table.Cities(), "null city is not an option")
	assert.Equal(t, []int{3, 4, 5}, table.RatingGroups())

	min, max := table.DateRange()
	assert.Equal(t, "2022-01-01", min)
	assert.Equal(t, "2022-01-03", max)
}
