package processor

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deliverydash/src/dataset"
)

// newOrdersTable builds a normalized clean table with a spread of cities,
// hours, ratings and categorical labels.
func newOrdersTable(t *testing.T) *dataset.Table {
	t.Helper()

	df := dataframe.New(
		series.New([]string{
			"01-01-2022", "01-01-2022", "02-01-2022", "03-01-2022", "03-01-2022", "bad date",
		}, series.String, dataset.ColOrderDate),
		series.New([]string{
			"Urban", "Metropolitian", "Urban", "Semi-Urban", "Urban", "Urban",
		}, series.String, dataset.ColCity),
		series.New([]string{
			"4.6", "2.2", "4.1", "3.5", "4.9", "4.0",
		}, series.String, dataset.ColRating),
		series.New([]string{
			"26", "38", "24", "45", "20", "30",
		}, series.String, dataset.ColTimeTaken),
		series.New([]string{
			"9", "12", "15", "20", "9", "2",
		}, series.String, dataset.ColOrderHour),
		series.New([]string{
			"No", "true", "No", "Yes", "No", "No",
		}, series.String, dataset.ColFestival),
		series.New([]string{
			"Sunny", "Stormy", "Fog", "Sunny", "Sunny", "Cloudy",
		}, series.String, dataset.ColWeather),
		series.New([]string{
			"Low", "Jam", "Low", "Medium", "Low", "High",
		}, series.String, dataset.ColTraffic),
	)

	return dataset.NewTable(dataset.Normalize(df))
}

// newScenarioTable is the two-row scenario from the acceptance checklist:
// 2022-01-01/"A"/4.6 and 2022-01-02/"B"/2.2.
func newScenarioTable(t *testing.T) *dataset.Table {
	t.Helper()

	df := dataframe.New(
		series.New([]string{"01-01-2022", "02-01-2022"}, series.String, dataset.ColOrderDate),
		series.New([]string{"A", "B"}, series.String, dataset.ColCity),
		series.New([]string{"4.6", "2.2"}, series.String, dataset.ColRating),
		series.New([]string{"25", "35"}, series.String, dataset.ColTimeTaken),
	)

	return dataset.NewTable(dataset.Normalize(df))
}

func TestApplyUnrestrictedIsIdentity(t *testing.T) {
	table := newOrdersTable(t)

	filtered := Apply(table, Filters{})
	assert.Equal(t, table.Nrow(), filtered.Nrow())
}

func TestApplyFullRangeAndSetsKeepsAllMatchableRows(t *testing.T) {
	table := newOrdersTable(t)
	min, max := table.DateRange()

	filtered := Apply(table, Filters{
		StartDate:    min,
		EndDate:      max,
		Cities:       table.Cities(),
		RatingGroups: table.RatingGroups(),
	})

	// The row with the unparsable date has a null order date and fails the
	// explicit interval test; everything else survives.
	assert.Equal(t, 5, filtered.Nrow())
}

func TestApplyIsIdempotent(t *testing.T) {
	table := newOrdersTable(t)
	f := Filters{
		StartDate: "2022-01-01",
		EndDate:   "2022-01-02",
		Cities:    []string{"Urban"},
	}

	once := Apply(table, f)
	twice := Apply(once, f)

	assert.Equal(t, once.Nrow(), twice.Nrow())
	assert.Equal(t, once.Records(dataset.ColOrderDate), twice.Records(dataset.ColOrderDate))
}

func TestApplyEmptyCitySetMatchesNothing(t *testing.T) {
	table := newOrdersTable(t)

	filtered := Apply(table, Filters{Cities: []string{}})
	assert.Equal(t, 0, filtered.Nrow())

	// Aggregations over the empty table report no data without error.
	vm := Render(table, Filters{Cities: []string{}})
	assert.Equal(t, 0, vm.Summary.Orders)
	assert.Nil(t, vm.Summary.AvgTimeTaken)
	assert.Nil(t, vm.Summary.AvgRating)
	assert.Empty(t, vm.OrdersByDate)
	assert.Empty(t, vm.RatingDistribution)
}

func TestApplyDateInterval(t *testing.T) {
	table := newOrdersTable(t)

	filtered := Apply(table, Filters{StartDate: "2022-01-02", EndDate: "2022-01-03"})
	assert.Equal(t, 3, filtered.Nrow())

	for _, d := range filtered.Records(dataset.ColOrderDate) {
		assert.GreaterOrEqual(t, d, "2022-01-02")
		assert.LessOrEqual(t, d, "2022-01-03")
	}
}

func TestApplyScenario(t *testing.T) {
	table := newScenarioTable(t)

	filtered := Apply(table, Filters{
		StartDate:    "2022-01-01",
		EndDate:      "2022-01-01",
		Cities:       []string{"A"},
		RatingGroups: []int{5}, // 4.6 rounds to 5
	})

	require.Equal(t, 1, filtered.Nrow())
	assert.Equal(t, []string{"A"}, filtered.Records(dataset.ColCity))
	assert.Equal(t, []string{"2022-01-01"}, filtered.Records(dataset.ColOrderDate))
}
