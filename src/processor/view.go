package processor

import (
	"deliverydash/src/dataset"
)

// ViewModel is the full dashboard payload for one filter selection: the
// summary metrics plus every chart series. It is what the UI collaborator
// renders; nothing here is persisted.
type ViewModel struct {
	Summary              Summary             `json:"summary"`
	OrdersByDate         []DateCount         `json:"orders_by_date"`
	AvgTimeByCity        []GroupMean         `json:"avg_time_by_city"`
	OrdersByHourFestival []HourFestivalCount `json:"orders_by_hour_festival"`
	OrdersByPeriod       []GroupCount        `json:"orders_by_period"`
	RatingBySpeed        []GroupMean         `json:"rating_by_speed,omitempty"`
	HasDeliverySpeed     bool                `json:"has_delivery_speed"`
	RatingByWeather      []GroupMean         `json:"rating_by_weather"`
	RatingByTraffic      []GroupMean         `json:"rating_by_traffic"`
	RatingDistribution   []RatingCount       `json:"rating_distribution"`
}

// FilterOptions describes the selectable filter values of a clean table.
// The UI presents each multi-select with everything selected by default.
type FilterOptions struct {
	Cities       []string `json:"cities"`
	RatingGroups []int    `json:"rating_groups"`
	MinDate      string   `json:"min_date"`
	MaxDate      string   `json:"max_date"`
}

// Render filters the clean table and computes every aggregation. It is a
// pure function; a rerun with the same table and filters yields the same
// view model. An empty filtered table renders as empty series and "no
// data" summary metrics, never an error.
func Render(t *dataset.Table, f Filters) ViewModel {
	filtered := Apply(t, f)

	vm := ViewModel{
		Summary:              Summarize(filtered),
		OrdersByDate:         OrdersByDate(filtered),
		AvgTimeByCity:        AvgTimeByCity(filtered),
		OrdersByHourFestival: OrdersByHourFestival(filtered),
		OrdersByPeriod:       OrdersByPeriod(filtered),
		HasDeliverySpeed:     t.HasColumn(dataset.ColDeliverySpeed),
		RatingByWeather:      RatingByWeather(filtered),
		RatingByTraffic:      RatingByTraffic(filtered),
		RatingDistribution:   RatingDistribution(filtered),
	}

	// The speed chart is skipped, not empty, when the column is missing;
	// the UI shows an explanatory placeholder instead.
	if vm.HasDeliverySpeed {
		vm.RatingBySpeed = RatingBySpeed(filtered)
	}

	return vm
}

// Options lists the filter values selectable on a clean table.
func Options(t *dataset.Table) FilterOptions {
	min, max := t.DateRange()
	return FilterOptions{
		Cities:       t.Cities(),
		RatingGroups: t.RatingGroups(),
		MinDate:      min,
		MaxDate:      max,
	}
}
