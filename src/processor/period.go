package processor

// Named time-of-day buckets in their fixed display order.
const (
	PeriodMorning   = "Morning"
	PeriodAfternoon = "Afternoon"
	PeriodEvening   = "Evening"
	PeriodNight     = "Night"
)

// PeriodOrder is the logical ordering of the buckets for charting.
var PeriodOrder = []string{PeriodMorning, PeriodAfternoon, PeriodEvening, PeriodNight}

// OrderPeriod buckets an hour of day into one of the four named periods.
// Total on 0-23; hours 0-3 and 18-23 are Night.
func OrderPeriod(hour int) string {
	switch {
	case hour >= 4 && hour < 11:
		return PeriodMorning
	case hour >= 11 && hour < 14:
		return PeriodAfternoon
	case hour >= 14 && hour < 18:
		return PeriodEvening
	default:
		return PeriodNight
	}
}
