package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderPeriodBoundaries(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, PeriodNight},
		{3, PeriodNight},
		{4, PeriodMorning},
		{10, PeriodMorning},
		{11, PeriodAfternoon},
		{13, PeriodAfternoon},
		{14, PeriodEvening},
		{17, PeriodEvening},
		{18, PeriodNight},
		{23, PeriodNight},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, OrderPeriod(tt.hour), "hour %d", tt.hour)
	}
}

func TestOrderPeriodPartitionsTheDay(t *testing.T) {
	counts := make(map[string]int)
	for h := 0; h < 24; h++ {
		counts[OrderPeriod(h)]++
	}

	assert.Equal(t, 7, counts[PeriodMorning])
	assert.Equal(t, 3, counts[PeriodAfternoon])
	assert.Equal(t, 4, counts[PeriodEvening])
	assert.Equal(t, 10, counts[PeriodNight])
	assert.Len(t, counts, 4, "every hour lands in one of the four buckets")
}
