package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orinocoz/energymeter/types/maybe"
)

func TestPriceStats(t *testing.T) {
	assert.False(t, PriceStats(nil).IsValid())

	s := PriceStats([]float64{10, 5, 20, 5, -2})
	assert.True(t, s.IsValid())
	assert.Equal(t, Stats{Average: 7.6, Min: -2, Max: 20, Count: 5}, s.Value())
}

func TestCompareCosts(t *testing.T) {
	tests := []struct {
		name    string
		current maybe.Maybe[float64]
		best    maybe.Maybe[float64]
		want    Costs
	}{
		{
			name:    "save by waiting",
			current: maybe.Some(25.0),
			best:    maybe.Some(12.5),
			want:    Costs{KWh: 10, Now: maybe.Some(2.5), Optimal: maybe.Some(1.25), Savings: maybe.Some(1.25)},
		},
		{
			name:    "now is cheaper",
			current: maybe.Some(10.0),
			best:    maybe.Some(12.0),
			want:    Costs{KWh: 10, Now: maybe.Some(1.0), Optimal: maybe.Some(1.2), Savings: maybe.Some(-0.2)},
		},
		{
			name:    "no best window",
			current: maybe.Some(10.0),
			best:    maybe.None[float64](),
			want:    Costs{KWh: 10, Now: maybe.Some(1.0)},
		},
		{
			name:    "no current price",
			current: maybe.None[float64](),
			best:    maybe.Some(12.0),
			want:    Costs{KWh: 10, Optimal: maybe.Some(1.2)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareCosts(10, tt.current, tt.best))
		})
	}
}
