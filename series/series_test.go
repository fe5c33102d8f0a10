package series

import (
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orinocoz/energymeter/types"
)

var base = time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

func quarterSlots(prices ...float64) []types.EnergyPrice {
	res := make([]types.EnergyPrice, len(prices))
	for i, p := range prices {
		res[i] = types.EnergyPrice{Timestamp: base.Add(time.Duration(i) * 15 * time.Minute), Price: p}
	}
	return res
}

func TestAggregateNative(t *testing.T) {
	slots := quarterSlots(4, 8, 2)
	double := func(spot float64, _ time.Time) float64 { return spot * 2 }

	points := Aggregate(slots, 15, double)
	require.Len(t, points, 3)
	for i, p := range points {
		assert.Equal(t, slots[i].Timestamp, p.Timestamp)
		assert.Equal(t, slots[i].Price, p.Price)
		assert.Equal(t, slots[i].Price*2, p.Display)
	}

	points = Aggregate(slots, 15, nil)
	assert.Equal(t, 8.0, points[1].Display, "spot only without a pricer")
}

func TestAggregateHourly(t *testing.T) {
	slots := quarterSlots(4, 8, 2, 6, 10, 10)

	points := Aggregate(slots, 60, SpotOnly)
	require.Len(t, points, 2)

	assert.Equal(t, base, points[0].Timestamp)
	assert.Equal(t, 5.0, points[0].Price)
	assert.Equal(t, 4, points[0].Slots)

	assert.Equal(t, base.Add(time.Hour), points[1].Timestamp)
	assert.Equal(t, 10.0, points[1].Price)
	assert.Equal(t, 2, points[1].Slots)
}

func TestAggregateAveragesTotals(t *testing.T) {
	// The delivered price depends on the slot, so the mean of totals
	// differs from the total of the mean spot price.
	slots := quarterSlots(10, 10, 10, 10)
	pricer := func(spot float64, ts time.Time) float64 {
		if ts.Minute() >= 30 {
			return spot + 4
		}
		return spot
	}

	points := Aggregate(slots, 60, pricer)
	require.Len(t, points, 1)
	assert.Equal(t, 10.0, points[0].Price)
	assert.Equal(t, 12.0, points[0].Display)
	assert.NotEqual(t, pricer(points[0].Price, points[0].Timestamp), points[0].Display)
}

func TestAggregateOrderIndependent(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	var prices []float64
	for range 48 {
		prices = append(prices, float64(rnd.Intn(300000)-20000)/10000)
	}
	prices[0], prices[1], prices[2], prices[3] = 0.1, 0.2, 0.3, 0.4
	slots := quarterSlots(prices...)
	vat := func(spot float64, _ time.Time) float64 { return (spot + 7.4573) * 1.24 }

	for _, resolution := range []int{15, 60} {
		want := Aggregate(slots, resolution, vat)

		reversed := slices.Clone(slots)
		slices.Reverse(reversed)
		assert.Equal(t, want, Aggregate(reversed, resolution, vat))

		for range 5 {
			shuffled := slices.Clone(slots)
			rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			assert.Equal(t, want, Aggregate(shuffled, resolution, vat))
		}
	}
}

func TestAggregateKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Tallinn")
	require.NoError(t, err)
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, loc)
	slots := []types.EnergyPrice{
		{Timestamp: start, Price: 1},
		{Timestamp: start.Add(15 * time.Minute), Price: 2},
	}

	for _, resolution := range []int{15, 60} {
		points := Aggregate(slots, resolution, SpotOnly)
		require.NotEmpty(t, points)
		assert.Equal(t, loc, points[0].Timestamp.Location())
		assert.True(t, points[0].Timestamp.Equal(start))
	}
}

func TestFutureFrom(t *testing.T) {
	points := Aggregate(quarterSlots(1, 2, 3, 4, 5, 6, 7, 8), 15, SpotOnly)

	tests := []struct {
		name       string
		now        time.Time
		resolution int
		first      float64
		count      int
	}{
		{"on boundary", base.Add(30 * time.Minute), 15, 3, 6},
		{"inside slot keeps current", base.Add(40 * time.Minute), 15, 3, 6},
		{"hourly floor", base.Add(70 * time.Minute), 60, 5, 4},
		{"before series", base.Add(-time.Hour), 15, 1, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := FutureFrom(points, tt.now, tt.resolution)
			require.Len(t, res, tt.count)
			assert.Equal(t, tt.first, res[0].Price)
		})
	}

	assert.Empty(t, FutureFrom(points, base.Add(3*time.Hour), 15))
}

func TestCurrent(t *testing.T) {
	points := Aggregate(quarterSlots(1, 2, 3, 4), 15, SpotOnly)

	p, ok := Current(points, base.Add(20*time.Minute), 15)
	assert.True(t, ok)
	assert.Equal(t, 2.0, p.Price)

	_, ok = Current(points, base.Add(2*time.Hour), 15)
	assert.False(t, ok)
}
