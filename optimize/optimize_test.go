package optimize

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orinocoz/energymeter/series"
)

var start = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func points(step time.Duration, prices ...float64) []series.PricePoint {
	res := make([]series.PricePoint, len(prices))
	for i, p := range prices {
		res[i] = series.PricePoint{Timestamp: start.Add(time.Duration(i) * step), Price: p, Display: p, Slots: 1}
	}
	return res
}

func TestConsecutiveExample(t *testing.T) {
	w := SelectBest(points(time.Hour, 10, 5, 20, 5), 2, ModeConsecutive, 60)
	require.NotNil(t, w)

	assert.Equal(t, []int{0, 1}, w.SelectedIndices)
	assert.Equal(t, 7.5, w.AveragePrice)
	assert.Equal(t, []time.Time{start, start.Add(time.Hour)}, w.Timestamps)
	assert.Equal(t, start, w.Start)
	assert.Equal(t, start.Add(2*time.Hour), w.End)
}

func TestCheapestExample(t *testing.T) {
	w := SelectBest(points(time.Hour, 10, 5, 20, 5), 2, ModeCheapest, 60)
	require.NotNil(t, w)

	assert.Equal(t, []int{1, 3}, w.SelectedIndices)
	assert.Equal(t, 5.0, w.AveragePrice)
	assert.Equal(t, []time.Time{start.Add(time.Hour), start.Add(3 * time.Hour)}, w.Timestamps)
}

func TestConsecutiveTiesKeepFirst(t *testing.T) {
	w := SelectBest(points(time.Hour, 3, 1, 1, 3, 1, 1), 2, ModeConsecutive, 60)
	require.NotNil(t, w)
	assert.Equal(t, []int{1, 2}, w.SelectedIndices)
}

func TestCheapestQuarterTies(t *testing.T) {
	pp := points(15*time.Minute, 2, 1, 3, 1, 1, 4, 1, 2)
	w := SelectBest(pp, 0.75, ModeCheapest, 15)
	require.NotNil(t, w)
	assert.Equal(t, []int{1, 3, 4}, w.SelectedIndices, "equal prices keep chronological order")
	assert.Equal(t, 1.0, w.AveragePrice)
}

func TestCheapestHoursGroupsSlots(t *testing.T) {
	// Two quarter points per hour; hourly selection takes whole hours.
	pp := []series.PricePoint{
		{Timestamp: start, Display: 9},
		{Timestamp: start.Add(15 * time.Minute), Display: 1},
		{Timestamp: start.Add(time.Hour), Display: 4},
		{Timestamp: start.Add(75 * time.Minute), Display: 4},
		{Timestamp: start.Add(2 * time.Hour), Display: 2},
		{Timestamp: start.Add(135 * time.Minute), Display: 2},
	}
	w := SelectBest(pp, 1, ModeCheapest, 60)
	require.NotNil(t, w)
	assert.Equal(t, []int{4, 5}, w.SelectedIndices)
	assert.Equal(t, 2.0, w.AveragePrice)
}

func TestInvalidInput(t *testing.T) {
	pp := points(15*time.Minute, 1, 2, 3, 4, 5, 6, 7, 8)

	tests := []struct {
		name       string
		duration   float64
		mode       Mode
		resolution int
	}{
		{"zero duration", 0, ModeConsecutive, 15},
		{"negative duration", -1, ModeCheapest, 15},
		{"below quarter", 0.1, ModeConsecutive, 15},
		{"not a quarter multiple", 0.3, ModeCheapest, 15},
		{"half hour at hourly resolution", 0.5, ModeConsecutive, 60},
		{"too long", 2.25, ModeConsecutive, 15},
		{"unknown mode", 1, Mode("fastest"), 15},
		{"unknown resolution", 1, ModeConsecutive, 30},
		{"not a number", math.NaN(), ModeConsecutive, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, SelectBest(pp, tt.duration, tt.mode, tt.resolution))
		})
	}

	assert.Nil(t, SelectBest(nil, 1, ModeConsecutive, 60))
	assert.NotNil(t, SelectBest(pp, 2, ModeConsecutive, 15))
}

func randomPoints(rnd *rand.Rand, n int) []series.PricePoint {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = math.Round(rnd.Float64()*4000-500) / 100
	}
	return points(15*time.Minute, prices...)
}

func TestConsecutiveIsOptimal(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for range 50 {
		pp := randomPoints(rnd, 40)
		for _, slots := range []int{1, 3, 8, 40} {
			w := SelectBest(pp, float64(slots)/4, ModeConsecutive, 15)
			require.NotNil(t, w)
			require.Len(t, w.SelectedIndices, slots)
			for s := 0; s+slots <= len(pp); s++ {
				assert.LessOrEqual(t, w.AveragePrice, windowMean(pp[s:s+slots])+1e-9)
			}
		}
	}
}

func TestCheapestNotWorseThanConsecutive(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for range 50 {
		pp := randomPoints(rnd, 32)
		for _, h := range []float64{0.25, 1, 2.5, 8} {
			c := SelectBest(pp, h, ModeConsecutive, 15)
			n := SelectBest(pp, h, ModeCheapest, 15)
			require.NotNil(t, c)
			require.NotNil(t, n)
			assert.LessOrEqual(t, n.AveragePrice, c.AveragePrice+1e-9)
		}
	}
}

func TestSelectBestIsIdempotent(t *testing.T) {
	pp := randomPoints(rand.New(rand.NewSource(3)), 24)
	for _, mode := range []Mode{ModeConsecutive, ModeCheapest} {
		assert.Equal(t, SelectBest(pp, 1.5, mode, 15), SelectBest(pp, 1.5, mode, 15))
	}
}

func TestStartsIn(t *testing.T) {
	w := SelectBest(points(time.Hour, 10, 5, 20, 5), 1, ModeConsecutive, 60)
	require.NotNil(t, w)
	require.Equal(t, start.Add(time.Hour), w.Start)

	assert.Equal(t, 90*time.Minute, w.StartsIn(start.Add(-30*time.Minute)))
	assert.Zero(t, w.StartsIn(start.Add(90*time.Minute)))
	assert.True(t, w.Active(start.Add(90*time.Minute)))
	assert.False(t, w.Active(start.Add(2*time.Hour)))
}

func TestDurationSlots(t *testing.T) {
	n, ok := DurationSlots(1.75, 15)
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = DurationSlots(3, 60)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = DurationSlots(1.25, 60)
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("cheapest")
	assert.NoError(t, err)
	assert.Equal(t, ModeCheapest, m)

	_, err = ParseMode("")
	assert.Error(t, err)
}
