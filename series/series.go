package series

import (
	"cmp"
	"slices"
	"time"

	"github.com/orinocoz/energymeter/hours"
	"github.com/orinocoz/energymeter/types"
)

// NativeResolution is the market time unit of the day-ahead auction in minutes.
const NativeResolution = 15

// PricePoint is one slot of a resampled series.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`   // Mean spot price, cents/kWh
	Display   float64   `json:"display"` // Mean delivered price of the underlying slots
	Slots     int       `json:"slots"`
}

// Pricer maps a spot price to the delivered price at t.
type Pricer func(spot float64, t time.Time) float64

// SpotOnly is the Pricer used when no tariff applies.
func SpotOnly(spot float64, _ time.Time) float64 {
	return spot
}

// ValidResolution reports whether minutes is a supported series resolution.
func ValidResolution(minutes int) bool {
	return minutes == 15 || minutes == 60
}

// Aggregate resamples slots to resolutionMinutes. Each output point carries
// the mean spot price and the mean of the per-slot delivered prices of its
// bucket. The result is sorted by timestamp.
func Aggregate(slots []types.EnergyPrice, resolutionMinutes int, price Pricer) []PricePoint {
	if price == nil {
		price = SpotOnly
	}

	// Bucket sums are accumulated in timestamp order so the float result
	// does not depend on the order of the input.
	ordered := slices.Clone(slots)
	slices.SortFunc(ordered, func(a, b types.EnergyPrice) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Price, b.Price)
	})

	if resolutionMinutes <= NativeResolution {
		res := make([]PricePoint, 0, len(ordered))
		for _, s := range ordered {
			res = append(res, PricePoint{
				Timestamp: s.Timestamp,
				Price:     s.Price,
				Display:   price(s.Price, s.Timestamp),
				Slots:     1,
			})
		}
		return res
	}

	var res []PricePoint
	var spot, display float64
	flush := func() {
		last := &res[len(res)-1]
		last.Price = spot / float64(last.Slots)
		last.Display = display / float64(last.Slots)
	}
	for _, s := range ordered {
		start := hours.Floor(s.Timestamp, resolutionMinutes)
		if len(res) == 0 || !res[len(res)-1].Timestamp.Equal(start) {
			if len(res) > 0 {
				flush()
			}
			res = append(res, PricePoint{Timestamp: start})
			spot, display = 0, 0
		}
		spot += s.Price
		display += price(s.Price, s.Timestamp)
		res[len(res)-1].Slots++
	}
	if len(res) > 0 {
		flush()
	}
	return res
}

// FutureFrom keeps the points starting at or after the slot that contains now.
func FutureFrom(points []PricePoint, now time.Time, resolutionMinutes int) []PricePoint {
	from := hours.Floor(now, resolutionMinutes)
	idx, _ := slices.BinarySearchFunc(points, from, func(p PricePoint, t time.Time) int {
		return p.Timestamp.Compare(t)
	})
	return points[idx:]
}

// Current returns the point whose slot contains now.
func Current(points []PricePoint, now time.Time, resolutionMinutes int) (PricePoint, bool) {
	from := hours.Floor(now, resolutionMinutes)
	for _, p := range points {
		if p.Timestamp.Equal(from) {
			return p, true
		}
	}
	return PricePoint{}, false
}
