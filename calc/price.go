package calc

import (
	"github.com/orinocoz/energymeter/convert"
	"github.com/orinocoz/energymeter/types/maybe"
)

type Stats struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

// PriceStats returns average, min and max of prices, None for no prices.
func PriceStats(prices []float64) maybe.Maybe[Stats] {
	if len(prices) == 0 {
		return maybe.None[Stats]()
	}
	s := Stats{Min: prices[0], Max: prices[0], Count: len(prices)}
	sum := 0.0
	for _, p := range prices {
		sum += p
		s.Min = min(s.Min, p)
		s.Max = max(s.Max, p)
	}
	s.Average = sum / float64(len(prices))
	return maybe.Some(s)
}

// Cost returns the cost in euros of kWh at a price in cents/kWh.
func Cost(kWh, centsPerKwh float64) float64 {
	return convert.CentsToEuros(kWh, centsPerKwh)
}

type Costs struct {
	KWh     float64              `json:"kwh"`
	Now     maybe.Maybe[float64] `json:"now"`     // Euros at the current price
	Optimal maybe.Maybe[float64] `json:"optimal"` // Euros at the best window average
	Savings maybe.Maybe[float64] `json:"savings"` // Now minus optimal, negative when now is cheaper
}

// CompareCosts prices kWh now and in the best window. Amounts are rounded
// to cents.
func CompareCosts(kWh float64, currentTotal, bestAverage maybe.Maybe[float64]) Costs {
	c := Costs{KWh: kWh}
	if currentTotal.IsValid() {
		c.Now = maybe.Some(convert.TwoDecimals(Cost(kWh, currentTotal.Value())))
	}
	if bestAverage.IsValid() {
		c.Optimal = maybe.Some(convert.TwoDecimals(Cost(kWh, bestAverage.Value())))
	}
	if currentTotal.IsValid() && bestAverage.IsValid() {
		c.Savings = maybe.Some(convert.TwoDecimals(Cost(kWh, currentTotal.Value()-bestAverage.Value())))
	}
	return c
}
