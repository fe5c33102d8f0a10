package summary

import (
	"fmt"
	"math"
	"time"

	"github.com/orinocoz/energymeter/calc"
	"github.com/orinocoz/energymeter/hours"
	"github.com/orinocoz/energymeter/metrics"
	"github.com/orinocoz/energymeter/optimize"
	"github.com/orinocoz/energymeter/series"
	"github.com/orinocoz/energymeter/settings"
	"github.com/orinocoz/energymeter/slice"
	"github.com/orinocoz/energymeter/spot"
	"github.com/orinocoz/energymeter/tariff"
	"github.com/orinocoz/energymeter/types"
	"github.com/orinocoz/energymeter/types/maybe"
)

type CurrentPrice struct {
	Timestamp        time.Time        `json:"timestamp"`
	Spot             float64          `json:"spot"`
	Total            float64          `json:"total"`
	TotalWithMargins float64          `json:"totalWithMargins"`
	Breakdown        tariff.Breakdown `json:"breakdown"`
}

type Window struct {
	*optimize.BestWindow
	Countdown string `json:"countdown"`
}

type Summary struct {
	Updated    time.Time                 `json:"updated"`
	Stale      bool                      `json:"stale"`
	Provider   string                    `json:"provider"`
	Resolution int                       `json:"resolution"`
	Duration   float64                   `json:"durationHours"`
	Mode       optimize.Mode             `json:"mode"`
	SpotOnly   bool                      `json:"spotOnly"`
	Current    maybe.Maybe[CurrentPrice] `json:"current"`
	Today      maybe.Maybe[calc.Stats]   `json:"today"`
	Points     []series.PricePoint       `json:"points"`
	BestWindow maybe.Maybe[Window]       `json:"bestWindow"`
	Costs      calc.Costs                `json:"costs"`
	Advice     string                    `json:"advice"`
}

// Pricer returns the delivered price function for the settings.
func Pricer(engine *tariff.Engine, cfg tariff.Config) series.Pricer {
	return func(spot float64, t time.Time) float64 {
		return engine.Total(spot, t, cfg)
	}
}

// Priced aggregates the snapshot at the resolution and prices every slot.
func Priced(engine *tariff.Engine, s settings.Settings, prices []types.EnergyPrice) []series.PricePoint {
	return series.Aggregate(prices, s.Resolution, Pricer(engine, s.Tariff))
}

// BestWindow selects the best window from now on.
func BestWindow(engine *tariff.Engine, s settings.Settings, prices []types.EnergyPrice, now time.Time) *optimize.BestWindow {
	future := series.FutureFrom(Priced(engine, s, prices), now, s.Resolution)
	return optimize.SelectBest(future, s.DurationHours, s.Mode, s.Resolution)
}

// Build derives everything shown for a snapshot at now.
func Build(engine *tariff.Engine, s settings.Settings, snap spot.Snapshot, now time.Time) Summary {
	loc := engine.Calendar().Location()
	points := Priced(engine, s, snap.Prices)

	res := Summary{
		Updated:    snap.Updated,
		Stale:      snap.Stale,
		Provider:   snap.Provider,
		Resolution: s.Resolution,
		Duration:   s.DurationHours,
		Mode:       s.Mode,
		SpotOnly:   !s.Tariff.HasPackage(),
	}

	if cur, ok := currentSlot(snap.Prices, now); ok {
		b := engine.Breakdown(cur.Price, cur.Timestamp, s.Tariff)
		res.Current = maybe.Some(CurrentPrice{
			Timestamp:        cur.Timestamp,
			Spot:             cur.Price,
			Total:            b.Total,
			TotalWithMargins: b.TotalWithMargins,
			Breakdown:        b,
		})
	}

	today := slice.Filter(snap.Prices, func(p types.EnergyPrice) bool {
		return hours.SameDay(p.Timestamp, now, loc)
	})
	res.Today = calc.PriceStats(slice.Map(today, func(p types.EnergyPrice) float64 { return p.Price }))

	if s.Display.ShowPast {
		startOfDay := hours.StartOfDay(now, loc)
		res.Points = slice.Filter(points, func(p series.PricePoint) bool { return !p.Timestamp.Before(startOfDay) })
	} else {
		res.Points = series.FutureFrom(points, now, s.Resolution)
	}

	best := optimize.SelectBest(series.FutureFrom(points, now, s.Resolution), s.DurationHours, s.Mode, s.Resolution)
	bestAvg := maybe.None[float64]()
	if best != nil {
		res.BestWindow = maybe.Some(Window{BestWindow: best, Countdown: Countdown(best, now)})
		bestAvg = maybe.Some(best.AveragePrice)
	}

	currentTotal := maybe.None[float64]()
	if res.Current.IsValid() {
		currentTotal = maybe.Some(res.Current.Value().Total)
	}
	res.Costs = calc.CompareCosts(s.KWh, currentTotal, bestAvg)
	res.Advice = Advice(res.Costs)

	if currentTotal.IsValid() {
		metrics.RecordCurrentTotal(currentTotal.Value())
	}
	return res
}

// currentSlot finds the raw slot that contains now. Slots are at most an hour long.
func currentSlot(prices []types.EnergyPrice, now time.Time) (types.EnergyPrice, bool) {
	for i := len(prices) - 1; i >= 0; i-- {
		p := prices[i]
		if p.Timestamp.After(now) {
			continue
		}
		end := p.Timestamp.Add(time.Hour)
		if i+1 < len(prices) && prices[i+1].Timestamp.Before(end) {
			end = prices[i+1].Timestamp
		}
		return p, now.Before(end)
	}
	return types.EnergyPrice{}, false
}

// Countdown describes when the window starts.
func Countdown(w *optimize.BestWindow, now time.Time) string {
	d := w.StartsIn(now)
	if d <= 0 {
		return "Window is active now!"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h > 0 {
		return fmt.Sprintf("Starts in %dh %dmin", h, m)
	}
	return fmt.Sprintf("Starts in %d minutes", m)
}

// Advice tells whether waiting for the best window is worth it.
func Advice(c calc.Costs) string {
	if !c.Savings.IsValid() {
		return ""
	}
	savings := c.Savings.Value()
	if savings > 0 {
		return fmt.Sprintf("Save €%.2f by waiting", savings)
	}
	return fmt.Sprintf("Now is a good time! (€%.2f cheaper)", math.Abs(savings))
}
