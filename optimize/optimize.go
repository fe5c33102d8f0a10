package optimize

import (
	"math"
	"slices"
	"time"

	"github.com/orinocoz/energymeter/hours"
	"github.com/orinocoz/energymeter/series"
	"github.com/orinocoz/energymeter/slice"
)

// BestWindow is the set of slots with the lowest average delivered price
// for a requested duration. Timestamps are in chronological order.
type BestWindow struct {
	Mode            Mode        `json:"mode"`
	SelectedIndices []int       `json:"selectedIndices"`
	Timestamps      []time.Time `json:"timestamps"`
	AveragePrice    float64     `json:"averagePrice"`
	Start           time.Time   `json:"start"`
	End             time.Time   `json:"end"`
}

// StartsIn returns the time until the window starts, zero once it is active.
func (w *BestWindow) StartsIn(now time.Time) time.Duration {
	return max(0, w.Start.Sub(now))
}

func (w *BestWindow) Active(now time.Time) bool {
	return !now.Before(w.Start) && now.Before(w.End)
}

// DurationSlots converts a duration in hours to a number of slots at the
// resolution. It returns false unless the duration is a positive whole
// multiple of the slot length.
func DurationSlots(durationHours float64, resolutionMinutes int) (int, bool) {
	if !series.ValidResolution(resolutionMinutes) || durationHours <= 0 || math.IsNaN(durationHours) || math.IsInf(durationHours, 0) {
		return 0, false
	}
	exact := durationHours * 60 / float64(resolutionMinutes)
	n := math.Round(exact)
	if n < 1 || math.Abs(exact-n) > 1e-9 {
		return 0, false
	}
	return int(n), true
}

// SelectBest picks the cheapest window of durationHours from future, which
// must start at the current slot and be sorted by timestamp. Selection uses
// the display price of each point. It returns nil when the duration is
// invalid or there are not enough slots.
func SelectBest(future []series.PricePoint, durationHours float64, mode Mode, resolutionMinutes int) *BestWindow {
	n, ok := DurationSlots(durationHours, resolutionMinutes)
	if !ok || len(future) < n {
		return nil
	}

	var selected []int
	switch mode {
	case ModeConsecutive:
		selected = consecutive(future, n)
	case ModeCheapest:
		if resolutionMinutes <= series.NativeResolution {
			selected = cheapestSlots(future, n)
		} else {
			selected = cheapestHours(future, n)
		}
	default:
		return nil
	}
	if len(selected) == 0 {
		return nil
	}

	slices.Sort(selected)
	res := &BestWindow{
		Mode:            mode,
		SelectedIndices: selected,
		Timestamps:      make([]time.Time, len(selected)),
	}
	for i, idx := range selected {
		res.Timestamps[i] = future[idx].Timestamp
	}
	res.AveragePrice = slice.Mean(selected, func(idx int) float64 { return future[idx].Display })
	res.Start = res.Timestamps[0]
	res.End = res.Timestamps[len(selected)-1].Add(time.Duration(resolutionMinutes) * time.Minute)
	return res
}

// consecutive slides a window of n slots over the series and keeps the
// first window with the strictly lowest mean.
func consecutive(points []series.PricePoint, n int) []int {
	best := -1
	bestAvg := math.Inf(1)
	for start := 0; start+n <= len(points); start++ {
		avg := windowMean(points[start : start+n])
		if avg < bestAvg {
			bestAvg = avg
			best = start
		}
	}
	if best < 0 {
		return nil
	}
	res := make([]int, n)
	for i := range res {
		res[i] = best + i
	}
	return res
}

// cheapestSlots takes the n cheapest slots. Equal prices keep chronological order.
func cheapestSlots(points []series.PricePoint, n int) []int {
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return compareFloat(points[a].Display, points[b].Display)
	})
	return slices.Clone(idx[:n])
}

type hourGroup struct {
	indices []int
	mean    float64
}

// cheapestHours groups slots by clock hour and takes the n hours with the
// lowest mean. Equal means keep chronological order.
func cheapestHours(points []series.PricePoint, n int) []int {
	var groups []hourGroup
	var current time.Time
	for i, p := range points {
		h := hours.Floor(p.Timestamp, 60)
		if len(groups) == 0 || !h.Equal(current) {
			groups = append(groups, hourGroup{})
			current = h
		}
		g := &groups[len(groups)-1]
		g.indices = append(g.indices, i)
	}
	if len(groups) < n {
		return nil
	}
	for i := range groups {
		groups[i].mean = slice.Mean(groups[i].indices, func(idx int) float64 { return points[idx].Display })
	}

	slices.SortStableFunc(groups, func(a, b hourGroup) int {
		return compareFloat(a.mean, b.mean)
	})

	var res []int
	for _, g := range groups[:n] {
		res = append(res, g.indices...)
	}
	return res
}

func windowMean(points []series.PricePoint) float64 {
	return slice.Mean(points, func(p series.PricePoint) float64 { return p.Display })
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
