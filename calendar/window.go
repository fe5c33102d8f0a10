package calendar

import (
	"fmt"
	"time"

	"github.com/orinocoz/energymeter/hours"
)

// TimeWindow is a daily clock range, start inclusive and end exclusive.
// A start after the end wraps past midnight, e.g. 22:00 - 07:00.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%s-%s", w.Start, w.End)
}

func (w TimeWindow) Validate() error {
	if _, err := hours.ParseClock(w.Start); err != nil {
		return fmt.Errorf("window %s: %w", w, err)
	}
	if _, err := hours.ParseClock(w.End); err != nil {
		return fmt.Errorf("window %s: %w", w, err)
	}
	return nil
}

// ContainsMinute reports whether a minute of day falls in the window.
// Unparsable windows contain nothing.
func (w TimeWindow) ContainsMinute(minute int) bool {
	start, err := hours.ParseClock(w.Start)
	if err != nil {
		return false
	}
	end, err := hours.ParseClock(w.End)
	if err != nil {
		return false
	}
	if start > end {
		return minute >= start || minute < end
	}
	return minute >= start && minute < end
}

// TimeInRange checks the wall clock of t in the resolver's location against the window.
func (r *Resolver) TimeInRange(t time.Time, w TimeWindow) bool {
	return w.ContainsMinute(hours.MinuteOfDay(t.In(r.loc)))
}

func (r *Resolver) InAnyWindow(t time.Time, windows []TimeWindow) bool {
	for _, w := range windows {
		if r.TimeInRange(t, w) {
			return true
		}
	}
	return false
}
