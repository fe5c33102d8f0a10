package tariff

import (
	"time"

	"github.com/orinocoz/energymeter/calendar"
)

// Classifier decides which tariff period applies to a timestamp under a network package.
type Classifier struct {
	calendar     *calendar.Resolver
	packages     map[string]NetworkPackage
	dayWindow    calendar.TimeWindow
	legacyWindow calendar.TimeWindow
	winterMonths map[time.Month]bool
	peaks        PeakWindows
}

func NewClassifier(ref *Reference, cal *calendar.Resolver) *Classifier {
	c := &Classifier{
		calendar:     cal,
		packages:     make(map[string]NetworkPackage, len(ref.NetworkPackages)),
		dayWindow:    ref.DayWindow,
		legacyWindow: ref.DayHours.Window(),
		winterMonths: make(map[time.Month]bool, len(ref.WinterMonths)),
		peaks:        ref.PeakWindows,
	}
	for _, p := range ref.NetworkPackages {
		c.packages[p.ID] = p
	}
	for _, m := range ref.WinterMonths {
		c.winterMonths[time.Month(m)] = true
	}
	return c
}

func (c *Classifier) Classify(packageID string, t time.Time) Period {
	pkg, ok := c.packages[packageID]
	if !ok {
		return c.dayOrNight(t, c.legacyWindow)
	}

	if pkg.IsFlatOnly() {
		return PeriodFlat
	}

	if c.isWinter(t) {
		restDay := c.calendar.IsRestDay(t)
		if restDay && pkg.Supports(PeriodRestPeak) && c.calendar.InAnyWindow(t, c.peaks.RestDay) {
			return PeriodRestPeak
		}
		if !restDay && pkg.Supports(PeriodDayPeak) && c.calendar.InAnyWindow(t, c.peaks.Weekday) {
			return PeriodDayPeak
		}
	}

	return c.dayOrNight(t, c.dayWindow)
}

// BaseDayNight applies only the day/night rule, ignoring peaks and flat packages.
func (c *Classifier) BaseDayNight(packageID string, t time.Time) Period {
	if _, ok := c.packages[packageID]; !ok {
		return c.dayOrNight(t, c.legacyWindow)
	}
	return c.dayOrNight(t, c.dayWindow)
}

func (c *Classifier) dayOrNight(t time.Time, window calendar.TimeWindow) Period {
	if !c.calendar.IsRestDay(t) && c.calendar.TimeInRange(t, window) {
		return PeriodDay
	}
	return PeriodNight
}

func (c *Classifier) isWinter(t time.Time) bool {
	return c.winterMonths[t.In(c.calendar.Location()).Month()]
}
