package hours

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	DateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var (
	tallinnLoc  *time.Location
	guiLocation *time.Location = time.UTC
)

func init() {
	var err error
	tallinnLoc, err = time.LoadLocation("Europe/Tallinn")
	if err != nil {
		panic(fmt.Sprintf("failed to load Tallinn location: %v", err))
	}
}

func SetGuiTimezone(timezone string) error {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %s: %v", timezone, err)
	}
	guiLocation = loc
	return nil
}

func GuiLocation() *time.Location {
	return guiLocation
}

// Tallinn is the market time zone used for tariff periods and holidays.
func Tallinn() *time.Location {
	return tallinnLoc
}

// Floor truncates t down to the start of its resolution slot.
// Estonian offsets are whole hours, so truncating in UTC is equivalent
// to truncating in local time for 15 and 60 minute slots.
func Floor(t time.Time, resolutionMinutes int) time.Time {
	if resolutionMinutes <= 0 {
		return t
	}
	return t.Truncate(time.Duration(resolutionMinutes) * time.Minute)
}

func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// StartOfDay returns local midnight of the day t falls on in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}

// ParseClock parses "HH:MM" into minutes after midnight. "24:00" is accepted as end of day.
func ParseClock(str string) (int, error) {
	if str == "24:00" {
		return 24 * 60, nil
	}
	t, err := time.Parse(clockLayout, str)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", str, err)
	}
	return MinuteOfDay(t), nil
}

func ParseDate(str string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, str, tallinnLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", str, err)
	}
	return t, nil
}

func FormatTimeInGuiTimezone(t time.Time) string {
	return t.In(guiLocation).Format("2006-01-02 15:04:05")
}
