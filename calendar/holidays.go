package calendar

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

type RuleType string

const (
	RuleFixed        RuleType = "fixed"
	RuleEasterOffset RuleType = "easter_offset"
)

type HolidayRule struct {
	Type       RuleType `json:"type"`
	Month      int      `json:"month,omitempty"`
	Day        int      `json:"day,omitempty"`
	OffsetDays *int     `json:"offsetDays,omitempty"`
	Name       string   `json:"name,omitempty"`
}

func (r HolidayRule) validate() error {
	switch r.Type {
	case RuleFixed:
		if r.Month < 1 || r.Month > 12 {
			return fmt.Errorf("holiday %q: month %d out of range", r.Name, r.Month)
		}
		// 2024 is a leap year, so Feb 29 is accepted
		if r.Day < 1 || r.Day > daysIn(time.Month(r.Month), 2024) {
			return fmt.Errorf("holiday %q: day %d out of range for month %d", r.Name, r.Day, r.Month)
		}
	case RuleEasterOffset:
		if r.OffsetDays == nil {
			return fmt.Errorf("holiday %q: missing offsetDays", r.Name)
		}
		if *r.OffsetDays < -180 || *r.OffsetDays > 180 {
			return fmt.Errorf("holiday %q: offsetDays %d out of range", r.Name, *r.OffsetDays)
		}
	default:
		return fmt.Errorf("holiday %q: unknown rule type %q", r.Name, r.Type)
	}
	return nil
}

type monthDay struct {
	month time.Month
	day   int
}

// Resolver answers holiday and rest day questions for dates in its location.
// Holidays are resolved once per year and kept for the lifetime of the resolver.
type Resolver struct {
	loc     *time.Location
	rules   []HolidayRule
	skipped []error

	mu    sync.Mutex
	years map[int]map[monthDay]string
}

// NewResolver keeps the valid rules. Malformed rules are skipped and
// reported by Skipped so that the caller can log them.
func NewResolver(loc *time.Location, rules []HolidayRule) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	r := &Resolver{
		loc:   loc,
		years: make(map[int]map[monthDay]string),
	}
	for _, rule := range rules {
		if err := rule.validate(); err != nil {
			r.skipped = append(r.skipped, err)
			continue
		}
		r.rules = append(r.rules, rule)
	}
	return r
}

func (r *Resolver) Skipped() []error {
	return r.skipped
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

func (r *Resolver) holidays(year int) map[monthDay]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if days, ok := r.years[year]; ok {
		return days
	}

	days := make(map[monthDay]string, len(r.rules))
	easterMonth, easterDay := Easter(year)
	for _, rule := range r.rules {
		switch rule.Type {
		case RuleFixed:
			if rule.Day > daysIn(time.Month(rule.Month), year) {
				continue // Feb 29 in a non leap year
			}
			days[monthDay{time.Month(rule.Month), rule.Day}] = rule.Name
		case RuleEasterOffset:
			d := time.Date(year, easterMonth, easterDay+*rule.OffsetDays, 0, 0, 0, 0, time.UTC)
			if d.Year() == year {
				days[monthDay{d.Month(), d.Day()}] = rule.Name
			}
		}
	}
	r.years[year] = days
	return days
}

// HolidayName returns the name of the public holiday t falls on.
func (r *Resolver) HolidayName(t time.Time) (string, bool) {
	lt := t.In(r.loc)
	name, ok := r.holidays(lt.Year())[monthDay{lt.Month(), lt.Day()}]
	return name, ok
}

func (r *Resolver) IsPublicHoliday(t time.Time) bool {
	_, ok := r.HolidayName(t)
	return ok
}

func (r *Resolver) IsWeekend(t time.Time) bool {
	wd := t.In(r.loc).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsRestDay is true on weekends and public holidays.
func (r *Resolver) IsRestDay(t time.Time) bool {
	return r.IsWeekend(t) || r.IsPublicHoliday(t)
}

// Holidays lists the holiday dates of a year in chronological order.
func (r *Resolver) Holidays(year int) []time.Time {
	days := r.holidays(year)
	res := make([]time.Time, 0, len(days))
	for md := range days {
		res = append(res, time.Date(year, md.month, md.day, 0, 0, 0, 0, r.loc))
	}
	slices.SortFunc(res, func(a, b time.Time) int { return a.Compare(b) })
	return res
}

// Easter returns the month and day of Easter Sunday in the Gregorian calendar
// (anonymous Gregorian algorithm).
func Easter(year int) (time.Month, int) {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	n := h + l - 7*m + 114
	return time.Month(n / 31), n%31 + 1
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
