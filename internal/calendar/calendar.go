// Package calendar converts wall-clock intervals into business time.
package calendar

import (
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// Calendar computes elapsed business time between two instants.
type Calendar interface {
	BusinessTimeBetween(start, end time.Time, startHour, endHour int, days []time.Weekday) time.Duration
}

// BusinessCalendar counts only minutes inside [startHour, endHour) on the
// given weekdays, skipping holidays.
type BusinessCalendar struct {
	holidays *cal.Calendar
	loc      *time.Location
}

// Option configures a BusinessCalendar.
type Option func(*BusinessCalendar)

// WithLocation evaluates business hours in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *BusinessCalendar) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithHolidays adds holidays that are never counted as business time.
func WithHolidays(holidays ...*cal.Holiday) Option {
	return func(c *BusinessCalendar) {
		c.holidays.AddHoliday(holidays...)
	}
}

// New builds a calendar.
func New(opts ...Option) *BusinessCalendar {
	c := &BusinessCalendar{holidays: &cal.Calendar{}, loc: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegionHolidays returns the public holiday set for a region code. Unknown or
// empty regions have no holidays.
func RegionHolidays(region string) []*cal.Holiday {
	switch strings.ToLower(strings.TrimSpace(region)) {
	case "us":
		return us.Holidays
	default:
		return nil
	}
}

// FixedHoliday builds a holiday falling on the same date every year.
func FixedHoliday(name string, month time.Month, day int) *cal.Holiday {
	return &cal.Holiday{Name: name, Month: month, Day: day, Func: cal.CalcDayOfMonth}
}

// IsHoliday reports whether t falls on an actual or observed holiday.
func (c *BusinessCalendar) IsHoliday(t time.Time) bool {
	actual, observed, _ := c.holidays.IsHoliday(t.In(c.loc))
	return actual || observed
}

// BusinessTimeBetween implements Calendar.
func (c *BusinessCalendar) BusinessTimeBetween(start, end time.Time, startHour, endHour int, days []time.Weekday) time.Duration {
	if !end.After(start) || startHour >= endHour || len(days) == 0 {
		return 0
	}
	workdays := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		workdays[d] = true
	}

	start = start.In(c.loc)
	end = end.In(c.loc)

	var total time.Duration
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, c.loc)
	for !day.After(end) {
		if workdays[day.Weekday()] && !c.IsHoliday(day) {
			// wall-clock hours, so a DST shift earlier in the day does not move them
			y, m, d := day.Date()
			open := time.Date(y, m, d, startHour, 0, 0, 0, c.loc)
			closeAt := time.Date(y, m, d, endHour, 0, 0, 0, c.loc)
			total += overlap(start, end, open, closeAt)
		}
		day = day.AddDate(0, 0, 1)
	}
	return total
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	from := aStart
	if bStart.After(from) {
		from = bStart
	}
	to := aEnd
	if bEnd.Before(to) {
		to = bEnd
	}
	if !to.After(from) {
		return 0
	}
	return to.Sub(from)
}
