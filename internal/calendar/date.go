// Package calendar holds the date arithmetic the layout engine relies on:
// civil dates used as day keys, start/end-of-period clamping for the
// visible hour window, month periods and visible date ranges.
package calendar

import (
	"fmt"
	"time"
)

// Epsilon is the smallest time unit used when shortening ranges so that
// touching intervals become half-open.
const Epsilon = time.Nanosecond

// Date is a calendar day without time or location. It is comparable and is
// used as the fragment cache partition key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("calendar: invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// In returns midnight of d in loc. A nil loc means time.Local.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n days; n may be negative.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// Compare returns -1, 0 or +1 in the manner of cmp.Compare.
func (d Date) Compare(o Date) int {
	switch {
	case d.Before(o):
		return -1
	case o.Before(d):
		return 1
	}
	return 0
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b Date) int {
	ta := time.Date(a.Year, a.Month, a.Day, 12, 0, 0, 0, time.UTC)
	tb := time.Date(b.Year, b.Month, b.Day, 12, 0, 0, 0, time.UTC)
	return int(tb.Sub(ta).Round(24*time.Hour) / (24 * time.Hour))
}

// IsSameDay reports whether a and b fall on the same calendar day in their
// own locations.
func IsSameDay(a, b time.Time) bool {
	return DateOf(a) == DateOf(b)
}

// AtStartOfDay truncates t to midnight of its day.
func AtStartOfDay(t time.Time) time.Time {
	return StartOfPeriod(t, 0)
}

// AtEndOfDay returns the last representable instant of t's day.
func AtEndOfDay(t time.Time) time.Time {
	return EndOfPeriod(t, 24)
}

// StartOfPeriod returns hour:00:00 on t's day.
func StartOfPeriod(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, t.Location())
}

// EndOfPeriod returns (hour-1):59:59.999999999 on t's day, the instant right
// before hour:00.
func EndOfPeriod(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour-1, 59, 59, 999_999_999, t.Location())
}

// IsAtStartOfPeriod reports whether t is exactly hour:00:00 on its day.
func IsAtStartOfPeriod(t time.Time, hour int) bool {
	return t.Equal(StartOfPeriod(t, hour))
}

// LimitToMinHour clamps t forward to minHour:00 when it lies before it.
func LimitToMinHour(t time.Time, minHour int) time.Time {
	if t.Hour() < minHour {
		return StartOfPeriod(t, minHour)
	}
	return t
}

// LimitToMaxHour clamps t back to the end of period of maxHour when it lies
// at or after maxHour:00.
func LimitToMaxHour(t time.Time, maxHour int) time.Time {
	if t.Hour() >= maxHour {
		return EndOfPeriod(t, maxHour)
	}
	return t
}

// PreviousFirstDayOfWeek returns the closest date on or before d that falls on
// first.
func PreviousFirstDayOfWeek(d Date, first time.Weekday) Date {
	diff := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDays(-diff)
}

// ParseWeekday maps the config week_start value onto a weekday.
func ParseWeekday(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}
