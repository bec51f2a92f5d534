package calendar

import "fmt"

// RangeError is the panic value raised when a visible date range cannot fit
// between the configured min and max dates.
type RangeError struct {
	Days    int
	MinDate Date
	MaxDate Date
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("calendar: can't render %d days between %s and %s", e.Days, e.MinDate, e.MaxDate)
}

// DateRange returns n consecutive dates starting at start.
func DateRange(start Date, n int) []Date {
	out := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDays(i))
	}
	return out
}

// ValidateRange shifts dates so they lie within [minDate, maxDate]. A zero
// minDate or maxDate means unbounded on that side.
//
// A range that starts before minDate and ends after maxDate at the same time
// has no valid placement; this is a programmer error and ValidateRange
// panics with a *RangeError.
func ValidateRange(dates []Date, minDate, maxDate Date, visibleDays int) []Date {
	if minDate.IsZero() && maxDate.IsZero() {
		return dates
	}
	if len(dates) == 0 {
		return dates
	}

	first := dates[0]
	last := dates[len(dates)-1]

	adjustStart := !minDate.IsZero() && first.Before(minDate)
	adjustEnd := !maxDate.IsZero() && last.After(maxDate)

	switch {
	case adjustStart && adjustEnd:
		panic(&RangeError{Days: len(dates), MinDate: minDate, MaxDate: maxDate})
	case adjustStart:
		return DateRange(minDate, visibleDays)
	case adjustEnd:
		return DateRange(maxDate.AddDays(-(visibleDays - 1)), visibleDays)
	default:
		return dates
	}
}

// FitRange is DateRange followed by ValidateRange for input that comes from
// users. Instead of panicking it returns a *RangeError when n days do not fit
// between minDate and maxDate.
func FitRange(start Date, n int, minDate, maxDate Date) ([]Date, error) {
	if !minDate.IsZero() && !maxDate.IsZero() && DaysBetween(minDate, maxDate)+1 < n {
		return nil, &RangeError{Days: n, MinDate: minDate, MaxDate: maxDate}
	}
	return ValidateRange(DateRange(start, n), minDate, maxDate, n), nil
}
