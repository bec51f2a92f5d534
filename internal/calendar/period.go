package calendar

import (
	"fmt"
	"time"
)

// Period is a calendar month, the unit in which paginated items are stored.
type Period struct {
	Year  int
	Month time.Month
}

func PeriodOf(d Date) Period {
	return Period{Year: d.Year, Month: d.Month}
}

func (p Period) Previous() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// StartDate is the first day of the month.
func (p Period) StartDate() Date {
	return Date{Year: p.Year, Month: p.Month, Day: 1}
}

// EndDate is the last day of the month.
func (p Period) EndDate() Date {
	return p.Next().StartDate().AddDays(-1)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// FetchRange is the window of months loaded around the first visible date.
type FetchRange struct {
	Previous Period
	Current  Period
	Next     Period
}

func NewFetchRange(firstVisible Date) FetchRange {
	current := PeriodOf(firstVisible)
	return FetchRange{
		Previous: current.Previous(),
		Current:  current,
		Next:     current.Next(),
	}
}

func (r FetchRange) Periods() []Period {
	return []Period{r.Previous, r.Current, r.Next}
}
