package layout

import (
	"sort"
	"time"

	"weekcal/internal/calendar"
	"weekcal/internal/model"
)

type span struct {
	start time.Time
	end   time.Time
}

// Split decomposes item into same-day fragments clipped to the visible hour
// window. Degenerate items (start >= end) and slices that fall entirely
// outside the window produce nothing. Fragments are returned sorted by
// (start, end) with Index set to their position.
func Split(item *model.Item, minHour, maxHour int) []*model.Fragment {
	start, end := item.Start(), item.End()
	if !start.Before(end) {
		return nil
	}

	var spans []span
	switch {
	case item.IsAllDay():
		spans = []span{{start: start, end: end}}
	default:
		end = sanitizeEnd(end, minHour)
		if calendar.IsSameDay(start, end) {
			spans = []span{{
				start: calendar.LimitToMinHour(start, minHour),
				end:   calendar.LimitToMaxHour(end, maxHour),
			}}
		} else {
			spans = splitByDates(start, end, minHour, maxHour)
		}
	}

	out := make([]*model.Fragment, 0, len(spans))
	for _, s := range spans {
		if !s.start.Before(s.end) {
			continue
		}
		out = append(out, model.NewFragment(item, 0, s.start, s.end))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].End.Before(out[j].End)
	})
	for i, f := range out {
		f.Index = i
	}
	return out
}

// sanitizeEnd pulls an end lying exactly on minHour:00 back by one epsilon,
// so it doesn't spill a zero-length fragment onto the next day.
func sanitizeEnd(end time.Time, minHour int) time.Time {
	if calendar.IsAtStartOfPeriod(end, minHour) {
		return end.Add(-calendar.Epsilon)
	}
	return end
}

func splitByDates(start, end time.Time, minHour, maxHour int) []span {
	spans := []span{{
		start: calendar.LimitToMinHour(start, minHour),
		end:   calendar.LimitToMaxHour(calendar.AtEndOfDay(start), maxHour),
	}}

	loc := start.Location()
	last := calendar.DateOf(end)
	for d := calendar.DateOf(start).AddDays(1); d.Before(last); d = d.AddDays(1) {
		day := d.In(loc)
		spans = append(spans, span{
			start: calendar.StartOfPeriod(day, minHour),
			end:   calendar.EndOfPeriod(day, maxHour),
		})
	}

	spans = append(spans, span{
		start: calendar.LimitToMinHour(calendar.AtStartOfDay(end), minHour),
		end:   calendar.LimitToMaxHour(end, maxHour),
	})
	return spans
}
