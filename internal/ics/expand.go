package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "weekcal/internal/log"
)

const defaultMaxOccurrencesPerEvent = 5000

// Occurrence is one concrete instance of an event after recurrence
// expansion.
type Occurrence struct {
	Source      Source
	UID         string
	InstanceKey string

	Summary     string
	Description string
	Location    string

	AllDay bool
	// Start/End are in the display location. For all-day occurrences End
	// is exclusive midnight.
	Start time.Time
	End   time.Time
}

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the zone occurrences are converted into. If nil,
	// time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the occurrences returned.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero means
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

type ExpandResult struct {
	Occurrences []Occurrence
	// TruncatedEvents records UIDs that hit MaxOccurrencesPerEvent.
	TruncatedEvents []string
}

// ExpandOccurrences expands events into concrete occurrences within the
// configured range. It handles plain events, RRULE recurrences, EXDATE
// removal and RECURRENCE-ID overrides.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: expand: range end is before range start")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	type key struct{ source, uid string }
	var order []key
	base := map[key][]ParsedEvent{}
	overrides := map[key][]ParsedEvent{}
	for _, ev := range events {
		k := key{ev.Source.ID, ev.UID}
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[k] = append(overrides[k], ev)
			continue
		}
		if _, ok := base[k]; !ok {
			order = append(order, k)
		}
		base[k] = append(base[k], ev)
	}

	for _, k := range order {
		truncated := false
		for _, ev := range base[k] {
			occ, hitCap := expandEvent(ev, overrides[k], cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, k.uid)
			appLog.Error("ics expand: truncated occurrences", errors.New("max occurrences reached"),
				"uid", k.uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []Occurrence {
	start, end := ev.Start, ev.End
	if o, ok := findOverrideForStart(overrides, start); ok {
		start, end, ev = o.Start, o.End, o
	}
	if !overlaps(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []Occurrence{makeOccurrence(ev, start, end, cfg.DisplayLocation)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	opt, err := rrule.StrToROptionInLocation(ev.RawRRule, ev.Start.Location())
	if err != nil {
		appLog.Error("ics expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	opt.Dtstart = ev.Start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		appLog.Error("ics expand: invalid RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	// Widen the window by the event duration so occurrences that started
	// before RangeStart but are still running are kept.
	from := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	to := cfg.RangeEnd.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, s := range starts {
		var e time.Time
		if ev.AllDay {
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			e = s.AddDate(0, 0, daysSpanned(ev.Start, ev.End))
		} else {
			e = s.Add(dur)
		}

		occEv := ev
		if o, ok := findOverrideForStart(overrides, s); ok {
			s, e, occEv = o.Start, o.End, o
		}
		if !overlaps(s, e, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeOccurrence(occEv, s, e, cfg.DisplayLocation))
	}
	return out, hitCap
}

func daysSpanned(start, end time.Time) int {
	n := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		n++
	}
	return max(n, 1)
}

// findOverrideForStart finds the override whose RECURRENCE-ID is start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time, loc *time.Location) Occurrence {
	occ := Occurrence{
		Source:      ev.Source,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
	}
	if ev.AllDay {
		// Keep the calendar date; only the zone label changes.
		occ.Start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		occ.End = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	} else {
		occ.Start = start.In(loc)
		occ.End = end.In(loc)
	}
	occ.InstanceKey = fmt.Sprintf("%s@%s", ev.UID, occ.Start.Format(time.RFC3339Nano))
	return occ
}

// overlaps treats [aStart,aEnd) and [bStart,bEnd] as half-open on a's end.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(bStart) && !aStart.Equal(bStart) {
		return false
	}
	return !aStart.After(bEnd)
}
