package layout

import (
	"weekcal/internal/calendar"
	"weekcal/internal/model"
)

// Collides reports whether a and b overlap in time. All-day fragments only
// collide with all-day fragments and timed ones only with timed ones.
// Identical ranges always collide; ranges that merely touch (one ends where
// the other starts) never do. Collides does not modify its arguments.
func Collides(a, b *model.Fragment) bool {
	if a.IsAllDay() != b.IsAllDay() {
		return false
	}
	if a.Start.Equal(b.Start) && a.End.Equal(b.End) {
		return true
	}
	if a.End.Equal(b.Start) || b.End.Equal(a.Start) {
		return false
	}
	return !a.Start.After(b.End) && !a.End.Before(b.Start)
}

// ResolveTouching shortens by calendar.Epsilon every fragment whose end
// coincides with the start of another fragment of the same kind, turning
// touching closed ranges into disjoint half-open ones. The set of fragments
// to shorten is computed from the original bounds before any change is made,
// so the result does not depend on input order.
func ResolveTouching(frags []*model.Fragment) {
	starts := map[bool]map[int64]struct{}{
		true:  {},
		false: {},
	}
	for _, f := range frags {
		starts[f.IsAllDay()][f.Start.UnixNano()] = struct{}{}
	}

	var touching []*model.Fragment
	for _, f := range frags {
		if _, ok := starts[f.IsAllDay()][f.End.UnixNano()]; ok {
			touching = append(touching, f)
		}
	}
	for _, f := range touching {
		f.End = f.End.Add(-calendar.Epsilon)
	}
}
