package model

import (
	"reflect"
	"time"

	"weekcal/internal/calendar"
)

// Arrangement controls whether an item is drawn in the foreground or as a
// background "blocked time" slot. Foreground and background items are packed
// independently.
type Arrangement int

const (
	Foreground Arrangement = iota
	Background
)

func (a Arrangement) String() string {
	if a == Background {
		return "background"
	}
	return "foreground"
}

// Timing is either Bounded or AllDay.
type Timing interface {
	// StartTime / EndTime are the effective inclusive bounds of the timing.
	StartTime() time.Time
	EndTime() time.Time
	isTiming()
}

// Bounded is a timed range. Start must be before End for it to produce any
// fragments.
type Bounded struct {
	Start time.Time
	End   time.Time
}

func (b Bounded) StartTime() time.Time { return b.Start }
func (b Bounded) EndTime() time.Time   { return b.End }
func (Bounded) isTiming()              {}

// AllDay covers one calendar date, from midnight to the last instant of the
// day in Date's location.
type AllDay struct {
	Date time.Time
}

func (a AllDay) StartTime() time.Time { return calendar.AtStartOfDay(a.Date) }
func (a AllDay) EndTime() time.Time   { return calendar.AtEndOfDay(a.Date) }
func (AllDay) isTiming()              {}

// Style carries optional rendering hints. Empty/zero values mean "use the
// renderer's defaults".
type Style struct {
	TextColor       string `json:"text_color,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	BorderColor     string `json:"border_color,omitempty"`
	BorderWidth     int    `json:"border_width,omitempty"`
	CornerRadius    int    `json:"corner_radius,omitempty"`
}

// Item is a normalized calendar entry. Items are treated as immutable values;
// identity is ID.
type Item struct {
	ID             int64
	Title          string
	Subtitle       string
	Timing         Timing
	Style          Style
	Arrangement    Arrangement
	Draggable      bool
	RespectsDayGap bool
	// Payload is an opaque caller value handed back on hit-tests.
	Payload any
}

func (i Item) IsAllDay() bool {
	_, ok := i.Timing.(AllDay)
	return ok
}

func (i Item) Start() time.Time {
	if i.Timing == nil {
		return time.Time{}
	}
	return i.Timing.StartTime()
}

func (i Item) End() time.Time {
	if i.Timing == nil {
		return time.Time{}
	}
	return i.Timing.EndTime()
}

// IsMultiDay reports whether the item's start and end fall on different days.
func (i Item) IsMultiDay() bool {
	return !calendar.IsSameDay(i.Start(), i.End())
}

// Period is the month the item is stored under in paginated mode.
func (i Item) Period() calendar.Period {
	return calendar.PeriodOf(calendar.DateOf(i.Start()))
}

// Duration of the item's timing.
func (i Item) Duration() time.Duration {
	return i.End().Sub(i.Start())
}

// WithBounds returns a copy of a bounded item with new start/end. All-day
// items are returned unchanged.
func (i Item) WithBounds(start, end time.Time) Item {
	if _, ok := i.Timing.(Bounded); !ok {
		return i
	}
	i.Timing = Bounded{Start: start, End: end}
	return i
}

// In converts bounded times into loc. All-day dates are left as-is so the
// calendar date never shifts.
func (i Item) In(loc *time.Location) Item {
	if loc == nil {
		return i
	}
	if b, ok := i.Timing.(Bounded); ok {
		i.Timing = Bounded{Start: b.Start.In(loc), End: b.End.In(loc)}
	}
	return i
}

// Equal compares two items field by field. Instants are compared with
// time.Time.Equal; payloads structurally.
func (i Item) Equal(o Item) bool {
	if i.ID != o.ID ||
		i.Title != o.Title ||
		i.Subtitle != o.Subtitle ||
		i.Style != o.Style ||
		i.Arrangement != o.Arrangement ||
		i.Draggable != o.Draggable ||
		i.RespectsDayGap != o.RespectsDayGap {
		return false
	}
	if !timingEqual(i.Timing, o.Timing) {
		return false
	}
	return reflect.DeepEqual(i.Payload, o.Payload)
}

func timingEqual(a, b Timing) bool {
	switch at := a.(type) {
	case nil:
		return b == nil
	case Bounded:
		bt, ok := b.(Bounded)
		return ok && at.Start.Equal(bt.Start) && at.End.Equal(bt.End)
	case AllDay:
		bt, ok := b.(AllDay)
		return ok && calendar.DateOf(at.Date) == calendar.DateOf(bt.Date)
	default:
		return false
	}
}
