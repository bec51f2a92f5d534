package model

import (
	"time"

	"weekcal/internal/calendar"
)

// Rect is a renderer-assigned screen rectangle.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Fragment is one day's slice of an Item, together with the geometry the
// packer assigned to it. Fragments are rebuilt whenever their Item changes;
// once published to the cache they are only ever replaced, never edited.
type Fragment struct {
	// Item is shared and read-only.
	Item  *Item
	Index int

	Start time.Time
	End   time.Time

	Column        int
	ColumnCount   int
	RelativeStart float64
	RelativeWidth float64

	// MinutesFromStart is the offset from minHour:00 on the fragment's
	// day. Zero for all-day fragments.
	MinutesFromStart int

	// Bounds is nil until a renderer reports where the fragment was drawn.
	Bounds *Rect
}

func NewFragment(item *Item, index int, start, end time.Time) *Fragment {
	return &Fragment{
		Item:          item,
		Index:         index,
		Start:         start,
		End:           end,
		ColumnCount:   1,
		RelativeWidth: 1,
	}
}

func (f *Fragment) ItemID() int64 {
	return f.Item.ID
}

func (f *Fragment) IsAllDay() bool {
	return f.Item.IsAllDay()
}

// Day is the cache key for this fragment.
func (f *Fragment) Day() calendar.Date {
	return calendar.DateOf(f.Start)
}

// StartsOnEarlierDay reports whether the owning item began before this
// fragment's day.
func (f *Fragment) StartsOnEarlierDay() bool {
	return calendar.DateOf(f.Item.Start()).Before(f.Day())
}

// EndsOnLaterDay reports whether the owning item continues after this
// fragment's day. An item ending exactly at midnight does not.
func (f *Fragment) EndsOnLaterDay() bool {
	return calendar.DateOf(f.Item.End().Add(-calendar.Epsilon)).After(f.Day())
}

func (f *Fragment) IsHit(x, y float64) bool {
	return f.Bounds != nil && f.Bounds.Contains(x, y)
}

// Clone returns a shallow copy; Item stays shared, Bounds is copied.
func (f *Fragment) Clone() *Fragment {
	c := *f
	if f.Bounds != nil {
		b := *f.Bounds
		c.Bounds = &b
	}
	return &c
}
