package layout

import (
	"math"
	"testing"
	"time"

	"weekcal/internal/model"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

type geometry struct {
	start, width float64
}

func assertGeometry(t *testing.T, name string, f *model.Fragment, want geometry) {
	t.Helper()
	if !approx(f.RelativeStart, want.start) || !approx(f.RelativeWidth, want.width) {
		t.Errorf("%s geometry = (start %.4f, width %.4f), want (start %.4f, width %.4f)",
			name, f.RelativeStart, f.RelativeWidth, want.start, want.width)
	}
}

func TestPackMutuallyColliding(t *testing.T) {
	for k := 1; k <= 5; k++ {
		var frags []*model.Fragment
		for i := 0; i < k; i++ {
			frags = append(frags, frag(int64(i), at(0, 9, 0), at(0, 10, 0)))
		}

		Pack(frags, DefaultConfig())

		for i, f := range frags {
			assertGeometry(t, "fragment", f, geometry{start: float64(i) / float64(k), width: 1 / float64(k)})
			if f.ColumnCount != k {
				t.Errorf("k=%d ColumnCount = %d", k, f.ColumnCount)
			}
			if f.Column != i {
				t.Errorf("k=%d fragment %d Column = %d", k, i, f.Column)
			}
		}
	}
}

func TestPackNonOverlapping(t *testing.T) {
	a := frag(1, at(0, 9, 0), at(0, 10, 0))
	b := frag(2, at(0, 11, 0), at(0, 12, 0))

	Pack([]*model.Fragment{a, b}, DefaultConfig())

	assertGeometry(t, "a", a, geometry{0, 1})
	assertGeometry(t, "b", b, geometry{0, 1})
}

func TestPackTouchingSharesColumn(t *testing.T) {
	a := frag(1, at(0, 9, 0), at(0, 10, 0))
	b := frag(2, at(0, 9, 0), at(0, 11, 0))
	c := frag(3, at(0, 10, 0), at(0, 11, 0))

	Pack([]*model.Fragment{a, b, c}, DefaultConfig())

	assertGeometry(t, "a", a, geometry{0, 0.5})
	assertGeometry(t, "b", b, geometry{0.5, 0.5})
	assertGeometry(t, "c", c, geometry{0, 0.5})
	if want := at(0, 10, 0).Add(-time.Nanosecond); !a.End.Equal(want) {
		t.Errorf("a.End = %v, want %v", a.End, want)
	}
}

func TestPackSpansContiguousColumns(t *testing.T) {
	a := frag(1, at(0, 9, 0), at(0, 10, 0))
	b := frag(2, at(0, 9, 0), at(0, 10, 0))
	c := frag(3, at(0, 9, 30), at(0, 11, 0))
	d := frag(4, at(0, 10, 30), at(0, 11, 30))

	Pack([]*model.Fragment{a, b, c, d}, DefaultConfig())

	third := 1.0 / 3
	assertGeometry(t, "a", a, geometry{0, third})
	assertGeometry(t, "b", b, geometry{third, third})
	assertGeometry(t, "c", c, geometry{2 * third, third})
	assertGeometry(t, "d", d, geometry{0, 2 * third})
	if d.Column != 0 {
		t.Errorf("d.Column = %d, want 0", d.Column)
	}
}

func TestPackNonContiguousUsesLeftmost(t *testing.T) {
	a := frag(1, at(0, 9, 0), at(0, 10, 0))
	b := frag(2, at(0, 9, 0), at(0, 12, 0))
	c := frag(3, at(0, 9, 0), at(0, 10, 0))
	d := frag(4, at(0, 10, 30), at(0, 11, 0))

	Pack([]*model.Fragment{a, b, c, d}, DefaultConfig())

	third := 1.0 / 3
	assertGeometry(t, "d", d, geometry{0, third})
	assertGeometry(t, "c", c, geometry{2 * third, third})
}

func TestPackGeometryWithinBounds(t *testing.T) {
	frags := []*model.Fragment{
		frag(1, at(0, 8, 0), at(0, 12, 0)),
		frag(2, at(0, 9, 0), at(0, 10, 0)),
		frag(3, at(0, 9, 30), at(0, 13, 0)),
		frag(4, at(0, 10, 0), at(0, 11, 0)),
		frag(5, at(0, 11, 0), at(0, 14, 0)),
		frag(6, at(0, 12, 0), at(0, 12, 30)),
	}

	Pack(frags, DefaultConfig())

	for _, f := range frags {
		if f.RelativeStart < 0 || f.RelativeStart >= 1 {
			t.Errorf("item %d RelativeStart = %v", f.ItemID(), f.RelativeStart)
		}
		if f.RelativeWidth <= 0 || f.RelativeStart+f.RelativeWidth > 1+1e-9 {
			t.Errorf("item %d start+width = %v", f.ItemID(), f.RelativeStart+f.RelativeWidth)
		}
	}
	// Fragments sharing horizontal space must not overlap in time.
	for i, a := range frags {
		for _, b := range frags[i+1:] {
			overlapX := a.RelativeStart < b.RelativeStart+b.RelativeWidth-1e-9 &&
				b.RelativeStart < a.RelativeStart+a.RelativeWidth-1e-9
			if overlapX && Collides(a, b) {
				t.Errorf("items %d and %d overlap visually", a.ItemID(), b.ItemID())
			}
		}
	}
}

func TestPackAllDay(t *testing.T) {
	tests := []struct {
		name       string
		vertically bool
		want       []geometry
	}{
		{"side by side", false, []geometry{{0, 0.5}, {0.5, 0.5}}},
		{"vertically", true, []geometry{{0, 1}, {0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := allDayFrag(1, day0)
			b := allDayFrag(2, day0)
			timed := frag(3, at(0, 9, 0), at(0, 10, 0))

			cfg := DefaultConfig()
			cfg.ArrangeAllDayVertically = tt.vertically
			Pack([]*model.Fragment{a, timed, b}, cfg)

			assertGeometry(t, "a", a, tt.want[0])
			assertGeometry(t, "b", b, tt.want[1])
			assertGeometry(t, "timed", timed, geometry{0, 1})
		})
	}
}

func TestPackMinutesFromStart(t *testing.T) {
	timed := frag(1, at(0, 9, 30), at(0, 10, 0))
	allDay := allDayFrag(2, day0)

	cfg := Config{MinHour: 8, MaxHour: 20}
	Pack([]*model.Fragment{timed, allDay}, cfg)

	if timed.MinutesFromStart != 90 {
		t.Errorf("MinutesFromStart = %d, want 90", timed.MinutesFromStart)
	}
	if allDay.MinutesFromStart != 0 {
		t.Errorf("all-day MinutesFromStart = %d, want 0", allDay.MinutesFromStart)
	}
}

func TestCreateSeparatesArrangements(t *testing.T) {
	items := []model.Item{
		{ID: 1, Timing: model.Bounded{Start: at(0, 9, 0), End: at(0, 10, 0)}},
		{ID: 2, Arrangement: model.Background, Timing: model.Bounded{Start: at(0, 9, 0), End: at(0, 12, 0)}},
		{ID: 3, Timing: model.Bounded{Start: at(0, 9, 30), End: at(0, 10, 30)}},
	}

	got := Create(items, DefaultConfig())
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ItemID() != 2 {
		t.Errorf("first fragment item = %d, want background item 2", got[0].ItemID())
	}
	assertGeometry(t, "background", got[0], geometry{0, 1})
	assertGeometry(t, "fg1", got[1], geometry{0, 0.5})
	assertGeometry(t, "fg3", got[2], geometry{0.5, 0.5})
}

func TestCreateMultiDayPackedPerDay(t *testing.T) {
	items := []model.Item{
		{ID: 1, Timing: model.Bounded{Start: at(0, 20, 0), End: at(1, 10, 0)}},
		{ID: 2, Timing: model.Bounded{Start: at(1, 9, 0), End: at(1, 11, 0)}},
		{ID: 3, Timing: model.Bounded{Start: at(0, 8, 0), End: at(0, 9, 0)}},
	}

	got := Create(items, DefaultConfig())

	byDay := GroupByDay(got)
	if len(byDay) != 2 {
		t.Fatalf("days = %d, want 2", len(byDay))
	}
	for _, f := range got {
		switch {
		case f.ItemID() == 1 && f.Index == 0, f.ItemID() == 3:
			assertGeometry(t, "day0", f, geometry{0, 1})
		default:
			if !approx(f.RelativeWidth, 0.5) {
				t.Errorf("item %d index %d width = %v, want 0.5", f.ItemID(), f.Index, f.RelativeWidth)
			}
		}
	}
}

func TestCreateNormalizesLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	// 16:00 UTC is 01:00 the next day in Seoul.
	items := []model.Item{{ID: 1, Timing: model.Bounded{Start: at(0, 16, 0), End: at(0, 17, 0)}}}

	cfg := DefaultConfig()
	cfg.Location = seoul
	got := Create(items, cfg)

	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Start.Location() != seoul || got[0].Start.Hour() != 1 {
		t.Errorf("Start = %v, want 01:00 KST", got[0].Start)
	}
	if got[0].Day().Day != 11 {
		t.Errorf("Day() = %v, want the 11th", got[0].Day())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{MinHour: 0, MaxHour: 24}, false},
		{Config{MinHour: 8, MaxHour: 20}, false},
		{Config{MinHour: -1, MaxHour: 20}, true},
		{Config{MinHour: 0, MaxHour: 25}, true},
		{Config{MinHour: 10, MaxHour: 10}, true},
		{Config{MinHour: 24, MaxHour: 24}, true},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}
