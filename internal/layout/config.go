// Package layout splits calendar items into per-day fragments and packs
// overlapping fragments side by side.
//
// The pipeline for a batch of items is:
//
//	Create -> Split (per item) -> group by day -> Pack (per day)
//
// Pack first runs ResolveTouching, which shortens every fragment that ends
// exactly where another one starts by calendar.Epsilon, then builds
// collision clusters with Collides and assigns columns within each cluster.
// All functions here are pure over their inputs apart from the in-place
// geometry updates Pack makes on the fragments it is given.
package layout

import (
	"fmt"
	"time"
)

// Config carries the view parameters that affect layout.
type Config struct {
	// MinHour / MaxHour bound the visible window: [MinHour:00, MaxHour:00).
	MinHour int
	MaxHour int

	// ArrangeAllDayVertically stacks all-day fragments instead of packing
	// overlapping ones into columns.
	ArrangeAllDayVertically bool

	// Location, if set, is the zone bounded items are normalized into
	// before splitting.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{MinHour: 0, MaxHour: 24}
}

// Validate checks 0 <= MinHour < MaxHour <= 24.
func (c Config) Validate() error {
	if c.MinHour < 0 || c.MinHour >= 24 {
		return fmt.Errorf("layout: min hour %d out of range [0,24)", c.MinHour)
	}
	if c.MaxHour <= 0 || c.MaxHour > 24 {
		return fmt.Errorf("layout: max hour %d out of range (0,24]", c.MaxHour)
	}
	if c.MinHour >= c.MaxHour {
		return fmt.Errorf("layout: min hour %d must be before max hour %d", c.MinHour, c.MaxHour)
	}
	return nil
}

// MinutesFromStart is the minute offset of t from MinHour:00 on t's day.
func (c Config) MinutesFromStart(t time.Time) int {
	return (t.Hour()-c.MinHour)*60 + t.Minute()
}
