package ics

import (
	"hash/fnv"
	"strings"
	"time"

	"weekcal/internal/model"
)

// ItemConfig controls how occurrences are turned into layout items.
type ItemConfig struct {
	// HighlightKeywords mark events whose summary contains any of them.
	HighlightKeywords []string
	HighlightColor    string

	// BackgroundColor is used for sources marked Background that do not set
	// their own Color.
	BackgroundColor string
}

func DefaultItemConfig() ItemConfig {
	return ItemConfig{
		HighlightColor:  "#d32f2f",
		BackgroundColor: "#eeeeee",
	}
}

// Payload travels with every item so hit-tests can report where an event
// came from.
type Payload struct {
	SourceID    string `json:"source_id"`
	UID         string `json:"uid"`
	InstanceKey string `json:"instance_key"`
	Location    string `json:"location,omitempty"`
}

// ToItems converts occurrences into items. All-day occurrences covering
// several dates become one all-day item per date. Item ids are stable
// hashes of source, instance and date, so resubmitting an unchanged feed
// yields identical items.
func ToItems(occs []Occurrence, cfg ItemConfig) []model.Item {
	out := make([]model.Item, 0, len(occs))
	for _, occ := range occs {
		base := model.Item{
			Title:    occ.Summary,
			Subtitle: occ.Location,
			Style:    styleFor(occ, cfg),
			Payload: Payload{
				SourceID:    occ.Source.ID,
				UID:         occ.UID,
				InstanceKey: occ.InstanceKey,
				Location:    occ.Location,
			},
		}
		if occ.Source.Background {
			base.Arrangement = model.Background
		}

		if !occ.AllDay {
			item := base
			item.ID = itemID(occ.Source.ID, occ.InstanceKey, "")
			item.Timing = model.Bounded{Start: occ.Start, End: occ.End}
			item.Draggable = !occ.Source.Background
			out = append(out, item)
			continue
		}

		for d := occ.Start; d.Before(occ.End) || d.Equal(occ.Start); d = d.AddDate(0, 0, 1) {
			item := base
			item.ID = itemID(occ.Source.ID, occ.InstanceKey, d.Format(time.DateOnly))
			item.Timing = model.AllDay{Date: d}
			out = append(out, item)
		}
	}
	return out
}

func styleFor(occ Occurrence, cfg ItemConfig) model.Style {
	var s model.Style
	if occ.Source.Background {
		s.BackgroundColor = occ.Source.Color
		if s.BackgroundColor == "" {
			s.BackgroundColor = cfg.BackgroundColor
		}
		return s
	}
	s.BackgroundColor = occ.Source.Color
	if highlighted(occ.Summary, cfg.HighlightKeywords) {
		s.TextColor = cfg.HighlightColor
		s.BorderColor = cfg.HighlightColor
		s.BorderWidth = 2
	}
	return s
}

func highlighted(summary string, keywords []string) bool {
	lower := strings.ToLower(summary)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// itemID is FNV-64a over the parts, masked to a non-negative int64.
func itemID(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return int64(h.Sum64() &^ (1 << 63))
}
