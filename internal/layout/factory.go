package layout

import (
	"weekcal/internal/calendar"
	"weekcal/internal/model"
)

// Create turns items into packed fragments. Background and foreground items
// are laid out independently of each other; background fragments come first
// in the result so renderers can draw them underneath. Bounded items are
// converted into cfg.Location first when it is set.
func Create(items []model.Item, cfg Config) []*model.Fragment {
	var background, foreground []*model.Item
	for i := range items {
		item := items[i].In(cfg.Location)
		if item.Arrangement == model.Background {
			background = append(background, &item)
		} else {
			foreground = append(foreground, &item)
		}
	}

	out := create(background, cfg)
	return append(out, create(foreground, cfg)...)
}

func create(items []*model.Item, cfg Config) []*model.Fragment {
	var frags []*model.Fragment
	for _, item := range items {
		frags = append(frags, Split(item, cfg.MinHour, cfg.MaxHour)...)
	}

	for _, group := range GroupByDay(frags) {
		Pack(group, cfg)
	}
	return frags
}

// GroupByDay partitions frags by their day key, preserving input order inside
// each group.
func GroupByDay(frags []*model.Fragment) map[calendar.Date][]*model.Fragment {
	out := make(map[calendar.Date][]*model.Fragment)
	for _, f := range frags {
		day := f.Day()
		out[day] = append(out[day], f)
	}
	return out
}
