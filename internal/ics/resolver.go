package ics

import (
	"context"
	"errors"
	"slices"
	"strings"

	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

// Resolver runs the whole feed pipeline: fetch, parse, expand and convert.
type Resolver struct {
	Fetcher *Fetcher
	Sources []Source
	Items   ItemConfig
}

// Resolve returns the items of every source within the expand window. Feeds
// that fail to fetch or parse are skipped and reported in the returned error
// next to the items of the feeds that worked.
func (r *Resolver) Resolve(ctx context.Context, cfg ExpandConfig) ([]model.Item, error) {
	results, fetchErr := r.Fetcher.FetchAll(ctx, r.Sources)
	errs := []error{fetchErr}

	var events []ParsedEvent
	for _, res := range results {
		evs, err := ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "id", res.Source.ID)
			errs = append(errs, err)
			continue
		}
		events = append(events, evs...)
	}

	expanded, err := ExpandOccurrences(events, cfg)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(expanded.Occurrences, func(a, b Occurrence) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.InstanceKey, b.InstanceKey)
	})

	items := ToItems(expanded.Occurrences, r.Items)
	appLog.Info("ics resolved", "sources", len(r.Sources), "events", len(events), "items", len(items))
	return items, errors.Join(errs...)
}
