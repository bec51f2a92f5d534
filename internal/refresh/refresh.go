// Package refresh keeps the engine fed with fresh calendar items: on a cron
// schedule, whenever a watched local .ics file changes, and on demand.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"weekcal/internal/engine"
	"weekcal/internal/ics"
	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

// ItemSource resolves the items within an expansion window.
type ItemSource interface {
	Resolve(ctx context.Context, cfg ics.ExpandConfig) ([]model.Item, error)
}

// Submitter is the part of engine.Processor a refresh needs.
type Submitter interface {
	SubmitDiffable(items []model.Item, cfg layout.Config, onComplete func()) (*engine.Submission, error)
}

type Options struct {
	// Schedule is a standard five-field cron spec. Empty disables the
	// schedule.
	Schedule string
	// WatchFiles are local sources that trigger a refresh when written.
	WatchFiles []string
	Debounce   time.Duration

	Layout layout.Config
	// BackfillDays / HorizonDays define the window around today that is
	// expanded on every refresh.
	BackfillDays int
	HorizonDays  int

	// Now defaults to time.Now.
	Now func() time.Time
}

type Refresher struct {
	source ItemSource
	engine Submitter
	opts   Options

	mu   sync.Mutex
	last time.Time
}

func New(source ItemSource, sub Submitter, opts Options) *Refresher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	return &Refresher{source: source, engine: sub, opts: opts}
}

// Window is the expansion window for a refresh happening at now.
func (r *Refresher) Window(now time.Time) ics.ExpandConfig {
	loc := r.opts.Layout.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      today.AddDate(0, 0, -r.opts.BackfillDays),
		RangeEnd:        today.AddDate(0, 0, r.opts.HorizonDays),
	}
}

// RefreshOnce resolves items and submits them. Partial source failures are
// logged; the items that did resolve are still submitted.
func (r *Refresher) RefreshOnce(ctx context.Context) (*engine.Submission, error) {
	now := r.opts.Now()
	items, err := r.source.Resolve(ctx, r.Window(now))
	if err != nil {
		if len(items) == 0 {
			return nil, fmt.Errorf("refresh: resolve: %w", err)
		}
		appLog.Error("refresh: some sources failed", err, "items", len(items))
	}

	sub, err := r.engine.SubmitDiffable(items, r.opts.Layout, nil)
	if err != nil {
		return nil, fmt.Errorf("refresh: submit: %w", err)
	}

	r.mu.Lock()
	r.last = now
	r.mu.Unlock()
	appLog.Info("refresh submitted", "submission", sub.ID, "items", len(items))
	return sub, nil
}

// LastRefresh is when the last successful refresh was submitted.
func (r *Refresher) LastRefresh() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Run refreshes once, then on schedule and on file changes, until ctx is
// done.
func (r *Refresher) Run(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	poke := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	if r.opts.Schedule != "" {
		c := cron.New(cron.WithLocation(r.location()))
		if _, err := c.AddFunc(r.opts.Schedule, poke); err != nil {
			return fmt.Errorf("refresh: schedule %q: %w", r.opts.Schedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	var changes <-chan struct{}
	if len(r.opts.WatchFiles) > 0 {
		w, err := NewWatcher(r.opts.WatchFiles, r.opts.Debounce)
		if err != nil {
			return fmt.Errorf("refresh: watch: %w", err)
		}
		defer w.Stop()
		changes = w.Changes
	}

	poke()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			appLog.Debug("refresh: local source changed")
			poke()
		case <-trigger:
			if _, err := r.RefreshOnce(ctx); err != nil {
				appLog.Error("refresh failed", err)
			}
		}
	}
}

func (r *Refresher) location() *time.Location {
	if r.opts.Layout.Location != nil {
		return r.opts.Layout.Location
	}
	return time.Local
}
