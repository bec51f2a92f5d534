// Package engine runs layout off the caller's goroutine.
//
// A Processor owns one worker goroutine that takes submissions from a FIFO
// queue and applies them to a cache.Cache one at a time. Each submission's
// Done channel is closed exactly once, after its cache update is published;
// the optional completion callback then runs through the Dispatcher.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"weekcal/internal/cache"
	"weekcal/internal/calendar"
	"weekcal/internal/diff"
	"weekcal/internal/layout"
	"weekcal/internal/log"
	"weekcal/internal/model"
)

var ErrClosed = errors.New("engine: processor closed")

// Dispatcher runs completion callbacks on the caller's context of choice,
// e.g. a render loop. The default runs them on the worker goroutine.
type Dispatcher func(fn func())

type mode int

const (
	modeReplace mode = iota
	modeDiff
)

func (m mode) String() string {
	if m == modeDiff {
		return "diff"
	}
	return "replace"
}

// Submission is the handle returned for one queued batch.
type Submission struct {
	ID uuid.UUID

	items      []model.Item
	cfg        layout.Config
	mode       mode
	onComplete func()

	done      chan struct{}
	fragments int
}

// Done is closed once the batch is visible in the cache.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission completes or ctx is done.
func (s *Submission) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fragments is the number of fragments the batch produced. Only meaningful
// after Done is closed.
func (s *Submission) Fragments() int {
	<-s.done
	return s.fragments
}

type Option func(*Processor)

func WithDispatcher(d Dispatcher) Option {
	return func(p *Processor) { p.dispatch = d }
}

func WithStore(s Store) Option {
	return func(p *Processor) { p.store = s }
}

// DayFragments is what a renderer needs to draw one day column.
type DayFragments struct {
	Timed  []*model.Fragment `json:"timed"`
	AllDay []*model.Fragment `json:"all_day"`
}

type Processor struct {
	cache    *cache.Cache
	store    Store
	dispatch Dispatcher

	// apply serializes cache writers: the worker and UpdateDraggedItem.
	apply sync.Mutex

	mu     sync.Mutex
	queue  []*Submission
	closed bool
	wake   chan struct{}
	exited chan struct{}
}

// New starts a Processor writing into c. The store defaults to a
// SimpleStore.
func New(c *cache.Cache, opts ...Option) *Processor {
	p := &Processor{
		cache:    c,
		dispatch: func(fn func()) { fn() },
		wake:     make(chan struct{}, 1),
		exited:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.store == nil {
		p.store = NewSimpleStore()
	}
	go p.run()
	return p
}

func (p *Processor) Cache() *cache.Cache { return p.cache }
func (p *Processor) Store() Store        { return p.store }

// Submit queues items to replace everything currently laid out.
func (p *Processor) Submit(items []model.Item, cfg layout.Config, onComplete func()) (*Submission, error) {
	return p.enqueue(items, cfg, modeReplace, onComplete)
}

// SubmitDiffable queues items and only rebuilds fragments of items that were
// added, changed or removed relative to what is cached.
func (p *Processor) SubmitDiffable(items []model.Item, cfg layout.Config, onComplete func()) (*Submission, error) {
	return p.enqueue(items, cfg, modeDiff, onComplete)
}

func (p *Processor) enqueue(items []model.Item, cfg layout.Config, m mode, onComplete func()) (*Submission, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: submit: %w", err)
	}
	s := &Submission{
		ID:         uuid.New(),
		items:      items,
		cfg:        cfg,
		mode:       m,
		onComplete: onComplete,
		done:       make(chan struct{}),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.queue = append(p.queue, s)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return s, nil
}

func (p *Processor) next() (*Submission, bool) {
	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			s := p.queue[0]
			p.queue[0] = nil
			p.queue = p.queue[1:]
			p.mu.Unlock()
			return s, true
		}
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return nil, false
		}
		<-p.wake
	}
}

func (p *Processor) run() {
	defer close(p.exited)
	for {
		s, ok := p.next()
		if !ok {
			return
		}
		p.process(s)
	}
}

func (p *Processor) process(s *Submission) {
	started := time.Now()
	log.Debug("engine: submission start", "id", s.ID, "mode", s.mode, "items", len(s.items))

	p.apply.Lock()
	p.store.Update(normalize(s.items, s.cfg.Location))
	// A paginated store holds more than this batch; lay out all of it.
	items := p.store.Items()

	switch s.mode {
	case modeDiff:
		d := diff.Diff(p.cache.Items(), items)
		frags := layout.Create(d.AddOrUpdate, s.cfg)
		p.cache.Apply(d.Remove, frags)
		s.fragments = len(frags)
		log.Debug("engine: diff", "id", s.ID, "changed", len(d.AddOrUpdate), "removed", len(d.Remove))
	default:
		frags := layout.Create(items, s.cfg)
		p.cache.ReplaceAll(frags)
		s.fragments = len(frags)
	}
	p.apply.Unlock()

	close(s.done)
	log.Debug("engine: submission done", "id", s.ID, "fragments", s.fragments, "took", time.Since(started))

	if s.onComplete != nil {
		p.dispatch(s.onComplete)
	}
}

// normalize converts bounded items into loc so diffs compare the same values
// the cache holds.
func normalize(items []model.Item, loc *time.Location) []model.Item {
	if loc == nil {
		return items
	}
	out := make([]model.Item, len(items))
	for i, it := range items {
		out[i] = it.In(loc)
	}
	return out
}

// UpdateDraggedItem lays out a single item and swaps its fragments in place
// before returning. It does not go through the queue.
func (p *Processor) UpdateDraggedItem(item model.Item, cfg layout.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine: update dragged item: %w", err)
	}
	item = item.In(cfg.Location)

	p.apply.Lock()
	defer p.apply.Unlock()

	p.store.Upsert(item)
	p.cache.ReplaceItem(item.ID, layout.Create([]model.Item{item}, cfg))
	return nil
}

func (p *Processor) QueryByDay(day calendar.Date) DayFragments {
	return DayFragments{
		Timed:  p.cache.Timed(day),
		AllDay: p.cache.AllDay(day),
	}
}

func (p *Processor) QueryByDayRange(days []calendar.Date) []*model.Fragment {
	return p.cache.Range(days)
}

func (p *Processor) FindFragmentAt(x, y float64) (*model.Fragment, bool) {
	return p.cache.FindAt(x, y)
}

// PeriodsToFetch returns the months of r that still need loading. It is
// only meaningful with a PaginatedStore; other stores always report every
// period of r.
func (p *Processor) PeriodsToFetch(r calendar.FetchRange) []calendar.Period {
	if ps, ok := p.store.(*PaginatedStore); ok {
		return ps.PeriodsToFetch(r)
	}
	return r.Periods()
}

// Reset drops all cached fragments and stored items. Queued submissions are
// not affected.
func (p *Processor) Reset() {
	p.apply.Lock()
	defer p.apply.Unlock()
	p.store.Clear()
	p.cache.Clear()
}

// Close stops accepting submissions, lets the queued ones finish and waits
// for the worker to exit or ctx to end.
func (p *Processor) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}

	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
