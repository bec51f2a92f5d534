// Package cache holds packed fragments keyed by day.
//
// A Cache has a single writer at a time and any number of readers. Writers
// serialize on a mutex and publish an immutable snapshot; readers load the
// current snapshot without locking, so a reader never waits for a write and
// never sees a day bucket that is half updated.
package cache

import (
	"slices"
	"sync"
	"sync/atomic"

	"weekcal/internal/calendar"
	"weekcal/internal/model"
)

type snapshot struct {
	days map[calendar.Date][]*model.Fragment
	// items maps an item id to the days it currently has fragments on.
	items map[int64][]calendar.Date
}

var empty = &snapshot{
	days:  map[calendar.Date][]*model.Fragment{},
	items: map[int64][]calendar.Date{},
}

type Cache struct {
	mu  sync.Mutex
	cur atomic.Pointer[snapshot]
}

func New() *Cache {
	c := &Cache{}
	c.cur.Store(empty)
	return c
}

func (c *Cache) load() *snapshot {
	if s := c.cur.Load(); s != nil {
		return s
	}
	return empty
}

// txn is a copy-on-write edit of a snapshot. Buckets are copied the first
// time they are touched; untouched buckets stay shared with the old snapshot.
type txn struct {
	base    *snapshot
	days    map[calendar.Date][]*model.Fragment
	items   map[int64][]calendar.Date
	touched map[calendar.Date]bool
}

func (c *Cache) begin() *txn {
	base := c.load()
	t := &txn{
		base:    base,
		days:    make(map[calendar.Date][]*model.Fragment, len(base.days)),
		items:   make(map[int64][]calendar.Date, len(base.items)),
		touched: map[calendar.Date]bool{},
	}
	for d, b := range base.days {
		t.days[d] = b
	}
	for id, ds := range base.items {
		t.items[id] = ds
	}
	return t
}

func (t *txn) bucket(day calendar.Date) []*model.Fragment {
	if !t.touched[day] {
		t.days[day] = slices.Clone(t.days[day])
		t.touched[day] = true
	}
	return t.days[day]
}

func (t *txn) setBucket(day calendar.Date, b []*model.Fragment) {
	t.touched[day] = true
	if len(b) == 0 {
		delete(t.days, day)
		return
	}
	t.days[day] = b
}

func (t *txn) remove(itemID int64) {
	days, ok := t.items[itemID]
	if !ok {
		return
	}
	for _, day := range days {
		b := slices.DeleteFunc(t.bucket(day), func(f *model.Fragment) bool {
			return f.ItemID() == itemID
		})
		t.setBucket(day, b)
	}
	delete(t.items, itemID)
}

func (t *txn) add(frags []*model.Fragment) {
	seen := map[int64]bool{}
	for _, f := range frags {
		id := f.ItemID()
		if !seen[id] {
			t.remove(id)
			seen[id] = true
		}
	}
	for _, f := range frags {
		day := f.Day()
		t.setBucket(day, append(t.bucket(day), f))
		if ds := t.items[f.ItemID()]; !slices.Contains(ds, day) {
			t.items[f.ItemID()] = append(slices.Clone(ds), day)
		}
	}
}

func (c *Cache) commit(t *txn) {
	c.cur.Store(&snapshot{days: t.days, items: t.items})
}

func (c *Cache) update(fn func(t *txn)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.begin()
	fn(t)
	c.commit(t)
}

// AddAll inserts frags. Any item that already has fragments in the cache has
// all of them dropped first, so an item is always represented by the latest
// batch that mentioned it.
func (c *Cache) AddAll(frags []*model.Fragment) {
	if len(frags) == 0 {
		return
	}
	c.update(func(t *txn) { t.add(frags) })
}

// Remove drops every fragment of itemID.
func (c *Cache) Remove(itemID int64) {
	c.update(func(t *txn) { t.remove(itemID) })
}

// RemoveAll drops every fragment belonging to any of items.
func (c *Cache) RemoveAll(items []model.Item) {
	if len(items) == 0 {
		return
	}
	c.update(func(t *txn) {
		for _, item := range items {
			t.remove(item.ID)
		}
	})
}

// Apply removes the given items and then adds frags as one atomic update.
func (c *Cache) Apply(remove []model.Item, frags []*model.Fragment) {
	c.update(func(t *txn) {
		for _, item := range remove {
			t.remove(item.ID)
		}
		t.add(frags)
	})
}

// ReplaceAll clears the cache and inserts frags in a single update.
func (c *Cache) ReplaceAll(frags []*model.Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &txn{
		base:    empty,
		days:    map[calendar.Date][]*model.Fragment{},
		items:   map[int64][]calendar.Date{},
		touched: map[calendar.Date]bool{},
	}
	t.add(frags)
	c.commit(t)
}

// ReplaceItem swaps the fragments of one item, removing it when frags is
// empty.
func (c *Cache) ReplaceItem(itemID int64, frags []*model.Fragment) {
	c.update(func(t *txn) {
		t.remove(itemID)
		t.add(frags)
	})
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur.Store(empty)
}

// SetBounds records where the renderer drew a fragment. It reports false when
// no such fragment is cached.
func (c *Cache) SetBounds(itemID int64, index int, r model.Rect) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.load()
	for _, day := range s.items[itemID] {
		for i, f := range s.days[day] {
			if f.ItemID() != itemID || f.Index != index {
				continue
			}
			t := c.begin()
			b := t.bucket(day)
			nf := f.Clone()
			nf.Bounds = &r
			b[i] = nf
			c.commit(t)
			return true
		}
	}
	return false
}

// ClearTimedBounds forgets the drawn bounds of every timed fragment. All-day
// bounds are kept since the all-day strip is laid out separately.
func (c *Cache) ClearTimedBounds() {
	c.update(func(t *txn) {
		for day, bucket := range t.base.days {
			if !slices.ContainsFunc(bucket, hasTimedBounds) {
				continue
			}
			b := t.bucket(day)
			for i, f := range b {
				if hasTimedBounds(f) {
					nf := f.Clone()
					nf.Bounds = nil
					b[i] = nf
				}
			}
		}
	})
}

func hasTimedBounds(f *model.Fragment) bool {
	return !f.IsAllDay() && f.Bounds != nil
}

// Day returns every fragment on day, in insertion order.
func (c *Cache) Day(day calendar.Date) []*model.Fragment {
	return slices.Clone(c.load().days[day])
}

// Timed returns the timed fragments on day.
func (c *Cache) Timed(day calendar.Date) []*model.Fragment {
	return filter(c.load().days[day], false)
}

// AllDay returns the all-day fragments on day.
func (c *Cache) AllDay(day calendar.Date) []*model.Fragment {
	return filter(c.load().days[day], true)
}

func filter(bucket []*model.Fragment, allDay bool) []*model.Fragment {
	var out []*model.Fragment
	for _, f := range bucket {
		if f.IsAllDay() == allDay {
			out = append(out, f)
		}
	}
	return out
}

// Range concatenates the fragments of each day in days, in the given order.
// All buckets come from the same snapshot.
func (c *Cache) Range(days []calendar.Date) []*model.Fragment {
	s := c.load()
	var out []*model.Fragment
	for _, d := range days {
		out = append(out, s.days[d]...)
	}
	return out
}

// Days lists the days that hold at least one fragment, ascending.
func (c *Cache) Days() []calendar.Date {
	s := c.load()
	out := make([]calendar.Date, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	slices.SortFunc(out, calendar.Date.Compare)
	return out
}

// All returns every cached fragment, ordered by day.
func (c *Cache) All() []*model.Fragment {
	return c.Range(c.Days())
}

// Len is the number of cached fragments.
func (c *Cache) Len() int {
	n := 0
	for _, b := range c.load().days {
		n += len(b)
	}
	return n
}

// Items returns one copy of every cached item, ordered by id.
func (c *Cache) Items() []model.Item {
	s := c.load()
	ids := make([]int64, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		if f, ok := first(s, id); ok {
			out = append(out, *f.Item)
		}
	}
	return out
}

// Item looks up a cached item by id.
func (c *Cache) Item(id int64) (model.Item, bool) {
	f, ok := first(c.load(), id)
	if !ok {
		return model.Item{}, false
	}
	return *f.Item, true
}

// Fragments returns the fragments of one item sorted by index.
func (c *Cache) Fragments(itemID int64) []*model.Fragment {
	s := c.load()
	var out []*model.Fragment
	for _, day := range s.items[itemID] {
		for _, f := range s.days[day] {
			if f.ItemID() == itemID {
				out = append(out, f)
			}
		}
	}
	slices.SortFunc(out, func(a, b *model.Fragment) int { return a.Index - b.Index })
	return out
}

func first(s *snapshot, id int64) (*model.Fragment, bool) {
	for _, day := range s.items[id] {
		for _, f := range s.days[day] {
			if f.ItemID() == id {
				return f, true
			}
		}
	}
	return nil, false
}

// FindAt hit-tests every cached fragment against its drawn bounds. When
// exactly two fragments are hit, an all-day one wins since the all-day strip
// is drawn above the timed grid. Otherwise the first hit is returned.
func (c *Cache) FindAt(x, y float64) (*model.Fragment, bool) {
	var hits []*model.Fragment
	for _, f := range c.All() {
		if f.IsHit(x, y) {
			hits = append(hits, f)
		}
	}
	switch {
	case len(hits) == 0:
		return nil, false
	case len(hits) == 2:
		if hits[1].IsAllDay() && !hits[0].IsAllDay() {
			return hits[1], true
		}
	}
	return hits[0], true
}
