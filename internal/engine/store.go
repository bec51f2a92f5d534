package engine

import (
	"slices"
	"sync"

	"weekcal/internal/calendar"
	"weekcal/internal/model"
)

// Store keeps the most recently submitted items so a dragged item can be
// looked up and replaced by id.
type Store interface {
	Update(items []model.Item)
	// Upsert replaces an already stored item with the same id. Unknown ids
	// are ignored.
	Upsert(item model.Item)
	Get(id int64) (model.Item, bool)
	Items() []model.Item
	Clear()
}

// SimpleStore replaces its whole content on every Update.
type SimpleStore struct {
	mu    sync.RWMutex
	items []model.Item
}

func NewSimpleStore() *SimpleStore {
	return &SimpleStore{}
}

func (s *SimpleStore) Update(items []model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(items)
}

func (s *SimpleStore) Upsert(item model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.IndexFunc(s.items, func(it model.Item) bool { return it.ID == item.ID }); i >= 0 {
		s.items[i] = item
	}
}

func (s *SimpleStore) Get(id int64) (model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return model.Item{}, false
}

func (s *SimpleStore) Items() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *SimpleStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// PaginatedStore groups items by the month they start in. An Update only
// replaces the months present in the update, so pages can be loaded one at a
// time as the visible range moves.
type PaginatedStore struct {
	mu       sync.RWMutex
	byPeriod map[calendar.Period][]model.Item
}

func NewPaginatedStore() *PaginatedStore {
	return &PaginatedStore{byPeriod: map[calendar.Period][]model.Item{}}
}

func (s *PaginatedStore) Update(items []model.Item) {
	grouped := map[calendar.Period][]model.Item{}
	for _, it := range items {
		p := it.Period()
		grouped[p] = append(grouped[p], it)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for p, its := range grouped {
		s.byPeriod[p] = its
	}
}

// Upsert moves the stored item into the period of the new value. If that
// period was never loaded the item is dropped from the store.
func (s *PaginatedStore) Upsert(item model.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for p, its := range s.byPeriod {
		n := len(its)
		its = slices.DeleteFunc(its, func(it model.Item) bool { return it.ID == item.ID })
		if len(its) != n {
			found = true
			s.byPeriod[p] = its
		}
	}
	if !found {
		return
	}
	if its, ok := s.byPeriod[item.Period()]; ok {
		s.byPeriod[item.Period()] = append(its, item)
	}
}

func (s *PaginatedStore) Get(id int64) (model.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, its := range s.byPeriod {
		for _, it := range its {
			if it.ID == id {
				return it, true
			}
		}
	}
	return model.Item{}, false
}

// Items returns every stored item, ordered by period.
func (s *PaginatedStore) Items() []model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods := make([]calendar.Period, 0, len(s.byPeriod))
	for p := range s.byPeriod {
		periods = append(periods, p)
	}
	slices.SortFunc(periods, comparePeriods)

	var out []model.Item
	for _, p := range periods {
		out = append(out, s.byPeriod[p]...)
	}
	return out
}

// Reserve marks a period as loaded before its items arrive, so it is not
// requested twice.
func (s *PaginatedStore) Reserve(p calendar.Period) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPeriod[p]; !ok {
		s.byPeriod[p] = []model.Item{}
	}
}

func (s *PaginatedStore) Contains(p calendar.Period) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPeriod[p]
	return ok
}

// ContainsRange reports whether every period of r is loaded.
func (s *PaginatedStore) ContainsRange(r calendar.FetchRange) bool {
	return len(s.PeriodsToFetch(r)) == 0
}

// PeriodsToFetch lists the periods of r that are not loaded yet.
func (s *PaginatedStore) PeriodsToFetch(r calendar.FetchRange) []calendar.Period {
	var out []calendar.Period
	for _, p := range r.Periods() {
		if !s.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *PaginatedStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.byPeriod)
}

func comparePeriods(a, b calendar.Period) int {
	return a.StartDate().Compare(b.StartDate())
}
