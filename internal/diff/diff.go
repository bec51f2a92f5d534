// Package diff computes which items changed between two submissions so only
// their fragments need to be rebuilt.
package diff

import "weekcal/internal/model"

// Result lists the items whose fragments must be rebuilt and the items whose
// fragments must be dropped.
type Result struct {
	AddOrUpdate []model.Item
	Remove      []model.Item
}

// Empty reports whether nothing changed.
func (r Result) Empty() bool {
	return len(r.AddOrUpdate) == 0 && len(r.Remove) == 0
}

// Diff compares existing against incoming by id. New ids and ids whose item
// differs in any field end up in AddOrUpdate (new ones first, then changed
// ones, each in incoming order); ids missing from incoming end up in Remove.
// Unchanged items appear in neither.
func Diff(existing, incoming []model.Item) Result {
	existingByID := make(map[int64]model.Item, len(existing))
	for _, item := range existing {
		existingByID[item.ID] = item
	}
	incomingIDs := make(map[int64]struct{}, len(incoming))
	for _, item := range incoming {
		incomingIDs[item.ID] = struct{}{}
	}

	var added, changed []model.Item
	for _, item := range incoming {
		prev, ok := existingByID[item.ID]
		switch {
		case !ok:
			added = append(added, item)
		case !prev.Equal(item):
			changed = append(changed, item)
		}
	}

	var removed []model.Item
	for _, item := range existing {
		if _, ok := incomingIDs[item.ID]; !ok {
			removed = append(removed, item)
		}
	}

	return Result{
		AddOrUpdate: append(added, changed...),
		Remove:      removed,
	}
}
