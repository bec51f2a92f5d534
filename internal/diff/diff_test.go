package diff

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"weekcal/internal/model"
)

var base = time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

func item(id int64, hours int) model.Item {
	return model.Item{
		ID:    id,
		Title: "Title",
		Timing: model.Bounded{
			Start: base,
			End:   base.Add(time.Duration(hours) * time.Hour),
		},
	}
}

func ids(items []model.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestDiff(t *testing.T) {
	a := item(1, 1)
	b := item(2, 1)
	aLater := item(1, 2)

	tests := []struct {
		name       string
		existing   []model.Item
		incoming   []model.Item
		wantAdd    []int64
		wantRemove []int64
	}{
		{
			name:       "empty existing and new",
			wantAdd:    []int64{},
			wantRemove: []int64{},
		},
		{
			name:       "new items are added",
			incoming:   []model.Item{a, b},
			wantAdd:    []int64{1, 2},
			wantRemove: []int64{},
		},
		{
			name:       "updated item is re-added",
			existing:   []model.Item{a},
			incoming:   []model.Item{aLater},
			wantAdd:    []int64{1},
			wantRemove: []int64{},
		},
		{
			name:       "new and updated together",
			existing:   []model.Item{a},
			incoming:   []model.Item{aLater, b},
			wantAdd:    []int64{2, 1},
			wantRemove: []int64{},
		},
		{
			name:       "removed item",
			existing:   []model.Item{a},
			wantAdd:    []int64{},
			wantRemove: []int64{1},
		},
		{
			name:       "unchanged items are no-ops",
			existing:   []model.Item{a, b},
			incoming:   []model.Item{b, a},
			wantAdd:    []int64{},
			wantRemove: []int64{},
		},
		{
			name:       "equal items with different ids are separate",
			existing:   []model.Item{a},
			incoming:   []model.Item{func() model.Item { x := a; x.ID = 99; return x }()},
			wantAdd:    []int64{99},
			wantRemove: []int64{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.existing, tt.incoming)
			if d := cmp.Diff(tt.wantAdd, ids(got.AddOrUpdate)); d != "" {
				t.Errorf("AddOrUpdate mismatch (-want +got):\n%s", d)
			}
			if d := cmp.Diff(tt.wantRemove, ids(got.Remove)); d != "" {
				t.Errorf("Remove mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestDiffReturnsNewValue(t *testing.T) {
	got := Diff([]model.Item{item(1, 1)}, []model.Item{item(1, 3)})
	if len(got.AddOrUpdate) != 1 {
		t.Fatalf("AddOrUpdate len = %d, want 1", len(got.AddOrUpdate))
	}
	if d := got.AddOrUpdate[0].Duration(); d != 3*time.Hour {
		t.Errorf("returned item duration = %v, want the new value", d)
	}
}

func TestResultEmpty(t *testing.T) {
	if !(Result{}).Empty() {
		t.Error("zero Result should be empty")
	}
	if (Result{Remove: []model.Item{item(1, 1)}}).Empty() {
		t.Error("Result with removals should not be empty")
	}
}
