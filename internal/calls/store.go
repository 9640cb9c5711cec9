package calls

import (
	"context"
	"sort"
)

// Store is the persistence contract for call records.
//
// Implementations must assign ID and StartTime on Create, enforce the
// forward-only status machine on Update and return ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, rec NewRecord) (Record, error)
	Update(ctx context.Context, id string, patch Patch) (Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
}

// sortNewestFirst orders records most recent first by StartTime.
func sortNewestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].StartTime.After(recs[j].StartTime)
	})
}
