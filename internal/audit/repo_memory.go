package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps the journal of a single process, oldest event first. The
// dialer uses it to report what went wrong with its one call.
type MemoryRepo struct {
	mu     sync.RWMutex
	events []Event
	byCall map[string][]int
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byCall: map[string][]int{}} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.CallID != "" {
		r.byCall[e.CallID] = append(r.byCall[e.CallID], len(r.events))
	}
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, q Query) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Event
	if q.CallID != "" {
		for _, i := range r.byCall[q.CallID] {
			if q.matches(r.events[i]) {
				out = append(out, r.events[i])
			}
		}
		return out, nil
	}
	for _, e := range r.events {
		if q.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
