package calls

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used in tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	order   []string

	// clock and newID are injectable for deterministic tests.
	clock func() time.Time
	newID func() string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string]Record{},
		clock:   time.Now,
		newID:   func() string { return "call_" + uuid.NewString() },
	}
}

// WithClock overrides the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = now
	return s
}

// WithIDs overrides id generation.
func (s *MemoryStore) WithIDs(next func() string) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newID = next
	return s
}

func (s *MemoryStore) Create(ctx context.Context, in NewRecord) (Record, error) {
	in, err := in.Normalize()
	if err != nil {
		return Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := Record{
		ID:         s.newID(),
		CallerID:   in.CallerID,
		ReceiverID: in.ReceiverID,
		Status:     in.Status,
		StartTime:  s.clock().UTC(),
	}
	if _, exists := s.records[rec.ID]; exists {
		return Record{}, errors.New("calls: duplicate call id")
	}
	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)
	return rec, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, p Patch) (Record, error) {
	if id == "" {
		return Record{}, &ValidationError{Problems: []string{"callId is required"}}
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	updated, err := ApplyPatch(rec, p, s.clock())
	if err != nil {
		return Record{}, err
	}
	s.records[id] = updated
	return updated, nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Record, error) {
	if f.UserID == "" {
		return nil, &ValidationError{Problems: []string{"userId is required"}}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	out := make([]Record, 0)
	for _, id := range s.order {
		rec := s.records[id]
		if rec.CallerID == f.UserID || rec.ReceiverID == f.UserID {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()

	sortNewestFirst(out)
	return out, nil
}
