package calls

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestStore(t0 time.Time) *MemoryStore {
	now := t0
	n := 0
	return NewMemoryStore().
		WithClock(func() time.Time {
			now = now.Add(time.Second)
			return now
		}).
		WithIDs(func() string {
			n++
			return fmt.Sprintf("call_%d", n)
		})
}

func TestMemoryStore_CreateAssignsIDAndStart(t *testing.T) {
	t0 := time.Unix(1700000000, 0).UTC()
	s := newTestStore(t0)

	rec, err := s.Create(context.Background(), NewRecord{CallerID: "u1", ReceiverID: "u2"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rec.ID != "call_1" || rec.Status != StatusInitiated {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.StartTime.IsZero() || rec.EndTime != nil || rec.Duration != nil {
		t.Fatalf("unexpected times: %+v", rec)
	}
}

func TestMemoryStore_UpdateUnknownIsNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Update(context.Background(), "nope", Patch{Status: StatusOngoing})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_ListNewestFirstForEitherParticipant(t *testing.T) {
	s := newTestStore(time.Unix(1700000000, 0).UTC())
	ctx := context.Background()

	first, _ := s.Create(ctx, NewRecord{CallerID: "u1", ReceiverID: "u2"})
	_, _ = s.Create(ctx, NewRecord{CallerID: "u3", ReceiverID: "u4"})
	third, _ := s.Create(ctx, NewRecord{CallerID: "u2", ReceiverID: "u1"})

	got, err := s.List(ctx, Filter{UserID: "u1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != third.ID || got[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestMemoryStore_ListRequiresUser(t *testing.T) {
	if _, err := NewMemoryStore().List(context.Background(), Filter{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
