package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestService_AppendRequiresUserAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeCallState}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{UserID: "u"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_LogTransition(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogTransition(context.Background(), "u1", "call_1", "idle", "initiating"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs, _ := repo.List(context.Background(), Query{})
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].Type != EventTypeCallState || evs[0].Message != "idle -> initiating" {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
}

func TestService_LogCleanupFailureCarriesCause(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	_ = svc.LogCleanupFailure(context.Background(), "u1", "call_1", "mark_missed", errors.New("store down"))

	evs, _ := repo.List(context.Background(), Query{})
	if len(evs) != 1 || evs[0].Type != EventTypeCallCleanupFailed {
		t.Fatalf("expected cleanup event, got %+v", evs)
	}
	if !strings.Contains(evs[0].Metadata, "store down") {
		t.Fatalf("expected cause in metadata, got %q", evs[0].Metadata)
	}
}

func TestService_HistoryFiltersByCallAndType(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	_ = svc.LogTransition(ctx, "u1", "", "idle", "initiating")
	_ = svc.LogTransition(ctx, "u1", "call_1", "initiating", "connecting")
	_ = svc.LogCleanupFailure(ctx, "u1", "call_1", "close_link", errors.New("dtls"))
	_ = svc.LogTransition(ctx, "u2", "call_2", "initiating", "connecting")

	evs, err := svc.History(ctx, Query{CallID: "call_1"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(evs) != 2 || evs[0].Message != "initiating -> connecting" || evs[1].Type != EventTypeCallCleanupFailed {
		t.Fatalf("unexpected call history: %+v", evs)
	}

	evs, _ = svc.History(ctx, Query{UserID: "u1", Type: EventTypeCallState})
	if len(evs) != 2 {
		t.Fatalf("expected 2 state events for u1, got %d", len(evs))
	}

	evs, _ = svc.History(ctx, Query{CallID: "call_9"})
	if len(evs) != 0 {
		t.Fatalf("expected no events for unknown call, got %d", len(evs))
	}
}

func TestService_HistoryWithoutRepository(t *testing.T) {
	if _, err := (&Service{}).History(context.Background(), Query{}); err == nil {
		t.Fatalf("expected error")
	}
}
