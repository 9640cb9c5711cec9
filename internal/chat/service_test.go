package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSendValidation(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	cases := []NewMessage{
		{SenderID: "", ReceiverID: "b", ChatID: "c", Content: "hi"},
		{SenderID: "a", ReceiverID: "b", ChatID: "", Content: "hi"},
		{SenderID: "a", ReceiverID: "b", ChatID: "c", Content: ""},
		{SenderID: "a", ReceiverID: "b", ChatID: "c", Content: strings.Repeat("x", 1001)},
	}
	for i, in := range cases {
		if _, err := svc.Send(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}

	if _, err := svc.Send(context.Background(), NewMessage{SenderID: "a", ReceiverID: "b", ChatID: "c", Content: strings.Repeat("x", 1000)}); err != nil {
		t.Fatalf("1000 characters must be accepted: %v", err)
	}
}

func TestFetchOrdersOldestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Unix(1700000000, 0).UTC()

	// Appended out of order on purpose.
	_ = repo.Append(context.Background(), Message{ID: "m2", ChatID: "c", Timestamp: base.Add(2 * time.Second)})
	_ = repo.Append(context.Background(), Message{ID: "m1", ChatID: "c", Timestamp: base.Add(time.Second)})
	_ = repo.Append(context.Background(), Message{ID: "x", ChatID: "other", Timestamp: base})

	msgs, err := NewService(repo).Fetch(context.Background(), "c")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("unexpected order: %+v", msgs)
	}

	if _, err := NewService(repo).Fetch(context.Background(), " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty chat id, got %v", err)
	}
}

func TestSendStampsMessage(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := NewService(NewMemoryRepo()).WithClock(func() time.Time { return now })

	m, err := svc.Send(context.Background(), NewMessage{SenderID: "a", ReceiverID: "b", ChatID: "c", Content: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.HasPrefix(m.ID, "msg_") || !m.Timestamp.Equal(now) {
		t.Fatalf("unexpected message: %+v", m)
	}
}
