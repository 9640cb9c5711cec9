package chat

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu    sync.Mutex
	chats map[string][]Message
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{chats: map[string][]Message{}} }

func (r *MemoryRepo) Append(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[m.ChatID] = append(r.chats[m.ChatID], m)
	return nil
}

func (r *MemoryRepo) ByChat(ctx context.Context, chatID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.chats[chatID]))
	copy(out, r.chats[chatID])
	return out, nil
}
