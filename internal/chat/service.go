package chat

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Append(ctx context.Context, m Message) error
	ByChat(ctx context.Context, chatID string) ([]Message, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// WithClock overrides the timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.clock = now
	return s
}

// Fetch returns the messages of chatID, oldest first.
func (s *Service) Fetch(ctx context.Context, chatID string) ([]Message, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, &ValidationError{Problems: []string{"chatId is required"}}
	}
	msgs, err := s.repo.ByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	return msgs, nil
}

func (s *Service) Send(ctx context.Context, in NewMessage) (Message, error) {
	in, err := in.Normalize()
	if err != nil {
		return Message{}, err
	}
	m := Message{
		ID:         "msg_" + uuid.NewString(),
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		Content:    in.Content,
		ChatID:     in.ChatID,
		Timestamp:  s.clock().UTC(),
	}
	if err := s.repo.Append(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}
