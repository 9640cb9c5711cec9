package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Message is one chat line between two users.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	ChatID     string    `json:"chatId"`
	Timestamp  time.Time `json:"timestamp"`
}

var ErrValidation = errors.New("chat: validation failed")

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "chat: validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

const maxContentLen = 1000

// NewMessage is the send payload; the service assigns ID and Timestamp.
type NewMessage struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	ChatID     string `json:"chatId"`
}

func (n NewMessage) Normalize() (NewMessage, error) {
	n.SenderID = strings.TrimSpace(n.SenderID)
	n.ReceiverID = strings.TrimSpace(n.ReceiverID)
	n.ChatID = strings.TrimSpace(n.ChatID)

	var problems []string
	if n.SenderID == "" {
		problems = append(problems, "senderId is required")
	}
	if n.ReceiverID == "" {
		problems = append(problems, "receiverId is required")
	}
	if n.ChatID == "" {
		problems = append(problems, "chatId is required")
	}
	switch l := utf8.RuneCountInString(n.Content); {
	case l == 0:
		problems = append(problems, "message content is required")
	case l > maxContentLen:
		problems = append(problems, fmt.Sprintf("message too long (max %d characters)", maxContentLen))
	}
	if len(problems) > 0 {
		return NewMessage{}, &ValidationError{Problems: problems}
	}
	return n, nil
}
