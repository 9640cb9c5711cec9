package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for journal events. Append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, q Query) ([]Event, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.UserID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// History returns the events matching q, oldest first.
func (s *Service) History(ctx context.Context, q Query) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.List(ctx, q)
}

// LogTransition records a session moving between lifecycle states.
func (s *Service) LogTransition(ctx context.Context, userID, callID, from, to string) error {
	return s.Append(ctx, Event{
		UserID:  userID,
		CallID:  callID,
		Type:    EventTypeCallState,
		Message: from + " -> " + to,
	})
}

// LogCleanupFailure records a resource that could not be released or a
// record update that failed during teardown.
func (s *Service) LogCleanupFailure(ctx context.Context, userID, callID, step string, cause error) error {
	meta, _ := json.Marshal(map[string]string{"step": step, "error": errString(cause)})
	return s.Append(ctx, Event{
		UserID:   userID,
		CallID:   callID,
		Type:     EventTypeCallCleanupFailed,
		Message:  step + " failed",
		Metadata: string(meta),
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
