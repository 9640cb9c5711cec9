package audit

import "time"

// Event is one append-only entry in the call lifecycle journal.
//
// Events are never updated or deleted. Writing them is best-effort: a
// failed append must never block or fail a call operation.
type Event struct {
	ID     string    `json:"id" db:"id"`
	UserID string    `json:"user_id" db:"user_id"`
	CallID string    `json:"call_id,omitempty" db:"call_id"`
	Type   EventType `json:"type" db:"type"`

	// Message is a short description, e.g. "initiating -> connecting".
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallState         EventType = "call_state"
	EventTypeCallCleanupFailed EventType = "call_cleanup_failed"
)

// Query filters journal events; empty fields match everything.
type Query struct {
	UserID string
	CallID string
	Type   EventType
}

func (q Query) matches(e Event) bool {
	return (q.UserID == "" || e.UserID == q.UserID) &&
		(q.CallID == "" || e.CallID == q.CallID) &&
		(q.Type == "" || e.Type == q.Type)
}
