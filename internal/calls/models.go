package calls

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Record is the durable metadata of one call attempt between two users.
//
// Invariant: EndTime and Duration are set if and only if Status == StatusEnded.
// StartTime is assigned by the store on creation and never changes afterwards.
type Record struct {
	ID         string `json:"id" db:"id"`
	CallerID   string `json:"callerId" db:"caller_id"`
	ReceiverID string `json:"receiverId" db:"receiver_id"`

	Status Status `json:"status" db:"status"`

	StartTime time.Time  `json:"startTime" db:"start_time"`
	EndTime   *time.Time `json:"endTime,omitempty" db:"end_time"`

	// Duration is whole minutes between StartTime and EndTime, rounded half up.
	Duration *int `json:"duration,omitempty" db:"duration"`
}

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusOngoing   Status = "ongoing"
	StatusEnded     Status = "ended"
	StatusMissed    Status = "missed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInitiated, StatusOngoing, StatusEnded, StatusMissed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusMissed
}

// CanTransition reports whether a record in status from may move to status to.
// Status only moves forward; ended and missed are terminal.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	switch from {
	case StatusInitiated:
		return true
	case StatusOngoing:
		return to != StatusInitiated
	default:
		return false
	}
}

var (
	ErrValidation        = errors.New("calls: validation failed")
	ErrNotFound          = errors.New("calls: call not found")
	ErrInvalidTransition = errors.New("calls: invalid status transition")
)

// NewRecord is the caller-supplied part of a record; the store assigns ID and StartTime.
type NewRecord struct {
	CallerID   string `json:"callerId"`
	ReceiverID string `json:"receiverId"`
	Status     Status `json:"status,omitempty"`
}

// Normalize trims ids, defaults the status and validates the request.
func (n NewRecord) Normalize() (NewRecord, error) {
	n.CallerID = strings.TrimSpace(n.CallerID)
	n.ReceiverID = strings.TrimSpace(n.ReceiverID)
	if n.Status == "" {
		n.Status = StatusInitiated
	}

	var problems []string
	if n.CallerID == "" {
		problems = append(problems, "callerId is required")
	}
	if n.ReceiverID == "" {
		problems = append(problems, "receiverId is required")
	}
	if n.CallerID != "" && n.CallerID == n.ReceiverID {
		problems = append(problems, "callerId and receiverId must differ")
	}
	if !n.Status.Valid() {
		problems = append(problems, fmt.Sprintf("unknown status %q", n.Status))
	} else if n.Status.Terminal() {
		problems = append(problems, fmt.Sprintf("a call cannot be created as %q", n.Status))
	}
	if len(problems) > 0 {
		return NewRecord{}, &ValidationError{Problems: problems}
	}
	return n, nil
}

// Patch is a partial update of a record.
type Patch struct {
	Status  Status     `json:"status"`
	EndTime *time.Time `json:"endTime,omitempty"`
}

// Filter selects records where the user is either caller or receiver.
type Filter struct {
	UserID string
}

// ValidationError carries the individual problems of a rejected request.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "calls: validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ApplyPatch returns rec with p applied at time now.
//
// An ended patch without an end time is stamped with now. An end time on any
// other status is rejected so the end-time invariant cannot be broken.
func ApplyPatch(rec Record, p Patch, now time.Time) (Record, error) {
	if !p.Status.Valid() {
		return Record{}, &ValidationError{Problems: []string{fmt.Sprintf("unknown status %q", p.Status)}}
	}
	if p.EndTime != nil && p.Status != StatusEnded {
		return Record{}, &ValidationError{Problems: []string{"endTime is only allowed with status ended"}}
	}
	if !CanTransition(rec.Status, p.Status) {
		return Record{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, p.Status)
	}

	rec.Status = p.Status
	if p.Status != StatusEnded {
		return rec, nil
	}

	end := now.UTC()
	if p.EndTime != nil {
		end = p.EndTime.UTC()
	}
	d := DurationMinutes(rec.StartTime, end)
	rec.EndTime = &end
	rec.Duration = &d
	return rec, nil
}

// DurationMinutes rounds the elapsed time between start and end to whole
// minutes, half up. A negative span (clock skew) yields 0.
func DurationMinutes(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int((ms + 30_000) / 60_000)
}
