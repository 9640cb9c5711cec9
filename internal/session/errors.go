package session

import "errors"

// Failures of a call attempt. Store errors such as calls.ErrNotFound stay
// reachable through wrapping.
var (
	ErrValidation       = errors.New("session: validation failed")
	ErrMediaAccess      = errors.New("session: local media unavailable")
	ErrSignaling        = errors.New("session: peer link failed")
	ErrRecordStore      = errors.New("session: call record store failed")
	ErrInvalidState     = errors.New("session: invalid state")
	ErrGuardUnavailable = errors.New("session: live call guard unavailable")
	ErrCanceled         = errors.New("session: call setup canceled")
	ErrConnectTimeout   = errors.New("session: remote media did not arrive in time")
)
