package httpapi

import (
	"time"

	"dating-platform/internal/auth"
	"dating-platform/internal/calls"
	"dating-platform/internal/chat"
	"dating-platform/internal/users"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth  *auth.Manager
	Calls calls.Store
	Chat  *chat.Service
	Users *users.Service

	// SecureCookies marks the session cookie Secure; enabled in production.
	SecureCookies bool
	Clock         func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}
