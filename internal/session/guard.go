package session

import (
	"context"
	"sync"
	"time"

	"dating-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Guard enforces at most one live call per user across managers.
type Guard interface {
	// Acquire returns false when userID already holds a live call.
	Acquire(ctx context.Context, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

// LocalGuard is an in-process Guard.
type LocalGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{busy: make(map[string]struct{})}
}

func (g *LocalGuard) Acquire(ctx context.Context, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[userID]; ok {
		return false, nil
	}
	g.busy[userID] = struct{}{}
	return true, nil
}

func (g *LocalGuard) Release(ctx context.Context, userID string) error {
	g.mu.Lock()
	delete(g.busy, userID)
	g.mu.Unlock()
	return nil
}

// RedisGuard shares the one-call-per-user cap between processes. The TTL
// frees the slot of a process that died mid-call.
type RedisGuard struct {
	rdb    redis.Scripter
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(rdb redis.Scripter, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisGuard{rdb: rdb, prefix: "dating:calls:active:", ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, userID string) (bool, error) {
	return utils.AcquireSlot(ctx, g.rdb, g.prefix+userID, 1, g.ttl)
}

func (g *RedisGuard) Release(ctx context.Context, userID string) error {
	return utils.ReleaseSlot(ctx, g.rdb, g.prefix+userID)
}
