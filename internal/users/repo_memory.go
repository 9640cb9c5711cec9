package users

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps users in process; used for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	byID    map[string]User
	byEmail map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[string]User{}, byEmail: map[string]string{}}
}

func (r *MemoryRepo) Create(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return ErrConflict
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	out := make([]User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SeedSamples adds the demo profiles shown to new local installs. They have
// no password and cannot log in.
func (r *MemoryRepo) SeedSamples(now time.Time) {
	age := func(n int) *int { return &n }
	samples := []User{
		{
			ID:        "user_1",
			Name:      "Sarah Johnson",
			Email:     "sarah@example.com",
			Age:       age(28),
			Bio:       "Love hiking and photography. Looking for someone to share adventures with!",
			Location:  "San Francisco, CA",
			Interests: []string{"hiking", "photography", "travel", "cooking"},
		},
		{
			ID:        "user_2",
			Name:      "Mike Chen",
			Email:     "mike@example.com",
			Age:       age(32),
			Bio:       "Software engineer by day, chef by night. Passionate about technology and good food.",
			Location:  "Seattle, WA",
			Interests: []string{"coding", "cooking", "gaming", "music"},
		},
		{
			ID:        "user_3",
			Name:      "Emma Davis",
			Email:     "emma@example.com",
			Age:       age(26),
			Bio:       "Artist and yoga instructor. Seeking meaningful connections and deep conversations.",
			Location:  "Austin, TX",
			Interests: []string{"art", "yoga", "meditation", "nature"},
		},
	}
	for _, u := range samples {
		u.CreatedAt = now.UTC()
		u.UpdatedAt = now.UTC()
		_ = r.Create(context.Background(), u)
	}
}
