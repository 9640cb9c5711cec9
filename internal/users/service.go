package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Repository is the persistence contract for users.
type Repository interface {
	Create(ctx context.Context, u User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
	cost  int
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now, cost: bcrypt.DefaultCost}
}

// WithHashCost lowers the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

func (s *Service) Register(ctx context.Context, r Registration) (User, error) {
	r, err := r.Normalize()
	if err != nil {
		return User{}, err
	}

	if _, err := s.repo.FindByEmail(ctx, r.Email); err == nil {
		return User{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return User{}, err
	}

	now := s.clock().UTC()
	u := User{
		ID:           "user_" + uuid.NewString(),
		Email:        r.Email,
		Name:         r.Name,
		Age:          r.Age,
		Bio:          r.Bio,
		Location:     r.Location,
		ProfileImage: r.ProfileImage,
		Interests:    r.Interests,
		CreatedAt:    now,
		UpdatedAt:    now,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login checks the credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validEmail(email) || password == "" {
		return User{}, &ValidationError{Problems: []string{"email and password are required"}}
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if u.PasswordHash == "" {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// List returns browseable profiles, newest first.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}
