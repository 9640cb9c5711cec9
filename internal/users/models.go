package users

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// User is a dating profile. PasswordHash never leaves the service layer.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Age          *int      `json:"age,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Location     string    `json:"location,omitempty"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Interests    []string  `json:"interests"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	PasswordHash string `json:"-"`
}

var (
	ErrValidation         = errors.New("users: validation failed")
	ErrNotFound           = errors.New("users: not found")
	ErrConflict           = errors.New("users: email already registered")
	ErrInvalidCredentials = errors.New("users: invalid credentials")
)

// ValidationError lists every field problem of a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "users: validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Registration is the sign-up payload.
type Registration struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Age          *int     `json:"age,omitempty"`
	Bio          string   `json:"bio,omitempty"`
	Location     string   `json:"location,omitempty"`
	ProfileImage string   `json:"profileImage,omitempty"`
	Interests    []string `json:"interests,omitempty"`
}

const (
	minNameLen     = 2
	minPasswordLen = 6
	minAge         = 18
	maxBioLen      = 500
)

// Normalize trims fields, lowercases the email and validates the payload.
func (r Registration) Normalize() (Registration, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Location = strings.TrimSpace(r.Location)

	var problems []string
	if utf8.RuneCountInString(r.Name) < minNameLen {
		problems = append(problems, fmt.Sprintf("name must be at least %d characters", minNameLen))
	}
	if !validEmail(r.Email) {
		problems = append(problems, "invalid email address")
	}
	if len(r.Password) < minPasswordLen {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if r.Age != nil && *r.Age < minAge {
		problems = append(problems, fmt.Sprintf("must be at least %d years old", minAge))
	}
	if utf8.RuneCountInString(r.Bio) > maxBioLen {
		problems = append(problems, fmt.Sprintf("bio must be at most %d characters", maxBioLen))
	}

	interests := make([]string, 0, len(r.Interests))
	for _, i := range r.Interests {
		if i = strings.TrimSpace(i); i != "" {
			interests = append(interests, i)
		}
	}
	r.Interests = interests

	if len(problems) > 0 {
		return Registration{}, &ValidationError{Problems: problems}
	}
	return r, nil
}

func validEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
