package local

import (
	"context"
	"strings"
	"sync"
)

// User is the account a reset link is issued for.
type User struct {
	ID    string
	Email string
}

// UserLookup finds the account registered under an email address.
// found=false with a nil error means no such account.
type UserLookup interface {
	LookupByEmail(ctx context.Context, email string) (user User, found bool, err error)
}

// UserLookupFunc adapts a function to UserLookup.
type UserLookupFunc func(ctx context.Context, email string) (User, bool, error)

func (f UserLookupFunc) LookupByEmail(ctx context.Context, email string) (User, bool, error) {
	return f(ctx, email)
}

// StaticUsers is an in-memory UserLookup keyed by lower-cased email.
type StaticUsers struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewStaticUsers(users ...User) *StaticUsers {
	s := &StaticUsers{users: make(map[string]User, len(users))}
	for _, u := range users {
		s.Add(u)
	}
	return s
}

func (s *StaticUsers) Add(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[normalizeEmail(u.Email)] = u
}

func (s *StaticUsers) LookupByEmail(_ context.Context, email string) (User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[normalizeEmail(email)]
	return u, ok, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
