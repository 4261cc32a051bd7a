package user

import (
	"context"
	"fmt"
	"sync"

	id "residency/pkg/domain"
	"residency/pkg/platform/sentinel"
	"residency/pkg/requestcontext"
)

// InMemoryStore keeps users in memory for tests and development. It enforces
// the same uniqueness contract as the Postgres store.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]*User)}
}

func (s *InMemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email taken: %w", sentinel.ErrAlreadyUsed)
		}
		if existing.PassportNumber == u.PassportNumber {
			return fmt.Errorf("passport number taken: %w", sentinel.ErrAlreadyUsed)
		}
	}
	clone := *u
	s.users[u.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user by email: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) UpdateWallet(ctx context.Context, userID id.UserID, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	u.WalletAddress = wallet
	u.UpdatedAt = requestcontext.Now(ctx)
	return nil
}
