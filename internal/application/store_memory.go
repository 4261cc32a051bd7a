package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "residency/pkg/domain"
	"residency/pkg/platform/sentinel"
)

// InMemoryStore keeps applications in memory for tests and development. Its
// UpdateStatus honors the same conditional-write contract as Postgres.
type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*Application
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{apps: make(map[id.ApplicationID]*Application)}
}

func (s *InMemoryStore) Create(_ context.Context, a *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cloneApp(a)
	s.apps[a.ID] = clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, appID id.ApplicationID) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.apps[appID]; ok {
		return cloneApp(a), nil
	}
	return nil, fmt.Errorf("application %s: %w", appID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(a *Application) bool { return a.UserID == userID }), nil
}

func (s *InMemoryStore) ListByUserAndStatus(_ context.Context, userID id.UserID, status Status) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(a *Application) bool { return a.UserID == userID && a.Status == status }), nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, appID id.ApplicationID, from, to Status, reviewerID, notes string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return fmt.Errorf("application %s: %w", appID, sentinel.ErrNotFound)
	}
	if a.Status != from {
		return fmt.Errorf("application %s is %s, not %s: %w", appID, a.Status, from, sentinel.ErrInvalidState)
	}
	a.Status = to
	if reviewerID != "" {
		a.ReviewerID = reviewerID
	}
	if notes != "" {
		a.Notes = notes
	}
	a.UpdatedAt = at
	return nil
}

func (s *InMemoryStore) AttachDocument(_ context.Context, appID id.ApplicationID, ref DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return fmt.Errorf("application %s: %w", appID, sentinel.ErrNotFound)
	}
	a.Documents = append(a.Documents, ref)
	return nil
}

func (s *InMemoryStore) collect(match func(*Application) bool) []*Application {
	var out []*Application
	for _, a := range s.apps {
		if match(a) {
			out = append(out, cloneApp(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

func cloneApp(a *Application) *Application {
	clone := *a
	clone.Documents = append([]DocumentRef(nil), a.Documents...)
	return &clone
}
