package document

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "residency/pkg/domain"
	"residency/pkg/platform/sentinel"
)

// InMemoryStore keeps documents in memory for tests and development.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[id.DocumentID]*Document)}
}

func (s *InMemoryStore) Create(_ context.Context, d *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *d
	s.docs[d.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.docs[docID]; ok {
		clone := *d
		return &clone, nil
	}
	return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(d *Document) bool { return d.UserID == userID }), nil
}

func (s *InMemoryStore) ListByUserAndStatus(_ context.Context, userID id.UserID, status Status) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(d *Document) bool { return d.UserID == userID && d.Status == status }), nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, docID id.DocumentID, from, to Status, reviewedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[docID]
	if !ok {
		return fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	if d.Status != from {
		return fmt.Errorf("document %s is %s, not %s: %w", docID, d.Status, from, sentinel.ErrInvalidState)
	}
	d.Status = to
	d.ReviewedAt = &reviewedAt
	return nil
}

func (s *InMemoryStore) ExpireElapsed(_ context.Context, now time.Time) ([]*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*Document
	for _, d := range s.docs {
		if d.Status != StatusPending || d.ExpiresAt == nil || d.ExpiresAt.After(now) {
			continue
		}
		d.Status = StatusExpired
		clone := *d
		expired = append(expired, &clone)
	}
	return expired, nil
}

// collect snapshots matching documents ordered by upload time.
func (s *InMemoryStore) collect(match func(*Document) bool) []*Document {
	var out []*Document
	for _, d := range s.docs {
		if match(d) {
			clone := *d
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out
}
