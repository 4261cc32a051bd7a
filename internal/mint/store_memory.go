package mint

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "residency/pkg/domain"
	"residency/pkg/platform/sentinel"
)

// InMemoryStore keeps mint records in memory for tests and development. The
// guard and conditional-resolution semantics match the Postgres store, so the
// coordinator and sweep behave identically against either.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.MintRecordID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.MintRecordID]*Record)}
}

func (s *InMemoryStore) CreateInFlight(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.ApplicationID == r.ApplicationID && existing.Outcome != OutcomeFailed {
			return fmt.Errorf("application %s already has a %s mint: %w",
				r.ApplicationID, existing.Outcome, sentinel.ErrAlreadyUsed)
		}
	}
	clone := *r
	clone.Outcome = OutcomeInFlight
	s.records[r.ID] = &clone
	r.Outcome = OutcomeInFlight
	return nil
}

func (s *InMemoryStore) MarkSucceeded(_ context.Context, recordID id.MintRecordID, tokenID, txHash, contract string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return fmt.Errorf("mint record %s: %w", recordID, sentinel.ErrNotFound)
	}
	if r.Outcome != OutcomeInFlight {
		return fmt.Errorf("mint record %s is %s: %w", recordID, r.Outcome, sentinel.ErrInvalidState)
	}
	r.Outcome = OutcomeSucceeded
	r.TokenID = tokenID
	r.TransactionHash = txHash
	r.ContractAddress = contract
	minted := at
	r.MintedAt = &minted
	return nil
}

func (s *InMemoryStore) MarkFailed(_ context.Context, recordID id.MintRecordID, summary string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return fmt.Errorf("mint record %s: %w", recordID, sentinel.ErrNotFound)
	}
	if r.Outcome != OutcomeInFlight {
		return fmt.Errorf("mint record %s is %s: %w", recordID, r.Outcome, sentinel.ErrInvalidState)
	}
	r.Outcome = OutcomeFailed
	r.ErrorSummary = summary
	minted := at
	r.MintedAt = &minted
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.MintRecordID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[recordID]; ok {
		return cloneRecord(r), nil
	}
	return nil, fmt.Errorf("mint record %s: %w", recordID, sentinel.ErrNotFound)
}

// FindByApplication returns the application's active record, the succeeded or
// in_flight one the guard index makes unique.
func (s *InMemoryStore) FindByApplication(_ context.Context, appID id.ApplicationID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ApplicationID == appID && r.Outcome != OutcomeFailed {
			return cloneRecord(r), nil
		}
	}
	return nil, fmt.Errorf("application %s has no active mint: %w", appID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindSucceededByUser(_ context.Context, userID id.UserID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.UserID == userID && r.Outcome == OutcomeSucceeded {
			return cloneRecord(r), nil
		}
	}
	return nil, fmt.Errorf("user %s has no succeeded mint: %w", userID, sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListStaleInFlight(_ context.Context, before time.Time) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, r := range s.records {
		if r.Outcome == OutcomeInFlight && r.StartedAt.Before(before) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func cloneRecord(r *Record) *Record {
	clone := *r
	if r.MintedAt != nil {
		minted := *r.MintedAt
		clone.MintedAt = &minted
	}
	return &clone
}
