// Package verify serves the public credential-verification projection. The
// endpoint is unauthenticated, so the projection is the entire disclosure
// surface: holder name, country, residency type, status, issuance time, and
// nothing else.
package verify

import (
	"context"
	"time"

	"residency/internal/application"
	"residency/internal/user"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
)

// Projection is the public view of one application. No document data, wallet,
// or contact details ever appear here.
type Projection struct {
	Name          string     `json:"name"`
	Country       string     `json:"country"`
	ResidencyType string     `json:"residencyType"`
	Status        string     `json:"status"`
	IssuedAt      *time.Time `json:"issuedAt,omitempty"`
}

// ApplicationReader loads the application under verification.
type ApplicationReader interface {
	Get(ctx context.Context, appID id.ApplicationID) (*application.Application, error)
}

// UserReader loads the applicant behind it.
type UserReader interface {
	Get(ctx context.Context, userID id.UserID) (*user.User, error)
}

// Service builds verification projections.
type Service struct {
	apps  ApplicationReader
	users UserReader
	cache *Cache
}

func NewService(apps ApplicationReader, users UserReader, cache *Cache) *Service {
	return &Service{apps: apps, users: users, cache: cache}
}

// Lookup returns the projection for an application id. Every failure mode
// collapses to the same not-found answer so the endpoint leaks nothing about
// which ids exist.
func (s *Service) Lookup(ctx context.Context, appID id.ApplicationID) (Projection, error) {
	if p, ok := s.cache.Get(ctx, appID); ok {
		return p, nil
	}

	a, err := s.apps.Get(ctx, appID)
	if err != nil {
		return Projection{}, notFound()
	}
	u, err := s.users.Get(ctx, a.UserID)
	if err != nil {
		return Projection{}, notFound()
	}

	p := Projection{
		Name:          u.FullName,
		Country:       u.ResidencyType.Country(),
		ResidencyType: string(u.ResidencyType),
		Status:        string(a.Status),
	}
	if a.Status == application.StatusCompleted {
		issued := a.UpdatedAt
		p.IssuedAt = &issued
	}

	s.cache.Set(ctx, appID, p)
	return p, nil
}

func notFound() error {
	return dErrors.New(dErrors.CodeNotFound, "not found")
}
