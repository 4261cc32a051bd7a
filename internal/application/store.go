package application

import (
	"context"
	"time"

	id "residency/pkg/domain"
)

// Store is the durable application store.
//
// Error contract:
//   - FindByID returns sentinel.ErrNotFound (wrapped) for missing rows.
//   - UpdateStatus is a conditional write on the current status and returns
//     sentinel.ErrInvalidState when the row is not in `from`, leaving it
//     untouched. This is what serializes per-application mutations across
//     concurrent requests and replicas.
type Store interface {
	Create(ctx context.Context, a *Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*Application, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Application, error)
	ListByUserAndStatus(ctx context.Context, userID id.UserID, status Status) ([]*Application, error)
	UpdateStatus(ctx context.Context, appID id.ApplicationID, from, to Status, reviewerID, notes string, at time.Time) error
	AttachDocument(ctx context.Context, appID id.ApplicationID, ref DocumentRef) error
}
