package document

import (
	"context"
	"time"

	id "residency/pkg/domain"
)

// Store is the durable document store.
//
// Error contract: Find returns sentinel.ErrNotFound (wrapped) for missing
// documents; UpdateStatus returns sentinel.ErrInvalidState when the current
// status forbids the transition, leaving the row untouched.
type Store interface {
	Create(ctx context.Context, d *Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*Document, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Document, error)
	// ListByUserAndStatus backs the (user, status) access pattern used by the
	// approval gate.
	ListByUserAndStatus(ctx context.Context, userID id.UserID, status Status) ([]*Document, error)
	// UpdateStatus applies a review transition as a conditional write on the
	// current status.
	UpdateStatus(ctx context.Context, docID id.DocumentID, from, to Status, reviewedAt time.Time) error
	// ExpireElapsed marks pending documents whose expiry has passed and
	// returns them for artifact cleanup.
	ExpireElapsed(ctx context.Context, now time.Time) ([]*Document, error)
}
