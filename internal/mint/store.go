package mint

import (
	"context"
	"time"

	id "residency/pkg/domain"
)

// Store persists mint records.
//
// Contract:
//   - CreateInFlight is the single-writer guard: it returns
//     sentinel.ErrAlreadyUsed when the application already has a succeeded or
//     in_flight record. Winning this insert is the only license to call the
//     ledger.
//   - MarkSucceeded and MarkFailed only move records out of in_flight and
//     return sentinel.ErrInvalidState otherwise, so a late coordinator and
//     the sweep cannot both resolve the same record.
//   - Find* return sentinel.ErrNotFound when absent.
type Store interface {
	CreateInFlight(ctx context.Context, r *Record) error
	MarkSucceeded(ctx context.Context, recordID id.MintRecordID, tokenID, txHash, contract string, at time.Time) error
	MarkFailed(ctx context.Context, recordID id.MintRecordID, summary string, at time.Time) error
	FindByID(ctx context.Context, recordID id.MintRecordID) (*Record, error)
	FindByApplication(ctx context.Context, appID id.ApplicationID) (*Record, error)
	FindSucceededByUser(ctx context.Context, userID id.UserID) (*Record, error)
	ListStaleInFlight(ctx context.Context, before time.Time) ([]*Record, error)
}
