package user

import (
	"context"

	id "residency/pkg/domain"
)

// Store is the durable user store.
//
// Error contract:
//   - Create returns sentinel.ErrAlreadyUsed (wrapped) when email or passport
//     number collides.
//   - Find* return sentinel.ErrNotFound (wrapped) for missing users.
//   - UpdateWallet is a plain update; callers decide binding rules.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateWallet(ctx context.Context, userID id.UserID, wallet string) error
}
