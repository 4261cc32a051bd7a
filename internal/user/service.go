package user

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"residency/internal/events"
	"residency/internal/platform/metrics"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/platform/sentinel"
	"residency/pkg/requestcontext"
)

// MintChecker reports whether the user already holds a succeeded mint. Wallet
// rebinding is frozen once a credential is on the ledger.
type MintChecker interface {
	HasSucceededMint(ctx context.Context, userID id.UserID) (bool, error)
}

// Service orchestrates registration and wallet binding.
type Service struct {
	store   Store
	mints   MintChecker
	events  events.Publisher
	metrics *metrics.Metrics
}

func NewService(store Store, mints MintChecker, publisher events.Publisher, m *metrics.Metrics) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{store: store, mints: mints, events: publisher, metrics: m}
}

// Register creates a user. Email and passport number collisions surface as
// conflicts; the password is hashed before it ever reaches a store.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}
	residency, err := id.ParseResidencyType(req.ResidencyType)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	u := &User{
		ID:             id.NewUserID(),
		Email:          NormalizeEmail(req.Email),
		PassportNumber: strings.TrimSpace(req.PassportNumber),
		FullName:       strings.TrimSpace(req.FullName),
		PasswordHash:   string(hash),
		ResidencyType:  residency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "email or passport number already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.IncUsersCreated()
	s.events.Emit(ctx, events.Event{Name: events.EventUserRegistered, UserID: u.ID})
	return u, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*User, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

// BindWallet attaches a wallet address to the user. Binding the same address
// again is a no-op. Binding a different address is allowed until a mint has
// succeeded; after that the wallet is frozen to match the ledger.
func (s *Service) BindWallet(ctx context.Context, userID id.UserID, wallet string) (*User, error) {
	if err := ValidateWalletAddress(wallet); err != nil {
		return nil, err
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(u.WalletAddress, wallet) {
		return u, nil
	}

	if u.WalletAddress != "" {
		minted, err := s.mints.HasSucceededMint(ctx, userID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check mint history")
		}
		if minted {
			return nil, dErrors.New(dErrors.CodeConflict, "wallet is bound to a minted credential and cannot change")
		}
	}

	if err := s.store.UpdateWallet(ctx, userID, wallet); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind wallet")
	}
	u.WalletAddress = wallet

	s.events.Emit(ctx, events.Event{Name: events.EventWalletBound, UserID: userID, Detail: wallet})
	return u, nil
}

// ResolveWallet returns the address minting should target. A non-empty wallet
// is bound first, so the first mint establishes the binding; with no wallet in
// the request the stored binding is used.
func (s *Service) ResolveWallet(ctx context.Context, userID id.UserID, wallet string) (string, error) {
	if wallet != "" {
		u, err := s.BindWallet(ctx, userID, wallet)
		if err != nil {
			return "", err
		}
		return u.WalletAddress, nil
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.WalletAddress == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "no wallet address bound")
	}
	return u.WalletAddress, nil
}
