package mint

import (
	"context"
	"errors"

	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
	"residency/pkg/platform/sentinel"
)

// StatusReader answers minted-or-not queries. The user service consumes it to
// freeze wallet rebinding after a succeeded mint.
type StatusReader struct {
	store Store
}

func NewStatusReader(store Store) *StatusReader {
	return &StatusReader{store: store}
}

// Status reports the user's mint state. Not having minted is a normal answer.
func (s *StatusReader) Status(ctx context.Context, userID id.UserID) (StatusResponse, error) {
	r, err := s.store.FindSucceededByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return StatusResponse{HasMinted: false}, nil
		}
		return StatusResponse{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load mint status")
	}
	return StatusResponse{
		HasMinted:       true,
		TokenID:         r.TokenID,
		TransactionHash: r.TransactionHash,
		ContractAddress: r.ContractAddress,
		MintedAt:        r.MintedAt,
	}, nil
}

// HasSucceededMint reports whether the user holds a succeeded mint.
func (s *StatusReader) HasSucceededMint(ctx context.Context, userID id.UserID) (bool, error) {
	_, err := s.store.FindSucceededByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
