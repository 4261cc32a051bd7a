// Package ledger abstracts the external chain where residency credentials
// are minted. Only two semantic operations are consumed: mint, and an
// ownership read used by the reconciliation sweep to establish ground truth.
package ledger

import (
	"context"
	"errors"
)

// MintResult is the outcome of a successful mint.
type MintResult struct {
	TokenID         string
	TransactionHash string
	ContractAddress string
}

// Client talks to the chain gateway.
//
// Mint is irreversible and non-idempotent: callers must hold the durable
// in-flight guard before invoking it and must treat a timeout as unknown
// outcome, never as failure.
type Client interface {
	// Mint creates the credential token for wallet, carrying payload as the
	// token's verification data.
	Mint(ctx context.Context, payload, wallet string) (MintResult, error)
	// OwnerToken returns the token held by wallet on the residency
	// contract, or ErrNoToken when the wallet holds none. The sweep uses
	// this to resolve unknown outcomes.
	OwnerToken(ctx context.Context, wallet string) (MintResult, error)
}

// ErrNoToken is returned by OwnerToken when the wallet holds no credential.
var ErrNoToken = errors.New("wallet holds no token")
