// Package mint coordinates credential minting against the external ledger.
// Its one hard property: at most one mint per application, across crashes,
// timeouts, and concurrent requests, with no in-process lock held over the
// ledger call.
package mint

import (
	"time"

	id "residency/pkg/domain"
)

// Outcome is the lifecycle of one mint attempt. in_flight means the ledger
// call was started and its result is not yet durably known.
type Outcome string

const (
	OutcomeInFlight  Outcome = "in_flight"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Record is one mint attempt. Failed attempts accumulate; succeeded and
// in_flight are unique per application, which the store enforces.
type Record struct {
	ID              id.MintRecordID  `json:"id"`
	ApplicationID   id.ApplicationID `json:"applicationId"`
	UserID          id.UserID        `json:"userId"`
	WalletAddress   string           `json:"walletAddress"`
	Outcome         Outcome          `json:"outcome"`
	TokenID         string           `json:"tokenId,omitempty"`
	TransactionHash string           `json:"transactionHash,omitempty"`
	ContractAddress string           `json:"contractAddress,omitempty"`
	ErrorSummary    string           `json:"errorSummary,omitempty"`
	StartedAt       time.Time        `json:"startedAt"`
	MintedAt        *time.Time       `json:"mintedAt,omitempty"`
}

// Request is the mint call body. WalletAddress is optional when the user
// already has a bound wallet.
type Request struct {
	UserID        string `json:"userId"`
	WalletAddress string `json:"walletAddress"`
}

// Response reports a completed mint.
type Response struct {
	Success         bool   `json:"success"`
	TokenID         string `json:"tokenId"`
	TransactionHash string `json:"transactionHash"`
	ContractAddress string `json:"contractAddress"`
}

// StatusResponse answers the minted-or-not query. Absence of a mint is a
// normal answer, never an HTTP error.
type StatusResponse struct {
	HasMinted       bool       `json:"hasMinted"`
	TokenID         string     `json:"tokenId,omitempty"`
	TransactionHash string     `json:"transactionHash,omitempty"`
	ContractAddress string     `json:"contractAddress,omitempty"`
	MintedAt        *time.Time `json:"mintedAt,omitempty"`
}
