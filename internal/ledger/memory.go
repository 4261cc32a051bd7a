package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// MemoryLedger is an in-process chain used in tests and local development.
// Token and transaction identifiers are deterministic over the wallet and
// payload so repeated runs are comparable.
type MemoryLedger struct {
	mu       sync.Mutex
	contract string
	tokens   map[string]MintResult

	// MintErr, when set, makes every Mint call fail with it.
	MintErr error
	// MintHook, when set, runs inside Mint before the token is recorded.
	// Tests use it to block mid-call or to observe concurrency.
	MintHook func(ctx context.Context) error
}

func NewMemoryLedger(contract string) *MemoryLedger {
	return &MemoryLedger{contract: contract, tokens: make(map[string]MintResult)}
}

func (l *MemoryLedger) Mint(ctx context.Context, payload, wallet string) (MintResult, error) {
	if l.MintErr != nil {
		return MintResult{}, l.MintErr
	}
	if l.MintHook != nil {
		if err := l.MintHook(ctx); err != nil {
			return MintResult{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return MintResult{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	sum := sha256.Sum256([]byte(wallet + "|" + payload))
	result := MintResult{
		TokenID:         fmt.Sprintf("%d", 1+len(l.tokens)),
		TransactionHash: "0x" + hex.EncodeToString(sum[:]),
		ContractAddress: l.contract,
	}
	l.tokens[strings.ToLower(wallet)] = result
	return result, nil
}

func (l *MemoryLedger) OwnerToken(_ context.Context, wallet string) (MintResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if result, ok := l.tokens[strings.ToLower(wallet)]; ok {
		return result, nil
	}
	return MintResult{}, ErrNoToken
}

// Grant records a token for wallet directly, bypassing Mint. Tests use it to
// simulate a mint whose result was lost before it was recorded.
func (l *MemoryLedger) Grant(wallet string, result MintResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens[strings.ToLower(wallet)] = result
}
