package mint

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"residency/internal/application"
	"residency/internal/ledger"
	id "residency/pkg/domain"
)

func newSweeper(f *fixture, chain ledger.Client, grace time.Duration) *Sweeper {
	return NewSweeper(f.store, chain, f.apps, nil, nil, slog.New(slog.DiscardHandler), grace)
}

// seedInFlight records a mint attempt whose outcome was lost startedAgo in
// the past.
func seedInFlight(t *testing.T, f *fixture, startedAgo time.Duration) *Record {
	t.Helper()
	r := &Record{
		ID:            id.NewMintRecordID(),
		ApplicationID: f.appID,
		UserID:        f.userID,
		WalletAddress: testWallet,
		StartedAt:     time.Now().UTC().Add(-startedAgo),
	}
	require.NoError(t, f.store.CreateInFlight(context.Background(), r))
	return r
}

func TestSweepResolvesSucceeded(t *testing.T) {
	f := newFixture(t, time.Second)
	r := seedInFlight(t, f, time.Hour)

	// The ledger has the token even though the process never learned it.
	f.chain.Grant(testWallet, ledger.MintResult{
		TokenID:         "42",
		TransactionHash: "0xabc",
		ContractAddress: "0xcccccccccccccccccccccccccccccccccccccccc",
	})

	sweeper := newSweeper(f, f.chain, 10*time.Minute)
	require.NoError(t, sweeper.Sweep(context.Background()))

	resolved, err := f.store.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, resolved.Outcome)
	assert.Equal(t, "42", resolved.TokenID)
	assert.Equal(t, "0xabc", resolved.TransactionHash)

	assert.Equal(t, application.StatusCompleted, f.applicationStatus(t))

	status, err := f.status.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, status.HasMinted)
}

func TestSweepResolvesFailed(t *testing.T) {
	f := newFixture(t, time.Second)
	r := seedInFlight(t, f, time.Hour)

	sweeper := newSweeper(f, f.chain, 10*time.Minute)
	require.NoError(t, sweeper.Sweep(context.Background()))

	resolved, err := f.store.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, resolved.Outcome)
	assert.NotEmpty(t, resolved.ErrorSummary)

	// The guard is released and the application still approved: the
	// applicant can mint again.
	assert.Equal(t, application.StatusApproved, f.applicationStatus(t))
	record, err := f.coord.Mint(context.Background(), f.userID, testWallet)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, record.Outcome)
}

func TestSweepHonorsGracePeriod(t *testing.T) {
	f := newFixture(t, time.Second)
	r := seedInFlight(t, f, time.Minute)

	sweeper := newSweeper(f, f.chain, 10*time.Minute)
	require.NoError(t, sweeper.Sweep(context.Background()))

	untouched, err := f.store.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInFlight, untouched.Outcome)
}

type downLedger struct{}

func (downLedger) Mint(context.Context, string, string) (ledger.MintResult, error) {
	return ledger.MintResult{}, errors.New("ledger down")
}

func (downLedger) OwnerToken(context.Context, string) (ledger.MintResult, error) {
	return ledger.MintResult{}, errors.New("ledger down")
}

func TestSweepLeavesRecordWhenLedgerUnreachable(t *testing.T) {
	f := newFixture(t, time.Second)
	r := seedInFlight(t, f, time.Hour)

	sweeper := newSweeper(f, downLedger{}, 10*time.Minute)
	require.NoError(t, sweeper.Sweep(context.Background()))

	untouched, err := f.store.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInFlight, untouched.Outcome)
}

func TestSweepSafeAlongsideConcurrentResolution(t *testing.T) {
	f := newFixture(t, time.Second)
	r := seedInFlight(t, f, time.Hour)
	f.chain.Grant(testWallet, ledger.MintResult{TokenID: "7", TransactionHash: "0xdef"})

	// Another instance resolved the record between listing and writing.
	require.NoError(t, f.store.MarkFailed(context.Background(), r.ID, "resolved elsewhere", time.Now().UTC()))

	sweeper := newSweeper(f, f.chain, 10*time.Minute)
	require.NoError(t, sweeper.Sweep(context.Background()))

	resolved, err := f.store.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, resolved.Outcome)
}
