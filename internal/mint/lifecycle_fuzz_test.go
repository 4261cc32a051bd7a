package mint

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"residency/internal/application"
	"residency/internal/ledger"
	id "residency/pkg/domain"
	"residency/pkg/requestcontext"
)

// FuzzLifecycle drives random operation sequences, legal and illegal, through
// the application state machine, the mint coordinator, and the reconciliation
// sweep, and checks after every step that a completed application always has
// a succeeded mint record.
func FuzzLifecycle(f *testing.F) {
	// Happy path: submit, review, approve, mint.
	f.Add([]byte{0, 1, 2, 4})
	// Retry after a ledger rejection, repeat mints, duplicate applications.
	f.Add([]byte{0, 5, 1, 2, 5, 4, 4, 0, 4})
	// Rejection, a fresh application, a mint resolved by the sweep.
	f.Add([]byte{0, 1, 3, 0, 1, 2, 7, 6, 4, 6})
	// Illegal transitions interleaved everywhere.
	f.Add([]byte{2, 4, 0, 2, 6, 1, 1, 2, 2, 4, 3, 6})

	f.Fuzz(func(t *testing.T, ops []byte) {
		store := NewInMemoryStore()
		apps := application.NewService(application.NewInMemoryStore(), passUsers{}, passDocs{}, nil, nil)
		chain := ledger.NewMemoryLedger("0xcccccccccccccccccccccccccccccccccccccccc")
		logger := slog.New(slog.DiscardHandler)
		coord := NewCoordinator(store, stubWallets{addr: testWallet}, apps, chain,
			nil, nil, logger, time.Second)
		sweeper := NewSweeper(store, chain, apps, nil, nil, logger, 0)

		userID := id.NewUserID()
		ctx := requestcontext.WithReviewerID(context.Background(), "rev-1")

		if len(ops) > 24 {
			ops = ops[:24]
		}
		var appIDs []id.ApplicationID
		current := func() (id.ApplicationID, bool) {
			if len(appIDs) == 0 {
				return id.ApplicationID{}, false
			}
			return appIDs[len(appIDs)-1], true
		}

		for _, op := range ops {
			switch op % 8 {
			case 0:
				if a, err := apps.Submit(ctx, userID, id.ApplicationResidency); err == nil {
					appIDs = append(appIDs, a.ID)
				}
			case 1:
				if aid, ok := current(); ok {
					_, _ = apps.BeginReview(ctx, aid)
				}
			case 2:
				if aid, ok := current(); ok {
					_, _ = apps.Decide(ctx, aid, application.DecisionApprove, "")
				}
			case 3:
				if aid, ok := current(); ok {
					_, _ = apps.Decide(ctx, aid, application.DecisionReject, "incomplete")
				}
			case 4:
				_, _ = coord.Mint(context.Background(), userID, testWallet)
			case 5:
				chain.MintErr = errors.New("contract revert")
				_, _ = coord.Mint(context.Background(), userID, testWallet)
				chain.MintErr = nil
			case 6:
				_ = sweeper.Sweep(context.Background())
			case 7:
				chain.Grant(testWallet, ledger.MintResult{
					TokenID:         "granted",
					TransactionHash: "0xgranted",
					ContractAddress: "0xcccccccccccccccccccccccccccccccccccccccc",
				})
			}

			for _, aid := range appIDs {
				a, err := apps.Get(context.Background(), aid)
				require.NoError(t, err)
				if a.Status != application.StatusCompleted {
					continue
				}
				rec, err := store.FindByApplication(context.Background(), aid)
				require.NoError(t, err, "completed application %s has no mint record", aid)
				require.Equal(t, OutcomeSucceeded, rec.Outcome,
					"completed application %s backed by a %s record", aid, rec.Outcome)
			}
		}
	})
}
