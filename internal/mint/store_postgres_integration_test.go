//go:build integration

package mint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "residency/pkg/domain"
	"residency/pkg/platform/sentinel"
	"residency/pkg/testutil/containers"
)

// seedApprovedApplication inserts the user and application rows the mint
// records reference.
func seedApprovedApplication(t *testing.T, pc *containers.PostgresContainer) (id.UserID, id.ApplicationID) {
	t.Helper()
	ctx := context.Background()
	userID := id.NewUserID()
	appID := id.NewApplicationID()
	now := time.Now().UTC()

	_, err := pc.Pool.Exec(ctx, `
		INSERT INTO users (id, email, passport_number, full_name, password_hash, residency_type, created_at, updated_at)
		VALUES ($1, $2, $3, 'Ada Lovelace', 'x', 'bhutan', $4, $4)`,
		uuid.UUID(userID), userID.String()+"@example.com", userID.String(), now)
	require.NoError(t, err)

	_, err = pc.Pool.Exec(ctx, `
		INSERT INTO applications (id, user_id, type, status, submitted_at, updated_at)
		VALUES ($1, $2, 'residency', 'approved', $3, $3)`,
		uuid.UUID(appID), uuid.UUID(userID), now)
	require.NoError(t, err)

	return userID, appID
}

func inFlightRecord(userID id.UserID, appID id.ApplicationID) *Record {
	return &Record{
		ID:            id.NewMintRecordID(),
		ApplicationID: appID,
		UserID:        userID,
		WalletAddress: "0x1111111111111111111111111111111111111111",
		StartedAt:     time.Now().UTC(),
	}
}

func TestPostgresGuardSingleWriter(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pc.Pool)
	ctx := context.Background()

	t.Run("concurrent attempts admit exactly one writer", func(t *testing.T) {
		require.NoError(t, pc.TruncateTables(ctx))
		userID, appID := seedApprovedApplication(t, pc)

		const workers = 16
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = store.CreateInFlight(ctx, inFlightRecord(userID, appID))
			}()
		}
		wg.Wait()

		var winners int
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
			}
		}
		assert.Equal(t, 1, winners)
	})

	t.Run("failure releases the guard, success locks it for good", func(t *testing.T) {
		require.NoError(t, pc.TruncateTables(ctx))
		userID, appID := seedApprovedApplication(t, pc)

		first := inFlightRecord(userID, appID)
		require.NoError(t, store.CreateInFlight(ctx, first))
		require.NoError(t, store.MarkFailed(ctx, first.ID, "gas spike", time.Now().UTC()))

		second := inFlightRecord(userID, appID)
		require.NoError(t, store.CreateInFlight(ctx, second))
		require.NoError(t, store.MarkSucceeded(ctx, second.ID, "7", "0xabc", "0xcc", time.Now().UTC()))

		err := store.CreateInFlight(ctx, inFlightRecord(userID, appID))
		assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)

		succeeded, err := store.FindSucceededByUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, succeeded.ID)
		assert.Equal(t, "7", succeeded.TokenID)
	})

	t.Run("resolution is conditional on in_flight", func(t *testing.T) {
		require.NoError(t, pc.TruncateTables(ctx))
		userID, appID := seedApprovedApplication(t, pc)

		r := inFlightRecord(userID, appID)
		require.NoError(t, store.CreateInFlight(ctx, r))
		require.NoError(t, store.MarkSucceeded(ctx, r.ID, "7", "0xabc", "0xcc", time.Now().UTC()))

		err := store.MarkFailed(ctx, r.ID, "late failure", time.Now().UTC())
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("stale listing honors the cutoff", func(t *testing.T) {
		require.NoError(t, pc.TruncateTables(ctx))
		userID, appID := seedApprovedApplication(t, pc)

		r := inFlightRecord(userID, appID)
		r.StartedAt = time.Now().UTC().Add(-time.Hour)
		require.NoError(t, store.CreateInFlight(ctx, r))

		stale, err := store.ListStaleInFlight(ctx, time.Now().UTC().Add(-10*time.Minute))
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, r.ID, stale[0].ID)

		none, err := store.ListStaleInFlight(ctx, time.Now().UTC().Add(-2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
