package verify

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"residency/internal/application"
	platformredis "residency/internal/platform/redis"
	"residency/internal/user"
	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
)

type stubApps struct {
	apps map[id.ApplicationID]*application.Application
}

func (s *stubApps) Get(_ context.Context, appID id.ApplicationID) (*application.Application, error) {
	if a, ok := s.apps[appID]; ok {
		return a, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
}

type stubUsers struct {
	users map[id.UserID]*user.User
}

func (s *stubUsers) Get(_ context.Context, userID id.UserID) (*user.User, error) {
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
}

type testEnv struct {
	service *Service
	apps    *stubApps
	redis   *miniredis.Miniredis
	appID   id.ApplicationID
}

func newTestEnv(t *testing.T, status application.Status) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := &platformredis.Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { client.Close() })

	userID := id.NewUserID()
	appID := id.NewApplicationID()
	apps := &stubApps{apps: map[id.ApplicationID]*application.Application{
		appID: {
			ID:        appID,
			UserID:    userID,
			Type:      id.ApplicationResidency,
			Status:    status,
			UpdatedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		},
	}}
	users := &stubUsers{users: map[id.UserID]*user.User{
		userID: {
			ID:            userID,
			Email:         "ada@example.com",
			FullName:      "Ada Lovelace",
			ResidencyType: id.ResidencyBhutan,
			WalletAddress: "0x1111111111111111111111111111111111111111",
		},
	}}

	cache := NewCache(client, slog.New(slog.DiscardHandler), time.Minute)
	return &testEnv{
		service: NewService(apps, users, cache),
		apps:    apps,
		redis:   mr,
		appID:   appID,
	}
}

func TestLookup(t *testing.T) {
	t.Run("projects only public fields", func(t *testing.T) {
		env := newTestEnv(t, application.StatusCompleted)

		p, err := env.service.Lookup(context.Background(), env.appID)
		require.NoError(t, err)

		assert.Equal(t, Projection{
			Name:          "Ada Lovelace",
			Country:       "Bhutan",
			ResidencyType: "bhutan",
			Status:        "completed",
			IssuedAt:      p.IssuedAt,
		}, p)
		require.NotNil(t, p.IssuedAt)
		assert.Equal(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), *p.IssuedAt)
	})

	t.Run("no issuance time before completion", func(t *testing.T) {
		env := newTestEnv(t, application.StatusInReview)

		p, err := env.service.Lookup(context.Background(), env.appID)
		require.NoError(t, err)
		assert.Equal(t, "in_review", p.Status)
		assert.Nil(t, p.IssuedAt)
	})

	t.Run("unknown ids and broken references answer identically", func(t *testing.T) {
		env := newTestEnv(t, application.StatusCompleted)

		_, unknownErr := env.service.Lookup(context.Background(), id.NewApplicationID())
		assert.True(t, dErrors.HasCode(unknownErr, dErrors.CodeNotFound))

		// Application exists but its user does not.
		env.apps.apps[env.appID].UserID = id.NewUserID()
		_, orphanErr := env.service.Lookup(context.Background(), env.appID)
		assert.True(t, dErrors.HasCode(orphanErr, dErrors.CodeNotFound))

		assert.Equal(t, dErrors.MessageOf(unknownErr), dErrors.MessageOf(orphanErr))
	})
}

func TestLookupCaching(t *testing.T) {
	env := newTestEnv(t, application.StatusInReview)

	first, err := env.service.Lookup(context.Background(), env.appID)
	require.NoError(t, err)
	assert.Equal(t, "in_review", first.Status)

	// Underlying state moves on; the cached projection answers until the TTL
	// lapses.
	env.apps.apps[env.appID].Status = application.StatusApproved
	cached, err := env.service.Lookup(context.Background(), env.appID)
	require.NoError(t, err)
	assert.Equal(t, "in_review", cached.Status)

	env.redis.FastForward(2 * time.Minute)
	fresh, err := env.service.Lookup(context.Background(), env.appID)
	require.NoError(t, err)
	assert.Equal(t, "approved", fresh.Status)
}

func TestCacheDegradesWithoutRedis(t *testing.T) {
	env := newTestEnv(t, application.StatusPending)
	svc := NewService(env.apps, &stubUsers{users: map[id.UserID]*user.User{}}, NewCache(nil, nil, 0))

	// No user behind the application: uniform not found, no cache involved.
	_, err := svc.Lookup(context.Background(), env.appID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
