package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "residency/pkg/domain-errors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-signing-key", "residency-gateway")

	token, err := svc.GenerateToken("rev-42", time.Hour)
	require.NoError(t, err)

	reviewerID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "rev-42", reviewerID)
}

func TestValidateTokenFailures(t *testing.T) {
	svc := NewService("test-signing-key", "residency-gateway")

	t.Run("expired", func(t *testing.T) {
		token, err := svc.GenerateToken("rev-42", -time.Minute)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "got %v", err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewService("a-different-key", "residency-gateway")
		token, err := other.GenerateToken("rev-42", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "got %v", err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "got %v", err)
	})

	t.Run("no reviewer identity", func(t *testing.T) {
		token, err := svc.GenerateToken("", time.Hour)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "got %v", err)
	})
}
