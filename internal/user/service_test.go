package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	id "residency/pkg/domain"
	dErrors "residency/pkg/domain-errors"
)

type stubMints struct {
	minted bool
	err    error
}

func (s stubMints) HasSucceededMint(context.Context, id.UserID) (bool, error) {
	return s.minted, s.err
}

func newTestService(mints MintChecker) *Service {
	return NewService(NewInMemoryStore(), mints, nil, nil)
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:          "Ada@Example.COM",
		PassportNumber: "P1234567",
		FullName:       "Ada Lovelace",
		Password:       "correct-horse",
		ResidencyType:  "bhutan",
	}
}

func TestRegister(t *testing.T) {
	t.Run("creates user with normalized email and hashed password", func(t *testing.T) {
		svc := newTestService(stubMints{})

		u, err := svc.Register(context.Background(), validRegistration())
		require.NoError(t, err)

		assert.Equal(t, "ada@example.com", u.Email)
		assert.Equal(t, id.ResidencyBhutan, u.ResidencyType)
		assert.False(t, u.Verified)
		assert.NotEqual(t, "correct-horse", u.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct-horse")))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		mutations := map[string]func(*RegisterRequest){
			"bad email":           func(r *RegisterRequest) { r.Email = "not-an-email" },
			"missing passport":    func(r *RegisterRequest) { r.PassportNumber = "  " },
			"missing name":        func(r *RegisterRequest) { r.FullName = "" },
			"short password":      func(r *RegisterRequest) { r.Password = "short" },
			"bad residency type":  func(r *RegisterRequest) { r.ResidencyType = "atlantis" },
			"empty residency":     func(r *RegisterRequest) { r.ResidencyType = "" },
			"whitespace passport": func(r *RegisterRequest) { r.PassportNumber = "\t" },
		}
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				svc := newTestService(stubMints{})
				req := validRegistration()
				mutate(&req)

				_, err := svc.Register(context.Background(), req)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "got %v", err)
			})
		}
	})

	t.Run("duplicate email conflicts regardless of case", func(t *testing.T) {
		svc := newTestService(stubMints{})
		_, err := svc.Register(context.Background(), validRegistration())
		require.NoError(t, err)

		dup := validRegistration()
		dup.Email = "ADA@example.com"
		dup.PassportNumber = "P7654321"
		_, err = svc.Register(context.Background(), dup)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)
	})

	t.Run("duplicate passport number conflicts", func(t *testing.T) {
		svc := newTestService(stubMints{})
		_, err := svc.Register(context.Background(), validRegistration())
		require.NoError(t, err)

		dup := validRegistration()
		dup.Email = "other@example.com"
		_, err = svc.Register(context.Background(), dup)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)
	})
}

func TestBindWallet(t *testing.T) {
	const (
		walletA = "0x1111111111111111111111111111111111111111"
		walletB = "0x2222222222222222222222222222222222222222"
	)

	register := func(t *testing.T, svc *Service) id.UserID {
		t.Helper()
		u, err := svc.Register(context.Background(), validRegistration())
		require.NoError(t, err)
		return u.ID
	}

	t.Run("rejects malformed addresses", func(t *testing.T) {
		svc := newTestService(stubMints{})
		userID := register(t, svc)

		for _, addr := range []string{"", "1111", "0x123", "0xZZ11111111111111111111111111111111111111"} {
			_, err := svc.BindWallet(context.Background(), userID, addr)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "addr %q: got %v", addr, err)
		}
	})

	t.Run("binds and rebinding same address is a no-op", func(t *testing.T) {
		svc := newTestService(stubMints{})
		userID := register(t, svc)

		u, err := svc.BindWallet(context.Background(), userID, walletA)
		require.NoError(t, err)
		assert.Equal(t, walletA, u.WalletAddress)

		// Same address, different case.
		u, err = svc.BindWallet(context.Background(), userID, "0x1111111111111111111111111111111111111111")
		require.NoError(t, err)
		assert.Equal(t, walletA, u.WalletAddress)
	})

	t.Run("rebinding a different address is allowed before any mint", func(t *testing.T) {
		svc := newTestService(stubMints{minted: false})
		userID := register(t, svc)

		_, err := svc.BindWallet(context.Background(), userID, walletA)
		require.NoError(t, err)
		u, err := svc.BindWallet(context.Background(), userID, walletB)
		require.NoError(t, err)
		assert.Equal(t, walletB, u.WalletAddress)
	})

	t.Run("rebinding after a succeeded mint conflicts", func(t *testing.T) {
		svc := newTestService(stubMints{minted: true})
		userID := register(t, svc)

		_, err := svc.BindWallet(context.Background(), userID, walletA)
		require.NoError(t, err)
		_, err = svc.BindWallet(context.Background(), userID, walletB)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		svc := newTestService(stubMints{})
		_, err := svc.BindWallet(context.Background(), id.NewUserID(), walletA)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound), "got %v", err)
	})
}

func TestResolveWallet(t *testing.T) {
	const walletA = "0x1111111111111111111111111111111111111111"

	t.Run("binds the provided wallet on first mint", func(t *testing.T) {
		svc := newTestService(stubMints{})
		u, err := svc.Register(context.Background(), validRegistration())
		require.NoError(t, err)

		addr, err := svc.ResolveWallet(context.Background(), u.ID, walletA)
		require.NoError(t, err)
		assert.Equal(t, walletA, addr)

		stored, err := svc.Get(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, walletA, stored.WalletAddress)
	})

	t.Run("falls back to the stored binding", func(t *testing.T) {
		svc := newTestService(stubMints{})
		u, err := svc.Register(context.Background(), validRegistration())
		require.NoError(t, err)
		_, err = svc.BindWallet(context.Background(), u.ID, walletA)
		require.NoError(t, err)

		addr, err := svc.ResolveWallet(context.Background(), u.ID, "")
		require.NoError(t, err)
		assert.Equal(t, walletA, addr)
	})

	t.Run("fails without any wallet", func(t *testing.T) {
		svc := newTestService(stubMints{})
		u, err := svc.Register(context.Background(), validRegistration())
		require.NoError(t, err)

		_, err = svc.ResolveWallet(context.Background(), u.ID, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "got %v", err)
	})
}
