package user

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"residency/pkg/testutil"
)

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func TestHandleRegister(t *testing.T) {
	router := newTestRouter(newTestService(stubMints{}))

	t.Run("creates a user and never leaks the password hash", func(t *testing.T) {
		rr := testutil.DoRequest(router,
			testutil.NewJSONRequest(t, http.MethodPost, "/users", validRegistration()))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		body := string(testutil.ReadBody(t, rr))
		assert.Contains(t, body, `"email":"ada@example.com"`)
		assert.NotContains(t, body, "passwordHash")
		assert.NotContains(t, body, "correct-horse")
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		rr := testutil.DoRequest(router,
			testutil.NewJSONRequest(t, http.MethodPost, "/users", validRegistration()))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/users",
			`{"email":"x@example.com","admin":true}`))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}

func TestHandleBindWallet(t *testing.T) {
	svc := newTestService(stubMints{})
	router := newTestRouter(svc)

	rr := testutil.DoRequest(router,
		testutil.NewJSONRequest(t, http.MethodPost, "/users", validRegistration()))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[PublicUser](t, rr)

	t.Run("binds a wallet", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPut, "/users/wallet",
			BindWalletRequest{
				UserID:        created.ID.String(),
				WalletAddress: "0x1111111111111111111111111111111111111111",
			}))
		testutil.AssertStatus(t, rr, http.StatusOK)
		testutil.AssertJSONContains(t, rr, "walletAddress", "0x1111111111111111111111111111111111111111")
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPut, "/users/wallet",
			BindWalletRequest{UserID: created.ID.String(), WalletAddress: "0x123"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})
}
