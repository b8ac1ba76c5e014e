package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakeplay/stakeplay/internal/auth"
	"github.com/stakeplay/stakeplay/internal/domain/rewards"
	"github.com/stakeplay/stakeplay/internal/domain/users"
	"github.com/stakeplay/stakeplay/internal/notifier"
	"github.com/stakeplay/stakeplay/internal/server/handlers"
	"github.com/stakeplay/stakeplay/internal/server/models"
	"github.com/stakeplay/stakeplay/internal/server/router"
	"github.com/stakeplay/stakeplay/internal/storage"
	"github.com/stakeplay/stakeplay/internal/storage/inmemory"
)

// constSource makes the generator deterministic: every Float64 draw is
// n/2^63. With n set to 2/7 of the range the faucet pays exactly 0.015
// and the click stream exactly 0.00015.
type constSource struct {
	n int64
}

func (s constSource) Int63() int64 { return s.n }

func (s constSource) Seed(int64) {}

var testSecret = []byte("test-secret")

type testEnv struct {
	srv     *httptest.Server
	durable *inmemory.Storage
	auth    *auth.JWTAuth
	now     time.Time
}

func newTestEnv(t *testing.T, opts ...handlers.Option) *testEnv {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	durable := inmemory.NewStorage()
	local := inmemory.NewStorage()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	src := constSource{n: int64(float64(2) / 7 * (1 << 63))}

	hOpts := append([]handlers.Option{
		handlers.WithGenerator(rewards.NewGenerator(src)),
		handlers.WithNotifier(notifier.New(notifier.WithLogger(discard))),
		handlers.WithNow(func() time.Time { return now }),
	}, opts...)

	r := router.NewRouter(storage.NewSelector(durable, local),
		router.WithLogger(discard),
		router.WithSecret(testSecret),
		router.WithHandlerOptions(hOpts...),
	)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:     srv,
		durable: durable,
		auth:    auth.NewJWTAuth(testSecret),
		now:     now,
	}
}

// seedUser creates a registered user directly in the durable store and
// mints a token for it.
func (e *testEnv) seedUser(t *testing.T, login string) (*users.User, string) {
	t.Helper()

	user, err := users.CreateUser(login, "passwd")
	require.NoError(t, err)

	require.NoError(t, e.durable.CreateUser(context.Background(), user))

	token, err := e.auth.CreateJWTString(user.ID())
	require.NoError(t, err)

	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader

	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, e.srv.URL+path, body)
	require.NoError(t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, respBody
}

func TestUserRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	creds := models.UserRequest{Login: "alice", Password: "passwd"}

	resp, body := env.do(t, http.MethodPost, "/api/user/register", "", creds)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body)
	assert.NotEmpty(t, resp.Header.Get("Authorization"))

	resp, _ = env.do(t, http.MethodPost, "/api/user/register", "", creds)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/user/login", "", creds)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body)

	resp, _ = env.do(t, http.MethodPost, "/api/user/login", "",
		models.UserRequest{Login: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/user/login", "",
		models.UserRequest{Login: "nobody", Password: "passwd"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/user/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/rewards/faucet/claim", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClaimFaucet(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "alice")

	resp, body := env.do(t, http.MethodPost, "/api/rewards/faucet/claim", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var claim models.ClaimResponse
	require.NoError(t, json.Unmarshal(body, &claim))

	assert.Equal(t, "faucet", claim.Stream)
	assert.InDelta(t, 0.015, claim.Amount, 1e-9)
	assert.Equal(t, env.now.Add(15*time.Minute).Format(time.RFC3339), claim.NextClaimAt)
	assert.Equal(t, int64(1), claim.ClaimCount)
	assert.False(t, claim.MilestoneReached)

	// The cooldown has not elapsed, so an immediate retry is refused.
	resp, _ = env.do(t, http.MethodPost, "/api/rewards/faucet/claim", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/user/balance", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance models.BalanceResponse
	require.NoError(t, json.Unmarshal(body, &balance))
	assert.InDelta(t, 0.015, balance.Balances["coin"], 1e-9)

	resp, body = env.do(t, http.MethodGet, "/api/rewards/faucet", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status models.RewardStatusResponse
	require.NoError(t, json.Unmarshal(body, &status))

	assert.False(t, status.CanClaim)
	assert.InDelta(t, (15 * time.Minute).Seconds(), status.RemainingSeconds, 1e-9)
	assert.Equal(t, env.now.Add(15*time.Minute).Format(time.RFC3339), status.NextClaimAt)
	assert.InDelta(t, 0.015, status.TotalClaimed, 1e-9)
	assert.Equal(t, int64(1), status.ClaimCount)
}

func TestClaimUnknownStream(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "alice")

	resp, _ := env.do(t, http.MethodPost, "/api/rewards/jackpot/claim", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/rewards/jackpot", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGuestClickMilestone(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/user/guest", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token := string(body)

	// The click stream has no cooldown; the 25th claim lands on the
	// milestone and grants a spin.
	for i := 1; i <= 25; i++ {
		resp, body := env.do(t, http.MethodPost, "/api/rewards/click/claim", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var claim models.ClaimResponse
		require.NoError(t, json.Unmarshal(body, &claim))

		assert.Equal(t, int64(i), claim.ClaimCount)
		assert.Equal(t, i == 25, claim.MilestoneReached, "claim %d", i)
	}

	resp, body = env.do(t, http.MethodGet, "/api/user/balance", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var balance models.BalanceResponse
	require.NoError(t, json.Unmarshal(body, &balance))

	assert.InDelta(t, 25*0.00015, balance.Balances["coin"], 1e-9)
	assert.InDelta(t, 1.0, balance.Balances["spin"], 1e-9)
}

func TestCreateWithdrawal(t *testing.T) {
	var event struct {
		Event        string  `json:"event"`
		WithdrawalID string  `json:"withdrawal_id"`
		UserID       string  `json:"user_id"`
		Amount       float64 `json:"amount"`
		Currency     string  `json:"currency"`
	}

	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(hook.Close)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := newTestEnv(t, handlers.WithNotifier(notifier.New(
		notifier.WithLogger(discard),
		notifier.WithWebhookURL(hook.URL),
	)))

	user, token := env.seedUser(t, "alice")

	resp, _ := env.do(t, http.MethodGet, "/api/user/withdrawals", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/user/withdrawals", token,
		models.WithdrawalRequest{Amount: decimal.Zero, Currency: "USDT"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/user/withdrawals", token,
		models.WithdrawalRequest{Amount: decimal.NewFromFloat(1.5)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/user/withdrawals", token,
		models.WithdrawalRequest{Amount: decimal.NewFromFloat(1.5), Currency: "USDT", Description: "cashout"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.WithdrawalResponse
	require.NoError(t, json.Unmarshal(body, &created))

	assert.NotEmpty(t, created.ID)
	assert.InDelta(t, 1.5, created.Amount, 1e-9)
	assert.Equal(t, "USDT", created.Currency)
	assert.Equal(t, "pending", created.Status)

	// The webhook fired before the response was written.
	assert.Equal(t, "withdrawal.requested", event.Event)
	assert.Equal(t, created.ID, event.WithdrawalID)
	assert.Equal(t, user.ID(), event.UserID)
	assert.InDelta(t, 1.5, event.Amount, 1e-9)
	assert.Equal(t, "USDT", event.Currency)

	resp, body = env.do(t, http.MethodGet, "/api/user/withdrawals", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []models.WithdrawalResponse
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestPaymentCallback(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.seedUser(t, "alice")

	resp, _ := env.do(t, http.MethodPost, "/api/payment/callback", "",
		models.PaymentCallbackRequest{UserID: user.ID(), Amount: decimal.NewFromInt(25), Status: "failed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/payment/callback", "",
		models.PaymentCallbackRequest{UserID: user.ID(), Amount: decimal.NewFromInt(5), Status: "success"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/payment/callback", "",
		models.PaymentCallbackRequest{UserID: user.ID(), Amount: decimal.NewFromInt(25), Status: "success"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var granted models.PaymentCallbackResponse
	require.NoError(t, json.Unmarshal(body, &granted))

	assert.Equal(t, user.ID(), granted.UserID)
	assert.Equal(t, "vip", granted.Tier)
	assert.Equal(t, env.now.Add(7*24*time.Hour).Format(time.RFC3339), granted.ExpiresAt)

	vip, err := env.durable.GetVIPStatus(context.Background(), user.ID())
	require.NoError(t, err)
	assert.True(t, vip.Active(env.now))
	assert.Equal(t, "vip", vip.Tier())
}

func TestStakingPositions(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, "alice")

	resp, _ := env.do(t, http.MethodGet, "/api/user/staking", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/user/staking", token,
		models.StakingRequest{Plan: "turbo", Amount: decimal.NewFromInt(100)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/user/staking", token,
		models.StakingRequest{Plan: "standard", Amount: decimal.Zero})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/user/staking", token,
		models.StakingRequest{Plan: "standard", Amount: decimal.NewFromInt(100)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.StakingResponse
	require.NoError(t, json.Unmarshal(body, &created))

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "standard", created.Plan)
	assert.InDelta(t, 100, created.Amount, 1e-9)
	assert.Equal(t, "pending", created.Status)

	resp, body = env.do(t, http.MethodGet, "/api/user/staking", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed []models.StakingResponse
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}
