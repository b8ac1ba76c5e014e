package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/stakeplay/stakeplay/internal/auth"
	dclaims "github.com/stakeplay/stakeplay/internal/domain/claims"
	"github.com/stakeplay/stakeplay/internal/domain/deposits"
	"github.com/stakeplay/stakeplay/internal/domain/rewards"
	"github.com/stakeplay/stakeplay/internal/domain/staking"
	"github.com/stakeplay/stakeplay/internal/domain/users"
	"github.com/stakeplay/stakeplay/internal/domain/withdrawals"
	"github.com/stakeplay/stakeplay/internal/errmsg"
	"github.com/stakeplay/stakeplay/internal/identity"
	"github.com/stakeplay/stakeplay/internal/notifier"
	"github.com/stakeplay/stakeplay/internal/server/models"
	"github.com/stakeplay/stakeplay/internal/storage"
)

const (
	vipTier     = "vip"
	vipDuration = 7 * 24 * time.Hour
)

// minPaymentAmount is the smallest payment that grants VIP status.
var minPaymentAmount = decimal.NewFromInt(10)

type Handlers struct {
	selector  *storage.Selector
	log       *slog.Logger
	auth      *auth.JWTAuth
	generator *rewards.Generator
	notifier  *notifier.Notifier
	now       func() time.Time
}

// NewHandlers returns a new Handlers instance.
func NewHandlers(selector *storage.Selector, opts ...Option) *Handlers {
	handlers := &Handlers{
		selector:  selector,
		log:       slog.New(&slog.JSONHandler{}),
		auth:      auth.NewJWTAuth([]byte("")),
		generator: rewards.NewGenerator(rand.NewSource(time.Now().UnixNano())),
		notifier:  notifier.New(),
		now:       time.Now,
	}

	// Apply options
	for _, opt := range opts {
		opt(handlers)
	}

	return handlers
}

// Option is a functional option for Handlers.
type Option func(h *Handlers)

// WithLogger is a option for Handlers that sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.log = logger
	}
}

func WithAuth(auth *auth.JWTAuth) Option {
	return func(h *Handlers) {
		h.auth = auth
	}
}

func WithGenerator(generator *rewards.Generator) Option {
	return func(h *Handlers) {
		h.generator = generator
	}
}

func WithNotifier(ntf *notifier.Notifier) Option {
	return func(h *Handlers) {
		h.notifier = ntf
	}
}

// WithNow overrides the clock, used by tests to pin claim timestamps.
func WithNow(now func() time.Time) Option {
	return func(h *Handlers) {
		h.now = now
	}
}

type JSONResponse struct {
	Message any `json:"message,omitempty"`
	Error   any `json:"error,omitempty"`
}

func handleJSONResponse(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func handleError(w http.ResponseWriter, err errmsg.HTTPError) {
	resp := &JSONResponse{
		Error: err.Error(),
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(err.Code)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// displayAmount rounds for the JSON edge; stored amounts keep full
// precision.
func displayAmount(amount decimal.Decimal) float64 {
	return amount.Round(rewards.DisplayPrecision).InexactFloat64()
}

// identityFromRequest resolves the JWT subject into an identity that
// selects the backing store.
func (h *Handlers) identityFromRequest(r *http.Request) (identity.Identity, error) {
	token, _, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return identity.Identity{}, err //nolint:wrapcheck
	}

	ident, err := identity.Resolve(token.Subject())
	if err != nil {
		return identity.Identity{}, err //nolint:wrapcheck
	}

	return ident, nil
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.selector.Durable().Ping(r.Context()); err != nil {
		h.log.Error("storage.Ping", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, &JSONResponse{Message: "ok"})
}

func (h *Handlers) UserRegister(w http.ResponseWriter, r *http.Request) {
	var userPayload models.UserRequest

	if err := json.NewDecoder(r.Body).Decode(&userPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	defer r.Body.Close()

	user, err := users.CreateUser(userPayload.Login, userPayload.Password)
	if err != nil {
		h.log.Error("users.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusBadRequest, err))

		return
	}

	if err := h.selector.Durable().CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.log.Error("storage.CreateUser()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserAlreadyExists)

			return
		}

		h.log.Error("storage.CreateUser()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	token, err := h.auth.CreateJWTString(user.ID())
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("content-type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token)) //nolint:errcheck
}

func (h *Handlers) UserLogin(w http.ResponseWriter, r *http.Request) {
	var userPayload models.UserRequest

	if err := json.NewDecoder(r.Body).Decode(&userPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	user, err := h.selector.Durable().GetUserByLogin(r.Context(), userPayload.Login)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.log.Error("storage.GetUserByLogin()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserNotFound)

			return
		}

		h.log.Error("storage.GetUserByLogin()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash()), []byte(userPayload.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			h.log.Error("bcrypt.CompareHashAndPassword()", slog.Any("error", err))
			handleError(w, errmsg.ErrUserCredentialsInvalid)

			return
		}

		h.log.Error("bcrypt.CompareHashAndPassword()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	token, err := h.auth.CreateJWTString(user.ID())
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("content-type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token)) //nolint:errcheck
}

// GuestSession mints a token with a non-durable subject. Guests never get
// backend rows; their state lives in the local fallback store.
func (h *Handlers) GuestSession(w http.ResponseWriter, _ *http.Request) {
	token, err := h.auth.CreateJWTString("guest-" + uuid.NewString())
	if err != nil {
		h.log.Error("auth.CreateJWTString()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("content-type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(token)) //nolint:errcheck
}

func (h *Handlers) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromRequest(r)
	if err != nil {
		h.log.Error("identityFromRequest()", slog.Any("error", err))
		handleError(w, errmsg.ErrSessionMissing)

		return
	}

	wlt, err := h.selector.For(ident).GetWallet(r.Context(), ident.ID())
	if err != nil {
		h.log.Error("storage.GetWallet()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	balances := make(map[string]float64)
	for token, amount := range wlt.Balances() {
		balances[string(token)] = displayAmount(amount)
	}

	handleJSONResponse(w, http.StatusOK, models.BalanceResponse{Balances: balances})
}

func (h *Handlers) GetRewardStatus(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromRequest(r)
	if err != nil {
		h.log.Error("identityFromRequest()", slog.Any("error", err))
		handleError(w, errmsg.ErrSessionMissing)

		return
	}

	stream, err := rewards.Lookup(chi.URLParam(r, "stream"))
	if err != nil {
		h.log.Error("rewards.Lookup()", slog.Any("error", err))
		handleError(w, errmsg.ErrRewardStreamUnknown)

		return
	}

	state, err := h.selector.For(ident).GetClaimState(r.Context(), ident.ID(), stream.Name())
	if err != nil {
		h.log.Error("storage.GetClaimState()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	now := h.now()

	resp := models.RewardStatusResponse{
		Stream:           stream.Name(),
		CanClaim:         state.CanClaim(now),
		RemainingSeconds: state.Remaining(now).Seconds(),
		TotalClaimed:     displayAmount(state.Total()),
		ClaimCount:       state.Count(),
	}

	if !state.NextClaimAt().IsZero() {
		resp.NextClaimAt = state.NextClaimAt().Format(time.RFC3339)
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) ClaimReward(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromRequest(r)
	if err != nil {
		h.log.Error("identityFromRequest()", slog.Any("error", err))
		handleError(w, errmsg.ErrSessionMissing)

		return
	}

	stream, err := rewards.Lookup(chi.URLParam(r, "stream"))
	if err != nil {
		h.log.Error("rewards.Lookup()", slog.Any("error", err))
		handleError(w, errmsg.ErrRewardStreamUnknown)

		return
	}

	amount := h.generator.Generate(stream)

	claim, err := dclaims.NewClaim(ident.ID(), stream, amount, h.now())
	if err != nil {
		h.log.Error("claims.NewClaim()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	store := h.selector.For(ident)

	state, err := store.ApplyClaim(r.Context(), claim)
	if err != nil {
		if errors.Is(err, storage.ErrClaimNotReady) {
			handleError(w, errmsg.ErrClaimNotReady)

			return
		}

		h.log.Error("storage.ApplyClaim()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	// Landing exactly on a milestone multiple grants the secondary
	// reward. The grant is best effort: a failed credit is logged, the
	// claim itself stands.
	milestone := rewards.MilestoneReached(state.Count()-1, state.Count(), stream.MilestoneInterval())
	if milestone {
		err := store.CreditWallet(r.Context(), ident.ID(), stream.MilestoneToken(), stream.MilestoneAmount())
		if err != nil {
			h.log.Error("storage.CreditWallet()",
				slog.String("token", string(stream.MilestoneToken())),
				slog.Any("error", err),
			)
		}
	}

	handleJSONResponse(w, http.StatusOK, models.ClaimResponse{
		Stream:           stream.Name(),
		Amount:           displayAmount(amount),
		NextClaimAt:      state.NextClaimAt().Format(time.RFC3339),
		ClaimCount:       state.Count(),
		MilestoneReached: milestone,
	})
}

func (h *Handlers) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var withdrawalPayload models.WithdrawalRequest

	if err := json.NewDecoder(r.Body).Decode(&withdrawalPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	ident, err := h.identityFromRequest(r)
	if err != nil {
		h.log.Error("identityFromRequest()", slog.Any("error", err))
		handleError(w, errmsg.ErrSessionMissing)

		return
	}

	withdrawal, err := withdrawals.CreateWithdrawal(
		ident.ID(), withdrawalPayload.Amount, withdrawalPayload.Currency, withdrawalPayload.Description,
	)
	if err != nil {
		switch {
		case errors.Is(err, withdrawals.ErrAmountNotPositive):
			handleError(w, errmsg.ErrWithdrawalAmountInvalid)
		case errors.Is(err, withdrawals.ErrCurrencyEmpty):
			handleError(w, errmsg.ErrWithdrawalCurrencyMissing)
		default:
			h.log.Error("withdrawals.CreateWithdrawal()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	if err := h.selector.For(ident).CreateWithdrawal(r.Context(), withdrawal); err != nil {
		h.log.Error("storage.CreateWithdrawal()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := h.notifier.NotifyWithdrawal(r.Context(), withdrawal); err != nil {
		// Best effort; the withdrawal record already exists.
		h.log.Error("notifier.NotifyWithdrawal()", slog.Any("error", err))
	}

	handleJSONResponse(w, http.StatusCreated, models.WithdrawalResponse{
		ID:          withdrawal.ID(),
		Amount:      displayAmount(withdrawal.Amount()),
		Currency:    withdrawal.Currency(),
		Description: withdrawal.Description(),
		Status:      string(withdrawal.Status()),
		CreatedAt:   withdrawal.CreatedAt().Format(time.RFC3339),
	})
}

func (h *Handlers) GetUserWithdrawals(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromRequest(r)
	if err != nil {
		h.log.Error("identityFromRequest()", slog.Any("error", err))
		handleError(w, errmsg.ErrSessionMissing)

		return
	}

	wdrs, err := h.selector.For(ident).GetWithdrawalsByUserID(r.Context(), ident.ID())
	if err != nil {
		if errors.Is(err, storage.ErrWithdrawalsNotFound) {
			handleJSONResponse(w, http.StatusNoContent, []models.WithdrawalResponse{})

			return
		}

		h.log.Error("storage.GetWithdrawalsByUserID()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if len(wdrs) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.WithdrawalResponse{})

		return
	}

	resp := make([]models.WithdrawalResponse, len(wdrs))
	for i, wdr := range wdrs {
		resp[i] = models.WithdrawalResponse{
			ID:          wdr.ID(),
			Amount:      displayAmount(wdr.Amount()),
			Currency:    wdr.Currency(),
			Description: wdr.Description(),
			Status:      string(wdr.Status()),
			CreatedAt:   wdr.CreatedAt().Format(time.RFC3339),
		}
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

func (h *Handlers) CreateStakingPosition(w http.ResponseWriter, r *http.Request) {
	var stakingPayload models.StakingRequest

	if err := json.NewDecoder(r.Body).Decode(&stakingPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	ident, err := h.identityFromRequest(r)
	if err != nil {
		h.log.Error("identityFromRequest()", slog.Any("error", err))
		handleError(w, errmsg.ErrSessionMissing)

		return
	}

	position, err := staking.CreatePosition(ident.ID(), stakingPayload.Plan, stakingPayload.Amount)
	if err != nil {
		switch {
		case errors.Is(err, staking.ErrPlanUnknown):
			handleError(w, errmsg.ErrStakingPlanUnknown)
		case errors.Is(err, staking.ErrAmountNotPositive):
			handleError(w, errmsg.ErrStakingAmountInvalid)
		default:
			h.log.Error("staking.CreatePosition()", slog.Any("error", err))
			handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))
		}

		return
	}

	if err := h.selector.For(ident).CreateStakingPosition(r.Context(), position); err != nil {
		h.log.Error("storage.CreateStakingPosition()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusCreated, models.StakingResponse{
		ID:        position.ID(),
		Plan:      position.Plan().Name(),
		Amount:    displayAmount(position.Amount()),
		Status:    position.Status().String(),
		CreatedAt: position.CreatedAt().Format(time.RFC3339),
		EndsAt:    position.EndsAt().Format(time.RFC3339),
	})
}

func (h *Handlers) GetStakingPositions(w http.ResponseWriter, r *http.Request) {
	ident, err := h.identityFromRequest(r)
	if err != nil {
		h.log.Error("identityFromRequest()", slog.Any("error", err))
		handleError(w, errmsg.ErrSessionMissing)

		return
	}

	positions, err := h.selector.For(ident).GetStakingPositionsByUserID(r.Context(), ident.ID())
	if err != nil {
		if errors.Is(err, storage.ErrStakingNotFound) {
			handleJSONResponse(w, http.StatusNoContent, []models.StakingResponse{})

			return
		}

		h.log.Error("storage.GetStakingPositionsByUserID()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if len(positions) == 0 {
		handleJSONResponse(w, http.StatusNoContent, []models.StakingResponse{})

		return
	}

	resp := make([]models.StakingResponse, len(positions))
	for i, position := range positions {
		resp[i] = models.StakingResponse{
			ID:        position.ID(),
			Plan:      position.Plan().Name(),
			Amount:    displayAmount(position.Amount()),
			Status:    position.Status().String(),
			CreatedAt: position.CreatedAt().Format(time.RFC3339),
			EndsAt:    position.EndsAt().Format(time.RFC3339),
		}
	}

	handleJSONResponse(w, http.StatusOK, resp)
}

// PaymentCallback grants VIP status after a successful payment. The
// signature field is carried but not verified; real payment processing
// needs a signing scheme before this endpoint can be trusted.
func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var callbackPayload models.PaymentCallbackRequest

	if err := json.NewDecoder(r.Body).Decode(&callbackPayload); err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
			handleError(w, errmsg.ErrRequestPayloadEmpty)

			return
		}

		h.log.Error("json.NewDecoder().Decode()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	defer r.Body.Close()

	if callbackPayload.Status != "success" {
		handleError(w, errmsg.ErrPaymentNotSuccessful)

		return
	}

	if callbackPayload.Amount.LessThan(minPaymentAmount) {
		handleError(w, errmsg.ErrPaymentAmountTooSmall)

		return
	}

	ident, err := identity.Resolve(callbackPayload.UserID)
	if err != nil {
		h.log.Error("identity.Resolve()", slog.Any("error", err))
		handleError(w, errmsg.ErrRequestPayloadInvalid)

		return
	}

	store := h.selector.For(ident)

	expiresAt := h.now().Add(vipDuration)

	if err := store.SetVIPStatus(r.Context(), ident.ID(), users.NewVIPStatus(vipTier, expiresAt)); err != nil {
		h.log.Error("storage.SetVIPStatus()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	deposit, err := deposits.CreateDeposit(ident.ID(), callbackPayload.Amount, deposits.StatusVerified)
	if err != nil {
		h.log.Error("deposits.CreateDeposit()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	if err := store.CreateDeposit(r.Context(), deposit); err != nil {
		h.log.Error("storage.CreateDeposit()", slog.Any("error", err))
		handleError(w, errmsg.NewHTTPError(http.StatusInternalServerError, err))

		return
	}

	handleJSONResponse(w, http.StatusOK, models.PaymentCallbackResponse{
		UserID:    ident.ID(),
		Tier:      vipTier,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}
