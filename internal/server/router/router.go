package router

import (
	"log/slog"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/stakeplay/stakeplay/internal/auth"
	"github.com/stakeplay/stakeplay/internal/server/handlers"
	"github.com/stakeplay/stakeplay/internal/storage"
)

type Options struct {
	log      *slog.Logger
	secret   []byte
	handlers []handlers.Option
}

func NewRouter(selector *storage.Selector, opts ...Option) chi.Router {
	r := chi.NewRouter()

	rOpts := Options{
		log:    slog.New(&slog.JSONHandler{}),
		secret: []byte(""),
	}

	for _, opt := range opts {
		opt(&rOpts)
	}

	tokenAuth := jwtauth.New("HS256", rOpts.secret, nil)

	r.Use(
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Logger,
	)

	hOpts := append([]handlers.Option{
		handlers.WithLogger(rOpts.log),
		handlers.WithAuth(auth.NewJWTAuth(rOpts.secret)),
	}, rOpts.handlers...)

	h := handlers.NewHandlers(selector, hOpts...)

	r.Get("/ping", h.Ping)

	r.Group(func(r chi.Router) {
		r.Post("/api/user/register", h.UserRegister)
		r.Post("/api/user/login", h.UserLogin)
		r.Post("/api/user/guest", h.GuestSession)
		r.Post("/api/payment/callback", h.PaymentCallback)
	})

	r.Group(func(r chi.Router) {
		r.Use(
			jwtauth.Verifier(tokenAuth),
			jwtauth.Authenticator(tokenAuth),
		)

		r.Get("/api/user/balance", h.GetUserBalance)
		r.Get("/api/rewards/{stream}", h.GetRewardStatus)
		r.Post("/api/rewards/{stream}/claim", h.ClaimReward)
		r.Get("/api/user/withdrawals", h.GetUserWithdrawals)
		r.Post("/api/user/withdrawals", h.CreateWithdrawal)
		r.Get("/api/user/staking", h.GetStakingPositions)
		r.Post("/api/user/staking", h.CreateStakingPosition)
	})

	return r
}

type Option func(r *Options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.log = logger
	}
}

func WithSecret(secret []byte) Option {
	return func(o *Options) {
		o.secret = secret
	}
}

// WithHandlerOptions forwards extra options to the handlers, used by the
// app wiring to inject the reward generator and notifier.
func WithHandlerOptions(opts ...handlers.Option) Option {
	return func(o *Options) {
		o.handlers = append(o.handlers, opts...)
	}
}
