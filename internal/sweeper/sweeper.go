// Package sweeper credits the daily VIP bonus. A sweep is one batch pass
// over all active VIP users; scheduling is external to the pass itself.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stakeplay/stakeplay/internal/storage"
)

type Sweeper struct {
	log         *slog.Logger
	storage     storage.Storage
	bonusAmount decimal.Decimal
	interval    time.Duration
	now         func() time.Time
}

type Config struct {
	logger      *slog.Logger
	bonusAmount decimal.Decimal
	interval    time.Duration
	now         func() time.Time
}

func New(store storage.Storage, opts ...Option) *Sweeper {
	cfg := &Config{
		logger:      slog.New(&slog.JSONHandler{}),
		bonusAmount: decimal.NewFromFloat(0.5),
		interval:    1 * time.Hour,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &Sweeper{
		log:         cfg.logger.With(slog.String("module", "sweeper")),
		storage:     store,
		bonusAmount: cfg.bonusAmount,
		interval:    cfg.interval,
		now:         cfg.now,
	}
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func WithBonusAmount(amount decimal.Decimal) Option {
	return func(c *Config) {
		c.bonusAmount = amount
	}
}

func WithInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.interval = interval
	}
}

// WithNow overrides the clock, used by tests to pin the calendar date.
func WithNow(now func() time.Time) Option {
	return func(c *Config) {
		c.now = now
	}
}

// Result is the outcome of one user's bonus credit within a sweep.
type Result struct {
	UserID   string
	Credited bool
	Err      error
}

// Sweep runs one batch pass: every user with active VIP status gets the
// fixed bonus credited at most once per UTC calendar date. Per-user
// failures are collected, not propagated; one bad row never halts the
// pass, and a re-run on the same date is a no-op.
func (s *Sweeper) Sweep(ctx context.Context) ([]Result, error) {
	now := s.now()
	date := now.UTC().Format(time.DateOnly)

	userIDs, err := s.storage.ListVIPUsers(ctx, now)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	results := make([]Result, 0, len(userIDs))

	var credited, skipped, failed int

	for _, userID := range userIDs {
		err := s.storage.ApplyDailyBonus(ctx, userID, date, s.bonusAmount)

		switch {
		case err == nil:
			credited++

			results = append(results, Result{UserID: userID, Credited: true})

		case errors.Is(err, storage.ErrBonusAlreadyClaimed):
			skipped++

			results = append(results, Result{UserID: userID})

		default:
			failed++

			s.log.Error("storage.ApplyDailyBonus",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)

			results = append(results, Result{UserID: userID, Err: err})
		}
	}

	s.log.Info("Daily bonus sweep complete",
		slog.String("date", date),
		slog.Int("eligible", len(userIDs)),
		slog.Int("credited", credited),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)

	return results, nil
}

// Run drives sweeps on the configured interval until the context is done.
// The date marker makes extra passes within one day harmless.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Start daily bonus sweeper")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Context done, stopping daily bonus sweeper")

			return nil

		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("sweeper.Sweep", slog.Any("error", err))
			}
		}
	}
}
