package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	// Postgres driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/stakeplay/stakeplay/internal/domain/claims"
	"github.com/stakeplay/stakeplay/internal/domain/deposits"
	"github.com/stakeplay/stakeplay/internal/domain/rewards"
	"github.com/stakeplay/stakeplay/internal/domain/staking"
	"github.com/stakeplay/stakeplay/internal/domain/users"
	"github.com/stakeplay/stakeplay/internal/domain/wallet"
	"github.com/stakeplay/stakeplay/internal/domain/withdrawals"
	"github.com/stakeplay/stakeplay/internal/storage"
	"github.com/stakeplay/stakeplay/internal/storage/dbmodels"
)

var _ storage.Storage = (*Storage)(nil)

type Storage struct {
	db *sql.DB
}

type Config struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
}

type Option func(s *Config)

func WithMaxOpenConns(conns int) Option {
	return func(c *Config) {
		c.maxOpenConns = conns
	}
}

func WithMaxIdleConns(conns int) Option {
	return func(c *Config) {
		c.maxIdleConns = conns
	}
}

func WithConnMaxIdleTime(idleTime time.Duration) Option {
	return func(c *Config) {
		c.connMaxIdleTime = idleTime
	}
}

func WithConnMaxLifetime(lifetime time.Duration) Option {
	return func(c *Config) {
		c.connMaxLifetime = lifetime
	}
}

func NewStorage(connStr string, opts ...Option) (*Storage, error) {
	cfg := &Config{
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxIdleTime: 180 * time.Second,
		connMaxLifetime: 3600 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)

	return &Storage{
		db: db,
	}, nil
}

func (s *Storage) Bootstrap(ctx context.Context) error {
	provider, err := goose.NewProvider(
		goose.DialectPostgres,
		s.db,
		os.DirFS("internal/storage/pgstorage/migrations"),
	)
	if err != nil {
		return fmt.Errorf("goose.NewProvider: %w", err)
	}

	_, err = provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("provider.Up: %w", err)
	}

	return nil
}

func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db.Close: %w", err)
	}

	return nil
}

// isRetryableError checks if error is retryable.
func isRetryableError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return true
	}

	return false
}

// WithRetry retries operations in case of retryable errors.
func WithRetry(operation func() error) error {
	retryCount := 3

	var retryWaitTime time.Duration

	retryWaitInterval := 2

	var err error

	for i := 0; i < retryCount; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if isRetryableError(err) {
			retryWaitTime = time.Duration((i*retryWaitInterval + 1)) * time.Second // 1s, 3s, 5s, etc.

			time.Sleep(retryWaitTime)
		} else {
			return fmt.Errorf("%w", err)
		}
	}

	return fmt.Errorf("retry attempts exceeded: %w", err)
}

func (s *Storage) Ping(ctx context.Context) error {
	err := WithRetry(func() error {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.PingContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateUser(ctx context.Context, usr *users.User) error {
	err := WithRetry(func() error {
		query := `INSERT INTO users (id, login, password_hash) VALUES ($1, $2, $3)`

		if _, err := s.db.ExecContext(ctx, query, usr.ID(), usr.Login(), usr.PasswordHash()); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrUserAlreadyExists
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*users.User, error) {
	dbUser := new(dbmodels.User)

	err := WithRetry(func() error {
		query := `SELECT id, login, password_hash FROM users WHERE login = $1`

		row := s.db.QueryRowContext(ctx, query, login)

		if err := row.Scan(&dbUser.ID, &dbUser.Login, &dbUser.PasswordHash); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	usr, err := users.NewUser(dbUser.ID, dbUser.Login, dbUser.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("users.NewUser: %w", err)
	}

	return usr, nil
}

func (s *Storage) SetVIPStatus(ctx context.Context, userID string, vip users.VIPStatus) error {
	err := WithRetry(func() error {
		query := `INSERT INTO user_vip (user_id, tier, expires_at) VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO UPDATE SET tier = EXCLUDED.tier, expires_at = EXCLUDED.expires_at`

		if _, err := s.db.ExecContext(ctx, query, userID, vip.Tier(), vip.ExpiresAt()); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetVIPStatus(ctx context.Context, userID string) (users.VIPStatus, error) {
	dbVIP := new(dbmodels.VIPStatus)

	err := WithRetry(func() error {
		query := `SELECT user_id, tier, expires_at, bonus_claimed_on FROM user_vip WHERE user_id = $1`

		row := s.db.QueryRowContext(ctx, query, userID)

		if err := row.Scan(&dbVIP.UserID, &dbVIP.Tier, &dbVIP.ExpiresAt, &dbVIP.BonusClaimedOn); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// No row means no VIP, not an error.
				return nil
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return users.VIPStatus{}, err
	}

	return users.NewVIPStatus(dbVIP.Tier, dbVIP.ExpiresAt), nil
}

func (s *Storage) GetWallet(ctx context.Context, userID string) (*wallet.Wallet, error) {
	balances := make(map[rewards.Token]decimal.Decimal)

	err := WithRetry(func() error {
		query := `SELECT token, amount FROM user_wallets WHERE user_id = $1`

		rows, err := s.db.QueryContext(ctx, query, userID)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbBalance := new(dbmodels.WalletBalance)

			if err := rows.Scan(&dbBalance.Token, &dbBalance.Amount); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			balances[rewards.Token(dbBalance.Token)] = dbBalance.Amount
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	wlt, err := wallet.NewWallet(userID, balances)
	if err != nil {
		return nil, fmt.Errorf("wallet.NewWallet: %w", err)
	}

	return wlt, nil
}

func (s *Storage) CreditWallet(ctx context.Context, userID string, token rewards.Token, amount decimal.Decimal) error {
	err := WithRetry(func() error {
		if err := creditWallet(ctx, s.db, userID, token, amount); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// execer lets wallet credits run on either the pool or an open transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// creditWallet upserts a clamped-at-zero balance delta for one token row.
func creditWallet(ctx context.Context, db execer, userID string, token rewards.Token, amount decimal.Decimal) error {
	query := `INSERT INTO user_wallets (user_id, token, amount) VALUES ($1, $2, GREATEST(0, $3))
		ON CONFLICT (user_id, token) DO UPDATE SET amount = GREATEST(0, user_wallets.amount + $3)`

	if _, err := db.ExecContext(ctx, query, userID, string(token), amount); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return nil
}

func (s *Storage) GetClaimState(ctx context.Context, userID, stream string) (*claims.State, error) {
	dbClaim := new(dbmodels.ClaimState)

	err := WithRetry(func() error {
		query := `SELECT last_claim_at, next_claim_at, total_amount, claim_count FROM reward_claims
			WHERE user_id = $1 AND stream = $2`

		row := s.db.QueryRowContext(ctx, query, userID, stream)

		if err := row.Scan(&dbClaim.LastClaimAt, &dbClaim.NextClaimAt, &dbClaim.Total, &dbClaim.Count); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Never claimed: zero state, claimable.
				dbClaim.Total = decimal.Zero

				return nil
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return claims.NewState(stream, dbClaim.LastClaimAt, dbClaim.NextClaimAt, dbClaim.Total, dbClaim.Count), nil
}

func (s *Storage) ApplyClaim(ctx context.Context, claim *claims.Claim) (*claims.State, error) {
	dbClaim := new(dbmodels.ClaimState)

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		// Conditional cooldown transition: the upsert only applies when
		// the stored next_claim_at has elapsed at the claim time, so two
		// concurrent claims cannot both pass the gate.
		query := `INSERT INTO reward_claims (user_id, stream, last_claim_at, next_claim_at, total_amount, claim_count)
			VALUES ($1, $2, $3, $4, $5, 1)
			ON CONFLICT (user_id, stream) DO UPDATE SET
				last_claim_at = EXCLUDED.last_claim_at,
				next_claim_at = EXCLUDED.next_claim_at,
				total_amount = reward_claims.total_amount + EXCLUDED.total_amount,
				claim_count = reward_claims.claim_count + 1
			WHERE reward_claims.next_claim_at <= EXCLUDED.last_claim_at
			RETURNING last_claim_at, next_claim_at, total_amount, claim_count`

		row := tx.QueryRowContext(ctx, query,
			claim.UserID(), claim.Stream().Name(), claim.ClaimedAt(), claim.NextClaimAt(), claim.Amount(),
		)

		if err := row.Scan(&dbClaim.LastClaimAt, &dbClaim.NextClaimAt, &dbClaim.Total, &dbClaim.Count); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrClaimNotReady
			}

			return fmt.Errorf("tx.QueryRowContext: %w", err)
		}

		if err := creditWallet(ctx, tx, claim.UserID(), claim.Stream().Token(), claim.Amount()); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return claims.NewState(
		claim.Stream().Name(), dbClaim.LastClaimAt, dbClaim.NextClaimAt, dbClaim.Total, dbClaim.Count,
	), nil
}

func (s *Storage) ListVIPUsers(ctx context.Context, now time.Time) ([]string, error) {
	userIDs := make([]string, 0)

	err := WithRetry(func() error {
		query := `SELECT user_id FROM user_vip WHERE tier <> '' AND expires_at > $1 ORDER BY user_id`

		rows, err := s.db.QueryContext(ctx, query, now)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var userID string

			if err := rows.Scan(&userID); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			userIDs = append(userIDs, userID)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return userIDs, nil
}

func (s *Storage) ApplyDailyBonus(ctx context.Context, userID, date string, amount decimal.Decimal) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		// Stamping the date marker is conditional so a sweep re-run on the
		// same date cannot credit twice.
		query := `UPDATE user_vip SET bonus_claimed_on = $2
			WHERE user_id = $1 AND bonus_claimed_on IS DISTINCT FROM $2
			RETURNING user_id`

		var stamped string

		if err := tx.QueryRowContext(ctx, query, userID, date).Scan(&stamped); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrBonusAlreadyClaimed
			}

			return fmt.Errorf("tx.QueryRowContext: %w", err)
		}

		if err := creditWallet(ctx, tx, userID, rewards.TokenCoin, amount); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateWithdrawal(ctx context.Context, wdr *withdrawals.Withdrawal) error {
	err := WithRetry(func() error {
		query := `INSERT INTO withdrawals (id, user_id, amount, currency, description, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := s.db.ExecContext(ctx, query,
			wdr.ID(), wdr.UserID(), wdr.Amount(), wdr.Currency(), wdr.Description(), string(wdr.Status()), wdr.CreatedAt(),
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetWithdrawalsByUserID(ctx context.Context, userID string) ([]*withdrawals.Withdrawal, error) {
	dbWithdrawals := make([]*dbmodels.Withdrawal, 0)

	err := WithRetry(func() error {
		query := `SELECT id, user_id, amount, currency, description, status, created_at FROM withdrawals
			WHERE user_id = $1 ORDER BY created_at DESC`

		rows, err := s.db.QueryContext(ctx, query, userID)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbWithdrawal := new(dbmodels.Withdrawal)

			if err := rows.Scan(
				&dbWithdrawal.ID, &dbWithdrawal.UserID, &dbWithdrawal.Amount, &dbWithdrawal.Currency,
				&dbWithdrawal.Description, &dbWithdrawal.Status, &dbWithdrawal.CreatedAt,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbWithdrawals = append(dbWithdrawals, dbWithdrawal)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	wdrs := make([]*withdrawals.Withdrawal, 0, len(dbWithdrawals))

	for _, dbWithdrawal := range dbWithdrawals {
		wdr, err := withdrawals.NewWithdrawal(
			dbWithdrawal.ID,
			dbWithdrawal.UserID,
			dbWithdrawal.Amount,
			dbWithdrawal.Currency,
			dbWithdrawal.Description,
			withdrawals.Status(dbWithdrawal.Status),
			dbWithdrawal.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("withdrawals.NewWithdrawal: %w", err)
		}

		wdrs = append(wdrs, wdr)
	}

	return wdrs, nil
}

func (s *Storage) CreateDeposit(ctx context.Context, dep *deposits.Deposit) error {
	err := WithRetry(func() error {
		query := `INSERT INTO deposits (id, user_id, amount, status, created_at) VALUES ($1, $2, $3, $4, $5)`

		if _, err := s.db.ExecContext(ctx, query,
			dep.ID(), dep.UserID(), dep.Amount(), string(dep.Status()), dep.CreatedAt(),
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateStakingPosition(ctx context.Context, pos *staking.Position) error {
	err := WithRetry(func() error {
		query := `INSERT INTO staking_positions (id, user_id, plan, amount, status, created_at, ends_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`

		if _, err := s.db.ExecContext(ctx, query,
			pos.ID(), pos.UserID(), pos.Plan().Name(), pos.Amount(), pos.Status().String(), pos.CreatedAt(), pos.EndsAt(),
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetStakingPositionsByUserID(ctx context.Context, userID string) ([]*staking.Position, error) {
	query := `SELECT id, user_id, plan, amount, status, created_at, ends_at FROM staking_positions
		WHERE user_id = $1 ORDER BY created_at DESC`

	return s.queryStakingPositions(ctx, query, userID)
}

func (s *Storage) GetStakingPositionsByStatus(ctx context.Context, statuses ...staking.Status) ([]*staking.Position, error) {
	query := `SELECT id, user_id, plan, amount, status, created_at, ends_at FROM staking_positions`

	if len(statuses) == 0 {
		query += ` ORDER BY created_at DESC`

		return s.queryStakingPositions(ctx, query)
	}

	query += ` WHERE status = ANY($1) ORDER BY created_at DESC`

	return s.queryStakingPositions(ctx, query, pq.Array(statuses))
}

func (s *Storage) queryStakingPositions(ctx context.Context, query string, args ...any) ([]*staking.Position, error) {
	dbPositions := make([]*dbmodels.StakingPosition, 0)

	err := WithRetry(func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbPosition := new(dbmodels.StakingPosition)

			if err := rows.Scan(
				&dbPosition.ID, &dbPosition.UserID, &dbPosition.Plan, &dbPosition.Amount,
				&dbPosition.Status, &dbPosition.CreatedAt, &dbPosition.EndsAt,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbPositions = append(dbPositions, dbPosition)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	positions := make([]*staking.Position, 0, len(dbPositions))

	for _, dbPosition := range dbPositions {
		pos, err := staking.NewPosition(
			dbPosition.ID,
			dbPosition.UserID,
			dbPosition.Plan,
			dbPosition.Amount,
			staking.Status(dbPosition.Status),
			dbPosition.CreatedAt,
			dbPosition.EndsAt,
		)
		if err != nil {
			return nil, fmt.Errorf("staking.NewPosition: %w", err)
		}

		positions = append(positions, pos)
	}

	return positions, nil
}
