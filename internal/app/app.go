package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/stakeplay/stakeplay/internal/config"
	"github.com/stakeplay/stakeplay/internal/httpclient"
	"github.com/stakeplay/stakeplay/internal/logger"
	"github.com/stakeplay/stakeplay/internal/notifier"
	"github.com/stakeplay/stakeplay/internal/server"
	"github.com/stakeplay/stakeplay/internal/server/handlers"
	"github.com/stakeplay/stakeplay/internal/storage"
	"github.com/stakeplay/stakeplay/internal/storage/inmemory"
	"github.com/stakeplay/stakeplay/internal/storage/pgstorage"
	"github.com/stakeplay/stakeplay/internal/sweeper"
)

type Application struct {
	log     *slog.Logger
	server  *server.Server
	sweeper *sweeper.Sweeper
	store   storage.Storage
}

func New() (*Application, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config.NewConfig: %w", err)
	}

	logLevel, err := logger.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger.ParseLogLevel: %w", err)
	}

	logg := logger.NewLogger(
		logger.WithLevel(logLevel),
		logger.WithFormat(logger.LogFormatJSON),
		logger.WithAddSource(false),
	)

	// The durable store backs UUID identities; the local store serves
	// guest sessions. Without a database URI everything runs in memory.
	var durable storage.Storage = inmemory.NewStorage()

	if cfg.DatabaseURI != "" {
		pgstore, err := pgstorage.NewStorage(cfg.DatabaseURI)
		if err != nil {
			return nil, fmt.Errorf("pgstorage.NewStorage: %w", err)
		}

		if err := pgstore.Bootstrap(context.Background()); err != nil {
			return nil, fmt.Errorf("pgstorage.Bootstrap: %w", err)
		}

		durable = pgstore
	}

	selector := storage.NewSelector(durable, inmemory.NewStorage())

	bonusAmount, err := decimal.NewFromString(cfg.DailyBonusAmount)
	if err != nil {
		return nil, fmt.Errorf("decimal.NewFromString: %w", err)
	}

	ntf := notifier.New(
		notifier.WithLogger(logg),
		notifier.WithClient(httpclient.New()),
		notifier.WithWebhookURL(cfg.WebhookURL),
	)

	srv, err := server.NewServer(
		selector,
		server.WithServerAddr(cfg.ServerAddr),
		server.WithJWTSecretKey([]byte(cfg.JWTSecretKey)),
		server.WithLogger(logg),
		server.WithHandlerOptions(handlers.WithNotifier(ntf)),
	)
	if err != nil {
		return nil, fmt.Errorf("server.NewServer: %w", err)
	}

	swp := sweeper.New(
		durable,
		sweeper.WithLogger(logg),
		sweeper.WithBonusAmount(bonusAmount),
		sweeper.WithInterval(cfg.SweepInterval),
	)

	return &Application{
		log:     logg,
		server:  srv,
		sweeper: swp,
		store:   durable,
	}, nil
}

func (a *Application) Run() error {
	errChan := make(chan error, 1)

	go func() {
		if err := a.server.Start(); err != nil {
			errChan <- fmt.Errorf("server.Start: %w", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := a.sweeper.Run(ctx); err != nil {
			errChan <- fmt.Errorf("sweeper.Run: %w", err)
		}
	}()

	// Graceful shutdown handler
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case err := <-errChan:
			return err

		case <-quit:
			a.log.Info("Gracefully shutting down application...")

			cancel()

			if err := a.server.Shutdown(context.Background()); err != nil {
				a.log.Error("server.Shutdown", slog.Any("error", err))
			}

			if err := a.store.Close(); err != nil {
				a.log.Error("storage.Close", slog.Any("error", err))
			}

			return nil
		}
	}
}
