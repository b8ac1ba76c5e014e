package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stakeplay/stakeplay/internal/server/handlers"
	"github.com/stakeplay/stakeplay/internal/server/router"
	"github.com/stakeplay/stakeplay/internal/storage"
)

type Server struct {
	srv *http.Server
	log *slog.Logger
}

type Config struct {
	addr        string
	secret      []byte
	logger      *slog.Logger
	handlerOpts []handlers.Option
}

type Option func(c *Config)

func WithServerAddr(addr string) Option {
	return func(c *Config) {
		c.addr = addr
	}
}

func WithJWTSecretKey(secret []byte) Option {
	return func(c *Config) {
		c.secret = secret
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func WithHandlerOptions(opts ...handlers.Option) Option {
	return func(c *Config) {
		c.handlerOpts = append(c.handlerOpts, opts...)
	}
}

func NewServer(selector *storage.Selector, opts ...Option) (*Server, error) {
	cfg := &Config{
		addr:   "0.0.0.0:8080",
		secret: []byte(""),
		logger: slog.New(&slog.JSONHandler{}),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := router.NewRouter(selector,
		router.WithLogger(cfg.logger),
		router.WithSecret(cfg.secret),
		router.WithHandlerOptions(cfg.handlerOpts...),
	)

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return &Server{
		srv: srv,
		log: cfg.logger,
	}, nil
}

func (s *Server) Start() error {
	s.log.Info(fmt.Sprintf("Starting server on %s", s.srv.Addr))

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}

	return nil
}
