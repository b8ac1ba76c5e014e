package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr       string        `env:"RUN_ADDRESS"`
	LogLevel         string        `env:"LOG_LEVEL"`
	DatabaseURI      string        `env:"DATABASE_URI"`
	JWTSecretKey     string        `env:"JWT_SECRET_KEY"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL"`
	DailyBonusAmount string        `env:"DAILY_BONUS_AMOUNT"`
	WebhookURL       string        `env:"WITHDRAWAL_WEBHOOK_URL"`
}

func NewConfig() (Config, error) {
	// Optional .env file for local runs; absence is not an error.
	_ = godotenv.Load()

	cfg := Config{}

	flag.StringVar(&cfg.ServerAddr, "a", "0.0.0.0:8080", "server listening address [env:RUN_ADDRESS]")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log output level [env:LOG_LEVEL]")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database connection string [env:DATABASE_URI]")
	flag.StringVar(&cfg.JWTSecretKey, "s", "secretkey", "JWT secret to sign tokens [env:JWT_SECRET_KEY]")
	flag.DurationVar(&cfg.SweepInterval, "i", 1*time.Hour, "daily bonus sweep interval [env:SWEEP_INTERVAL]")
	flag.StringVar(&cfg.DailyBonusAmount, "b", "0.5", "daily VIP bonus amount [env:DAILY_BONUS_AMOUNT]")
	flag.StringVar(&cfg.WebhookURL, "w", "", "withdrawal notification webhook URL [env:WITHDRAWAL_WEBHOOK_URL]")
	flag.Parse()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env.Parse: %w", err)
	}

	return cfg, nil
}
