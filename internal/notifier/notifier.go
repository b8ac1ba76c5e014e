// Package notifier dispatches webhook notifications for withdrawal
// requests. Delivery is best effort: a failed notification is logged and
// never fails the request that triggered it.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/stakeplay/stakeplay/internal/domain/withdrawals"
	"github.com/stakeplay/stakeplay/internal/httpclient"
)

type Notifier struct {
	log        *slog.Logger
	client     *resty.Client
	webhookURL string
}

func New(opts ...Option) *Notifier {
	ntf := &Notifier{
		log:    slog.New(&slog.JSONHandler{}),
		client: httpclient.New(),
	}

	for _, opt := range opts {
		opt(ntf)
	}

	return ntf
}

type Option func(n *Notifier)

func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.log = logger
	}
}

func WithClient(client *resty.Client) Option {
	return func(n *Notifier) {
		n.client = client
	}
}

func WithWebhookURL(url string) Option {
	return func(n *Notifier) {
		n.webhookURL = url
	}
}

type withdrawalEvent struct {
	Event        string  `json:"event"`
	WithdrawalID string  `json:"withdrawal_id"`
	UserID       string  `json:"user_id"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Description  string  `json:"description,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// NotifyWithdrawal posts a withdrawal-requested event to the configured
// webhook. With no webhook configured it is a no-op.
func (n *Notifier) NotifyWithdrawal(ctx context.Context, wdr *withdrawals.Withdrawal) error {
	if n.webhookURL == "" {
		return nil
	}

	event := withdrawalEvent{
		Event:        "withdrawal.requested",
		WithdrawalID: wdr.ID(),
		UserID:       wdr.UserID(),
		Amount:       wdr.Amount().InexactFloat64(),
		Currency:     wdr.Currency(),
		Description:  wdr.Description(),
		CreatedAt:    wdr.CreatedAt().Format(time.RFC3339),
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(event).
		Post(n.webhookURL)
	if err != nil {
		return fmt.Errorf("client.R: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	return nil
}
