// Package payout abstracts the external fund-transfer capability.
package payout

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"juscat/transport"
)

// Client transfers funds through the external payout service over JSON-RPC,
// sweeping the configured endpoints in order. It implements
// rewards.PayoutSink.
type Client struct {
	failover *transport.Failover
	http     *http.Client
}

// NewClient builds a payout client over the given endpoints. Each attempt is
// bounded by timeout.
func NewClient(endpoints []string, timeout time.Duration) *Client {
	return &Client{
		failover: transport.NewFailover(endpoints, timeout),
		http:     &http.Client{Timeout: timeout},
	}
}

// Payout instructs the fund source to transfer amount to the given actor.
func (c *Client) Payout(ctx context.Context, to string, amount *big.Int) error {
	return c.failover.Do(ctx, func(ctx context.Context, endpoint string) error {
		return transport.CallJSONRPC(ctx, c.http, endpoint, "funds_payout",
			[]interface{}{to, amount.String()}, nil)
	})
}

// NoopSink logs transfers instead of performing them. Used for dry runs and
// local development.
type NoopSink struct {
	Logger *slog.Logger
}

// Payout records the would-be transfer and succeeds.
func (s *NoopSink) Payout(_ context.Context, to string, amount *big.Int) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("payout skipped (noop sink)", "to", to, "amount", amount.String())
	return nil
}
