// Package chain exposes the external block-height signal consumed by the
// cycle manager.
package chain

import (
	"context"
	"net/http"
	"time"

	"juscat/transport"
)

// Client reads the best block height from the chain nodes over JSON-RPC,
// sweeping the configured endpoints in order. It implements
// rewards.BlockSource.
type Client struct {
	failover *transport.Failover
	http     *http.Client
}

// NewClient builds a chain client over the given endpoints. Each attempt is
// bounded by timeout.
func NewClient(endpoints []string, timeout time.Duration) *Client {
	return &Client{
		failover: transport.NewFailover(endpoints, timeout),
		http:     &http.Client{Timeout: timeout},
	}
}

// CurrentBlock returns the best block height observed by the first healthy
// endpoint.
func (c *Client) CurrentBlock(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.failover.Do(ctx, func(ctx context.Context, endpoint string) error {
		return transport.CallJSONRPC(ctx, c.http, endpoint, "chain_getBestBlock", nil, &height)
	})
	if err != nil {
		return 0, err
	}
	return height, nil
}

// FixedSource returns a constant height; used by tests and dry runs.
type FixedSource uint64

// CurrentBlock returns the fixed height.
func (s FixedSource) CurrentBlock(context.Context) (uint64, error) {
	return uint64(s), nil
}
