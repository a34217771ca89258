// Package registry provides the authoritative passport-registry client and
// the persistent store for registry-confirmed grants.
package registry

import (
	"context"
	"net/http"
	"time"

	"juscat/transport"
)

// Client queries the authoritative passport registry over JSON-RPC, sweeping
// the configured endpoints in order. It implements rewards.Registry.
type Client struct {
	failover *transport.Failover
	http     *http.Client
}

// NewClient builds a registry client over the given endpoints. Each attempt
// is bounded by timeout.
func NewClient(endpoints []string, timeout time.Duration) *Client {
	return &Client{
		failover: transport.NewFailover(endpoints, timeout),
		http:     &http.Client{Timeout: timeout},
	}
}

// QueryAccess asks the registry whether the actor holds a passport.
func (c *Client) QueryAccess(ctx context.Context, actor string) (bool, error) {
	var held bool
	err := c.failover.Do(ctx, func(ctx context.Context, endpoint string) error {
		return transport.CallJSONRPC(ctx, c.http, endpoint, "passport_hasPassport", []interface{}{actor}, &held)
	})
	if err != nil {
		return false, err
	}
	return held, nil
}

// TotalPassports reports how many passports the registry has issued.
func (c *Client) TotalPassports(ctx context.Context) (uint64, error) {
	var total uint64
	err := c.failover.Do(ctx, func(ctx context.Context, endpoint string) error {
		return transport.CallJSONRPC(ctx, c.http, endpoint, "passport_totalSupply", nil, &total)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
