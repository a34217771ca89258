// Package classifier wraps the black-box image-authenticity oracle. The
// ledger only consumes the validity score; how the oracle derives it is out
// of scope.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"juscat/transport"
)

// Result carries the oracle's verdict for a submitted photo.
type Result struct {
	ValidityFactor float64 `json:"validityFactor"`
	Reason         string  `json:"reason,omitempty"`
}

// Oracle scores a photo's authenticity in [0, 1].
type Oracle interface {
	ValidateImage(ctx context.Context, imageBase64 string) (*Result, error)
}

// Client calls the classifier service over HTTP, sweeping the configured
// endpoints in order.
type Client struct {
	failover *transport.Failover
	http     *http.Client
}

// NewClient builds a classifier client over the given endpoints. Each attempt
// is bounded by timeout; vision calls are slow, so size it generously.
func NewClient(endpoints []string, timeout time.Duration) *Client {
	return &Client{
		failover: transport.NewFailover(endpoints, timeout),
		http:     &http.Client{Timeout: timeout},
	}
}

// ValidateImage submits the photo for scoring and returns the verdict from
// the first healthy endpoint.
func (c *Client) ValidateImage(ctx context.Context, imageBase64 string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{"image": imageBase64})
	if err != nil {
		return nil, fmt.Errorf("classifier: encode request: %w", err)
	}
	var result Result
	err = c.failover.Do(ctx, func(ctx context.Context, endpoint string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("classifier: status %d", resp.StatusCode)
		}
		return json.Unmarshal(body, &result)
	})
	if err != nil {
		return nil, err
	}
	if result.ValidityFactor < 0 || result.ValidityFactor > 1 {
		return nil, fmt.Errorf("classifier: validity factor %f out of range", result.ValidityFactor)
	}
	return &result, nil
}

// StaticOracle always returns the same score; used by tests and dry runs.
type StaticOracle float64

// ValidateImage returns the fixed score.
func (o StaticOracle) ValidateImage(context.Context, string) (*Result, error) {
	return &Result{ValidityFactor: float64(o)}, nil
}
