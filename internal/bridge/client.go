package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mbd888/bridgerank/internal/retry"
)

// DefaultHTTPClient is shared by adapters that are not given one.
var DefaultHTTPClient = &http.Client{Timeout: 10 * time.Second}

const (
	maxAttempts      = 2
	retryBackoffBase = 150 * time.Millisecond
)

// getJSON performs a GET against a provider endpoint and decodes the JSON
// body into out. Transient failures (transport errors, 5xx) are retried
// once; 4xx statuses and undecodable bodies map straight to ErrBadResponse.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	if client == nil {
		client = DefaultHTTPClient
	}

	return retry.Do(ctx, maxAttempts, retryBackoffBase, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return retry.Permanent(fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(fmt.Errorf("%w: %v", ErrBadResponse, err))
		}
		return nil
	})
}
