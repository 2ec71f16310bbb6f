// Package cache memoizes whole aggregated result snapshots per request
// key with a short TTL.
//
// Keys bucket the continuous inputs (amount, slippage) into coarse ranges
// so near-identical requests share an entry. A cache outage never fails a
// request; callers degrade to uncached aggregation.
package cache

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mbd888/bridgerank/internal/bridge"
	"github.com/mbd888/bridgerank/internal/quote"
)

// Cache stores aggregated results. Get returns (nil, nil) on a miss;
// errors indicate a backend problem and should be treated as a miss by
// callers.
type Cache interface {
	Get(ctx context.Context, key string) (*quote.AggregatedResult, error)
	Set(ctx context.Context, key string, result *quote.AggregatedResult, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close() error
}

// Key builds the composite cache key for a request. Amounts are bucketed
// to two significant digits and slippage to one decimal place: close
// requests hit the same entry without materially altering quote accuracy.
func Key(req bridge.RouteRequest) string {
	return fmt.Sprintf("quotes:%s:%s:%s:%s:%.1f",
		strings.ToLower(req.FromChain),
		strings.ToLower(req.ToChain),
		strings.ToUpper(req.Token),
		bucketAmount(req.Amount),
		req.Slippage,
	)
}

// bucketAmount rounds to two significant digits: 1234 -> "1200",
// 0.0567 -> "0.057".
func bucketAmount(amount float64) string {
	if amount <= 0 {
		return "0"
	}
	exp := math.Floor(math.Log10(amount))
	scale := math.Pow(10, exp-1)
	return fmt.Sprintf("%g", math.Round(amount/scale)*scale)
}
