// Package gas estimates the USD gas cost of a bridge transfer and
// provides the asset prices the rest of the pipeline converts with.
package gas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// coingeckoIDs maps asset symbols to CoinGecko API identifiers.
var coingeckoIDs = map[string]string{
	"ETH":   "ethereum",
	"MATIC": "matic-network",
	"USDC":  "usd-coin",
	"USDT":  "tether",
	"DAI":   "dai",
	"WETH":  "weth",
}

type pricePoint struct {
	price      float64
	lastUpdate time.Time
}

// PriceOracle provides asset/USD prices with per-symbol caching.
type PriceOracle struct {
	mu        sync.RWMutex
	prices    map[string]pricePoint
	ttl       time.Duration
	fallbacks map[string]float64
	baseURL   string
	client    *http.Client
}

// NewPriceOracle creates a price oracle. fallbacks seed the price of
// each symbol and serve as the floor when the upstream API is down.
func NewPriceOracle(fallbacks map[string]float64, cacheTTL time.Duration) *PriceOracle {
	fb := make(map[string]float64, len(fallbacks))
	for sym, p := range fallbacks {
		fb[strings.ToUpper(sym)] = p
	}
	return &PriceOracle{
		prices:    make(map[string]pricePoint),
		ttl:       cacheTTL,
		fallbacks: fb,
		baseURL:   "https://api.coingecko.com/api/v3",
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetPrice returns the current USD price for a symbol.
// Fetches from the CoinGecko API when the cache is stale, falling back
// to the last known price, then to the configured fallback.
func (o *PriceOracle) GetPrice(ctx context.Context, symbol string) float64 {
	symbol = strings.ToUpper(symbol)

	o.mu.RLock()
	pt, cached := o.prices[symbol]
	o.mu.RUnlock()
	if cached && time.Since(pt.lastUpdate) < o.ttl && pt.price > 0 {
		return pt.price
	}

	newPrice, err := o.fetchPrice(ctx, symbol)
	if err != nil {
		if cached && pt.price > 0 {
			return pt.price
		}
		if fb, ok := o.fallbacks[symbol]; ok {
			return fb
		}
		// unknown asset with a dead upstream, assume a stable unit
		return 1.0
	}

	o.mu.Lock()
	o.prices[symbol] = pricePoint{price: newPrice, lastUpdate: time.Now()}
	o.mu.Unlock()

	return newPrice
}

// fetchPrice queries the CoinGecko simple price API (free, no key required)
func (o *PriceOracle) fetchPrice(ctx context.Context, symbol string) (float64, error) {
	id, ok := coingeckoIDs[symbol]
	if !ok {
		return 0, fmt.Errorf("no price feed for %s", symbol)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", o.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price API returned status %d", resp.StatusCode)
	}

	var result map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}

	price := result[id].USD
	if price <= 0 {
		return 0, fmt.Errorf("invalid price returned: %f", price)
	}

	return price, nil
}
