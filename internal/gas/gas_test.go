package gas

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakePricer struct {
	price *big.Int
	err   error
	calls int
}

func (f *fakePricer) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.calls++
	return f.price, f.err
}

func testOracle(fallbacks map[string]float64) *PriceOracle {
	// no live fetches in tests, point at a dead endpoint
	o := NewPriceOracle(fallbacks, time.Minute)
	o.baseURL = "http://127.0.0.1:0"
	return o
}

func TestEstimateUsesRPCPrice(t *testing.T) {
	pricer := &fakePricer{price: big.NewInt(30_000_000_000)} // 30 gwei
	e := NewEstimator(map[string]GasPricer{"ethereum": pricer}, testOracle(map[string]float64{"ETH": 2000}))

	d := e.Estimate(context.Background(), "ethereum", "polygon")

	if d.SourceGasPriceGwei != 30 {
		t.Errorf("expected 30 gwei source price, got %f", d.SourceGasPriceGwei)
	}
	// 30 gwei * 150k gas = 0.0045 ETH * $2000 = $9
	if d.SourceGasUSD < 8.9 || d.SourceGasUSD > 9.1 {
		t.Errorf("expected ~$9 source gas, got %f", d.SourceGasUSD)
	}
	if d.SourceChain != "ethereum" || d.DestinationChain != "polygon" {
		t.Errorf("chains not carried through: %s -> %s", d.SourceChain, d.DestinationChain)
	}
}

func TestEstimateFallsBackWithoutClient(t *testing.T) {
	e := NewEstimator(nil, testOracle(map[string]float64{"ETH": 2000, "MATIC": 0.8}))

	d := e.Estimate(context.Background(), "ethereum", "polygon")

	// default 20 gwei on mainnet
	if d.SourceGasPriceGwei != 20 {
		t.Errorf("expected default 20 gwei, got %f", d.SourceGasPriceGwei)
	}
	if d.SourceGasUSD <= 0 || d.DestinationGasUSD <= 0 {
		t.Errorf("expected positive gas costs, got %f / %f", d.SourceGasUSD, d.DestinationGasUSD)
	}
}

func TestEstimateSurvivesRPCError(t *testing.T) {
	pricer := &fakePricer{err: errors.New("rpc down")}
	e := NewEstimator(map[string]GasPricer{"ethereum": pricer}, testOracle(map[string]float64{"ETH": 2000}))

	d := e.Estimate(context.Background(), "ethereum", "arbitrum")

	if d.SourceGasPriceGwei != 20 {
		t.Errorf("expected fallback 20 gwei after RPC error, got %f", d.SourceGasPriceGwei)
	}
}

func TestGasPriceCached(t *testing.T) {
	pricer := &fakePricer{price: big.NewInt(10_000_000_000)}
	e := NewEstimator(map[string]GasPricer{"ethereum": pricer}, testOracle(map[string]float64{"ETH": 2000}))

	e.Estimate(context.Background(), "ethereum", "ethereum")
	e.Estimate(context.Background(), "ethereum", "ethereum")

	if pricer.calls != 1 {
		t.Errorf("expected one RPC call within the cache TTL, got %d", pricer.calls)
	}
}

func TestOracleFallbackWhenUpstreamDown(t *testing.T) {
	o := testOracle(map[string]float64{"ETH": 1800})

	if p := o.GetPrice(context.Background(), "ETH"); p != 1800 {
		t.Errorf("expected fallback price 1800, got %f", p)
	}
	// unknown assets default to a stable unit
	if p := o.GetPrice(context.Background(), "XYZ"); p != 1.0 {
		t.Errorf("expected 1.0 for unknown asset, got %f", p)
	}
}

func TestOracleFetchesAndCaches(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		json.NewEncoder(w).Encode(map[string]map[string]float64{
			"ethereum": {"usd": 2500},
		})
	}))
	defer srv.Close()

	o := NewPriceOracle(map[string]float64{"ETH": 1800}, time.Minute)
	o.baseURL = srv.URL

	if p := o.GetPrice(context.Background(), "ETH"); p != 2500 {
		t.Errorf("expected fetched price 2500, got %f", p)
	}
	if p := o.GetPrice(context.Background(), "eth"); p != 2500 {
		t.Errorf("expected cached price for lowercase symbol, got %f", p)
	}
	if fetches != 1 {
		t.Errorf("expected one upstream fetch, got %d", fetches)
	}
}
