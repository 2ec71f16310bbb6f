package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbd888/bridgerank/internal/bridge"
	"github.com/mbd888/bridgerank/internal/dispatch"
	"github.com/mbd888/bridgerank/internal/quote"
	"github.com/mbd888/bridgerank/internal/ranking"
	"github.com/mbd888/bridgerank/internal/security"
)

type fakeAdapter struct {
	name  string
	delay time.Duration
	raw   *bridge.RawQuote
	err   error
	calls atomic.Int64
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Quote(ctx context.Context, req bridge.RouteRequest) (*bridge.RawQuote, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func okAdapter(name string, fee, out float64, secs int64) *fakeAdapter {
	return &fakeAdapter{name: name, raw: &bridge.RawQuote{
		Bridge:         name,
		BridgeFeeToken: fee,
		EstTimeSeconds: secs,
		AmountOut:      out,
		MinAmountOut:   out * 0.995,
		LiquidityOK:    true,
	}}
}

type fakeCache struct {
	data   map[string]*quote.AggregatedResult
	getErr error
	setErr error
	gets   int
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]*quote.AggregatedResult)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (*quote.AggregatedResult, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.data[key], nil
}

func (f *fakeCache) Set(ctx context.Context, key string, r *quote.AggregatedResult, ttl time.Duration) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = r
	return nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

type fakeEstimator struct{}

func (fakeEstimator) Estimate(ctx context.Context, from, to string) *quote.GasDetails {
	return &quote.GasDetails{
		SourceChain:       from,
		DestinationChain:  to,
		SourceGasUSD:      3.0,
		DestinationGasUSD: 1.0,
	}
}

type fakePrices struct{}

func (fakePrices) GetPrice(ctx context.Context, symbol string) float64 { return 1.0 }

func newService(c *fakeCache, store security.Store, adapters ...bridge.Adapter) *Service {
	d := dispatch.New(adapters, 100*time.Millisecond, 300*time.Millisecond)
	if store == nil {
		store = security.NewMemoryStore()
	}
	return New(d, store, fakeEstimator{}, fakePrices{}, c, 30*time.Second)
}

func testRequest() bridge.RouteRequest {
	return bridge.RouteRequest{FromChain: "ethereum", ToChain: "polygon", Token: "USDC", Amount: 1000, Slippage: 0.5}
}

func TestGetQuotesPartialSuccess(t *testing.T) {
	slow := okAdapter("hop", 2, 997, 300)
	slow.delay = time.Second
	svc := newService(newFakeCache(), nil,
		okAdapter("across", 1, 998, 120),
		slow,
		okAdapter("stargate", 3, 995, 60),
	)

	res, cached, err := svc.GetQuotes(context.Background(), testRequest(), nil)
	if err != nil {
		t.Fatalf("GetQuotes failed: %v", err)
	}
	if cached {
		t.Error("first call should not be cached")
	}

	if res.Metadata.TotalRoutes != 3 {
		t.Errorf("expected total_routes=3, got %d", res.Metadata.TotalRoutes)
	}
	if res.Metadata.AvailableRoutes != 2 {
		t.Errorf("expected available_routes=2, got %d", res.Metadata.AvailableRoutes)
	}
	if len(res.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(res.Routes))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 provider error, got %d", len(res.Errors))
	}
	if res.Errors[0].Bridge != "hop" || res.Errors[0].Error != "timeout" {
		t.Errorf("expected hop timeout error, got %+v", res.Errors[0])
	}

	// ranks are contiguous from 1
	for i, r := range res.Routes {
		if r.Rank != i+1 {
			t.Errorf("route %d: expected rank %d, got %d", i, i+1, r.Rank)
		}
	}
}

func TestGetQuotesCacheIdempotence(t *testing.T) {
	a := okAdapter("across", 1, 998, 120)
	h := okAdapter("hop", 2, 997, 300)
	svc := newService(newFakeCache(), nil, a, h)
	req := testRequest()

	first, cached, err := svc.GetQuotes(context.Background(), req, nil)
	if err != nil || cached {
		t.Fatalf("first call: err=%v cached=%v", err, cached)
	}

	second, cached, err := svc.GetQuotes(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if !cached {
		t.Error("second identical call should be served from cache")
	}
	if a.calls.Load() != 1 || h.calls.Load() != 1 {
		t.Errorf("adapters should be called once, got across=%d hop=%d", a.calls.Load(), h.calls.Load())
	}
	if len(second.Routes) != len(first.Routes) {
		t.Errorf("cached result should match: %d vs %d routes", len(second.Routes), len(first.Routes))
	}
}

func TestGetQuotesCustomWeightsBypassCache(t *testing.T) {
	a := okAdapter("across", 1, 998, 120)
	c := newFakeCache()
	svc := newService(c, nil, a)
	req := testRequest()

	w := &ranking.Weights{Cost: 1, Speed: 0, Security: 0}
	if _, cached, err := svc.GetQuotes(context.Background(), req, w); err != nil || cached {
		t.Fatalf("weighted call: err=%v cached=%v", err, cached)
	}
	if _, cached, err := svc.GetQuotes(context.Background(), req, w); err != nil || cached {
		t.Fatalf("second weighted call: err=%v cached=%v", err, cached)
	}
	if a.calls.Load() != 2 {
		t.Errorf("custom weights must recompute, got %d adapter calls", a.calls.Load())
	}
	if c.sets != 0 {
		t.Errorf("custom-weight results must not be cached, got %d writes", c.sets)
	}
}

func TestGetQuotesCacheErrorDegrades(t *testing.T) {
	a := okAdapter("across", 1, 998, 120)
	c := newFakeCache()
	c.getErr = errors.New("redis down")
	svc := newService(c, nil, a)

	res, cached, err := svc.GetQuotes(context.Background(), testRequest(), nil)
	if err != nil {
		t.Fatalf("cache failure must not fail the request: %v", err)
	}
	if cached {
		t.Error("broken cache cannot serve hits")
	}
	if len(res.Routes) != 1 {
		t.Errorf("expected a live result, got %d routes", len(res.Routes))
	}
}

func TestGetQuotesAllProvidersFail(t *testing.T) {
	svc := newService(newFakeCache(), nil,
		&fakeAdapter{name: "across", err: bridge.ErrUnsupportedRoute},
		&fakeAdapter{name: "hop", err: bridge.ErrBadResponse},
	)

	res, _, err := svc.GetQuotes(context.Background(), testRequest(), nil)
	if err != nil {
		t.Fatalf("total provider failure is still a partial success: %v", err)
	}
	if len(res.Routes) != 0 {
		t.Errorf("expected no routes, got %d", len(res.Routes))
	}
	if len(res.Errors) != 2 {
		t.Errorf("expected 2 provider errors, got %d", len(res.Errors))
	}
	if res.Metadata.TotalRoutes != 2 || res.Metadata.AvailableRoutes != 0 {
		t.Errorf("metadata mismatch: %+v", res.Metadata)
	}
	for _, e := range res.Errors {
		if e.Bridge == "across" && e.Error != "unsupported route" {
			t.Errorf("expected classified error message, got %q", e.Error)
		}
	}
}

func TestGetQuotesInvalidRequest(t *testing.T) {
	svc := newService(newFakeCache(), nil, okAdapter("across", 1, 998, 120))

	req := testRequest()
	req.Amount = -5
	if _, _, err := svc.GetQuotes(context.Background(), req, nil); err == nil {
		t.Error("expected validation error for negative amount")
	}

	req = testRequest()
	req.ToChain = req.FromChain
	if _, _, err := svc.GetQuotes(context.Background(), req, nil); err == nil {
		t.Error("expected validation error for same-chain route")
	}
}

func TestSecurityScoresFlowIntoQuotes(t *testing.T) {
	clean := security.NewMemoryStore()
	clean.Put(&security.Record{
		Bridge: "across",
		Audits: []security.AuditEvent{
			{Firm: "Trail of Bits", Date: time.Now().AddDate(-1, 0, 0), Result: "passed"},
		},
	})
	clean.Put(&security.Record{
		Bridge: "hop",
		Exploits: []security.ExploitEvent{
			{Date: time.Now().AddDate(0, -6, 0), LossAmount: decimal.NewFromInt(600_000_000)},
			{Date: time.Now().AddDate(0, -2, 0), LossAmount: decimal.NewFromInt(320_000_000)},
		},
	})

	svc := newService(newFakeCache(), clean,
		okAdapter("across", 1, 998, 120),
		okAdapter("hop", 1, 998, 120),
		okAdapter("stargate", 1, 998, 120), // no record, neutral
	)

	res, _, err := svc.GetQuotes(context.Background(), testRequest(), nil)
	if err != nil {
		t.Fatalf("GetQuotes failed: %v", err)
	}

	byBridge := make(map[string]quote.Quote)
	for _, r := range res.Routes {
		byBridge[r.Bridge] = r
	}

	if !byBridge["across"].Security.HasAudit {
		t.Error("audited bridge should report has_audit")
	}
	if !byBridge["hop"].Security.HasExploit {
		t.Error("exploited bridge should report has_exploit")
	}
	if byBridge["stargate"].Security.Score != 0.5 {
		t.Errorf("recordless bridge should get the neutral 0.5, got %f", byBridge["stargate"].Security.Score)
	}
	if byBridge["across"].Security.Score <= byBridge["hop"].Security.Score {
		t.Error("audited clean bridge should outscore the freshly exploited one")
	}
	hop := byBridge["hop"]
	if !hop.HasWarning(quote.WarnLowSecurity) {
		t.Errorf("heavily exploited bridge should carry low_security, score=%f", hop.Security.Score)
	}
}

func TestSecurityReport(t *testing.T) {
	store := security.NewMemoryStore()
	store.Put(&security.Record{
		Bridge: "across",
		Audits: []security.AuditEvent{
			{Firm: "OpenZeppelin", Date: time.Now().AddDate(-2, 0, 0), Result: "passed"},
		},
	})
	svc := newService(newFakeCache(), store, okAdapter("across", 1, 998, 120))

	rep, err := svc.SecurityReport(context.Background(), "across")
	if err != nil {
		t.Fatalf("SecurityReport failed: %v", err)
	}
	if rep.Score.Bridge != "across" || !rep.Score.HasAudit {
		t.Errorf("unexpected report: %+v", rep.Score)
	}
	if len(rep.Audits) != 1 {
		t.Errorf("expected the audit events back, got %d", len(rep.Audits))
	}

	if _, err := svc.SecurityReport(context.Background(), "unknown"); !errors.Is(err, security.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown bridge, got %v", err)
	}
}
