// Package aggregator orchestrates one quote request end to end: fan the
// request out to every bridge, normalize and score what comes back,
// rank it, and serve repeats from cache.
package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/bridgerank/internal/bridge"
	"github.com/mbd888/bridgerank/internal/cache"
	"github.com/mbd888/bridgerank/internal/dispatch"
	"github.com/mbd888/bridgerank/internal/logging"
	"github.com/mbd888/bridgerank/internal/metrics"
	"github.com/mbd888/bridgerank/internal/quote"
	"github.com/mbd888/bridgerank/internal/ranking"
	"github.com/mbd888/bridgerank/internal/security"
	"github.com/mbd888/bridgerank/internal/traces"
)

// GasEstimator produces the per-route gas breakdown.
// *gas.Estimator satisfies it.
type GasEstimator interface {
	Estimate(ctx context.Context, fromChain, toChain string) *quote.GasDetails
}

// PriceSource resolves asset USD prices. *gas.PriceOracle satisfies it.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) float64
}

// Service aggregates bridge quotes.
type Service struct {
	dispatcher *dispatch.Dispatcher
	secStore   security.Store
	scorer     *security.Scorer
	estimator  GasEstimator
	prices     PriceSource
	cache      cache.Cache
	cacheTTL   time.Duration
}

// New creates the aggregation service.
func New(d *dispatch.Dispatcher, secStore security.Store, estimator GasEstimator, prices PriceSource, c cache.Cache, cacheTTL time.Duration) *Service {
	return &Service{
		dispatcher: d,
		secStore:   secStore,
		scorer:     security.NewScorer(),
		estimator:  estimator,
		prices:     prices,
		cache:      c,
		cacheTTL:   cacheTTL,
	}
}

// GetQuotes runs the full pipeline for one request. The returned bool
// reports whether the result came from cache. Only default-weight
// results are cached; custom weights always recompute.
func (s *Service) GetQuotes(ctx context.Context, req bridge.RouteRequest, w *ranking.Weights) (*quote.AggregatedResult, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	ctx, span := traces.StartSpan(ctx, "aggregator.GetQuotes",
		traces.Route(req.FromChain, req.ToChain),
		traces.Token(req.Token),
		traces.Amount(req.Amount),
	)
	defer span.End()

	log := logging.L(ctx)
	metrics.QuoteRequestsTotal.WithLabelValues(req.FromChain, req.ToChain).Inc()

	defaultWeights := w == nil
	key := cache.Key(req)

	if defaultWeights {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			// cache trouble degrades to a live fetch
			log.Warn("quote cache read failed", "error", err)
			metrics.CacheOpsTotal.WithLabelValues("error").Inc()
		} else if cached != nil {
			metrics.CacheOpsTotal.WithLabelValues("hit").Inc()
			span.SetAttributes(traces.CacheHit(true))
			return cached, true, nil
		} else {
			metrics.CacheOpsTotal.WithLabelValues("miss").Inc()
		}
	}

	result := s.aggregate(ctx, req, w)

	if defaultWeights {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			log.Warn("quote cache write failed", "error", err)
		}
	}

	return result, false, nil
}

func (s *Service) aggregate(ctx context.Context, req bridge.RouteRequest, w *ranking.Weights) *quote.AggregatedResult {
	log := logging.L(ctx)
	outcomes := s.dispatcher.Fetch(ctx, req)

	// one gas estimate and token price serve the whole batch
	gasDetails := s.estimator.Estimate(ctx, req.FromChain, req.ToChain)
	tokenPrice := s.prices.GetPrice(ctx, req.Token)
	now := time.Now()

	quotes := make([]quote.Quote, 0, len(outcomes))
	var provErrors []quote.ProviderError

	for _, o := range outcomes {
		metrics.ProviderDuration.WithLabelValues(o.Bridge).Observe(o.Elapsed.Seconds())

		if o.Err != nil {
			metrics.ProviderResultsTotal.WithLabelValues(o.Bridge, resultLabel(o.Err)).Inc()
			provErrors = append(provErrors, quote.ProviderError{
				Bridge: o.Bridge,
				Error:  errorMessage(o.Err),
			})
			continue
		}

		metrics.ProviderResultsTotal.WithLabelValues(o.Bridge, "ok").Inc()
		quotes = append(quotes, quote.Normalize(quote.NormalizeInput{
			Raw:           *o.Quote,
			Request:       req,
			TokenPriceUSD: tokenPrice,
			Gas:           gasDetails,
			Security:      s.securityFor(ctx, o.Bridge, now),
		}))
	}

	quote.ApplyBatchWarnings(quotes)
	ranking.Rank(quotes, w)

	available := 0
	for _, q := range quotes {
		if q.Available {
			available++
		}
	}
	metrics.RoutesReturned.Observe(float64(available))

	log.Info("quotes aggregated",
		"from", req.FromChain,
		"to", req.ToChain,
		"token", req.Token,
		"providers", len(outcomes),
		"available", available,
		"errors", len(provErrors))

	return &quote.AggregatedResult{
		Routes: quotes,
		Errors: provErrors,
		Metadata: quote.ResponseMetadata{
			TotalRoutes:     len(outcomes),
			AvailableRoutes: available,
			Request:         quote.EchoRequest(req),
		},
	}
}

// securityFor fetches and scores the bridge's security record. Missing
// records and storage trouble both fall back to the neutral score so a
// flaky security store never blocks quotes.
func (s *Service) securityFor(ctx context.Context, bridgeID string, asOf time.Time) quote.SecurityDetails {
	rec, err := s.secStore.Fetch(ctx, bridgeID)
	if err != nil {
		if !errors.Is(err, security.ErrNotFound) {
			logging.L(ctx).Warn("security record fetch failed", "bridge", bridgeID, "error", err)
		}
		return toDetails(security.Neutral(bridgeID))
	}
	return toDetails(s.scorer.ScoreRecord(rec, asOf))
}

// SecurityReport returns the full security assessment for one bridge,
// including the underlying events.
func (s *Service) SecurityReport(ctx context.Context, bridgeID string) (*security.Report, error) {
	rec, err := s.secStore.Fetch(ctx, bridgeID)
	if err != nil {
		return nil, err
	}
	score := s.scorer.ScoreRecord(rec, time.Now())
	return &security.Report{
		Score:    score,
		Audits:   rec.Audits,
		Exploits: rec.Exploits,
	}, nil
}

// SecurityOverview scores every bridge with a stored record.
func (s *Service) SecurityOverview(ctx context.Context) ([]security.Score, error) {
	bridges, err := s.secStore.ListBridges(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	scores := make([]security.Score, 0, len(bridges))
	for _, b := range bridges {
		rec, err := s.secStore.Fetch(ctx, b)
		if err != nil {
			scores = append(scores, security.Neutral(b))
			continue
		}
		scores = append(scores, s.scorer.ScoreRecord(rec, now))
	}
	return scores, nil
}

// Providers lists the configured bridge adapters.
func (s *Service) Providers() []string {
	return s.dispatcher.Adapters()
}

func toDetails(sc security.Score) quote.SecurityDetails {
	return quote.SecurityDetails{
		Score:      sc.Score,
		Level:      sc.Level,
		HasAudit:   sc.HasAudit,
		HasExploit: sc.HasExploit,
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, dispatch.ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, dispatch.ErrCircuitOpen):
		return "skipped"
	default:
		return "error"
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, dispatch.ErrProviderTimeout):
		return "timeout"
	case errors.Is(err, dispatch.ErrCircuitOpen):
		return "provider temporarily disabled"
	case errors.Is(err, bridge.ErrUnsupportedRoute):
		return "unsupported route"
	case errors.Is(err, bridge.ErrUnsupportedAsset):
		return "unsupported asset"
	case errors.Is(err, bridge.ErrNoLiquidity):
		return "insufficient liquidity"
	default:
		return err.Error()
	}
}
