// Package dispatch fans a route request out to every registered bridge
// adapter concurrently and collects whatever comes back in time.
//
// Each adapter gets its own timeout; a slower global ceiling bounds the
// whole batch. One provider failing, hanging, or panicking never takes
// the batch down with it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mbd888/bridgerank/internal/bridge"
	"github.com/mbd888/bridgerank/internal/circuitbreaker"
	"github.com/mbd888/bridgerank/internal/logging"
)

// ErrProviderTimeout marks an adapter that did not answer within the
// per-provider window.
var ErrProviderTimeout = errors.New("provider timed out")

// ErrCircuitOpen marks an adapter skipped because its circuit breaker
// is open after repeated failures.
var ErrCircuitOpen = errors.New("provider temporarily disabled")

// Outcome is one adapter's result for a batch. Exactly one of Quote or
// Err is set.
type Outcome struct {
	Bridge  string
	Quote   *bridge.RawQuote
	Err     error
	Elapsed time.Duration
}

// Dispatcher fans requests out to a fixed set of adapters.
type Dispatcher struct {
	adapters      []bridge.Adapter
	perTimeout    time.Duration
	globalTimeout time.Duration
	breaker       *circuitbreaker.Breaker
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBreaker skips adapters whose circuit is open and feeds call
// results back into the breaker.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(d *Dispatcher) { d.breaker = b }
}

// New creates a dispatcher. perTimeout bounds each adapter call;
// globalTimeout bounds the whole fan-out and must be longer.
func New(adapters []bridge.Adapter, perTimeout, globalTimeout time.Duration, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		adapters:      adapters,
		perTimeout:    perTimeout,
		globalTimeout: globalTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Adapters returns the names of the registered adapters.
func (d *Dispatcher) Adapters() []string {
	names := make([]string, len(d.adapters))
	for i, a := range d.adapters {
		names[i] = a.Name()
	}
	sort.Strings(names)
	return names
}

// Fetch queries every adapter concurrently and returns one Outcome per
// adapter, sorted by bridge name. Results that complete before the
// global ceiling are kept even when others are still pending; pending
// adapters are reported as timed out.
func (d *Dispatcher) Fetch(ctx context.Context, req bridge.RouteRequest) []Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.globalTimeout)
	defer cancel()

	results := make(chan Outcome, len(d.adapters))
	for _, a := range d.adapters {
		go d.query(ctx, a, req, results)
	}

	outcomes := make([]Outcome, 0, len(d.adapters))
	pending := make(map[string]bool, len(d.adapters))
	for _, a := range d.adapters {
		pending[a.Name()] = true
	}

collect:
	for len(outcomes) < len(d.adapters) {
		select {
		case o := <-results:
			delete(pending, o.Bridge)
			outcomes = append(outcomes, o)
		case <-ctx.Done():
			break collect
		}
	}

	// drain results that landed in the same instant the ceiling fired
drain:
	for len(outcomes) < len(d.adapters) {
		select {
		case o := <-results:
			delete(pending, o.Bridge)
			outcomes = append(outcomes, o)
		default:
			break drain
		}
	}

	// whoever is still pending at the ceiling is a timeout
	for name := range pending {
		outcomes = append(outcomes, Outcome{
			Bridge:  name,
			Err:     ErrProviderTimeout,
			Elapsed: d.globalTimeout,
		})
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Bridge < outcomes[j].Bridge
	})
	return outcomes
}

func (d *Dispatcher) query(ctx context.Context, a bridge.Adapter, req bridge.RouteRequest, results chan<- Outcome) {
	name := a.Name()
	log := logging.L(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("adapter panicked", "bridge", name, "panic", r)
			d.recordOutcome(name, fmt.Errorf("adapter panic: %v", r))
			results <- Outcome{Bridge: name, Err: fmt.Errorf("adapter panic: %v", r)}
		}
	}()

	if d.breaker != nil && !d.breaker.Allow(name) {
		log.Debug("adapter skipped, circuit open", "bridge", name)
		results <- Outcome{Bridge: name, Err: ErrCircuitOpen}
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.perTimeout)
	defer cancel()

	start := time.Now()
	quote, err := a.Quote(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrProviderTimeout
		}
		d.recordOutcome(name, err)
		log.Debug("adapter failed",
			"bridge", name,
			"error", err,
			"elapsed_ms", elapsed.Milliseconds())
		results <- Outcome{Bridge: name, Err: err, Elapsed: elapsed}
		return
	}

	d.recordOutcome(name, nil)
	results <- Outcome{Bridge: name, Quote: quote, Elapsed: elapsed}
}

// recordOutcome feeds the breaker. Route and liquidity rejections mean
// the provider answered and is healthy; only infrastructure failures
// count against the circuit.
func (d *Dispatcher) recordOutcome(name string, err error) {
	if d.breaker == nil {
		return
	}
	switch {
	case err == nil,
		errors.Is(err, bridge.ErrUnsupportedRoute),
		errors.Is(err, bridge.ErrUnsupportedAsset),
		errors.Is(err, bridge.ErrNoLiquidity):
		d.breaker.RecordSuccess(name)
	default:
		d.breaker.RecordFailure(name)
	}
}
