// Package circuitbreaker provides a per-bridge circuit breaker with
// closed, open, and half-open states. A bridge whose quote API keeps
// failing is skipped entirely for a cool-off window instead of burning
// a provider timeout on every aggregation.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State represents the circuit state for one bridge.
type State int

const (
	StateClosed   State = iota // normal: calls flow through
	StateOpen                  // tripped: calls are skipped
	StateHalfOpen              // probing: one call allowed to test recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "bridgerank",
	Subsystem: "breaker",
	Name:      "state_transitions_total",
	Help:      "Circuit breaker state transitions by bridge.",
}, []string{"bridge", "from_state", "to_state"})

func init() {
	prometheus.MustRegister(stateTransitions)
}

type entry struct {
	state       State
	failures    int
	lastFailure time.Time
}

// Breaker tracks consecutive failures per bridge and trips open when
// they reach the threshold. After openDuration the circuit moves to
// half-open and lets a single probe through.
type Breaker struct {
	mu           sync.Mutex
	entries      map[string]*entry
	threshold    int
	openDuration time.Duration
	now          func() time.Time
}

// New creates a breaker that opens after threshold consecutive failures
// and stays open for openDuration before probing.
func New(threshold int, openDuration time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if openDuration <= 0 {
		openDuration = 30 * time.Second
	}
	return &Breaker{
		entries:      make(map[string]*entry),
		threshold:    threshold,
		openDuration: openDuration,
		now:          time.Now,
	}
}

// Allow reports whether a call to bridge should go ahead. An open
// circuit past its cool-off transitions to half-open and admits one
// probe.
func (b *Breaker) Allow(bridge string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[bridge]
	if !ok {
		return true
	}

	switch e.state {
	case StateOpen:
		if b.now().Sub(e.lastFailure) >= b.openDuration {
			b.transition(e, bridge, StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		// A probe is already in flight.
		return false
	default:
		return true
	}
}

// RecordSuccess resets the failure count and closes a half-open circuit.
func (b *Breaker) RecordSuccess(bridge string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[bridge]
	if !ok {
		return
	}
	if e.state != StateClosed {
		b.transition(e, bridge, StateClosed)
	}
	e.failures = 0
}

// RecordFailure counts a failed call and trips the circuit open once
// consecutive failures reach the threshold. A failed half-open probe
// reopens immediately.
func (b *Breaker) RecordFailure(bridge string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[bridge]
	if !ok {
		e = &entry{state: StateClosed}
		b.entries[bridge] = e
	}

	e.failures++
	e.lastFailure = b.now()

	if e.state == StateHalfOpen {
		b.transition(e, bridge, StateOpen)
		return
	}
	if e.state == StateClosed && e.failures >= b.threshold {
		b.transition(e, bridge, StateOpen)
	}
}

// State returns the current state for a bridge, StateClosed when the
// bridge has never failed.
func (b *Breaker) State(bridge string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[bridge]
	if !ok {
		return StateClosed
	}
	return e.state
}

// transition changes state and counts it. Caller holds b.mu.
func (b *Breaker) transition(e *entry, bridge string, to State) {
	from := e.state
	if from == to {
		return
	}
	e.state = to
	stateTransitions.WithLabelValues(bridge, from.String(), to.String()).Inc()
}
