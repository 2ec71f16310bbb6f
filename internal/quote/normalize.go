package quote

import (
	"sort"

	"github.com/mbd888/bridgerank/internal/bridge"
)

// LowSecurityThreshold marks routes whose merged security score warrants a
// low_security warning.
const LowSecurityThreshold = 0.4

// slowRouteFactor flags a route as slow when its timing is at least this
// multiple of the batch median.
const slowRouteFactor = 2.0

// NormalizeInput bundles everything needed to turn one raw provider result
// into a canonical Quote.
type NormalizeInput struct {
	Raw           bridge.RawQuote
	Request       bridge.RouteRequest
	TokenPriceUSD float64 // USD price of the transferred token
	Gas           *GasDetails
	Security      SecurityDetails
}

// Normalize converts a raw adapter result into the canonical Quote with
// comparable units. Unavailable routes keep their entry so callers always
// see the full provider set.
func Normalize(in NormalizeInput) Quote {
	raw := in.Raw

	bridgeFeeUSD := raw.BridgeFeeToken * in.TokenPriceUSD
	if bridgeFeeUSD < 0 {
		bridgeFeeUSD = 0
	}

	var gasUSD float64
	if in.Gas != nil {
		gasUSD = in.Gas.SourceGasUSD + in.Gas.DestinationGasUSD
	}

	expected := raw.AmountOut
	minimum := raw.MinAmountOut
	if minimum > expected {
		// a provider must never promise more than it expects
		minimum = expected
	}

	status := StatusOperational
	available := true
	switch {
	case !raw.LiquidityOK:
		status = StatusUnavailable
		available = false
	case raw.Degraded:
		status = StatusDegraded
	}

	q := Quote{
		Bridge: raw.Bridge,
		Cost: CostDetails{
			TotalFeeUSD: bridgeFeeUSD + gasUSD,
			Breakdown: CostBreakdown{
				BridgeFeeUSD:   bridgeFeeUSD,
				GasEstimateUSD: gasUSD,
				GasDetails:     in.Gas,
			},
		},
		Output: OutputDetails{
			Expected: expected,
			Minimum:  minimum,
			Input:    in.Request.Amount,
		},
		Timing: TimingDetails{
			Seconds:  raw.EstTimeSeconds,
			Display:  FormatTiming(raw.EstTimeSeconds),
			Category: CategorizeTiming(raw.EstTimeSeconds),
		},
		Security:  in.Security,
		Available: available,
		Status:    status,
	}

	if in.Security.Score < LowSecurityThreshold {
		q.AddWarning(WarnLowSecurity)
	}

	return q
}

// ApplyBatchWarnings marks routes that are materially slower than their
// peers in the same batch. Needs at least two available routes to have a
// meaningful baseline.
func ApplyBatchWarnings(quotes []Quote) {
	var times []int64
	for _, q := range quotes {
		if q.Available {
			times = append(times, q.Timing.Seconds)
		}
	}
	if len(times) < 2 {
		return
	}

	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	median := times[len(times)/2]
	if median <= 0 {
		return
	}

	for i := range quotes {
		if float64(quotes[i].Timing.Seconds) >= slowRouteFactor*float64(median) {
			quotes[i].AddWarning(WarnSlowRoute)
		}
	}
}
