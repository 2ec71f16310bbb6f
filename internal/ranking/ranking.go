// Package ranking merges normalized cost, time, and security into one
// ordered route list.
//
// Each metric is min-max scaled against the current batch's own range, so
// a single request's ranking is self-contained and cannot be skewed by
// historical extremes.
package ranking

import (
	"math"
	"sort"

	"github.com/mbd888/bridgerank/internal/quote"
)

// Weights control the blend of the three metrics. Zero-value weights fall
// back to the defaults.
type Weights struct {
	Cost     float64 `json:"cost_weight"`
	Speed    float64 `json:"speed_weight"`
	Security float64 `json:"security_weight"`
}

// DefaultWeights balances cost and speed with a security tiebreaker.
var DefaultWeights = Weights{
	Cost:     0.4,
	Speed:    0.4,
	Security: 0.2,
}

// Normalize rescales the weights to sum to 1. Non-positive totals fall
// back to the defaults.
func (w Weights) Normalize() Weights {
	sum := w.Cost + w.Speed + w.Security
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return DefaultWeights
	}
	return Weights{
		Cost:     w.Cost / sum,
		Speed:    w.Speed / sum,
		Security: w.Security / sum,
	}
}

// Rank scores and orders the batch in place and assigns ranks 1..N.
// Unavailable routes are scored too but always sort after available ones.
// Ties break by lower fee, then lower time, then bridge name.
func Rank(quotes []quote.Quote, w *Weights) {
	if len(quotes) == 0 {
		return
	}

	weights := DefaultWeights
	if w != nil {
		weights = w.Normalize()
	}

	minFee, maxFee := batchRange(quotes, func(q *quote.Quote) float64 { return q.Cost.TotalFeeUSD })
	minTime, maxTime := batchRange(quotes, func(q *quote.Quote) float64 { return float64(q.Timing.Seconds) })
	minSec, maxSec := batchRange(quotes, func(q *quote.Quote) float64 { return q.Security.Score })

	for i := range quotes {
		q := &quotes[i]
		costScore := scaleInverted(q.Cost.TotalFeeUSD, minFee, maxFee)
		timeScore := scaleInverted(float64(q.Timing.Seconds), minTime, maxTime)
		secScore := scale(q.Security.Score, minSec, maxSec)

		score := weights.Cost*costScore + weights.Speed*timeScore + weights.Security*secScore
		q.Score = math.Round(score*10000) / 10000
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		a, b := &quotes[i], &quotes[j]
		if a.Available != b.Available {
			return a.Available
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Cost.TotalFeeUSD != b.Cost.TotalFeeUSD {
			return a.Cost.TotalFeeUSD < b.Cost.TotalFeeUSD
		}
		if a.Timing.Seconds != b.Timing.Seconds {
			return a.Timing.Seconds < b.Timing.Seconds
		}
		return a.Bridge < b.Bridge
	})

	for i := range quotes {
		quotes[i].Rank = i + 1
	}
}

func batchRange(quotes []quote.Quote, metric func(*quote.Quote) float64) (lo, hi float64) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for i := range quotes {
		v := metric(&quotes[i])
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// scale min-max scales v into [0,1]; a degenerate range scores 1 for all,
// so an undiscriminating metric never drags anyone down.
func scale(v, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return (v - lo) / (hi - lo)
}

// scaleInverted is scale with lower-is-better semantics.
func scaleInverted(v, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return 1 - (v-lo)/(hi-lo)
}
