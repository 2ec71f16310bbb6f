package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbd888/bridgerank/internal/quote"
)

func route(bridge string, feeUSD float64, seconds int64, security float64, available bool) quote.Quote {
	status := quote.StatusOperational
	if !available {
		status = quote.StatusUnavailable
	}
	return quote.Quote{
		Bridge:    bridge,
		Cost:      quote.CostDetails{TotalFeeUSD: feeUSD},
		Timing:    quote.TimingDetails{Seconds: seconds},
		Security:  quote.SecurityDetails{Score: security},
		Available: available,
		Status:    status,
	}
}

func assertSortedInvariant(t *testing.T, quotes []quote.Quote) {
	t.Helper()
	for i := 1; i < len(quotes); i++ {
		a, b := quotes[i-1], quotes[i]
		assert.Equal(t, i, a.Rank)
		if a.Available == b.Available {
			assert.GreaterOrEqual(t, a.Score, b.Score, "%s before %s", a.Bridge, b.Bridge)
		}
	}
	assert.Equal(t, len(quotes), quotes[len(quotes)-1].Rank)
}

func TestRankOrdersByScore(t *testing.T) {
	quotes := []quote.Quote{
		route("Axelar", 12, 900, 0.9, true),
		route("Across", 2, 60, 0.8, true),
		route("cBridge", 6, 1200, 0.5, true),
	}

	Rank(quotes, nil)

	assert.Equal(t, "Across", quotes[0].Bridge)
	assertSortedInvariant(t, quotes)
	for _, q := range quotes {
		assert.GreaterOrEqual(t, q.Score, 0.0)
		assert.LessOrEqual(t, q.Score, 1.0)
	}
}

func TestRankUnavailableAlwaysLast(t *testing.T) {
	quotes := []quote.Quote{
		// unavailable but otherwise perfect metrics
		route("Stargate", 0, 1, 1.0, false),
		route("Axelar", 50, 3000, 0.1, true),
	}

	Rank(quotes, nil)

	assert.Equal(t, "Axelar", quotes[0].Bridge)
	assert.Equal(t, "Stargate", quotes[1].Bridge)
	assert.Equal(t, 2, quotes[1].Rank)
}

func TestRankTieBreaks(t *testing.T) {
	// identical metrics: lexical bridge-name order decides
	quotes := []quote.Quote{
		route("Hop", 5, 120, 0.8, true),
		route("Across", 5, 120, 0.8, true),
	}
	Rank(quotes, nil)
	assert.Equal(t, "Across", quotes[0].Bridge)
	assert.Equal(t, "Hop", quotes[1].Bridge)

	// equal score, different fee: cheaper first. With only the fee
	// varying the scores differ, so fix every metric equal except name.
	quotes = []quote.Quote{
		route("B", 5, 120, 0.8, true),
		route("A", 5, 120, 0.8, true),
		route("C", 5, 120, 0.8, true),
	}
	Rank(quotes, nil)
	assert.Equal(t, []string{"A", "B", "C"}, []string{quotes[0].Bridge, quotes[1].Bridge, quotes[2].Bridge})
}

func TestRankCustomWeightsRenormalized(t *testing.T) {
	quotes := func() []quote.Quote {
		return []quote.Quote{
			route("Cheap", 1, 1000, 0.5, true),
			route("Fast", 20, 30, 0.5, true),
		}
	}

	// heavily cost-weighted, deliberately not summing to 1
	costHeavy := quotes()
	Rank(costHeavy, &Weights{Cost: 8, Speed: 1, Security: 1})
	assert.Equal(t, "Cheap", costHeavy[0].Bridge)

	speedHeavy := quotes()
	Rank(speedHeavy, &Weights{Cost: 1, Speed: 8, Security: 1})
	assert.Equal(t, "Fast", speedHeavy[0].Bridge)
}

func TestRankZeroWeightsFallBackToDefault(t *testing.T) {
	w := Weights{}
	n := w.Normalize()
	assert.Equal(t, DefaultWeights, n)

	n = Weights{Cost: 2, Speed: 1, Security: 1}.Normalize()
	assert.InDelta(t, 1.0, n.Cost+n.Speed+n.Security, 1e-9)
	assert.InDelta(t, 0.5, n.Cost, 1e-9)
}

func TestRankDegenerateBatch(t *testing.T) {
	// a single quote must not divide by a zero range
	quotes := []quote.Quote{route("Hop", 5, 120, 0.8, true)}
	Rank(quotes, nil)
	assert.Equal(t, 1, quotes[0].Rank)
	assert.InDelta(t, 1.0, quotes[0].Score, 1e-9)

	Rank(nil, nil)
}

func TestRankSelfContainedScaling(t *testing.T) {
	// scaling uses only the batch's own range: the cheapest route in the
	// batch gets the full cost score even if its fee is large in absolute
	// terms
	quotes := []quote.Quote{
		route("A", 500, 120, 0.5, true),
		route("B", 900, 120, 0.5, true),
	}
	Rank(quotes, &Weights{Cost: 1})
	assert.Equal(t, "A", quotes[0].Bridge)
	assert.InDelta(t, 1.0, quotes[0].Score, 1e-9)
	assert.InDelta(t, 0.0, quotes[1].Score, 1e-9)
}
