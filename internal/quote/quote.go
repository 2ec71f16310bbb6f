// Package quote defines the canonical quote model every provider result is
// normalized into, plus the aggregated response returned to callers.
package quote

import (
	"fmt"

	"github.com/mbd888/bridgerank/internal/bridge"
)

// Operational status of a route.
const (
	StatusOperational = "operational"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// Route warnings.
const (
	WarnSlowRoute   = "slow_route"
	WarnLowSecurity = "low_security"
)

// Timing categories.
const (
	TimingFast   = "fast"
	TimingMedium = "medium"
	TimingSlow   = "slow"
)

// GasDetails breaks down gas cost per chain.
type GasDetails struct {
	SourceGasUSD            float64 `json:"source_gas_usd"`
	DestinationGasUSD       float64 `json:"destination_gas_usd"`
	SourceChain             string  `json:"source_chain"`
	DestinationChain        string  `json:"destination_chain"`
	SourceGasPriceGwei      float64 `json:"source_gas_price_gwei"`
	DestinationGasPriceGwei float64 `json:"destination_gas_price_gwei"`
	SourceGasLimit          uint64  `json:"source_gas_limit"`
	DestinationGasLimit     uint64  `json:"destination_gas_limit"`
}

// CostBreakdown splits the total fee into its components.
type CostBreakdown struct {
	BridgeFeeUSD   float64     `json:"bridge_fee_usd"`
	GasEstimateUSD float64     `json:"gas_estimate_usd"`
	GasDetails     *GasDetails `json:"gas_details,omitempty"`
}

// CostDetails carries the comparable cost of a route.
type CostDetails struct {
	TotalFeeUSD float64       `json:"total_fee_usd"`
	Breakdown   CostBreakdown `json:"breakdown"`
}

// OutputDetails carries expected and guaranteed output amounts.
// Invariant: Minimum <= Expected.
type OutputDetails struct {
	Expected float64 `json:"expected"`
	Minimum  float64 `json:"minimum"`
	Input    float64 `json:"input"`
}

// TimingDetails carries the transfer time estimate.
type TimingDetails struct {
	Seconds  int64  `json:"seconds"`
	Display  string `json:"display"`
	Category string `json:"category"`
}

// SecurityDetails is the merged security assessment for the bridge.
type SecurityDetails struct {
	Score      float64 `json:"score"`
	Level      string  `json:"level"`
	HasAudit   bool    `json:"has_audit"`
	HasExploit bool    `json:"has_exploit"`
}

// Quote is one ranked route in the aggregated response.
type Quote struct {
	Bridge    string          `json:"bridge"`
	Rank      int             `json:"rank"`
	Score     float64         `json:"score"`
	Cost      CostDetails     `json:"cost"`
	Output    OutputDetails   `json:"output"`
	Timing    TimingDetails   `json:"timing"`
	Security  SecurityDetails `json:"security"`
	Available bool            `json:"available"`
	Status    string          `json:"status"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// ProviderError reports one bridge that failed or timed out.
type ProviderError struct {
	Bridge string `json:"bridge"`
	Error  string `json:"error"`
}

// RequestMetadata echoes the request in the response.
type RequestMetadata struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Token  string  `json:"token"`
	Amount float64 `json:"amount"`
}

// ResponseMetadata summarizes the aggregation outcome.
type ResponseMetadata struct {
	TotalRoutes     int             `json:"total_routes"`
	AvailableRoutes int             `json:"available_routes"`
	Request         RequestMetadata `json:"request"`
}

// AggregatedResult is the ranked, comparison-ready result set for one
// request. Cached as a whole snapshot.
type AggregatedResult struct {
	Routes   []Quote          `json:"routes"`
	Errors   []ProviderError  `json:"errors,omitempty"`
	Metadata ResponseMetadata `json:"metadata"`
}

// EchoRequest builds the echoed request metadata.
func EchoRequest(req bridge.RouteRequest) RequestMetadata {
	return RequestMetadata{
		From:   req.FromChain,
		To:     req.ToChain,
		Token:  req.Token,
		Amount: req.Amount,
	}
}

// CategorizeTiming maps seconds to a speed bucket.
func CategorizeTiming(seconds int64) string {
	switch {
	case seconds <= 120:
		return TimingFast
	case seconds <= 600:
		return TimingMedium
	default:
		return TimingSlow
	}
}

// FormatTiming renders a human-readable duration like "~3 min".
func FormatTiming(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("~%d sec", seconds)
	case seconds < 3600:
		return fmt.Sprintf("~%d min", seconds/60)
	default:
		return fmt.Sprintf("~%d hr", seconds/3600)
	}
}

// HasWarning reports whether the quote carries the given warning.
func (q *Quote) HasWarning(w string) bool {
	for _, ww := range q.Warnings {
		if ww == w {
			return true
		}
	}
	return false
}

// AddWarning appends a warning if not already present.
func (q *Quote) AddWarning(w string) {
	if !q.HasWarning(w) {
		q.Warnings = append(q.Warnings, w)
	}
}
