// Package bridge defines the canonical route request, the canonical raw
// quote every provider adapter translates into, and the adapter contract.
//
// Each bridge provider speaks its own wire format. The adapter for a
// provider owns the full translation from RouteRequest to the provider API
// and from the provider payload back to RawQuote; nothing outside the
// adapter ever sees provider-specific shapes.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Errors returned by adapters. The dispatcher records these per provider;
// they never abort a fan-out batch.
var (
	ErrUnsupportedRoute = errors.New("route not supported by this bridge")
	ErrUnsupportedAsset = errors.New("asset not supported by this bridge")
	ErrBadResponse      = errors.New("malformed provider response")
	ErrNoLiquidity      = errors.New("insufficient liquidity")
)

// RouteRequest is the canonical transfer request fanned out to adapters.
// Created per inbound call, never persisted.
type RouteRequest struct {
	FromChain string  `json:"from"`
	ToChain   string  `json:"to"`
	Token     string  `json:"token"`
	Amount    float64 `json:"amount"`
	Slippage  float64 `json:"slippage"` // percent, e.g. 0.5 for 0.5%
}

// DefaultSlippage is applied when the caller omits a slippage tolerance.
const DefaultSlippage = 0.5

// Validate checks the request shape before any aggregation work starts.
func (r *RouteRequest) Validate() error {
	if strings.TrimSpace(r.FromChain) == "" {
		return fmt.Errorf("from_chain parameter is required")
	}
	if strings.TrimSpace(r.ToChain) == "" {
		return fmt.Errorf("to_chain parameter is required")
	}
	if strings.TrimSpace(r.Token) == "" {
		return fmt.Errorf("token parameter is required")
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount <= 0 {
		return fmt.Errorf("amount must be greater than 0")
	}
	if strings.EqualFold(r.FromChain, r.ToChain) {
		return fmt.Errorf("source and destination chains must be different")
	}
	if math.IsNaN(r.Slippage) || r.Slippage < 0 || r.Slippage > 50 {
		return fmt.Errorf("slippage must be between 0 and 50 percent")
	}
	return nil
}

// TokenDecimals returns the ERC-20 decimal count used for smallest-unit
// conversion. Unknown tokens default to 18.
func TokenDecimals(token string) int32 {
	switch strings.ToUpper(token) {
	case "USDC", "USDT":
		return 6
	default:
		return 18
	}
}

// AmountSmallestUnit converts the human amount to the integer smallest-unit
// string bridge APIs expect (e.g. 1.5 USDC -> "1500000").
func (r *RouteRequest) AmountSmallestUnit() string {
	d := decimal.NewFromFloat(r.Amount).Shift(TokenDecimals(r.Token))
	return d.Truncate(0).String()
}

// ParseAmount converts a smallest-unit string from a provider payload back
// to human token units.
func ParseAmount(raw, token string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrBadResponse, raw)
	}
	f, _ := d.Shift(-TokenDecimals(token)).Float64()
	return f, nil
}

// RawQuote is the semi-structured result an adapter maps a provider
// response into. Units are already comparable: USD for fees, token units
// for amounts, seconds for timing.
type RawQuote struct {
	Bridge         string  // provider display name, e.g. "Hop"
	BridgeFeeToken float64 // protocol fee in token units
	EstTimeSeconds int64   // estimated transfer time
	AmountOut      float64 // expected output in token units
	MinAmountOut   float64 // guaranteed minimum after slippage
	LiquidityOK    bool    // provider reports sufficient liquidity
	Degraded       bool    // provider reachable but reporting problems
}

// Adapter is one bridge provider. Implementations must honor ctx
// cancellation; the dispatcher enforces per-call deadlines through it.
type Adapter interface {
	Name() string
	Quote(ctx context.Context, req RouteRequest) (*RawQuote, error)
}
