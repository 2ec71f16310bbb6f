package bridge

import (
	"context"
	"fmt"
	"strings"
)

// Synapse adapter for the Synapse Protocol cross-chain AMM. The public
// quote API needs a sender and recipient address, which an aggregation
// request does not carry, so this adapter prices routes from Synapse's
// published fee schedule. Output passes through the destination pool, so
// the minimum honors the caller's slippage tolerance.
type Synapse struct{}

// NewSynapse creates a Synapse estimate adapter.
func NewSynapse() *Synapse {
	return &Synapse{}
}

func (s *Synapse) Name() string { return "Synapse" }

func synapseChainID(chain string) (int64, error) {
	switch strings.ToLower(chain) {
	case "ethereum", "eth", "mainnet":
		return 1, nil
	case "optimism", "opt":
		return 10, nil
	case "polygon", "matic":
		return 137, nil
	case "arbitrum", "arb", "arbitrum-one":
		return 42161, nil
	case "avalanche", "avax":
		return 43114, nil
	case "bsc", "binance", "bnb":
		return 56, nil
	case "fantom", "ftm":
		return 250, nil
	case "base":
		return 8453, nil
	case "blast":
		return 81457, nil
	case "scroll":
		return 534352, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedRoute, chain)
	}
}

// synapseBridgeFee returns the combined swap-plus-bridge fee in token
// units. nUSD, nETH and nBTC are Synapse's own pool assets.
func synapseBridgeFee(token string) (float64, error) {
	switch strings.ToUpper(token) {
	case "USDC", "USDT":
		return 0.15, nil
	case "NUSD":
		return 0.10, nil
	case "ETH", "WETH", "NETH":
		return 0.0003, nil
	case "DAI":
		return 0.18, nil
	case "WBTC", "NBTC":
		return 0.00001, nil
	case "SYN":
		return 1.0, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedAsset, token)
	}
}

func synapseTransferTime(fromChain, toChain string) int64 {
	if strings.EqualFold(fromChain, "ethereum") || strings.EqualFold(toChain, "ethereum") {
		return 900
	}
	return 300
}

// Quote prices the route from the published fee schedule.
func (s *Synapse) Quote(ctx context.Context, req RouteRequest) (*RawQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := synapseChainID(req.FromChain); err != nil {
		return nil, err
	}
	if _, err := synapseChainID(req.ToChain); err != nil {
		return nil, err
	}
	fee, err := synapseBridgeFee(req.Token)
	if err != nil {
		return nil, err
	}

	expected := req.Amount - fee
	if expected <= 0 {
		return &RawQuote{
			Bridge:      s.Name(),
			LiquidityOK: false,
		}, nil
	}

	return &RawQuote{
		Bridge:         s.Name(),
		BridgeFeeToken: fee,
		EstTimeSeconds: synapseTransferTime(req.FromChain, req.ToChain),
		AmountOut:      expected,
		MinAmountOut:   expected * (1 - req.Slippage/100),
		LiquidityOK:    true,
	}, nil
}
