package bridge

import (
	"context"
	"fmt"
	"strings"
)

// Wormhole adapter for the Wormhole guardian-network bridge. Wormhole has
// no public quote endpoint, so this adapter prices routes from its known
// relayer fee schedule instead of a live API call. Transfers are lock-mint,
// so the attested amount arrives exactly.
type Wormhole struct{}

// NewWormhole creates a Wormhole estimate adapter.
func NewWormhole() *Wormhole {
	return &Wormhole{}
}

func (w *Wormhole) Name() string { return "Wormhole" }

// wormholeChainID maps chain names to Wormhole's own chain ID space,
// which differs from EVM chain IDs.
func wormholeChainID(chain string) (int64, error) {
	switch strings.ToLower(chain) {
	case "ethereum", "eth", "mainnet":
		return 2, nil
	case "bsc", "binance", "bnb":
		return 4, nil
	case "polygon", "matic":
		return 5, nil
	case "avalanche", "avax":
		return 6, nil
	case "fantom", "ftm":
		return 10, nil
	case "celo":
		return 14, nil
	case "moonbeam", "glmr":
		return 16, nil
	case "arbitrum", "arb":
		return 23, nil
	case "optimism", "opt":
		return 24, nil
	case "base":
		return 30, nil
	case "scroll":
		return 34, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedRoute, chain)
	}
}

// wormholeRelayerFee returns the flat relayer fee in token units.
func wormholeRelayerFee(token string) (float64, error) {
	switch strings.ToUpper(token) {
	case "USDC", "USDT":
		return 0.25, nil
	case "ETH", "WETH":
		return 0.0005, nil
	case "WBTC":
		return 0.00002, nil
	case "MATIC", "WMATIC":
		return 5.0, nil
	case "DAI":
		return 0.25, nil
	case "AVAX", "WAVAX", "BNB", "WBNB":
		return 0.0015, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedAsset, token)
	}
}

// wormholeTransferTime: the guardians wait for source finality, so any
// route touching Ethereum pays the full finality delay.
func wormholeTransferTime(fromChain, toChain string) int64 {
	if strings.EqualFold(fromChain, "ethereum") || strings.EqualFold(toChain, "ethereum") {
		return 900
	}
	return 600
}

// Quote prices the route from the relayer fee schedule.
func (w *Wormhole) Quote(ctx context.Context, req RouteRequest) (*RawQuote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := wormholeChainID(req.FromChain); err != nil {
		return nil, err
	}
	if _, err := wormholeChainID(req.ToChain); err != nil {
		return nil, err
	}
	fee, err := wormholeRelayerFee(req.Token)
	if err != nil {
		return nil, err
	}

	expected := req.Amount - fee
	if expected <= 0 {
		return &RawQuote{
			Bridge:      w.Name(),
			LiquidityOK: false,
		}, nil
	}

	return &RawQuote{
		Bridge:         w.Name(),
		BridgeFeeToken: fee,
		EstTimeSeconds: wormholeTransferTime(req.FromChain, req.ToChain),
		AmountOut:      expected,
		// lock-mint, the attested amount is exact
		MinAmountOut: expected,
		LiquidityOK:  true,
	}, nil
}
