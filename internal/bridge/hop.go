package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Hop Protocol public quote API.
const hopAPIBase = "https://api.hop.exchange"

// Hop adapter for Hop Protocol (optimistic AMM bridge).
type Hop struct {
	BaseURL string
	Client  *http.Client
}

// NewHop creates a Hop adapter against the public API.
func NewHop(client *http.Client) *Hop {
	return &Hop{BaseURL: hopAPIBase, Client: client}
}

func (h *Hop) Name() string { return "Hop" }

// hopQuoteResponse mirrors the /v1/quote payload.
// Note: the Hop API has a typo and spells it "estimatedRecieved".
type hopQuoteResponse struct {
	AmountIn                string  `json:"amountIn"`
	Slippage                float64 `json:"slippage"`
	AmountOutMin            string  `json:"amountOutMin"`
	DestinationAmountOutMin string  `json:"destinationAmountOutMin"`
	BonderFee               string  `json:"bonderFee"`
	EstimatedReceived       string  `json:"estimatedRecieved"`
}

// hopChainSlug maps canonical chain names to Hop chain slugs.
func hopChainSlug(chain string) (string, error) {
	switch strings.ToLower(chain) {
	case "ethereum", "eth", "mainnet":
		return "ethereum", nil
	case "optimism", "opt":
		return "optimism", nil
	case "arbitrum", "arbitrum-one", "arb":
		return "arbitrum", nil
	case "polygon", "matic":
		return "polygon", nil
	case "gnosis", "xdai":
		return "gnosis", nil
	case "base":
		return "base", nil
	case "linea":
		return "linea", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedRoute, chain)
	}
}

// hopTokenSymbol maps canonical token symbols to Hop token symbols.
func hopTokenSymbol(token string) (string, error) {
	switch strings.ToUpper(token) {
	case "USDC":
		return "USDC", nil
	case "USDT":
		return "USDT", nil
	case "DAI":
		return "DAI", nil
	case "ETH", "WETH":
		return "ETH", nil
	case "MATIC", "WMATIC":
		return "MATIC", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAsset, token)
	}
}

// hopTransferTime estimates transfer time by destination rollup.
// Hop transfers settle once the bonder relays, so times are short.
func hopTransferTime(toChain string) int64 {
	switch toChain {
	case "ethereum":
		return 300 // exits to L1 wait for the bonder
	case "polygon":
		return 420
	default:
		return 120
	}
}

// Quote fetches a quote from the Hop /v1/quote endpoint.
func (h *Hop) Quote(ctx context.Context, req RouteRequest) (*RawQuote, error) {
	from, err := hopChainSlug(req.FromChain)
	if err != nil {
		return nil, err
	}
	to, err := hopChainSlug(req.ToChain)
	if err != nil {
		return nil, err
	}
	token, err := hopTokenSymbol(req.Token)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("amount", req.AmountSmallestUnit())
	q.Set("token", token)
	q.Set("fromChain", from)
	q.Set("toChain", to)
	q.Set("slippage", fmt.Sprintf("%g", req.Slippage))
	q.Set("network", "mainnet")

	var resp hopQuoteResponse
	if err := getJSON(ctx, h.Client, h.BaseURL+"/v1/quote?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	fee, err := ParseAmount(resp.BonderFee, req.Token)
	if err != nil {
		return nil, err
	}
	expected, err := ParseAmount(resp.EstimatedReceived, req.Token)
	if err != nil {
		return nil, err
	}
	minimum, err := ParseAmount(resp.DestinationAmountOutMin, req.Token)
	if err != nil {
		return nil, err
	}

	return &RawQuote{
		Bridge:         h.Name(),
		BridgeFeeToken: fee,
		EstTimeSeconds: hopTransferTime(to),
		AmountOut:      expected,
		MinAmountOut:   minimum,
		LiquidityOK:    expected > 0,
	}, nil
}
