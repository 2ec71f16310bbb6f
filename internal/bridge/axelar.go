package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const axelarAPIBase = "https://api.axelarscan.io"

// Axelar adapter for Axelar (proof-of-stake message-passing bridge).
// Axelar quotes a cross-chain gas fee rather than a swap, so the output
// equals the input minus the relay fee.
type Axelar struct {
	BaseURL string
	Client  *http.Client
}

// NewAxelar creates an Axelar adapter against the axelarscan API.
func NewAxelar(client *http.Client) *Axelar {
	return &Axelar{BaseURL: axelarAPIBase, Client: client}
}

func (a *Axelar) Name() string { return "Axelar" }

// axelarFeeResponse mirrors the /gmp/estimateGasFee payload: the fee is
// returned as a stringified token amount.
type axelarFeeResponse struct {
	Fee string `json:"fee"`
}

func axelarChainName(chain string) (string, error) {
	switch strings.ToLower(chain) {
	case "ethereum", "eth", "mainnet":
		return "ethereum", nil
	case "polygon", "matic":
		return "polygon", nil
	case "arbitrum", "arbitrum-one", "arb":
		return "arbitrum", nil
	case "optimism", "opt":
		return "optimism", nil
	case "base":
		return "base", nil
	case "avalanche", "avax":
		return "avalanche", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedRoute, chain)
	}
}

// axelarTransferTime: Axelar waits for source finality plus validator
// attestation, so transfers are slow relative to liquidity bridges.
func axelarTransferTime(fromChain string) int64 {
	if strings.EqualFold(fromChain, "ethereum") {
		return 1080 // ~2 epochs of finality plus attestation
	}
	return 840
}

// Quote estimates the Axelar relay fee for the route.
func (a *Axelar) Quote(ctx context.Context, req RouteRequest) (*RawQuote, error) {
	from, err := axelarChainName(req.FromChain)
	if err != nil {
		return nil, err
	}
	to, err := axelarChainName(req.ToChain)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("sourceChain", from)
	q.Set("destinationChain", to)
	q.Set("symbol", strings.ToUpper(req.Token))
	q.Set("amount", req.AmountSmallestUnit())

	var resp axelarFeeResponse
	if err := getJSON(ctx, a.Client, a.BaseURL+"/gmp/estimateGasFee?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	fee, err := ParseAmount(resp.Fee, req.Token)
	if err != nil {
		return nil, err
	}

	expected := req.Amount - fee
	if expected <= 0 {
		return &RawQuote{
			Bridge:      a.Name(),
			LiquidityOK: false,
		}, nil
	}

	return &RawQuote{
		Bridge:         a.Name(),
		BridgeFeeToken: fee,
		EstTimeSeconds: axelarTransferTime(req.FromChain),
		AmountOut:      expected,
		// Axelar mints the attested amount exactly; no AMM slippage
		MinAmountOut: expected,
		LiquidityOK:  true,
	}, nil
}
