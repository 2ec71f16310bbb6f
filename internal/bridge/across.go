package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const acrossAPIBase = "https://across.to/api"

// Across adapter for Across Protocol (intents-based bridge).
type Across struct {
	BaseURL string
	Client  *http.Client
}

// NewAcross creates an Across adapter against the public API.
func NewAcross(client *http.Client) *Across {
	return &Across{BaseURL: acrossAPIBase, Client: client}
}

func (a *Across) Name() string { return "Across" }

// acrossFeesResponse mirrors the /suggested-fees payload.
type acrossFeesResponse struct {
	TotalRelayFee struct {
		Total string `json:"total"`
		Pct   string `json:"pct"`
	} `json:"totalRelayFee"`
	EstimatedFillTimeSec int64 `json:"estimatedFillTimeSec"`
	IsAmountTooLow       bool  `json:"isAmountTooLow"`
}

// acrossChainID maps canonical chain names to EVM chain IDs.
func acrossChainID(chain string) (int64, error) {
	switch strings.ToLower(chain) {
	case "ethereum", "eth", "mainnet":
		return 1, nil
	case "optimism", "opt":
		return 10, nil
	case "polygon", "matic":
		return 137, nil
	case "arbitrum", "arbitrum-one", "arb":
		return 42161, nil
	case "base":
		return 8453, nil
	case "linea":
		return 59144, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedRoute, chain)
	}
}

func acrossSupportedToken(token string) error {
	switch strings.ToUpper(token) {
	case "USDC", "USDT", "DAI", "ETH", "WETH", "WBTC":
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, token)
	}
}

// Quote fetches suggested relay fees from the Across API.
func (a *Across) Quote(ctx context.Context, req RouteRequest) (*RawQuote, error) {
	origin, err := acrossChainID(req.FromChain)
	if err != nil {
		return nil, err
	}
	destination, err := acrossChainID(req.ToChain)
	if err != nil {
		return nil, err
	}
	if err := acrossSupportedToken(req.Token); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("token", strings.ToUpper(req.Token))
	q.Set("originChainId", strconv.FormatInt(origin, 10))
	q.Set("destinationChainId", strconv.FormatInt(destination, 10))
	q.Set("amount", req.AmountSmallestUnit())

	var resp acrossFeesResponse
	if err := getJSON(ctx, a.Client, a.BaseURL+"/suggested-fees?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	fee, err := ParseAmount(resp.TotalRelayFee.Total, req.Token)
	if err != nil {
		return nil, err
	}

	expected := req.Amount - fee
	if expected < 0 {
		expected = 0
	}
	minimum := expected * (1 - req.Slippage/100)

	estTime := resp.EstimatedFillTimeSec
	if estTime <= 0 {
		estTime = 60 // relayers typically fill within a minute
	}

	return &RawQuote{
		Bridge:         a.Name(),
		BridgeFeeToken: fee,
		EstTimeSeconds: estTime,
		AmountOut:      expected,
		MinAmountOut:   minimum,
		LiquidityOK:    !resp.IsAmountTooLow && expected > 0,
	}, nil
}
