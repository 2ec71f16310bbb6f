package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const stargateAPIBase = "https://stargate.finance/api"

// Stargate adapter for Stargate (LayerZero unified-liquidity bridge).
type Stargate struct {
	BaseURL string
	Client  *http.Client
}

// NewStargate creates a Stargate adapter against the public API.
func NewStargate(client *http.Client) *Stargate {
	return &Stargate{BaseURL: stargateAPIBase, Client: client}
}

func (s *Stargate) Name() string { return "Stargate" }

// stargateQuotesResponse mirrors the /v1/quotes payload. Only the best
// route is used.
type stargateQuotesResponse struct {
	Quotes []struct {
		Route     string `json:"route"`
		SrcAmount string `json:"srcAmount"`
		DstAmount string `json:"dstAmount"`
		Duration  struct {
			Estimated int64 `json:"estimated"`
		} `json:"duration"`
		Fees []struct {
			Token  string `json:"token"`
			Amount string `json:"amount"`
			Type   string `json:"type"`
		} `json:"fees"`
	} `json:"quotes"`
}

// stargateChainKey maps canonical chain names to Stargate chain keys.
func stargateChainKey(chain string) (string, error) {
	switch strings.ToLower(chain) {
	case "ethereum", "eth", "mainnet":
		return "ethereum", nil
	case "optimism", "opt":
		return "optimism", nil
	case "arbitrum", "arbitrum-one", "arb":
		return "arbitrum", nil
	case "polygon", "matic":
		return "polygon", nil
	case "base":
		return "base", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedRoute, chain)
	}
}

// Quote fetches the best route from the Stargate /v1/quotes endpoint.
func (s *Stargate) Quote(ctx context.Context, req RouteRequest) (*RawQuote, error) {
	srcChain, err := stargateChainKey(req.FromChain)
	if err != nil {
		return nil, err
	}
	dstChain, err := stargateChainKey(req.ToChain)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("srcToken", strings.ToUpper(req.Token))
	q.Set("dstToken", strings.ToUpper(req.Token))
	q.Set("srcChainKey", srcChain)
	q.Set("dstChainKey", dstChain)
	q.Set("srcAmount", req.AmountSmallestUnit())
	q.Set("dstAmountMin", "0")

	var resp stargateQuotesResponse
	if err := getJSON(ctx, s.Client, s.BaseURL+"/v1/quotes?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	if len(resp.Quotes) == 0 {
		return &RawQuote{
			Bridge:      s.Name(),
			LiquidityOK: false,
		}, nil
	}

	best := resp.Quotes[0]

	expected, err := ParseAmount(best.DstAmount, req.Token)
	if err != nil {
		return nil, err
	}

	var fee float64
	for _, f := range best.Fees {
		// only count fees charged in the transferred token; message fees
		// in native gas are covered by the gas estimate
		if strings.EqualFold(f.Token, req.Token) {
			amt, err := ParseAmount(f.Amount, req.Token)
			if err != nil {
				return nil, err
			}
			fee += amt
		}
	}

	estTime := best.Duration.Estimated
	if estTime <= 0 {
		estTime = 180
	}

	return &RawQuote{
		Bridge:         s.Name(),
		BridgeFeeToken: fee,
		EstTimeSeconds: estTime,
		AmountOut:      expected,
		MinAmountOut:   expected * (1 - req.Slippage/100),
		LiquidityOK:    expected > 0,
	}, nil
}
