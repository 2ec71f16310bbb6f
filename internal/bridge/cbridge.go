package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const cbridgeAPIBase = "https://cbridge-prod2.celer.app"

// CBridge adapter for Celer cBridge (liquidity-pool bridge).
type CBridge struct {
	BaseURL string
	Client  *http.Client
}

// NewCBridge creates a cBridge adapter against the public API.
func NewCBridge(client *http.Client) *CBridge {
	return &CBridge{BaseURL: cbridgeAPIBase, Client: client}
}

func (c *CBridge) Name() string { return "cBridge" }

// cbridgeEstimateResponse mirrors the /v2/estimateAmt payload.
type cbridgeEstimateResponse struct {
	Err *struct {
		Code int32  `json:"code"`
		Msg  string `json:"msg"`
	} `json:"err"`
	EqValueTokenAmt     string  `json:"eq_value_token_amt"`
	BridgeRate          float64 `json:"bridge_rate"`
	PercFee             string  `json:"perc_fee"`
	BaseFee             string  `json:"base_fee"`
	EstimatedReceiveAmt string  `json:"estimated_receive_amt"`
	MaxSlippage         int64   `json:"max_slippage"`
}

func cbridgeChainID(chain string) (int64, error) {
	// cBridge shares EVM chain IDs with Across.
	return acrossChainID(chain)
}

// Estimate error codes cBridge reports when the pools cannot cover the
// transfer, as opposed to a malformed request.
const (
	cbridgeErrNoTokenOnDst   = 1004
	cbridgeErrLiquidityOnDst = 1007
)

func cbridgeLiquidityError(code int32, msg string) bool {
	switch code {
	case cbridgeErrNoTokenOnDst, cbridgeErrLiquidityOnDst:
		return true
	}
	return strings.Contains(strings.ToLower(msg), "liquidity")
}

// cbridgeTransferTime: pool-based transfers confirm on both chains.
func cbridgeTransferTime(toChain string) int64 {
	if strings.EqualFold(toChain, "ethereum") {
		return 1200
	}
	return 900
}

// Quote fetches an estimate from the cBridge /v2/estimateAmt endpoint.
func (c *CBridge) Quote(ctx context.Context, req RouteRequest) (*RawQuote, error) {
	src, err := cbridgeChainID(req.FromChain)
	if err != nil {
		return nil, err
	}
	dst, err := cbridgeChainID(req.ToChain)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("src_chain_id", strconv.FormatInt(src, 10))
	q.Set("dst_chain_id", strconv.FormatInt(dst, 10))
	q.Set("token_symbol", strings.ToUpper(req.Token))
	q.Set("amt", req.AmountSmallestUnit())
	// slippage_tolerance is expressed in units of 1e-6
	q.Set("slippage_tolerance", strconv.FormatInt(int64(req.Slippage*10000), 10))

	var resp cbridgeEstimateResponse
	if err := getJSON(ctx, c.Client, c.BaseURL+"/v2/estimateAmt?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	if resp.Err != nil && resp.Err.Code != 0 {
		if cbridgeLiquidityError(resp.Err.Code, resp.Err.Msg) {
			return nil, fmt.Errorf("%w: %s", ErrNoLiquidity, resp.Err.Msg)
		}
		return nil, fmt.Errorf("%w: %s", ErrBadResponse, resp.Err.Msg)
	}

	percFee, err := ParseAmount(resp.PercFee, req.Token)
	if err != nil {
		return nil, err
	}
	baseFee, err := ParseAmount(resp.BaseFee, req.Token)
	if err != nil {
		return nil, err
	}
	expected, err := ParseAmount(resp.EstimatedReceiveAmt, req.Token)
	if err != nil {
		return nil, err
	}

	minimum := expected * (1 - float64(resp.MaxSlippage)/1e6)
	if resp.MaxSlippage == 0 {
		minimum = expected * (1 - req.Slippage/100)
	}

	return &RawQuote{
		Bridge:         c.Name(),
		BridgeFeeToken: percFee + baseFee,
		EstTimeSeconds: cbridgeTransferTime(req.ToChain),
		AmountOut:      expected,
		MinAmountOut:   minimum,
		LiquidityOK:    expected > 0,
	}, nil
}
