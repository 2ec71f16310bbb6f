package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynapseQuote(t *testing.T) {
	s := NewSynapse()

	raw, err := s.Quote(context.Background(), RouteRequest{
		FromChain: "ethereum",
		ToChain:   "arbitrum",
		Token:     "USDC",
		Amount:    1000,
		Slippage:  0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, "Synapse", raw.Bridge)
	assert.InDelta(t, 0.15, raw.BridgeFeeToken, 1e-9)
	assert.InDelta(t, 999.85, raw.AmountOut, 1e-9)
	// pool output, so the minimum reflects the slippage tolerance
	assert.InDelta(t, 999.85*0.995, raw.MinAmountOut, 1e-6)
	assert.Equal(t, int64(900), raw.EstTimeSeconds)
	assert.True(t, raw.LiquidityOK)
}

func TestSynapseQuoteL2ToL2IsFaster(t *testing.T) {
	s := NewSynapse()

	raw, err := s.Quote(context.Background(), RouteRequest{
		FromChain: "polygon",
		ToChain:   "arbitrum",
		Token:     "NUSD",
		Amount:    500,
		Slippage:  0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300), raw.EstTimeSeconds)
	assert.InDelta(t, 0.10, raw.BridgeFeeToken, 1e-9)
}

func TestSynapseQuoteFeeSwallowsAmount(t *testing.T) {
	s := NewSynapse()

	raw, err := s.Quote(context.Background(), RouteRequest{
		FromChain: "ethereum",
		ToChain:   "arbitrum",
		Token:     "SYN",
		Amount:    0.5, // bridge fee is 1 SYN
	})
	require.NoError(t, err)
	assert.False(t, raw.LiquidityOK)
}

func TestSynapseQuoteUnsupportedChain(t *testing.T) {
	s := NewSynapse()
	_, err := s.Quote(context.Background(), RouteRequest{
		FromChain: "solana",
		ToChain:   "ethereum",
		Token:     "USDC",
		Amount:    100,
	})
	assert.ErrorIs(t, err, ErrUnsupportedRoute)
}

func TestSynapseQuoteUnsupportedAsset(t *testing.T) {
	s := NewSynapse()
	_, err := s.Quote(context.Background(), RouteRequest{
		FromChain: "ethereum",
		ToChain:   "arbitrum",
		Token:     "PEPE",
		Amount:    100,
	})
	assert.ErrorIs(t, err, ErrUnsupportedAsset)
}
