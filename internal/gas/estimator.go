package gas

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mbd888/bridgerank/internal/quote"
)

// GasPricer is the slice of the RPC client the estimator needs.
// *ethclient.Client satisfies it.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

var _ GasPricer = (*ethclient.Client)(nil)

// nativeAsset maps a chain to the symbol gas is paid in.
var nativeAsset = map[string]string{
	"ethereum": "ETH",
	"arbitrum": "ETH",
	"optimism": "ETH",
	"base":     "ETH",
	"polygon":  "MATIC",
}

// Gas units a bridge transfer burns on each side. Approve plus deposit
// on the source, message execution on the destination.
const (
	sourceGasLimit      = 150_000
	destinationGasLimit = 120_000
)

// Default gas prices in wei used when a chain has no RPC client
// configured or the RPC call fails.
var defaultGasPriceWei = map[string]*big.Int{
	"ethereum": big.NewInt(20_000_000_000), // 20 gwei
	"arbitrum": big.NewInt(100_000_000),    // 0.1 gwei
	"optimism": big.NewInt(100_000_000),
	"base":     big.NewInt(100_000_000),
	"polygon":  big.NewInt(40_000_000_000), // 40 gwei
}

type cachedGasPrice struct {
	wei        *big.Int
	lastUpdate time.Time
}

// Estimator turns chain gas prices and native asset prices into the
// per-route USD gas estimate attached to every quote.
type Estimator struct {
	mu      sync.RWMutex
	cached  map[string]cachedGasPrice
	ttl     time.Duration
	clients map[string]GasPricer
	oracle  *PriceOracle
}

// NewEstimator creates a gas estimator. clients maps chain names to RPC
// clients; chains without one use the default gas price table.
func NewEstimator(clients map[string]GasPricer, oracle *PriceOracle) *Estimator {
	normalized := make(map[string]GasPricer, len(clients))
	for chain, c := range clients {
		normalized[strings.ToLower(chain)] = c
	}
	return &Estimator{
		cached:  make(map[string]cachedGasPrice),
		ttl:     15 * time.Second,
		clients: normalized,
		oracle:  oracle,
	}
}

// Estimate produces the gas breakdown for a transfer between two
// chains. It never fails; RPC trouble degrades to the default prices.
func (e *Estimator) Estimate(ctx context.Context, fromChain, toChain string) *quote.GasDetails {
	fromChain = strings.ToLower(fromChain)
	toChain = strings.ToLower(toChain)

	srcWei := e.gasPrice(ctx, fromChain)
	dstWei := e.gasPrice(ctx, toChain)

	return &quote.GasDetails{
		SourceChain:             fromChain,
		DestinationChain:        toChain,
		SourceGasPriceGwei:      weiToGwei(srcWei),
		DestinationGasPriceGwei: weiToGwei(dstWei),
		SourceGasLimit:          sourceGasLimit,
		DestinationGasLimit:     destinationGasLimit,
		SourceGasUSD:            e.gasCostUSD(ctx, fromChain, srcWei, sourceGasLimit),
		DestinationGasUSD:       e.gasCostUSD(ctx, toChain, dstWei, destinationGasLimit),
	}
}

func (e *Estimator) gasPrice(ctx context.Context, chain string) *big.Int {
	e.mu.RLock()
	c, ok := e.cached[chain]
	e.mu.RUnlock()
	if ok && time.Since(c.lastUpdate) < e.ttl {
		return c.wei
	}

	client, ok := e.clients[chain]
	if !ok {
		return defaultPrice(chain)
	}

	price, err := client.SuggestGasPrice(ctx)
	if err != nil || price == nil || price.Sign() <= 0 {
		if ok && c.wei != nil {
			return c.wei
		}
		return defaultPrice(chain)
	}

	e.mu.Lock()
	e.cached[chain] = cachedGasPrice{wei: price, lastUpdate: time.Now()}
	e.mu.Unlock()

	return price
}

func (e *Estimator) gasCostUSD(ctx context.Context, chain string, priceWei *big.Int, gasLimit uint64) float64 {
	asset, ok := nativeAsset[chain]
	if !ok {
		asset = "ETH"
	}
	assetUSD := e.oracle.GetPrice(ctx, asset)

	cost := new(big.Int).Mul(priceWei, new(big.Int).SetUint64(gasLimit))
	costNative, _ := new(big.Float).Quo(
		new(big.Float).SetInt(cost),
		big.NewFloat(1e18),
	).Float64()

	return costNative * assetUSD
}

func defaultPrice(chain string) *big.Int {
	if p, ok := defaultGasPriceWei[chain]; ok {
		return p
	}
	return defaultGasPriceWei["ethereum"]
}

func weiToGwei(wei *big.Int) float64 {
	gwei, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		big.NewFloat(1e9),
	).Float64()
	return gwei
}
