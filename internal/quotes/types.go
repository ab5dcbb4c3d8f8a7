package quotes

import (
	"context"
	"fmt"
	"math/big"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dexlab/quotefill/internal/tokens"
)

// Side of a fill. Sells quote by input amount, buys by output amount.
type Side string

const (
	Sell Side = "sell"
	Buy  Side = "buy"
)

// SourceBreakdown is one liquidity source's share of a quote's route.
// Proportion stays a string because that is what the wire carries and
// composition comparison is structural, not numeric.
type SourceBreakdown struct {
	Name       string `json:"name"`
	Proportion string `json:"proportion"`
}

// Order is a 0x v3 signed order as returned by the quote endpoint.
// Amounts are decimal strings straight off the wire.
type Order struct {
	MakerAddress          string `json:"makerAddress"`
	TakerAddress          string `json:"takerAddress"`
	FeeRecipientAddress   string `json:"feeRecipientAddress"`
	SenderAddress         string `json:"senderAddress"`
	MakerAssetAmount      string `json:"makerAssetAmount"`
	TakerAssetAmount      string `json:"takerAssetAmount"`
	MakerFee              string `json:"makerFee"`
	TakerFee              string `json:"takerFee"`
	ExpirationTimeSeconds string `json:"expirationTimeSeconds"`
	Salt                  string `json:"salt"`
	MakerAssetData        string `json:"makerAssetData"`
	TakerAssetData        string `json:"takerAssetData"`
	MakerFeeAssetData     string `json:"makerFeeAssetData"`
	TakerFeeAssetData     string `json:"takerFeeAssetData"`
	Signature             string `json:"signature"`
}

// OrderFillInfo is the per-order slice of the simulated fill result.
type OrderFillInfo struct {
	OrderStatus      uint8         `json:"orderStatus"`
	OrderHash        hexutil.Bytes `json:"orderHash"`
	TakerAssetFilled string        `json:"orderTakerAssetFilledAmount"`
}

// SwapResult is the decoded return of the dry-run fill. Empty RevertData
// is the success sentinel; a revert carries the raw revert bytes.
type SwapResult struct {
	GasUsed         int64           `json:"gasUsed"`
	BlockNumber     uint64          `json:"blockNumber"`
	RevertData      hexutil.Bytes   `json:"revertData"`
	BoughtAmount    string          `json:"boughtAmount"`
	SoldAmount      string          `json:"soldAmount"`
	ProtocolFeePaid string          `json:"protocolFeePaid"`
	EthBalance      string          `json:"ethBalance"`
	OrderInfos      []OrderFillInfo `json:"orderInfos,omitempty"`
}

// Succeeded reports a business-level pass: no revert and something bought.
func (r *SwapResult) Succeeded() bool {
	if r == nil || len(r.RevertData) != 0 {
		return false
	}
	bought, ok := new(big.Int).SetString(r.BoughtAmount, 10)
	return ok && bought.Sign() > 0
}

// CostMetrics are USD-denominated economics derived after a fill.
type CostMetrics struct {
	GasCostUsd        float64 `json:"gasCostUsd"`
	ProtocolFeeUsd    float64 `json:"protocolFeeUsd"`
	BoughtUsd         float64 `json:"boughtUsd"`
	SoldUsd           float64 `json:"soldUsd"`
	AdjustedBoughtUsd float64 `json:"adjustedBoughtUsd"`
	AdjustedSoldUsd   float64 `json:"adjustedSoldUsd"`
}

// Metadata travels with a quote from fetch to log. The scenario ID groups
// quotes fetched for the same randomized scenario across endpoints; it is
// the join key for apples-to-apples comparison. Earlier fields are never
// rewritten downstream, later stages only append.
type Metadata struct {
	ID                 string       `json:"id"`
	RunID              string       `json:"runId,omitempty"`
	MakerToken         string       `json:"makerToken"`
	TakerToken         string       `json:"takerToken"`
	APIPath            string       `json:"apiPath"`
	API                string       `json:"api,omitempty"`
	Side               Side         `json:"side"`
	FillAmount         string       `json:"fillAmount"`
	FillValue          float64      `json:"fillValue"`
	Timestamp          int64        `json:"timestamp"`
	ResponseTime       float64      `json:"responseTime"`
	FillDelay          float64      `json:"fillDelay"`
	MaxSellAmount      string       `json:"maxSellAmount"`
	EthUsd             float64      `json:"ethUsd"`
	SellTokenUsd       float64      `json:"sellTokenPrice"`
	BuyTokenUsd        float64      `json:"buyTokenPrice"`
	MakerTokenDecimals int          `json:"makerTokenDecimals"`
	TakerTokenDecimals int          `json:"takerTokenDecimals"`
	SwapResult         *SwapResult  `json:"swapResult,omitempty"`
	Metrics            *CostMetrics `json:"metrics,omitempty"`
}

// Quote is the normalized priced swap proposal produced by an adapter.
// Amount fields keep the endpoint's decimal-string encoding.
type Quote struct {
	Sources         []SourceBreakdown `json:"sources"`
	Orders          []Order           `json:"orders"`
	SellAmount      string            `json:"sellAmount"`
	BuyAmount       string            `json:"buyAmount"`
	Price           string            `json:"price,omitempty"`
	GasPrice        string            `json:"gasPrice"`
	Value           string            `json:"value"`
	To              common.Address    `json:"to"`
	Data            hexutil.Bytes     `json:"data"`
	AllowanceTarget common.Address    `json:"allowanceTarget"`
	ProtocolFee     string            `json:"protocolFee"`
	Metadata        Metadata          `json:"metadata"`
}

// FetchOpts parameterize one quote fetch. Tokens is a registry snapshot so
// the USD conversion and the recorded prices agree for the whole scenario.
type FetchOpts struct {
	Tokens           map[string]tokens.Token
	MakerToken       string
	TakerToken       string
	SwapValueUsd     float64
	FillDelaySeconds float64
	ScenarioID       string
	Extra            url.Values
}

// Fetcher is the capability set of one aggregator backend. A transient
// fetch failure (bad status, network error, parse error) returns
// (nil, nil) after logging; an error return means the request itself was
// invalid and retrying would not help.
type Fetcher interface {
	ID() string
	FetchSellQuote(ctx context.Context, opts FetchOpts) (*Quote, error)
	FetchBuyQuote(ctx context.Context, opts FetchOpts) (*Quote, error)
}

// BaseUnitAmount converts a USD notional to base units of a token:
// usd / unitPrice * 10^decimals, floored.
func BaseUnitAmount(t tokens.Token, usd float64) (*big.Int, error) {
	if usd <= 0 {
		return nil, fmt.Errorf("swap value must be > 0, got %v", usd)
	}
	if t.UsdValue <= 0 {
		return nil, fmt.Errorf("token %s has no USD price", t.Symbol)
	}
	units := new(big.Float).Quo(big.NewFloat(usd), big.NewFloat(t.UsdValue))
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil))
	out, _ := new(big.Float).Mul(units, scale).Int(nil)
	return out, nil
}
