package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
)

// transformERC20Selector marks calldata routed through the exchange
// proxy's generic transform entrypoint.
const transformERC20Selector = "0x415565b0"

// ZeroEx fetches quotes from a 0x-style swap/quote endpoint.
type ZeroEx struct {
	apiPath         string
	apiID           string
	ExcludedSources []string
	httpc           *http.Client
	log             zerolog.Logger
}

func NewZeroEx(apiPath, apiID string, log zerolog.Logger) *ZeroEx {
	return &ZeroEx{
		apiPath: apiPath,
		apiID:   apiID,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "zeroex").Str("api", apiID).Logger(),
	}
}

func (z *ZeroEx) ID() string { return z.apiID }

type zeroExResponse struct {
	Sources         []SourceBreakdown `json:"sources"`
	Orders          []Order           `json:"orders"`
	SellAmount      string            `json:"sellAmount"`
	BuyAmount       string            `json:"buyAmount"`
	Price           string            `json:"price"`
	GasPrice        string            `json:"gasPrice"`
	Value           string            `json:"value"`
	To              string            `json:"to"`
	Data            string            `json:"data"`
	AllowanceTarget string            `json:"allowanceTarget"`
	ProtocolFee     string            `json:"protocolFee"`
}

func (z *ZeroEx) FetchSellQuote(ctx context.Context, opts FetchOpts) (*Quote, error) {
	return z.fetch(ctx, opts, Sell)
}

func (z *ZeroEx) FetchBuyQuote(ctx context.Context, opts FetchOpts) (*Quote, error) {
	return z.fetch(ctx, opts, Buy)
}

func (z *ZeroEx) fetch(ctx context.Context, opts FetchOpts, side Side) (*Quote, error) {
	maker, ok := opts.Tokens[opts.MakerToken]
	if !ok {
		return nil, fmt.Errorf("unknown maker token %q", opts.MakerToken)
	}
	taker, ok := opts.Tokens[opts.TakerToken]
	if !ok {
		return nil, fmt.Errorf("unknown taker token %q", opts.TakerToken)
	}

	// Sells size the input side, buys size the output side.
	sized := taker
	if side == Buy {
		sized = maker
	}
	fillAmount, err := BaseUnitAmount(sized, opts.SwapValueUsd)
	if err != nil {
		return nil, err
	}

	reqURL, err := z.buildURL(opts, side, fillAmount)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}
	resp, err := z.httpc.Do(req)
	if err != nil {
		z.log.Warn().Err(err).Str("pair", opts.TakerToken+"->"+opts.MakerToken).Msg("quote fetch failed")
		return nil, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		z.log.Warn().Int("status", resp.StatusCode).Str("body", string(body)).Msg("quote endpoint rejected request")
		return nil, nil
	}
	var qr zeroExResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		z.log.Warn().Err(err).Msg("quote response parse failed")
		return nil, nil
	}

	maxSellAmount := qr.SellAmount
	if side == Buy {
		maxSellAmount, err = BuyQuoteMaxSellAmount(common.FromHex(qr.Data), qr.Orders)
		if err != nil {
			z.log.Warn().Err(err).Msg("max sell amount extraction failed")
			return nil, nil
		}
	}

	q := &Quote{
		Sources:         filterZeroSources(qr.Sources),
		Orders:          qr.Orders,
		SellAmount:      qr.SellAmount,
		BuyAmount:       qr.BuyAmount,
		Price:           qr.Price,
		GasPrice:        qr.GasPrice,
		Value:           qr.Value,
		To:              common.HexToAddress(qr.To),
		Data:            hexutil.Bytes(common.FromHex(qr.Data)),
		AllowanceTarget: common.HexToAddress(qr.AllowanceTarget),
		ProtocolFee:     orZero(qr.ProtocolFee),
		Metadata: Metadata{
			ID:                 opts.ScenarioID,
			MakerToken:         opts.MakerToken,
			TakerToken:         opts.TakerToken,
			APIPath:            z.apiPath,
			API:                z.apiID,
			Side:               side,
			FillAmount:         fillAmount.String(),
			FillValue:          opts.SwapValueUsd,
			Timestamp:          start.Unix(),
			ResponseTime:       time.Since(start).Seconds(),
			FillDelay:          opts.FillDelaySeconds,
			MaxSellAmount:      maxSellAmount,
			EthUsd:             opts.Tokens["ETH"].UsdValue,
			SellTokenUsd:       taker.UsdValue,
			BuyTokenUsd:        maker.UsdValue,
			MakerTokenDecimals: maker.Decimals,
			TakerTokenDecimals: taker.Decimals,
		},
	}
	return q, nil
}

func (z *ZeroEx) buildURL(opts FetchOpts, side Side, fillAmount *big.Int) (string, error) {
	u, err := url.Parse(z.apiPath)
	if err != nil {
		return "", fmt.Errorf("parse api path %q: %w", z.apiPath, err)
	}
	qs := u.Query()
	qs.Set("buyToken", opts.MakerToken)
	qs.Set("sellToken", opts.TakerToken)
	if side == Buy {
		qs.Set("buyAmount", fillAmount.String())
	} else {
		qs.Set("sellAmount", fillAmount.String())
	}
	qs.Set("excludedSources", strings.Join(z.ExcludedSources, ","))
	for k, vs := range opts.Extra {
		for _, v := range vs {
			qs.Set(k, v)
		}
	}
	u.RawQuery = qs.Encode()
	return u.String(), nil
}

// BuyQuoteMaxSellAmount bounds how much a buy quote may sell. Transform
// calldata carries the bound at a fixed window (the second argument of
// transformERC20); discrete-order calldata bounds at the sum of the
// orders' taker amounts.
func BuyQuoteMaxSellAmount(data []byte, orders []Order) (string, error) {
	if len(data) >= 100 && hexutil.Encode(data[:4]) == transformERC20Selector {
		return new(big.Int).SetBytes(data[68:100]).String(), nil
	}
	sum := new(big.Int)
	for _, o := range orders {
		amt, ok := new(big.Int).SetString(o.TakerAssetAmount, 10)
		if !ok {
			return "", fmt.Errorf("bad takerAssetAmount %q", o.TakerAssetAmount)
		}
		sum.Add(sum, amt)
	}
	return sum.String(), nil
}

func filterZeroSources(sources []SourceBreakdown) []SourceBreakdown {
	out := make([]SourceBreakdown, 0, len(sources))
	for _, s := range sources {
		if s.Proportion != "0" {
			out = append(out, s)
		}
	}
	return out
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
