package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
)

// oneInchAllowanceTarget is the 1inch token-taker helper that pulls
// funds; approvals in the simulated world are granted against it.
var oneInchAllowanceTarget = common.HexToAddress("0xe4c9194962532feb467dce8b3d42419641c6ed2e")

// OneInch fetches sell quotes from a 1inch-style endpoint. Buy quotes are
// not part of that API surface.
type OneInch struct {
	apiPath string
	apiID   string
	taker   common.Address
	httpc   *http.Client
	log     zerolog.Logger
}

func NewOneInch(apiPath, apiID string, taker common.Address, log zerolog.Logger) *OneInch {
	return &OneInch{
		apiPath: apiPath,
		apiID:   apiID,
		taker:   taker,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "oneinch").Str("api", apiID).Logger(),
	}
}

func (o *OneInch) ID() string { return o.apiID }

type oneInchResponse struct {
	Exchanges []struct {
		Name string  `json:"name"`
		Part float64 `json:"part"`
	} `json:"exchanges"`
	FromTokenAmount string `json:"fromTokenAmount"`
	ToTokenAmount   string `json:"toTokenAmount"`
	To              string `json:"to"`
	Data            string `json:"data"`
	GasPrice        string `json:"gasPrice"`
	Value           string `json:"value"`
}

func (o *OneInch) FetchSellQuote(ctx context.Context, opts FetchOpts) (*Quote, error) {
	maker, ok := opts.Tokens[opts.MakerToken]
	if !ok {
		return nil, fmt.Errorf("unknown maker token %q", opts.MakerToken)
	}
	taker, ok := opts.Tokens[opts.TakerToken]
	if !ok {
		return nil, fmt.Errorf("unknown taker token %q", opts.TakerToken)
	}
	fillAmount, err := BaseUnitAmount(taker, opts.SwapValueUsd)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(o.apiPath)
	if err != nil {
		return nil, fmt.Errorf("parse api path %q: %w", o.apiPath, err)
	}
	qs := u.Query()
	qs.Set("toTokenSymbol", opts.MakerToken)
	qs.Set("fromTokenSymbol", opts.TakerToken)
	qs.Set("amount", fillAmount.String())
	qs.Set("fromAddress", o.taker.Hex())
	qs.Set("slippage", "1")
	qs.Set("disableEstimate", "true")
	for k, vs := range opts.Extra {
		for _, v := range vs {
			qs.Set(k, v)
		}
	}
	u.RawQuery = qs.Encode()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}
	resp, err := o.httpc.Do(req)
	if err != nil {
		o.log.Warn().Err(err).Str("pair", opts.TakerToken+"->"+opts.MakerToken).Msg("quote fetch failed")
		return nil, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		o.log.Warn().Int("status", resp.StatusCode).Str("body", string(body)).Msg("quote endpoint rejected request")
		return nil, nil
	}
	var qr oneInchResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		o.log.Warn().Err(err).Msg("quote response parse failed")
		return nil, nil
	}

	sources := make([]SourceBreakdown, 0, len(qr.Exchanges))
	for _, ex := range qr.Exchanges {
		if ex.Part == 0 {
			continue
		}
		// The endpoint reports parts in percent, the rest of the pipeline
		// speaks fractions.
		p := strconv.FormatFloat(ex.Part/100, 'f', -1, 64)
		sources = append(sources, SourceBreakdown{Name: ex.Name, Proportion: p})
	}

	q := &Quote{
		Sources:         sources,
		Orders:          nil,
		SellAmount:      qr.FromTokenAmount,
		BuyAmount:       qr.ToTokenAmount,
		GasPrice:        orZero(qr.GasPrice),
		Value:           orZero(qr.Value),
		To:              common.HexToAddress(qr.To),
		Data:            hexutil.Bytes(common.FromHex(qr.Data)),
		AllowanceTarget: oneInchAllowanceTarget,
		ProtocolFee:     "0",
		Metadata: Metadata{
			ID:                 opts.ScenarioID,
			MakerToken:         opts.MakerToken,
			TakerToken:         opts.TakerToken,
			APIPath:            o.apiPath,
			API:                o.apiID,
			Side:               Sell,
			FillAmount:         fillAmount.String(),
			FillValue:          opts.SwapValueUsd,
			Timestamp:          start.Unix(),
			ResponseTime:       time.Since(start).Seconds(),
			FillDelay:          opts.FillDelaySeconds,
			MaxSellAmount:      fillAmount.String(),
			EthUsd:             opts.Tokens["ETH"].UsdValue,
			SellTokenUsd:       taker.UsdValue,
			BuyTokenUsd:        maker.UsdValue,
			MakerTokenDecimals: maker.Decimals,
			TakerTokenDecimals: taker.Decimals,
		},
	}
	return q, nil
}

func (o *OneInch) FetchBuyQuote(ctx context.Context, opts FetchOpts) (*Quote, error) {
	return nil, fmt.Errorf("%s: buy quotes are not supported by the 1inch API", o.apiID)
}
