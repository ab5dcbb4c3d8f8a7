package store

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dexlab/quotefill/internal/quotes"
)

func TestFromQuote_SuccessfulFill(t *testing.T) {
	q := &quotes.Quote{
		SellAmount: "5000000000000000000",
		BuyAmount:  "1000000000000000000000",
		Metadata: quotes.Metadata{
			ID:                 "0xsim",
			RunID:              "run-1",
			API:                "prod",
			MakerToken:         "DAI",
			TakerToken:         "WETH",
			Side:               quotes.Sell,
			FillAmount:         "5000000000000000000",
			FillValue:          1000,
			FillDelay:          30,
			ResponseTime:       1.2,
			EthUsd:             200,
			SellTokenUsd:       200,
			BuyTokenUsd:        1,
			MakerTokenDecimals: 18,
			TakerTokenDecimals: 18,
			SwapResult: &quotes.SwapResult{
				GasUsed:      400000,
				BoughtAmount: "999000000000000000000",
				SoldAmount:   "5000000000000000000",
			},
		},
	}
	r := FromQuote(q)
	assert.Equal(t, "0xsim", r.SimID)
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, "prod", r.URL)
	assert.Equal(t, "sell", r.Side)
	assert.False(t, r.Reverted)
	assert.Equal(t, int64(400000), r.GasUsed)
	assert.Equal(t, "999000000000000000000", r.BoughtAmount)
	assert.Equal(t, 1.0, r.MakerTokenUsd)
	assert.Equal(t, 200.0, r.TakerTokenUsd)
	assert.Equal(t, "5000000000000000000", r.SellAmount)
}

func TestFromQuote_FetchOnlyRecordReadsReverted(t *testing.T) {
	q := &quotes.Quote{Metadata: quotes.Metadata{ID: "0xsim"}}
	r := FromQuote(q)
	assert.True(t, r.Reverted)
	assert.Empty(t, r.BoughtAmount)
	assert.Zero(t, r.GasUsed)
}

func TestFromQuote_RevertedFill(t *testing.T) {
	q := &quotes.Quote{
		Metadata: quotes.Metadata{
			SwapResult: &quotes.SwapResult{RevertData: []byte{0x08}, BoughtAmount: "100"},
		},
	}
	assert.True(t, FromQuote(q).Reverted)
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, isDuplicateKeyError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isDuplicateKeyError(&pgconn.PgError{Code: "42P01"}))
	assert.False(t, isDuplicateKeyError(nil))
	assert.False(t, isDuplicateKeyError(assert.AnError))
}
