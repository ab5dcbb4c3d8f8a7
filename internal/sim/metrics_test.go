package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dexlab/quotefill/internal/quotes"
)

func TestCalldataGas(t *testing.T) {
	assert.Equal(t, int64(0), calldataGas(nil))
	assert.Equal(t, int64(4), calldataGas([]byte{0}))
	assert.Equal(t, int64(16), calldataGas([]byte{0xff}))
	assert.Equal(t, int64(48), calldataGas([]byte{0, 0x01, 0, 0x02, 0, 0}))
}

func TestCostMetrics(t *testing.T) {
	q := &quotes.Quote{
		GasPrice: "50000000000", // 50 gwei
		Data:     []byte{0x01},  // 16 gas of calldata
		Metadata: quotes.Metadata{
			EthUsd:             200,
			SellTokenUsd:       200, // WETH
			BuyTokenUsd:        1,   // DAI
			MakerTokenDecimals: 18,
			TakerTokenDecimals: 18,
		},
	}
	res := &quotes.SwapResult{
		GasUsed:         399_984,
		BoughtAmount:    "1000000000000000000000", // 1000 DAI
		SoldAmount:      "5000000000000000000",    // 5 WETH
		ProtocolFeePaid: "100000000000000000",     // 0.1 ETH
	}

	m := costMetrics(q, res)
	// (399984 + 16) * 50 gwei = 0.02 ETH = $4
	assert.InDelta(t, 4.0, m.GasCostUsd, 1e-9)
	assert.InDelta(t, 20.0, m.ProtocolFeeUsd, 1e-9)
	assert.InDelta(t, 1000.0, m.BoughtUsd, 1e-9)
	assert.InDelta(t, 1000.0, m.SoldUsd, 1e-9)
	assert.InDelta(t, 976.0, m.AdjustedBoughtUsd, 1e-9)
	assert.InDelta(t, 1024.0, m.AdjustedSoldUsd, 1e-9)
}

func TestCostMetrics_UnparseableFieldsReadZero(t *testing.T) {
	q := &quotes.Quote{Metadata: quotes.Metadata{EthUsd: 200}}
	res := &quotes.SwapResult{BoughtAmount: "", SoldAmount: "?", ProtocolFeePaid: ""}
	m := costMetrics(q, res)
	assert.Zero(t, m.GasCostUsd)
	assert.Zero(t, m.BoughtUsd)
	assert.Zero(t, m.SoldUsd)
}
