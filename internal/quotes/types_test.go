package quotes

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexlab/quotefill/internal/tokens"
)

func TestSwapResultSucceeded(t *testing.T) {
	cases := []struct {
		name   string
		result *SwapResult
		want   bool
	}{
		{"nil result", nil, false},
		{"clean revert data, nothing bought", &SwapResult{BoughtAmount: "0"}, false},
		{"clean revert data, bought", &SwapResult{BoughtAmount: "100"}, true},
		{"reverted despite bought amount", &SwapResult{RevertData: hexutil.MustDecode("0x08c379a0"), BoughtAmount: "100"}, false},
		{"unparseable bought amount", &SwapResult{BoughtAmount: "n/a"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.result.Succeeded())
		})
	}
}

// An empty revert payload must serialize as the bare "0x" sentinel, the
// shape every downstream consumer greps for.
func TestSwapResultRevertDataEncoding(t *testing.T) {
	raw, err := json.Marshal(&SwapResult{RevertData: hexutil.Bytes{}, BoughtAmount: "1"})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"revertData":"0x"`)

	var back SwapResult
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Succeeded())
}

func TestBaseUnitAmount(t *testing.T) {
	weth := tokens.Token{Symbol: "WETH", Decimals: 18, UsdValue: 250}
	got, err := BaseUnitAmount(weth, 1000)
	require.NoError(t, err)
	// 1000/250 = 4 WETH
	assert.Equal(t, "4000000000000000000", got.String())

	usdc := tokens.Token{Symbol: "USDC", Decimals: 6, UsdValue: 1}
	got, err = BaseUnitAmount(usdc, 250.5)
	require.NoError(t, err)
	assert.Equal(t, "250500000", got.String())

	_, err = BaseUnitAmount(weth, 0)
	assert.Error(t, err)
	_, err = BaseUnitAmount(tokens.Token{Symbol: "X", Decimals: 18}, 100)
	assert.Error(t, err)
}
