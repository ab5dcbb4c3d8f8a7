package quotes

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	ep, ok := ParseEndpoint("prod=https://api.0x.org/swap/v1/quote")
	require.True(t, ok)
	assert.Equal(t, "prod", ep.ID)
	assert.Equal(t, "https://api.0x.org/swap/v1/quote", ep.URL)

	ep, ok = ParseEndpoint("http://localhost:3000/swap/v0/quote")
	require.True(t, ok)
	assert.Equal(t, ep.URL, ep.ID)

	_, ok = ParseEndpoint("not a url")
	assert.False(t, ok)
}

func TestForEndpoint_PicksAdapterByShape(t *testing.T) {
	taker := common.HexToAddress("0xa59729fad14aa48ff33e1ff097737be04dddccc9")

	f := ForEndpoint(Endpoint{ID: "x", URL: "https://api.0x.org/swap/v1/quote"}, taker, zerolog.Nop())
	assert.IsType(t, &ZeroEx{}, f)

	f = ForEndpoint(Endpoint{ID: "y", URL: "https://api.1inch.exchange/v1.1/quote"}, taker, zerolog.Nop())
	assert.IsType(t, &OneInch{}, f)
}
