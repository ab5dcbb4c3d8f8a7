package quotes

import (
	"math/big"
	"strings"
)

// erc20ProxyID is the asset-data prefix of plain ERC20 maker assets;
// orders carrying it are native order-book liquidity, everything else is
// bridged/AMM liquidity.
const erc20ProxyID = "0xf47261b0"

// HasFallback reports whether the quote combines native orders with
// enough bridge liquidity to cover the entire fill on its own, i.e. the
// bridges are a backstop rather than a partial route.
func HasFallback(q *Quote) bool {
	var native, bridge []Order
	for _, o := range q.Orders {
		if strings.HasPrefix(o.MakerAssetData, erc20ProxyID) {
			native = append(native, o)
		} else {
			bridge = append(bridge, o)
		}
	}
	if len(native) == 0 {
		return false
	}
	sum := new(big.Int)
	for _, o := range bridge {
		amount := o.TakerAssetAmount
		if q.Metadata.Side == Buy {
			amount = o.MakerAssetAmount
		}
		v, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			continue
		}
		sum.Add(sum, v)
	}
	bound := q.SellAmount
	if q.Metadata.Side == Buy {
		bound = q.BuyAmount
	}
	b, ok := new(big.Int).SetString(bound, 10)
	if !ok {
		return false
	}
	return sum.Cmp(b) >= 0
}
