package quotes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func nativeOrder(takerAmount string) Order {
	return Order{MakerAssetData: "0xf47261b0000000000000000000000000deadbeef", TakerAssetAmount: takerAmount, MakerAssetAmount: takerAmount}
}

func bridgeOrder(takerAmount, makerAmount string) Order {
	return Order{MakerAssetData: "0xdc1600f3000000000000000000000000cafebabe", TakerAssetAmount: takerAmount, MakerAssetAmount: makerAmount}
}

func TestHasFallback(t *testing.T) {
	t.Run("bridge covers the whole sell", func(t *testing.T) {
		q := &Quote{
			SellAmount: "1000",
			Orders:     []Order{nativeOrder("600"), bridgeOrder("1000", "990")},
			Metadata:   Metadata{Side: Sell},
		}
		assert.True(t, HasFallback(q))
	})

	t.Run("bridge only partial", func(t *testing.T) {
		q := &Quote{
			SellAmount: "1000",
			Orders:     []Order{nativeOrder("600"), bridgeOrder("400", "390")},
			Metadata:   Metadata{Side: Sell},
		}
		assert.False(t, HasFallback(q))
	})

	t.Run("no native orders means no fallback", func(t *testing.T) {
		q := &Quote{
			SellAmount: "1000",
			Orders:     []Order{bridgeOrder("1000", "990")},
			Metadata:   Metadata{Side: Sell},
		}
		assert.False(t, HasFallback(q))
	})

	t.Run("buy side bounds by buy amount", func(t *testing.T) {
		q := &Quote{
			SellAmount: "1000",
			BuyAmount:  "500",
			Orders:     []Order{nativeOrder("600"), bridgeOrder("10", "500")},
			Metadata:   Metadata{Side: Buy},
		}
		assert.True(t, HasFallback(q))
	})
}
