package tokens

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token is one entry of the reference data: the on-chain contract, a
// holder address with a deep enough balance to commandeer in simulations,
// and a USD unit price kept fresh by the price refresher.
type Token struct {
	Symbol   string         `json:"symbol"`
	Decimals int            `json:"decimals"`
	Address  common.Address `json:"address"`
	Wallet   common.Address `json:"wallet"`
	UsdValue float64        `json:"value"`
	FeedID   string         `json:"feedId"`
}

// Registry holds the token set. Prices and wallets are mutated by
// low-frequency background collaborators while workers read continuously,
// so reads go through Snapshot to keep a single scenario internally
// consistent.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

func NewRegistry(tokens ...Token) *Registry {
	r := &Registry{tokens: make(map[string]Token, len(tokens))}
	for _, t := range tokens {
		r.tokens[t.Symbol] = t
	}
	return r
}

// Mainnet returns the registry seeded with the default mainnet token set.
func Mainnet() *Registry {
	return NewRegistry(
		Token{Symbol: "ETH", Decimals: 18, Address: common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"), Wallet: common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"), UsdValue: 235, FeedID: "weth"},
		Token{Symbol: "WETH", Decimals: 18, Address: common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"), Wallet: common.HexToAddress("0x57757e3d981446d585af0d9ae4d7df6d64647806"), UsdValue: 235, FeedID: "weth"},
		Token{Symbol: "DAI", Decimals: 18, Address: common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f"), Wallet: common.HexToAddress("0x07bb41df8c1d275c4259cdd0dbf0189d6a9a5f32"), UsdValue: 1, FeedID: "dai"},
		Token{Symbol: "USDC", Decimals: 6, Address: common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"), Wallet: common.HexToAddress("0xf977814e90da44bfa03b6295a0616a897441acec"), UsdValue: 1, FeedID: "usd-coin"},
		Token{Symbol: "MKR", Decimals: 18, Address: common.HexToAddress("0x9f8f72aa9304c8b593d555f12ef6589cc3a579a2"), Wallet: common.HexToAddress("0x000be27f560fef0253cac4da8411611184356549"), UsdValue: 615, FeedID: "maker"},
		Token{Symbol: "ZRX", Decimals: 18, Address: common.HexToAddress("0xe41d2489571d322189246dafa5ebde1f4699f498"), Wallet: common.HexToAddress("0xBE0eB53F46cd790Cd13851d5EFf43D12404d33E8"), UsdValue: 0.36, FeedID: "0x"},
		Token{Symbol: "LINK", Decimals: 18, Address: common.HexToAddress("0x514910771af9ca656af840dff83e8264ecf986ca"), Wallet: common.HexToAddress("0xBE0eB53F46cd790Cd13851d5EFf43D12404d33E8"), UsdValue: 4.06, FeedID: "chainlink"},
		Token{Symbol: "USDT", Decimals: 6, Address: common.HexToAddress("0xdac17f958d2ee523a2206206994597c13d831ec7"), Wallet: common.HexToAddress("0x28f635f5f4373559e1db437d7002d386cf718338"), UsdValue: 1, FeedID: "usdt"},
		Token{Symbol: "WBTC", Decimals: 8, Address: common.HexToAddress("0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"), Wallet: common.HexToAddress("0xc11b1268c1a384e55c48c2391d8d480264a3a7f4"), UsdValue: 9389, FeedID: "wrapped-bitcoin"},
		Token{Symbol: "KNC", Decimals: 18, Address: common.HexToAddress("0xdd974d5c2e2928dea5f71b9825b8b646686bd200"), Wallet: common.HexToAddress("0xbe0eb53f46cd790cd13851d5eff43d12404d33e8"), UsdValue: 1.17, FeedID: "kyber-network"},
	)
}

func (r *Registry) Get(symbol string) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[symbol]
	if !ok {
		return Token{}, fmt.Errorf("unknown token %q", symbol)
	}
	return t, nil
}

func (r *Registry) Has(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tokens[symbol]
	return ok
}

func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tokens))
	for s := range r.tokens {
		out = append(out, s)
	}
	return out
}

// Snapshot returns an immutable copy of the token set. Workers take one
// snapshot per scenario so a mid-scenario price refresh cannot skew the
// buy and sell sides against each other.
func (r *Registry) Snapshot() map[string]Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Token, len(r.tokens))
	for s, t := range r.tokens {
		out[s] = t
	}
	return out
}

// SetPriceByFeedID updates the USD unit value of every token following
// the given price feed and reports how many entries changed.
func (r *Registry) SetPriceByFeedID(feedID string, usd float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for s, t := range r.tokens {
		if t.FeedID == feedID {
			t.UsdValue = usd
			r.tokens[s] = t
			n++
		}
	}
	return n
}

// SetWallet replaces the reserve holder for a token, used by on-chain
// holder discovery when the configured holder runs dry.
func (r *Registry) SetWallet(symbol string, wallet common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[symbol]
	if !ok {
		return fmt.Errorf("unknown token %q", symbol)
	}
	t.Wallet = wallet
	r.tokens[symbol] = t
	return nil
}
