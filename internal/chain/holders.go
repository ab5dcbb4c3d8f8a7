package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/tokens"
)

// balanceOf(address) selector.
var balanceOfSelector = common.FromHex("0x70a08231")

// TokenBalance reads an ERC20 balance via eth_call.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(owner.Bytes(), 32)...)
	res, err := c.Call(ctx, CallMsg{To: token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(res), nil
}

// VerifyHolders checks each token's reserve holder still has a non-zero
// balance and logs the ones that ran dry. The hacked-wallet override
// bypasses allowances but not balances, so a drained holder means every
// simulation selling that token reverts.
func VerifyHolders(ctx context.Context, c *Client, reg *tokens.Registry, log zerolog.Logger) {
	for sym, t := range reg.Snapshot() {
		if sym == "ETH" {
			continue
		}
		bal, err := c.TokenBalance(ctx, t.Address, t.Wallet)
		if err != nil {
			log.Warn().Err(err).Str("token", sym).Msg("holder balance check failed")
			continue
		}
		if bal.Sign() == 0 {
			log.Warn().Str("token", sym).Str("wallet", t.Wallet.Hex()).Msg("reserve holder has no balance")
		}
	}
}
