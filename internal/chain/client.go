package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// CallMsg is the eth_call transaction object. Everything is hexutil so
// the wire shape matches what nodes expect without ethclient's translation.
type CallMsg struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Gas      hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big   `json:"gasPrice,omitempty"`
	Value    *hexutil.Big   `json:"value,omitempty"`
	Data     hexutil.Bytes  `json:"data"`
}

// OverrideAccount pretends an address has different code, nonce or
// balance for the duration of one call.
type OverrideAccount struct {
	Code    *hexutil.Bytes  `json:"code,omitempty"`
	Nonce   *hexutil.Uint64 `json:"nonce,omitempty"`
	Balance *hexutil.Big    `json:"balance,omitempty"`
}

// StateOverride maps addresses to their per-call replacement state.
type StateOverride map[common.Address]OverrideAccount

// Client is a thin JSON-RPC wrapper around the node endpoint.
type Client struct {
	rpc *rpc.Client
}

func Dial(url string) (*Client, error) {
	rc, err := rpc.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Client{rpc: rc}, nil
}

func NewClient(rc *rpc.Client) *Client {
	return &Client{rpc: rc}
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var out hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &out, "eth_blockNumber"); err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	return uint64(out), nil
}

// CallWithOverrides issues an eth_call at the given block with a state
// override map as the third parameter. blockNumber nil means latest.
func (c *Client) CallWithOverrides(ctx context.Context, msg CallMsg, blockNumber *big.Int, overrides StateOverride) (hexutil.Bytes, error) {
	blockTag := "latest"
	if blockNumber != nil {
		blockTag = hexutil.EncodeBig(blockNumber)
	}
	var out hexutil.Bytes
	var err error
	if len(overrides) > 0 {
		err = c.rpc.CallContext(ctx, &out, "eth_call", msg, blockTag, overrides)
	} else {
		err = c.rpc.CallContext(ctx, &out, "eth_call", msg, blockTag)
	}
	if err != nil {
		return nil, fmt.Errorf("eth_call at %s: %w", blockTag, err)
	}
	return out, nil
}

// Call is CallWithOverrides without an override map.
func (c *Client) Call(ctx context.Context, msg CallMsg, blockNumber *big.Int) (hexutil.Bytes, error) {
	return c.CallWithOverrides(ctx, msg, blockNumber, nil)
}
