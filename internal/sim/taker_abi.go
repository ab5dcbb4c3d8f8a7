package sim

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dexlab/quotefill/internal/quotes"
)

// ABI of the injected market-call taker. fill() wraps the whole swap in
// one call so a single eth_call can deploy transformers, execute the
// route and hand back gas accounting, amounts and revert data.
const takerABIJSON = `[{"inputs":[{"components":[
{"internalType":"address","name":"to","type":"address"},
{"internalType":"address","name":"makerToken","type":"address"},
{"internalType":"address","name":"takerToken","type":"address"},
{"internalType":"address","name":"wallet","type":"address"},
{"internalType":"address","name":"spender","type":"address"},
{"internalType":"address","name":"exchange","type":"address"},
{"internalType":"bytes","name":"data","type":"bytes"},
{"components":[
 {"internalType":"address","name":"makerAddress","type":"address"},
 {"internalType":"address","name":"takerAddress","type":"address"},
 {"internalType":"address","name":"feeRecipientAddress","type":"address"},
 {"internalType":"address","name":"senderAddress","type":"address"},
 {"internalType":"uint256","name":"makerAssetAmount","type":"uint256"},
 {"internalType":"uint256","name":"takerAssetAmount","type":"uint256"},
 {"internalType":"uint256","name":"makerFee","type":"uint256"},
 {"internalType":"uint256","name":"takerFee","type":"uint256"},
 {"internalType":"uint256","name":"expirationTimeSeconds","type":"uint256"},
 {"internalType":"uint256","name":"salt","type":"uint256"},
 {"internalType":"bytes","name":"makerAssetData","type":"bytes"},
 {"internalType":"bytes","name":"takerAssetData","type":"bytes"},
 {"internalType":"bytes","name":"makerFeeAssetData","type":"bytes"},
 {"internalType":"bytes","name":"takerFeeAssetData","type":"bytes"},
 {"internalType":"bytes","name":"signature","type":"bytes"}
],"internalType":"struct LibOrder.Order[]","name":"orders","type":"tuple[]"},
{"internalType":"uint256","name":"protocolFeeAmount","type":"uint256"},
{"internalType":"uint256","name":"sellAmount","type":"uint256"},
{"internalType":"address","name":"transformerDeployer","type":"address"},
{"internalType":"bytes[]","name":"transformersDeployData","type":"bytes[]"}
],"internalType":"struct MarketCallTaker.FillParams","name":"params","type":"tuple"}],
"name":"fill","outputs":[{"components":[
{"internalType":"uint256","name":"gasStart","type":"uint256"},
{"internalType":"uint256","name":"gasEnd","type":"uint256"},
{"internalType":"uint256","name":"blockNumber","type":"uint256"},
{"internalType":"bytes","name":"revertData","type":"bytes"},
{"internalType":"uint256","name":"boughtAmount","type":"uint256"},
{"internalType":"uint256","name":"soldAmount","type":"uint256"},
{"internalType":"uint256","name":"protocolFeePaid","type":"uint256"},
{"internalType":"uint256","name":"ethBalance","type":"uint256"},
{"components":[
 {"internalType":"uint8","name":"orderStatus","type":"uint8"},
 {"internalType":"bytes32","name":"orderHash","type":"bytes32"},
 {"internalType":"uint256","name":"orderTakerAssetFilledAmount","type":"uint256"}
],"internalType":"struct LibOrder.OrderInfo[]","name":"orderInfos","type":"tuple[]"}
],"internalType":"struct MarketCallTaker.SwapResult","name":"result","type":"tuple"}],
"stateMutability":"payable","type":"function"}]`

func mustTakerABI() abi.ABI {
	a, err := abi.JSON(strings.NewReader(takerABIJSON))
	if err != nil {
		panic(err)
	}
	return a
}

type takerOrder struct {
	MakerAddress          common.Address
	TakerAddress          common.Address
	FeeRecipientAddress   common.Address
	SenderAddress         common.Address
	MakerAssetAmount      *big.Int
	TakerAssetAmount      *big.Int
	MakerFee              *big.Int
	TakerFee              *big.Int
	ExpirationTimeSeconds *big.Int
	Salt                  *big.Int
	MakerAssetData        []byte
	TakerAssetData        []byte
	MakerFeeAssetData     []byte
	TakerFeeAssetData     []byte
	Signature             []byte
}

type fillParams struct {
	To                     common.Address
	MakerToken             common.Address
	TakerToken             common.Address
	Wallet                 common.Address
	Spender                common.Address
	Exchange               common.Address
	Data                   []byte
	Orders                 []takerOrder
	ProtocolFeeAmount      *big.Int
	SellAmount             *big.Int
	TransformerDeployer    common.Address
	TransformersDeployData [][]byte
}

type rawOrderInfo struct {
	OrderStatus                 uint8
	OrderHash                   [32]byte
	OrderTakerAssetFilledAmount *big.Int
}

type rawSwapResult struct {
	GasStart        *big.Int
	GasEnd          *big.Int
	BlockNumber     *big.Int
	RevertData      []byte
	BoughtAmount    *big.Int
	SoldAmount      *big.Int
	ProtocolFeePaid *big.Int
	EthBalance      *big.Int
	OrderInfos      []rawOrderInfo
}

func toTakerOrder(o quotes.Order) (takerOrder, error) {
	out := takerOrder{
		MakerAddress:        common.HexToAddress(o.MakerAddress),
		TakerAddress:        common.HexToAddress(o.TakerAddress),
		FeeRecipientAddress: common.HexToAddress(o.FeeRecipientAddress),
		SenderAddress:       common.HexToAddress(o.SenderAddress),
		MakerAssetData:      common.FromHex(o.MakerAssetData),
		TakerAssetData:      common.FromHex(o.TakerAssetData),
		MakerFeeAssetData:   common.FromHex(o.MakerFeeAssetData),
		TakerFeeAssetData:   common.FromHex(o.TakerFeeAssetData),
		Signature:           common.FromHex(o.Signature),
	}
	fields := []struct {
		name string
		src  string
		dst  **big.Int
	}{
		{"makerAssetAmount", o.MakerAssetAmount, &out.MakerAssetAmount},
		{"takerAssetAmount", o.TakerAssetAmount, &out.TakerAssetAmount},
		{"makerFee", o.MakerFee, &out.MakerFee},
		{"takerFee", o.TakerFee, &out.TakerFee},
		{"expirationTimeSeconds", o.ExpirationTimeSeconds, &out.ExpirationTimeSeconds},
		{"salt", o.Salt, &out.Salt},
	}
	for _, f := range fields {
		v, err := parseAmount(f.src)
		if err != nil {
			return takerOrder{}, fmt.Errorf("order %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return out, nil
}

// parseAmount reads a decimal wire amount, treating empty as zero.
func parseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("bad amount %q", s)
	}
	return v, nil
}
