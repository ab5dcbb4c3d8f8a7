package sim

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/artifacts"
	"github.com/dexlab/quotefill/internal/chain"
	"github.com/dexlab/quotefill/internal/config"
	"github.com/dexlab/quotefill/internal/quotes"
	"github.com/dexlab/quotefill/internal/tokens"
)

// simGasLimit gives the dry-run generous fixed headroom; estimation would
// itself need the override set applied.
const simGasLimit = 20_000_000

// blockPinTTL bounds how long a scenario keeps its pinned block.
const blockPinTTL = 10 * time.Minute

// Executor turns a normalized quote into a state-overridden dry-run call
// and decodes the outcome.
type Executor struct {
	client   *chain.Client
	cfg      config.Config
	takerABI abi.ABI
	blocks   *BlockCache

	taker        *artifacts.Artifact
	hackedWallet *artifacts.Artifact
	noGST        *artifacts.Artifact
	deployer     *artifacts.Artifact

	log zerolog.Logger
}

func NewExecutor(client *chain.Client, cfg config.Config, log zerolog.Logger) (*Executor, error) {
	e := &Executor{
		client:   client,
		cfg:      cfg,
		takerABI: mustTakerABI(),
		blocks:   NewBlockCache(blockPinTTL),
		log:      log.With().Str("component", "executor").Logger(),
	}
	var err error
	if e.taker, err = artifacts.Load(cfg.Artifacts.Taker); err != nil {
		return nil, err
	}
	if e.hackedWallet, err = artifacts.Load(cfg.Artifacts.HackedWallet); err != nil {
		return nil, err
	}
	if e.noGST, err = artifacts.Load(cfg.Artifacts.NoGST); err != nil {
		return nil, err
	}
	if len(cfg.Transformers.OverridesByNonce) > 0 {
		if e.deployer, err = artifacts.Load(cfg.Artifacts.TransformerDeployer); err != nil {
			return nil, err
		}
	}
	return e, nil
}

type transformer struct {
	nonce      uint64
	address    common.Address
	deployData []byte
	balance    *big.Int
}

func (e *Executor) transformers() ([]transformer, error) {
	out := make([]transformer, 0, len(e.cfg.Transformers.OverridesByNonce))
	for nonce, ov := range e.cfg.Transformers.OverridesByNonce {
		art, err := artifacts.Load(ov.ArtifactPath)
		if err != nil {
			return nil, fmt.Errorf("transformer nonce %d: %w", nonce, err)
		}
		data, err := packDeployData(art, ov.ConstructorArgs)
		if err != nil {
			return nil, fmt.Errorf("transformer nonce %d: %w", nonce, err)
		}
		bal, err := config.ParseBig(ov.Balance)
		if err != nil {
			return nil, fmt.Errorf("transformer nonce %d balance: %w", nonce, err)
		}
		out = append(out, transformer{
			nonce:      nonce,
			address:    chain.DeployedAddress(e.cfg.Transformers.Deployer, nonce),
			deployData: data,
			balance:    bal,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].nonce < out[j].nonce })
	return out, nil
}

// FillQuote executes the quote as a dry-run against the pinned block and
// attaches the decoded SwapResult plus derived USD metrics. An RPC
// failure is expected steady-state noise and comes back as an error the
// caller should log and move past; an ABI decode failure means the taker
// artifact and this binary disagree and carries the raw return bytes.
func (e *Executor) FillQuote(ctx context.Context, q *quotes.Quote, snap map[string]tokens.Token) (*quotes.Quote, error) {
	maker, ok := snap[q.Metadata.MakerToken]
	if !ok {
		return nil, fmt.Errorf("unknown maker token %q", q.Metadata.MakerToken)
	}
	taker, ok := snap[q.Metadata.TakerToken]
	if !ok {
		return nil, fmt.Errorf("unknown taker token %q", q.Metadata.TakerToken)
	}
	eth, ok := snap["ETH"]
	if !ok {
		return nil, fmt.Errorf("registry snapshot has no ETH entry")
	}

	blockNumber, err := e.blocks.Resolve(q.Metadata.ID, func() (uint64, error) {
		return e.client.BlockNumber(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%s -> %s: resolve block: %w", q.Metadata.TakerToken, q.Metadata.MakerToken, err)
	}

	trs, err := e.transformers()
	if err != nil {
		return nil, err
	}
	overrides, err := e.buildOverrides(taker, trs)
	if err != nil {
		return nil, err
	}

	data, err := e.packFill(q, maker, taker, trs)
	if err != nil {
		return nil, err
	}

	gasPrice, err := parseAmount(q.GasPrice)
	if err != nil {
		return nil, fmt.Errorf("quote gasPrice: %w", err)
	}
	value, err := parseAmount(q.Value)
	if err != nil {
		return nil, fmt.Errorf("quote value: %w", err)
	}

	msg := chain.CallMsg{
		From:     eth.Wallet,
		To:       e.cfg.Taker,
		Gas:      hexutil.Uint64(simGasLimit),
		GasPrice: (*hexutil.Big)(gasPrice),
		Value:    (*hexutil.Big)(value),
		Data:     data,
	}
	ret, err := e.client.CallWithOverrides(ctx, msg, new(big.Int).SetUint64(blockNumber), overrides)
	if err != nil {
		e.log.Warn().Err(err).
			Str("pair", q.Metadata.TakerToken+" -> "+q.Metadata.MakerToken).
			Uint64("block", blockNumber).
			Msg("dry-run call failed")
		return nil, fmt.Errorf("%s -> %s: %w", q.Metadata.TakerToken, q.Metadata.MakerToken, err)
	}

	result, err := e.decodeResult(ret)
	if err != nil {
		e.log.Error().Err(err).Str("raw", hexutil.Encode(ret)).Msg("fill result decode failed")
		return nil, err
	}

	filled := *q
	filled.Metadata.SwapResult = result
	filled.Metadata.Metrics = costMetrics(&filled, result)
	printFillSummary(&filled)
	return &filled, nil
}

func (e *Executor) buildOverrides(takerToken tokens.Token, trs []transformer) (chain.StateOverride, error) {
	ov := chain.StateOverride{
		e.cfg.Taker:           {Code: codePtr(e.taker.DeployedBytecode)},
		takerToken.Wallet:     {Code: codePtr(e.hackedWallet.DeployedBytecode)},
		chain.GasTokenAddress: {Code: codePtr(e.noGST.DeployedBytecode)},
	}
	if len(trs) > 0 {
		// The deployer's nonce is wound back to the first transformer's so
		// its in-call deployments land on the derived addresses.
		firstNonce := hexutil.Uint64(trs[0].nonce)
		ov[e.cfg.Transformers.Deployer] = chain.OverrideAccount{
			Code:  codePtr(e.deployer.DeployedBytecode),
			Nonce: &firstNonce,
		}
		for _, t := range trs {
			zeroNonce := hexutil.Uint64(0)
			ov[t.address] = chain.OverrideAccount{
				Code:    codePtr(nil),
				Nonce:   &zeroNonce,
				Balance: (*hexutil.Big)(t.balance),
			}
		}
	}
	for addr, extra := range e.cfg.Overrides {
		art, err := artifacts.Load(extra.ArtifactPath)
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", addr.Hex(), err)
		}
		bal, err := config.ParseBig(extra.Balance)
		if err != nil {
			return nil, fmt.Errorf("override %s balance: %w", addr.Hex(), err)
		}
		nonce := hexutil.Uint64(extra.Nonce)
		ov[addr] = chain.OverrideAccount{
			Code:    codePtr(art.DeployedBytecode),
			Nonce:   &nonce,
			Balance: (*hexutil.Big)(bal),
		}
	}
	return ov, nil
}

func (e *Executor) packFill(q *quotes.Quote, maker, taker tokens.Token, trs []transformer) (hexutil.Bytes, error) {
	orders := make([]takerOrder, 0, len(q.Orders))
	for i, o := range q.Orders {
		to, err := toTakerOrder(o)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
		orders = append(orders, to)
	}
	protocolFee, err := parseAmount(q.ProtocolFee)
	if err != nil {
		return nil, fmt.Errorf("quote protocolFee: %w", err)
	}
	maxSell, err := parseAmount(q.Metadata.MaxSellAmount)
	if err != nil {
		return nil, fmt.Errorf("quote maxSellAmount: %w", err)
	}
	spender := q.AllowanceTarget
	if spender == (common.Address{}) {
		spender = e.cfg.Erc20Proxy
	}
	deployData := make([][]byte, len(trs))
	for i, t := range trs {
		deployData[i] = t.deployData
	}
	packed, err := e.takerABI.Pack("fill", fillParams{
		To:                     q.To,
		MakerToken:             maker.Address,
		TakerToken:             taker.Address,
		Wallet:                 taker.Wallet,
		Spender:                spender,
		Exchange:               e.cfg.Exchange,
		Data:                   q.Data,
		Orders:                 orders,
		ProtocolFeeAmount:      protocolFee,
		SellAmount:             maxSell,
		TransformerDeployer:    e.cfg.Transformers.Deployer,
		TransformersDeployData: deployData,
	})
	if err != nil {
		return nil, fmt.Errorf("pack fill call: %w", err)
	}
	return packed, nil
}

func (e *Executor) decodeResult(ret []byte) (*quotes.SwapResult, error) {
	var raw rawSwapResult
	if err := e.takerABI.UnpackIntoInterface(&raw, "fill", ret); err != nil {
		return nil, fmt.Errorf("decode fill result: %w", err)
	}
	infos := make([]quotes.OrderFillInfo, len(raw.OrderInfos))
	for i, oi := range raw.OrderInfos {
		infos[i] = quotes.OrderFillInfo{
			OrderStatus:      oi.OrderStatus,
			OrderHash:        oi.OrderHash[:],
			TakerAssetFilled: oi.OrderTakerAssetFilledAmount.String(),
		}
	}
	return &quotes.SwapResult{
		GasUsed:         new(big.Int).Sub(raw.GasStart, raw.GasEnd).Int64(),
		BlockNumber:     raw.BlockNumber.Uint64(),
		RevertData:      raw.RevertData,
		BoughtAmount:    raw.BoughtAmount.String(),
		SoldAmount:      raw.SoldAmount.String(),
		ProtocolFeePaid: raw.ProtocolFeePaid.String(),
		EthBalance:      raw.EthBalance.String(),
		OrderInfos:      infos,
	}, nil
}

func codePtr(b hexutil.Bytes) *hexutil.Bytes {
	c := make(hexutil.Bytes, len(b))
	copy(c, b)
	return &c
}
