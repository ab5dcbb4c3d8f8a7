package scenario

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/dexlab/quotefill/internal/quotes"
)

// Scenario is one randomized unit of simulated work. Everything random is
// decided up front so the same scenario can be fanned out to several
// quote endpoints and compared.
type Scenario struct {
	ID               string
	MakerToken       string
	TakerToken       string
	SwapValueUsd     float64
	FillDelaySeconds float64
	Side             quotes.Side
}

// Default sampling brackets: trade notionals in USD and fill delays in
// seconds.
var (
	DefaultFillStops  = []float64{250, 1e3, 5e3, 10e3, 25e3}
	DefaultDelayStops = []float64{30, 60, 90}
)

// Generator draws scenarios from a token pool. Not safe for concurrent
// use; give each worker its own.
type Generator struct {
	Pool       []string
	FillStops  []float64
	DelayStops []float64
	// V0 forbids the maker side being the native asset (v0 endpoints
	// cannot deliver raw ETH).
	V0  bool
	rnd *mrand.Rand
}

func NewGenerator(pool []string, v0 bool) (*Generator, error) {
	if len(pool) < 2 {
		return nil, fmt.Errorf("at least 2 tokens must be given, got %d", len(pool))
	}
	return &Generator{
		Pool:       pool,
		FillStops:  DefaultFillStops,
		DelayStops: DefaultDelayStops,
		V0:         v0,
		rnd:        mrand.New(mrand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (g *Generator) Next(side quotes.Side) Scenario {
	maker, taker := RandomPair(g.rnd, g.Pool, g.V0)
	return Scenario{
		ID:               NewID(),
		MakerToken:       maker,
		TakerToken:       taker,
		SwapValueUsd:     RandomBracketValue(g.rnd, g.FillStops),
		FillDelaySeconds: RandomBracketValue(g.rnd, g.DelayStops),
		Side:             side,
	}
}

func isEthish(symbol string) bool {
	return symbol == "ETH" || symbol == "WETH"
}

// RandomPair draws two distinct tokens, rejecting pairs where both sides
// are the native asset or its wrapped form (a degenerate same-asset swap)
// and, when v0, pairs where the maker side is raw ETH.
func RandomPair(rnd *mrand.Rand, pool []string, v0 bool) (maker, taker string) {
	for {
		i := rnd.Intn(len(pool))
		j := rnd.Intn(len(pool) - 1)
		if j >= i {
			j++
		}
		maker, taker = pool[i], pool[j]
		if v0 && maker == "ETH" {
			continue
		}
		if !isEthish(maker) || !isEthish(taker) {
			return maker, taker
		}
	}
}

// RandomBracketValue picks a uniform random bracket between adjacent
// stops, then a uniform value inside it. Stops must be ascending with at
// least two entries.
func RandomBracketValue(rnd *mrand.Rand, stops []float64) float64 {
	i := rnd.Intn(len(stops) - 1)
	lo, hi := stops[i], stops[i+1]
	return lo + (hi-lo)*rnd.Float64()
}

// NewID returns a random 32-byte hex hash used as the scenario join key.
func NewID() string {
	var b [32]byte
	_, _ = rand.Read(b[:])
	return "0x" + hex.EncodeToString(b[:])
}
