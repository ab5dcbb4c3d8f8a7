package tuner

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/quotes"
)

// Params are the two positive reals biasing the endpoint's internal
// sampling distribution.
type Params struct {
	Alpha float64
	Beta  float64
}

// Floor keeps perturbed parameters strictly positive; a non-positive
// distribution parameter is degenerate upstream.
const Floor = 1e-4

// Query encodes the params the way the quote endpoint expects them.
func (p Params) Query() url.Values {
	v := url.Values{}
	v.Set("sampleDistributionAlpha", strconv.FormatFloat(p.Alpha, 'f', -1, 64))
	v.Set("sampleDistributionBeta", strconv.FormatFloat(p.Beta, 'f', -1, 64))
	return v
}

func (p Params) clamped() Params {
	return Params{Alpha: math.Max(p.Alpha, Floor), Beta: math.Max(p.Beta, Floor)}
}

// FetchFunc fetches one quote under the given sampling params, pinned to
// the given block so candidates within a tick are comparable.
type FetchFunc func(ctx context.Context, p Params, blockNumber uint64) (*quotes.Quote, error)

// Tuner hill-climbs (alpha, beta) by probing the four compass directions
// plus the current point each tick, keeping the strictly best quoted
// output, and geometrically decaying the step. No convergence guarantee;
// it anneals until the process stops.
type Tuner struct {
	current  Params
	step     float64
	decay    float64
	fetch    FetchFunc
	blockFn  func(ctx context.Context) (uint64, error)
	bestAmt  *big.Int
	bestComp []quotes.SourceBreakdown
	log      zerolog.Logger
}

func New(initial Params, step, decay float64, fetch FetchFunc, blockFn func(ctx context.Context) (uint64, error), log zerolog.Logger) *Tuner {
	return &Tuner{
		current: initial.clamped(),
		step:    step,
		decay:   decay,
		fetch:   fetch,
		blockFn: blockFn,
		log:     log.With().Str("component", "tuner").Logger(),
	}
}

func (t *Tuner) Current() Params { return t.current }
func (t *Tuner) Step() float64   { return t.step }

// candidates returns the current point plus 0/90/180/270 degree
// perturbations, each clamped to the floor.
func (t *Tuner) candidates() []Params {
	out := []Params{t.current}
	for i := 0; i < 4; i++ {
		theta := float64(i) * math.Pi / 2
		out = append(out, Params{
			Alpha: t.current.Alpha + t.step*math.Cos(theta),
			Beta:  t.current.Beta + t.step*math.Sin(theta),
		}.clamped())
	}
	return out
}

type probe struct {
	params Params
	quote  *quotes.Quote
}

// Tick runs one probe round. The step decays whether or not a candidate
// is accepted.
func (t *Tuner) Tick(ctx context.Context) error {
	defer func() { t.step *= t.decay }()

	block, err := t.blockFn(ctx)
	if err != nil {
		return fmt.Errorf("fetch tick block: %w", err)
	}

	cands := t.candidates()
	probes := make([]probe, len(cands))
	var wg sync.WaitGroup
	for i, p := range cands {
		wg.Add(1)
		go func(i int, p Params) {
			defer wg.Done()
			q, err := t.fetch(ctx, p, block)
			if err != nil {
				t.log.Warn().Err(err).Float64("alpha", p.Alpha).Float64("beta", p.Beta).Msg("probe failed")
				return
			}
			probes[i] = probe{params: p, quote: q}
		}(i, p)
	}
	wg.Wait()

	var top *probe
	var topAmt *big.Int
	for i := range probes {
		if probes[i].quote == nil {
			continue
		}
		amt, ok := new(big.Int).SetString(probes[i].quote.BuyAmount, 10)
		if !ok {
			continue
		}
		if topAmt == nil || amt.Cmp(topAmt) > 0 {
			top, topAmt = &probes[i], amt
		}
	}
	if top == nil {
		t.log.Warn().Uint64("block", block).Msg("no probe produced a quote")
		return nil
	}

	t.accept(top, topAmt, block)
	return nil
}

// accept adopts the winning candidate only if it strictly beats the best
// seen so far AND routes through a different source composition. A better
// number on an identical route is treated as sampling noise.
func (t *Tuner) accept(top *probe, amt *big.Int, block uint64) {
	if t.bestAmt != nil {
		if amt.Cmp(t.bestAmt) <= 0 {
			return
		}
		if SameComposition(top.quote.Sources, t.bestComp) {
			t.log.Debug().Str("amount", amt.String()).Msg("better amount on unchanged composition, ignored")
			return
		}
	}
	t.current = top.params
	t.bestAmt = amt
	t.bestComp = top.quote.Sources
	t.log.Info().
		Float64("alpha", t.current.Alpha).
		Float64("beta", t.current.Beta).
		Float64("step", t.step).
		Uint64("block", block).
		Str("amount", amt.String()).
		Msg("accepted candidate")
}

// SameComposition compares source breakdowns structurally, order included.
func SameComposition(a, b []quotes.SourceBreakdown) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
