package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/logsink"
	"github.com/dexlab/quotefill/internal/quotes"
	"github.com/dexlab/quotefill/internal/scenario"
	"github.com/dexlab/quotefill/internal/store"
	"github.com/dexlab/quotefill/internal/tokens"
)

// allFailedBackoff throttles a worker after a scenario where no endpoint
// produced a quote; hammering rate-limited aggregators makes it worse.
const allFailedBackoff = 10 * time.Second

// Filler simulates one quote fill. Satisfied by sim.Executor.
type Filler interface {
	FillQuote(ctx context.Context, q *quotes.Quote, snap map[string]tokens.Token) (*quotes.Quote, error)
}

// Params configure a simulation run. Store is optional; when nil, results
// only go to the sink.
type Params struct {
	Endpoints []quotes.Fetcher
	Executor  Filler
	Registry  *tokens.Registry
	// Pool restricts scenario generation to these symbols; empty means
	// every registered token.
	Pool []string
	// FillStops and DelayStops override the default sampling brackets.
	FillStops  []float64
	DelayStops []float64
	Sink       *logsink.Sink
	Store      *store.Store
	V0         bool
	Log        zerolog.Logger
}

// Runner drives randomized quote-and-fill scenarios across a set of quote
// endpoints.
type Runner struct {
	p     Params
	runID string
	log   zerolog.Logger
	done  atomic.Int64
}

func New(p Params) (*Runner, error) {
	if len(p.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one quote endpoint is required")
	}
	runID := uuid.NewString()
	return &Runner{
		p:     p,
		runID: runID,
		log:   p.Log.With().Str("component", "runner").Str("runId", runID).Logger(),
	}, nil
}

func (r *Runner) RunID() string { return r.runID }

// Run launches workers scenario loops per enabled side and blocks until
// ctx is cancelled; there is no other exit. Passing only sells or only
// buys restricts the run to that side, neither means both. Each worker
// owns its scenario generator; generators are not safe to share.
func (r *Runner) Run(ctx context.Context, sells, buys bool, workers int) error {
	if workers < 1 {
		workers = 1
	}
	var sides []quotes.Side
	if sells || !buys {
		sides = append(sides, quotes.Sell)
	}
	if buys || !sells {
		sides = append(sides, quotes.Buy)
	}

	r.log.Info().Bool("sells", sells || !buys).Bool("buys", buys || !sells).Int("workers", workers).Msg("run starting")

	pool := r.p.Pool
	if len(pool) == 0 {
		pool = r.p.Registry.Symbols()
	}

	var wg sync.WaitGroup
	for _, side := range sides {
		for i := 0; i < workers; i++ {
			gen, err := scenario.NewGenerator(pool, r.p.V0)
			if err != nil {
				return fmt.Errorf("build scenario generator: %w", err)
			}
			if len(r.p.FillStops) > 1 {
				gen.FillStops = r.p.FillStops
			}
			if len(r.p.DelayStops) > 1 {
				gen.DelayStops = r.p.DelayStops
			}
			wg.Add(1)
			go func(side quotes.Side, gen *scenario.Generator) {
				defer wg.Done()
				r.worker(ctx, gen, side)
			}(side, gen)
		}
	}
	wg.Wait()
	r.log.Info().Int64("completed", r.done.Load()).Msg("run finished")
	return ctx.Err()
}

func (r *Runner) worker(ctx context.Context, gen *scenario.Generator, side quotes.Side) {
	for ctx.Err() == nil {
		if !r.runScenario(ctx, gen.Next(side)) {
			if !sleep(ctx, allFailedBackoff) {
				return
			}
		}
	}
}

// runScenario fans one scenario out to every endpoint and reports whether
// any endpoint produced a quote.
func (r *Runner) runScenario(ctx context.Context, sc scenario.Scenario) bool {
	snap := r.p.Registry.Snapshot()
	opts := quotes.FetchOpts{
		Tokens:           snap,
		MakerToken:       sc.MakerToken,
		TakerToken:       sc.TakerToken,
		SwapValueUsd:     sc.SwapValueUsd,
		FillDelaySeconds: sc.FillDelaySeconds,
		ScenarioID:       sc.ID,
	}

	var got atomic.Bool
	var wg sync.WaitGroup
	for _, ep := range r.p.Endpoints {
		wg.Add(1)
		go func(ep quotes.Fetcher) {
			defer wg.Done()
			if r.runEndpoint(ctx, ep, sc, opts, snap) {
				got.Store(true)
			}
		}(ep)
	}
	wg.Wait()
	return got.Load()
}

func (r *Runner) runEndpoint(ctx context.Context, ep quotes.Fetcher, sc scenario.Scenario, opts quotes.FetchOpts, snap map[string]tokens.Token) bool {
	fetch := ep.FetchSellQuote
	if sc.Side == quotes.Buy {
		fetch = ep.FetchBuyQuote
	}
	q, err := fetch(ctx, opts)
	if err != nil {
		r.log.Error().Err(err).Str("endpoint", ep.ID()).Str("scenarioId", sc.ID).Msg("quote fetch rejected")
		return false
	}
	if q == nil {
		return false
	}
	q.Metadata.RunID = r.runID

	// Quotes go stale; the delay measures how much validity decay costs.
	if !sleep(ctx, time.Duration(sc.FillDelaySeconds*float64(time.Second))) {
		return true
	}

	filled, err := r.p.Executor.FillQuote(ctx, q, snap)
	if err != nil {
		// Node trouble, not a revert; the scenario is skipped unrecorded.
		r.log.Error().Err(err).Str("endpoint", ep.ID()).Str("scenarioId", sc.ID).Msg("fill simulation failed")
		return true
	}
	r.record(ctx, filled)
	r.done.Add(1)
	return true
}

func (r *Runner) record(ctx context.Context, q *quotes.Quote) {
	r.p.Sink.Write(q)
	if r.p.Store == nil {
		return
	}
	if err := r.p.Store.Insert(ctx, store.FromQuote(q)); err != nil {
		r.log.Warn().Err(err).Str("simId", q.Metadata.ID).Msg("database insert failed")
	}
}

// sleep waits d or until ctx is cancelled, reporting whether the full
// wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
