package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexlab/quotefill/internal/logsink"
	"github.com/dexlab/quotefill/internal/quotes"
	"github.com/dexlab/quotefill/internal/tokens"
)

type fakeFetcher struct {
	id    string
	fail  bool
	calls atomic.Int64
	sides chan quotes.Side
}

func newFakeFetcher(id string, fail bool) *fakeFetcher {
	return &fakeFetcher{id: id, fail: fail, sides: make(chan quotes.Side, 64)}
}

func (f *fakeFetcher) ID() string { return f.id }

func (f *fakeFetcher) fetch(opts quotes.FetchOpts, side quotes.Side) (*quotes.Quote, error) {
	f.calls.Add(1)
	select {
	case f.sides <- side:
	default:
	}
	if f.fail {
		return nil, nil
	}
	return &quotes.Quote{
		BuyAmount: "100",
		Metadata: quotes.Metadata{
			ID:         opts.ScenarioID,
			MakerToken: opts.MakerToken,
			TakerToken: opts.TakerToken,
			Side:       side,
		},
	}, nil
}

func (f *fakeFetcher) FetchSellQuote(ctx context.Context, opts quotes.FetchOpts) (*quotes.Quote, error) {
	return f.fetch(opts, quotes.Sell)
}

func (f *fakeFetcher) FetchBuyQuote(ctx context.Context, opts quotes.FetchOpts) (*quotes.Quote, error) {
	return f.fetch(opts, quotes.Buy)
}

type fakeFiller struct {
	fills atomic.Int64
	err   error
}

func (f *fakeFiller) FillQuote(ctx context.Context, q *quotes.Quote, snap map[string]tokens.Token) (*quotes.Quote, error) {
	f.fills.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := *q
	out.Metadata.SwapResult = &quotes.SwapResult{BoughtAmount: q.BuyAmount}
	return &out, nil
}

func newTestRunner(t *testing.T, eps []quotes.Fetcher, fill Filler, sink *logsink.Sink) *Runner {
	t.Helper()
	r, err := New(Params{
		Endpoints:  eps,
		Executor:   fill,
		Registry:   tokens.Mainnet(),
		DelayStops: []float64{0, 0.001},
		Sink:       sink,
		Log:        zerolog.Nop(),
	})
	require.NoError(t, err)
	return r
}

func nopSink(t *testing.T) *logsink.Sink {
	t.Helper()
	sink, err := logsink.Open("", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(sink.Close)
	return sink
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNew_RequiresEndpoints(t *testing.T) {
	_, err := New(Params{})
	assert.Error(t, err)
}

func TestRun_LoopsUntilCancelled(t *testing.T) {
	ep1 := newFakeFetcher("a", false)
	ep2 := newFakeFetcher("b", false)
	fill := &fakeFiller{}
	r := newTestRunner(t, []quotes.Fetcher{ep1, ep2}, fill, nopSink(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, false, false, 2) }()

	// Scenarios keep coming well past any fixed batch, on every endpoint.
	waitFor(t, func() bool { return ep1.calls.Load() >= 20 && ep2.calls.Load() >= 20 })
	select {
	case err := <-done:
		t.Fatalf("run returned while context was live: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	assert.Positive(t, fill.fills.Load())
}

func TestRun_SideFlagsRestrictScenarios(t *testing.T) {
	for _, tc := range []struct {
		name         string
		sells, buys  bool
		allowedSides []quotes.Side
	}{
		{"sells only", true, false, []quotes.Side{quotes.Sell}},
		{"buys only", false, true, []quotes.Side{quotes.Buy}},
		{"default is both", false, false, []quotes.Side{quotes.Sell, quotes.Buy}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ep := newFakeFetcher("a", false)
			r := newTestRunner(t, []quotes.Fetcher{ep}, &fakeFiller{}, nopSink(t))

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- r.Run(ctx, tc.sells, tc.buys, 1) }()
			waitFor(t, func() bool { return ep.calls.Load() >= 10 })
			cancel()
			<-done

			close(ep.sides)
			seen := map[quotes.Side]bool{}
			for side := range ep.sides {
				assert.Contains(t, tc.allowedSides, side)
				seen[side] = true
			}
			for _, side := range tc.allowedSides {
				assert.True(t, seen[side], "side %s never sampled", side)
			}
		})
	}
}

func TestRun_FillErrorsAreNotRecorded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	sink, err := logsink.Open(path, zerolog.Nop())
	require.NoError(t, err)

	ep := newFakeFetcher("a", false)
	fill := &fakeFiller{err: errors.New("node unavailable")}
	r := newTestRunner(t, []quotes.Fetcher{ep}, fill, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, true, false, 1) }()
	waitFor(t, func() bool { return fill.fills.Load() >= 3 })
	cancel()
	<-done
	sink.Close()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(raw)))
}

func TestRun_CancelledContextStopsImmediately(t *testing.T) {
	ep := newFakeFetcher("a", true) // failing fetches trigger the backoff path
	fill := &fakeFiller{}
	r := newTestRunner(t, []quotes.Fetcher{ep}, fill, nopSink(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := r.Run(ctx, false, false, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, fill.fills.Load())
}

func TestRunID_Stable(t *testing.T) {
	r := newTestRunner(t, []quotes.Fetcher{newFakeFetcher("a", false)}, &fakeFiller{}, nopSink(t))
	assert.NotEmpty(t, r.RunID())
	assert.Equal(t, r.RunID(), r.RunID())
}
