package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/chain"
	"github.com/dexlab/quotefill/internal/config"
	"github.com/dexlab/quotefill/internal/pricefeed"
	"github.com/dexlab/quotefill/internal/quotes"
	"github.com/dexlab/quotefill/internal/scenario"
	"github.com/dexlab/quotefill/internal/tokens"
	"github.com/dexlab/quotefill/internal/tuner"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	var (
		rawURL   = flag.String("url", "", "quote endpoint accepting sampling params ([id=]url)")
		maker    = flag.String("maker", "DAI", "maker (buy) token symbol")
		taker    = flag.String("taker", "WETH", "taker (sell) token symbol")
		valueUsd = flag.Float64("value", 10_000, "swap notional in USD")
		alpha    = flag.Float64("alpha", 1, "initial sampling alpha")
		beta     = flag.Float64("beta", 1, "initial sampling beta")
		step     = flag.Float64("step", 0.5, "initial perturbation step")
		decay    = flag.Float64("decay", 0.75, "per-tick step decay factor")
		interval = flag.Duration("interval", 30*time.Second, "delay between ticks")
		ticks    = flag.Int("ticks", 0, "stop after this many ticks (0 runs forever)")
	)
	flag.Parse()

	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	log := zerolog.New(w).With().Timestamp().Logger()

	ep, ok := quotes.ParseEndpoint(*rawURL)
	if !ok {
		log.Fatal().Str("url", *rawURL).Msg("a valid --url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.Dial(config.Getenv("NODE_RPC", "http://localhost:8545"))
	if err != nil {
		log.Fatal().Err(err).Msg("dial node")
	}
	defer client.Close()

	reg := tokens.Mainnet()
	if err := pricefeed.New(reg, log).Refresh(ctx); err != nil {
		log.Fatal().Err(err).Msg("refresh prices")
	}
	if !reg.Has(*maker) || !reg.Has(*taker) {
		log.Fatal().Str("maker", *maker).Str("taker", *taker).Msg("unknown token symbol")
	}

	fetcher := quotes.ForEndpoint(ep, chain.TakerAddress, log)
	fetch := func(ctx context.Context, p tuner.Params, block uint64) (*quotes.Quote, error) {
		extra := p.Query()
		extra.Set("blockNumber", strconv.FormatUint(block, 10))
		return fetcher.FetchSellQuote(ctx, quotes.FetchOpts{
			Tokens:       reg.Snapshot(),
			MakerToken:   *maker,
			TakerToken:   *taker,
			SwapValueUsd: *valueUsd,
			ScenarioID:   scenario.NewID(),
			Extra:        extra,
		})
	}

	t := tuner.New(tuner.Params{Alpha: *alpha, Beta: *beta}, *step, *decay,
		fetch, client.BlockNumber, log)

	fmt.Printf("tuning %s/%s ($%.0f) against %s\n", *taker, *maker, *valueUsd, ep.ID)
	for i := 0; *ticks == 0 || i < *ticks; i++ {
		if err := t.Tick(ctx); err != nil {
			log.Warn().Err(err).Msg("tick failed")
		}
		p := t.Current()
		fmt.Printf("tick %d: alpha=%s beta=%s step=%.6f\n",
			i+1, strconv.FormatFloat(p.Alpha, 'f', -1, 64),
			strconv.FormatFloat(p.Beta, 'f', -1, 64), t.Step())
		select {
		case <-ctx.Done():
			return
		case <-time.After(*interval):
		}
	}
}
