package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/chain"
	"github.com/dexlab/quotefill/internal/config"
	"github.com/dexlab/quotefill/internal/logsink"
	"github.com/dexlab/quotefill/internal/pricefeed"
	"github.com/dexlab/quotefill/internal/quotes"
	"github.com/dexlab/quotefill/internal/runner"
	"github.com/dexlab/quotefill/internal/sim"
	"github.com/dexlab/quotefill/internal/store"
	"github.com/dexlab/quotefill/internal/tokens"
)

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	var (
		urls      stringList
		toks      stringList
		output    = flag.String("output", "", "JSONL output file (empty disables file logging)")
		buys      = flag.Bool("buys", false, "only perform buys")
		sells     = flag.Bool("sells", false, "only perform sells")
		jobs      = flag.Int("jobs", 8, "concurrent workers per side")
		dbURL     = flag.String("db", config.Getenv("DATABASE_URL", ""), "postgres DSN (empty disables uploads)")
		v0        = flag.Bool("v0", false, "endpoints speak the v0 swap API")
		cfgPath   = flag.String("config", "config.json", "simulation config file")
		verbosity = flag.String("log-level", config.Getenv("LOG_LEVEL", "info"), "zerolog level")
	)
	flag.Var(&urls, "url", "quote endpoint, repeatable ([id=]url)")
	flag.Var(&toks, "token", "restrict scenarios to this token symbol, repeatable")
	flag.Parse()

	log := newLogger(*verbosity)

	if len(urls) == 0 {
		urls = stringList{"https://api.0x.org/swap/v1/quote"}
	}

	reg := tokens.Mainnet()
	for _, sym := range toks {
		if !reg.Has(sym) {
			log.Fatal().Str("token", sym).Msg("unknown token symbol")
		}
	}
	pool := []string(toks)
	if len(pool) == 0 {
		pool = reg.Symbols()
	}
	if len(pool) < 2 {
		log.Fatal().Msg("at least 2 tokens must be given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	client, err := chain.Dial(config.Getenv("NODE_RPC", "http://localhost:8545"))
	if err != nil {
		log.Fatal().Err(err).Msg("dial node")
	}
	defer client.Close()

	feed := pricefeed.New(reg, log)
	if err := feed.Start(ctx, "@every 10m"); err != nil {
		log.Fatal().Err(err).Msg("start price feed")
	}
	chain.VerifyHolders(ctx, client, reg, log)

	var endpoints []quotes.Fetcher
	for _, raw := range urls {
		ep, ok := quotes.ParseEndpoint(raw)
		if !ok {
			log.Fatal().Str("url", raw).Msg("unparseable endpoint")
		}
		endpoints = append(endpoints, quotes.ForEndpoint(ep, chain.TakerAddress, log))
	}

	exec, err := sim.NewExecutor(client, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build executor")
	}

	sink, err := logsink.Open(*output, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open output")
	}
	defer sink.Close()

	var db *store.Store
	if *dbURL != "" {
		db, err = store.New(ctx, *dbURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connect database")
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
	}

	r, err := runner.New(runner.Params{
		Endpoints: endpoints,
		Executor:  exec,
		Registry:  reg,
		Pool:      pool,
		Sink:      sink,
		Store:     db,
		V0:        *v0,
		Log:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build runner")
	}

	fmt.Printf("run %s: %d workers per side, ctrl-c to stop\n", r.RunID(), *jobs)
	if err := r.Run(ctx, *sells, *buys, *jobs); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("run failed")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
