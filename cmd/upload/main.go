package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/analysis"
	"github.com/dexlab/quotefill/internal/config"
	"github.com/dexlab/quotefill/internal/store"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	var (
		input = flag.String("input", "", "JSONL results file to upload")
		dbURL = flag.String("db", config.Getenv("DATABASE_URL", ""), "postgres DSN")
	)
	flag.Parse()

	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	log := zerolog.New(w).With().Timestamp().Logger()

	if *input == "" || *dbURL == "" {
		log.Fatal().Msg("--input and --db are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recs, bad, err := analysis.Load(*input)
	if err != nil {
		log.Fatal().Err(err).Msg("load results")
	}
	if bad > 0 {
		log.Warn().Int("lines", bad).Msg("skipped malformed lines")
	}

	db, err := store.New(ctx, *dbURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	rows := make([]store.Row, 0, len(recs))
	for i := range recs {
		rows = append(rows, store.FromQuote(&recs[i]))
	}
	inserted, skipped := db.InsertBatch(ctx, rows)
	fmt.Printf("uploaded %d rows (%d duplicates skipped) from %s\n", inserted, skipped, *input)
}
