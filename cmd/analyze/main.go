package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/analysis"
	"github.com/dexlab/quotefill/internal/scenario"
)

func main() {
	var (
		input = flag.String("input", "", "JSONL results file")
		group = flag.String("by", "pair", "grouping: pair, token, endpoint, source, value")
	)
	flag.Parse()

	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	log := zerolog.New(w).With().Timestamp().Logger()

	if *input == "" {
		log.Fatal().Msg("--input is required")
	}

	recs, bad, err := analysis.Load(*input)
	if err != nil {
		log.Fatal().Err(err).Msg("load results")
	}
	if bad > 0 {
		log.Warn().Int("lines", bad).Msg("skipped malformed lines")
	}

	var fn analysis.GroupFunc
	switch *group {
	case "pair":
		fn = analysis.ByPair
	case "token":
		fn = analysis.ByMakerToken
	case "endpoint":
		fn = analysis.ByEndpoint
	case "source":
		fn = analysis.BySource
	case "value":
		fn = analysis.ByValueBracket(scenario.DefaultFillStops)
	default:
		log.Fatal().Str("by", *group).Msg("unknown grouping")
	}

	buckets := analysis.Aggregate(recs, fn)
	fmt.Printf("%-28s %8s %12s %14s %14s\n", *group, "fills", "revert rate", "gas mean", "gas stddev")
	for _, b := range buckets {
		mean, stddev := b.GasStats()
		fmt.Printf("%-28s %8d %11.1f%% %14.0f %14.0f\n",
			b.Key, b.Total, 100*b.RevertRate(), mean, stddev)
	}
}
