package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/analysis"
)

// Rewrites older result files into the current record shape. Early runs
// recorded gasUsed with a flipped sign; everything downstream expects it
// positive.
func main() {
	var (
		input  = flag.String("input", "", "JSONL results file to migrate")
		output = flag.String("output", "", "destination file")
	)
	flag.Parse()

	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	log := zerolog.New(w).With().Timestamp().Logger()

	if *input == "" || *output == "" {
		log.Fatal().Msg("--input and --output are required")
	}

	recs, bad, err := analysis.Load(*input)
	if err != nil {
		log.Fatal().Err(err).Msg("load results")
	}
	if bad > 0 {
		log.Warn().Int("lines", bad).Msg("dropped malformed lines")
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatal().Err(err).Msg("create output")
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	fixed := 0
	for i := range recs {
		if sr := recs[i].Metadata.SwapResult; sr != nil && sr.GasUsed < 0 {
			sr.GasUsed = -sr.GasUsed
			fixed++
		}
		line, err := json.Marshal(&recs[i])
		if err != nil {
			log.Fatal().Err(err).Msg("encode record")
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		log.Fatal().Err(err).Msg("flush output")
	}
	fmt.Printf("migrated %d records (%d gas signs fixed) to %s\n", len(recs), fixed, *output)
}
