package analysis

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dexlab/quotefill/internal/quotes"
)

// Load reads a JSONL result file. Malformed lines are counted and
// skipped; a long-lived log file often has a torn final line.
func Load(path string) ([]quotes.Quote, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open results %s: %w", path, err)
	}
	defer f.Close()

	var out []quotes.Quote
	bad := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<20), 16<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var q quotes.Quote
		if err := json.Unmarshal(line, &q); err != nil {
			bad++
			continue
		}
		out = append(out, q)
	}
	if err := sc.Err(); err != nil {
		return nil, bad, fmt.Errorf("scan results %s: %w", path, err)
	}
	return out, bad, nil
}

// Bucket is one aggregation cell.
type Bucket struct {
	Key        string
	Total      int
	Reverted   int
	GasSamples []float64
}

func (b *Bucket) RevertRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Reverted) / float64(b.Total)
}

// GasStats returns mean and stddev of observed gas for successful fills.
func (b *Bucket) GasStats() (mean, stddev float64) {
	if len(b.GasSamples) == 0 {
		return 0, 0
	}
	mean = stat.Mean(b.GasSamples, nil)
	stddev = stat.StdDev(b.GasSamples, nil)
	return mean, stddev
}

// GroupFunc maps one record to the bucket keys it belongs to. A record
// may land in several buckets (one per route source, say).
type GroupFunc func(q *quotes.Quote) []string

func ByPair(q *quotes.Quote) []string {
	return []string{q.Metadata.TakerToken + "/" + q.Metadata.MakerToken}
}

func ByMakerToken(q *quotes.Quote) []string { return []string{q.Metadata.MakerToken} }

func ByEndpoint(q *quotes.Quote) []string { return []string{q.Metadata.APIPath} }

// BySource attributes a record to every liquidity source on its route.
func BySource(q *quotes.Quote) []string {
	var keys []string
	for _, s := range q.Sources {
		if s.Proportion == "0" {
			continue
		}
		keys = append(keys, s.Name)
	}
	return keys
}

// ByValueBracket buckets by the sampling stops the generator uses, so the
// report lines up with how scenarios were drawn.
func ByValueBracket(stops []float64) GroupFunc {
	return func(q *quotes.Quote) []string {
		v := q.Metadata.FillValue
		for i := 0; i+1 < len(stops); i++ {
			if v >= stops[i] && v < stops[i+1] {
				return []string{fmt.Sprintf("$%.0f-%.0f", stops[i], stops[i+1])}
			}
		}
		return []string{fmt.Sprintf("$%.0f+", stops[len(stops)-1])}
	}
}

// Aggregate folds records into buckets under the given grouping. Records
// without a swap result never reached simulation and are excluded; only
// simulated fills inform the revert rates.
func Aggregate(recs []quotes.Quote, group GroupFunc) []Bucket {
	byKey := map[string]*Bucket{}
	for i := range recs {
		q := &recs[i]
		if q.Metadata.SwapResult == nil {
			continue
		}
		for _, key := range group(q) {
			b := byKey[key]
			if b == nil {
				b = &Bucket{Key: key}
				byKey[key] = b
			}
			b.Total++
			sr := q.Metadata.SwapResult
			if !sr.Succeeded() {
				b.Reverted++
				continue
			}
			b.GasSamples = append(b.GasSamples, float64(sr.GasUsed))
		}
	}
	out := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
