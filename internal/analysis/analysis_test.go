package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexlab/quotefill/internal/quotes"
)

func record(maker, taker, api string, value float64, gasUsed int64, succeeded bool, sources ...quotes.SourceBreakdown) quotes.Quote {
	sr := &quotes.SwapResult{GasUsed: gasUsed, BoughtAmount: "0"}
	if succeeded {
		sr.BoughtAmount = "100"
	}
	return quotes.Quote{
		Sources: sources,
		Metadata: quotes.Metadata{
			MakerToken: maker,
			TakerToken: taker,
			APIPath:    api,
			FillValue:  value,
			SwapResult: sr,
		},
	}
}

func TestLoad_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	content := `{"buyAmount":"1","metadata":{"id":"0xa"}}
not json
{"buyAmount":"2","metadata":{"id":"0xb"}}
{"truncated`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	recs, bad, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, 2, bad)
	assert.Equal(t, "0xa", recs[0].Metadata.ID)
}

func TestAggregate_RevertRateByPair(t *testing.T) {
	recs := []quotes.Quote{
		record("DAI", "WETH", "a", 500, 300000, true),
		record("DAI", "WETH", "a", 500, 320000, false),
		record("USDC", "WETH", "a", 500, 150000, true),
	}
	buckets := Aggregate(recs, ByPair)
	require.Len(t, buckets, 2)

	assert.Equal(t, "WETH/DAI", buckets[0].Key)
	assert.Equal(t, 2, buckets[0].Total)
	assert.Equal(t, 1, buckets[0].Reverted)
	assert.Equal(t, 0.5, buckets[0].RevertRate())

	mean, _ := buckets[0].GasStats()
	assert.Equal(t, 300000.0, mean)
}

func TestAggregate_ExcludesRecordsWithoutSwapResult(t *testing.T) {
	// A record with no swap result never reached simulation; it must not
	// move the revert rate either way.
	recs := []quotes.Quote{
		record("DAI", "WETH", "a", 500, 300000, true),
		{Metadata: quotes.Metadata{MakerToken: "DAI", TakerToken: "WETH"}},
	}
	buckets := Aggregate(recs, ByMakerToken)
	require.Len(t, buckets, 1)
	assert.Equal(t, 1, buckets[0].Total)
	assert.Zero(t, buckets[0].Reverted)
	assert.Zero(t, buckets[0].RevertRate())
}

func TestBySource_AttributesToEveryRouteSource(t *testing.T) {
	q := record("DAI", "WETH", "a", 500, 1, true,
		quotes.SourceBreakdown{Name: "Uniswap_V2", Proportion: "0.5"},
		quotes.SourceBreakdown{Name: "Kyber", Proportion: "0"},
		quotes.SourceBreakdown{Name: "Balancer", Proportion: "0.5"},
	)
	keys := BySource(&q)
	assert.Equal(t, []string{"Uniswap_V2", "Balancer"}, keys)
}

func TestByValueBracket(t *testing.T) {
	fn := ByValueBracket([]float64{250, 1000, 5000})
	assert.Equal(t, []string{"$250-1000"}, fn(&quotes.Quote{Metadata: quotes.Metadata{FillValue: 400}}))
	assert.Equal(t, []string{"$1000-5000"}, fn(&quotes.Quote{Metadata: quotes.Metadata{FillValue: 1000}}))
	assert.Equal(t, []string{"$5000+"}, fn(&quotes.Quote{Metadata: quotes.Metadata{FillValue: 9000}}))
}

func TestGasStats_MultipleSamples(t *testing.T) {
	b := Bucket{GasSamples: []float64{100, 200, 300}}
	mean, stddev := b.GasStats()
	assert.Equal(t, 200.0, mean)
	assert.InDelta(t, 100.0, stddev, 1e-9)
}
