package logsink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexlab/quotefill/internal/quotes"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestSink_WritesOneJSONPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	s, err := Open(path, zerolog.Nop())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		s.Write(&quotes.Quote{BuyAmount: "100", Metadata: quotes.Metadata{ID: "0xabc"}})
	}
	s.Close()

	lines := readLines(t, path)
	require.Len(t, lines, 10)
	for _, line := range lines {
		var q quotes.Quote
		require.NoError(t, json.Unmarshal([]byte(line), &q))
		assert.Equal(t, "100", q.BuyAmount)
	}
}

func TestSink_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	for i := 0; i < 2; i++ {
		s, err := Open(path, zerolog.Nop())
		require.NoError(t, err)
		s.Write(map[string]int{"run": i})
		s.Close()
	}
	assert.Len(t, readLines(t, path), 2)
}

func TestSink_EmptyPathDiscards(t *testing.T) {
	s, err := Open("", zerolog.Nop())
	require.NoError(t, err)
	s.Write(map[string]string{"dropped": "yes"})
	s.Close()
}

func TestSink_CloseIsIdempotent(t *testing.T) {
	s, err := Open("", zerolog.Nop())
	require.NoError(t, err)
	s.Close()
	s.Close()
}
