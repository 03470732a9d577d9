package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useDir(t *testing.T, at time.Time) string {
	t.Helper()
	d := t.TempDir()
	prevDir, prevNow := dir, now
	dir = d
	now = func() time.Time { return at }
	t.Cleanup(func() { dir, now = prevDir, prevNow })
	return d
}

func readLines(t *testing.T, p string) []string {
	t.Helper()
	f, err := os.Open(p)
	require.NoError(t, err)
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	require.NoError(t, sc.Err())
	return out
}

func TestAppendWritesDailyFiles(t *testing.T) {
	at := time.Date(2025, 4, 8, 10, 5, 0, 0, time.UTC)
	d := useDir(t, at)

	require.NoError(t, Append(OrderEntry{Symbol: "XAU_USD", Direction: "buy", Status: "ACCEPTED", Lot: 2, Entry: 3010.5, Fill: 3010.6}))
	require.NoError(t, Append(OrderEntry{Symbol: "XAU_USD", Direction: "sell", Status: "REJECTED", Code: "MARKET_HALTED"}))
	require.NoError(t, AppendDecision(DecisionEntry{Symbol: "XAU_USD", Timeframe: "M5", Signal: "NONE", Indicators: map[string]float64{"wvf": 1.2}}))

	orders := readLines(t, filepath.Join(d, "orders", "2025-04-08.txt"))
	require.Len(t, orders, 2)
	var e OrderEntry
	require.NoError(t, json.Unmarshal([]byte(orders[1]), &e))
	assert.Equal(t, "REJECTED", e.Status)
	assert.Equal(t, "MARKET_HALTED", e.Code)
	assert.Equal(t, "2025-04-08T10:05:00Z", e.Time)

	decisions := readLines(t, filepath.Join(d, "decisions", "2025-04-08.txt"))
	require.Len(t, decisions, 1)
	var de DecisionEntry
	require.NoError(t, json.Unmarshal([]byte(decisions[0]), &de))
	assert.Equal(t, "M5", de.Timeframe)
	assert.InDelta(t, 1.2, de.Indicators["wvf"], 1e-12)
}

func TestCompressOlder(t *testing.T) {
	at := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
	d := useDir(t, at)

	old := filepath.Join(d, "orders", "2025-04-01.txt")
	fresh := filepath.Join(d, "orders", "2025-04-19.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(old), 0o755))
	require.NoError(t, os.WriteFile(old, []byte("{\"Symbol\":\"XAU_USD\"}\n"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("{}\n"), 0o644))
	require.NoError(t, os.Chtimes(old, at.AddDate(0, 0, -19), at.AddDate(0, 0, -19)))
	require.NoError(t, os.Chtimes(fresh, at.AddDate(0, 0, -1), at.AddDate(0, 0, -1)))

	require.NoError(t, CompressOlder(7))

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)

	f, err := os.Open(old + ".gz")
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	b, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, "{\"Symbol\":\"XAU_USD\"}\n", string(b))
}

func TestCompressOlderDisabled(t *testing.T) {
	useDir(t, time.Now())
	assert.NoError(t, CompressOlder(0))
}
