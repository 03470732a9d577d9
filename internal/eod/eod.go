package eod

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"vixfix-trading-bot/internal/types"
)

type eodSummarizer struct {
	dir string
}

type aggRow struct {
	Direction    types.Direction
	Trades       int
	Lots         float64
	EntryValue   float64 // sum of entry*lot
	StopPoints   float64
	TargetPoints float64
}

// recordTime accepts RFC3339 and the ctime layout older journals used.
func recordTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, time.ANSIC} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (s *eodSummarizer) csvPath(day time.Time) string {
	return filepath.Join(s.dir, "eod", day.UTC().Format("2006-01-02")+".csv")
}

// SummarizeDay writes one row per direction for the journal records opened
// on day (UTC) plus a TOTAL row. No trades means no file and an empty path.
func (s *eodSummarizer) SummarizeDay(records []types.TradeRecord, day time.Time) (string, error) {
	aggs := map[types.Direction]*aggRow{}
	for _, r := range records {
		ts, ok := recordTime(r.Timestamp)
		if !ok || !sameDay(ts, day) {
			continue
		}
		row := aggs[r.Direction]
		if row == nil {
			row = &aggRow{Direction: r.Direction}
			aggs[r.Direction] = row
		}
		row.Trades++
		row.Lots += r.Lot
		row.EntryValue += r.Entry * r.Lot
		row.StopPoints += abs(r.Entry - r.SL)
		row.TargetPoints += abs(r.TP - r.Entry)
	}
	if len(aggs) == 0 {
		return "", nil
	}

	outPath := s.csvPath(day)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"direction", "trades", "lots", "avg_entry", "avg_stop_distance", "avg_target_distance"}
	if err := w.Write(headers); err != nil {
		return "", err
	}
	var total aggRow
	for _, d := range []types.Direction{types.Buy, types.Sell} {
		r := aggs[d]
		if r == nil {
			continue
		}
		if err := w.Write(r.csv(string(d))); err != nil {
			return "", err
		}
		total.Trades += r.Trades
		total.Lots += r.Lots
		total.EntryValue += r.EntryValue
		total.StopPoints += r.StopPoints
		total.TargetPoints += r.TargetPoints
	}
	if err := w.Write(total.csv("TOTAL")); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

func (r *aggRow) csv(label string) []string {
	var avgEntry float64
	if r.Lots > 0 {
		avgEntry = r.EntryValue / r.Lots
	}
	n := float64(r.Trades)
	return []string{
		label,
		strconv.Itoa(r.Trades),
		fmt.Sprintf("%.2f", r.Lots),
		fmt.Sprintf("%.2f", avgEntry),
		fmt.Sprintf("%.2f", r.StopPoints/n),
		fmt.Sprintf("%.2f", r.TargetPoints/n),
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
