package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu  sync.Mutex
	dir = "logs"
	now = time.Now
)

// OrderEntry is one submission attempt, accepted or not.
type OrderEntry struct {
	Time, Symbol, Direction, Tag, OrderID string
	Status, Code                          string
	Lot, Entry, SL, TP, Fill              float64
}

// DecisionEntry is one detector evaluation of a timeframe.
type DecisionEntry struct {
	Time, Symbol, Timeframe, Signal, Reason string
	Price                                   float64
	Indicators                              map[string]float64 `json:"indicators,omitempty"`
}

// SetDir changes the root of the audit log; the default is "logs".
func SetDir(d string) {
	mu.Lock()
	defer mu.Unlock()
	if d != "" {
		dir = d
	}
}

func Dir() string {
	mu.Lock()
	defer mu.Unlock()
	return dir
}

func ordersFilepath(t time.Time) string {
	return filepath.Join(dir, "orders", t.UTC().Format("2006-01-02")+".txt")
}
func decisionsFilepath(t time.Time) string {
	return filepath.Join(dir, "decisions", t.UTC().Format("2006-01-02")+".txt")
}

func Append(e OrderEntry) error {
	mu.Lock()
	defer mu.Unlock()
	t := now()
	e.Time = t.UTC().Format(time.RFC3339)
	return appendLine(ordersFilepath(t), e)
}

func AppendDecision(e DecisionEntry) error {
	mu.Lock()
	defer mu.Unlock()
	t := now()
	e.Time = t.UTC().Format(time.RFC3339)
	return appendLine(decisionsFilepath(t), e)
}

func appendLine(p string, v any) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips daily files last modified more than retentionDays ago.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(Dir(), func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := d.Info()
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// already compressed on an earlier run
		if _, e2 := os.Stat(gz); e2 == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err == nil {
			_ = os.Remove(p)
		}
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
