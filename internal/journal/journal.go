// Package journal keeps the append-only record of executed trades. The whole
// history is rewritten on every save; writes go to a temporary file that is
// renamed over the snapshot, so a crash leaves either the old or the new file.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vixfix-trading-bot/internal/types"
)

var ErrDuplicate = errors.New("duplicate trade tag")

type Journal struct {
	path    string
	records []types.TradeRecord
	tags    map[string]struct{}
}

func New(path string) *Journal {
	return &Journal{path: path, tags: map[string]struct{}{}}
}

// Load reads the snapshot at path. A missing file yields an empty journal.
func Load(path string) (*Journal, error) {
	j := New(path)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read journal: %v", types.ErrPersistence, err)
	}
	if len(b) == 0 {
		return j, nil
	}
	var recs []types.TradeRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("%w: decode journal %s: %v", types.ErrPersistence, path, err)
	}
	for _, r := range recs {
		j.records = append(j.records, r)
		if r.Tag != "" {
			j.tags[r.Tag] = struct{}{}
		}
	}
	return j, nil
}

func (j *Journal) Path() string { return j.path }

func (j *Journal) Len() int { return len(j.records) }

// Records returns a copy of the history in insertion order.
func (j *Journal) Records() []types.TradeRecord {
	out := make([]types.TradeRecord, len(j.records))
	copy(out, j.records)
	return out
}

func (j *Journal) Contains(tag string) bool {
	_, ok := j.tags[tag]
	return ok
}

// Add appends rec in memory. Call Save to persist.
func (j *Journal) Add(rec types.TradeRecord) error {
	if rec.Tag != "" && j.Contains(rec.Tag) {
		return fmt.Errorf("%w: %s", ErrDuplicate, rec.Tag)
	}
	j.records = append(j.records, rec)
	if rec.Tag != "" {
		j.tags[rec.Tag] = struct{}{}
	}
	return nil
}

// Save atomically replaces the snapshot with the full in-memory history.
func (j *Journal) Save() error {
	recs := j.records
	if recs == nil {
		recs = []types.TradeRecord{}
	}
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode journal: %v", types.ErrPersistence, err)
	}
	if err := writeFileAtomic(j.path, b, 0o644); err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) // no-op once renamed

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	// Persist the rename itself; not supported everywhere, so best effort.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}
