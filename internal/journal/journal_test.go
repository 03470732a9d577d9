package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vixfix-trading-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []types.TradeRecord {
	return []types.TradeRecord{
		{Timestamp: "2025-04-08T10:05:00Z", Entry: 3010.5, SL: 3009.5, TP: 3012.5, Direction: types.Buy, Lot: 2, Tag: "XAU_USD:M5:buy:1744106700"},
		{Timestamp: "2025-04-08T11:20:00Z", Entry: 3001.2, SL: 3002.2, TP: 2999.2, Direction: types.Sell, Lot: 1.37, Tag: "XAU_USD:M15:sell:1744110900"},
		{Timestamp: "Tue Apr  8 12:00:00 2025", Entry: 3005, SL: 3004, TP: 3007, Direction: types.Buy, Lot: 0.01},
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	j, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, j.Len())
	assert.Empty(t, j.Records())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "berth_memory.json")
	j := New(path)
	for _, r := range sampleRecords() {
		require.NoError(t, j.Add(r))
	}
	require.NoError(t, j.Save())

	// a fresh process sees the same ordered history
	j2, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), j2.Records())
	assert.True(t, j2.Contains("XAU_USD:M5:buy:1744106700"))

	// saving again after another append keeps order
	extra := types.TradeRecord{Timestamp: "2025-04-09T00:00:00Z", Entry: 1, SL: 0.5, TP: 2, Direction: types.Buy, Lot: 0.01}
	require.NoError(t, j2.Add(extra))
	require.NoError(t, j2.Save())
	j3, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, append(sampleRecords(), extra), j3.Records())
}

func TestPersistedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "berth_memory.json")
	j := New(path)
	require.NoError(t, j.Add(sampleRecords()[2]))
	require.NoError(t, j.Save())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"timestamp":"Tue Apr  8 12:00:00 2025","entry":3005,"sl":3004,"tp":3007,"direction":"buy","lot":0.01}]`, string(b))
}

func TestLoadLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "berth_memory.json")
	legacy := `[
  {"timestamp": "Tue Apr  8 12:00:00 2025", "entry": 3005.12, "sl": 3004.12, "tp": 3007.12, "direction": "sell", "lot": 0.5}
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	j, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, j.Len())
	assert.Equal(t, types.Sell, j.Records()[0].Direction)
	assert.Equal(t, "", j.Records()[0].Tag)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "berth_memory.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"timestamp":`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrPersistence))
}

func TestAddRejectsDuplicateTag(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "j.json"))
	rec := sampleRecords()[0]
	require.NoError(t, j.Add(rec))
	err := j.Add(rec)
	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.Equal(t, 1, j.Len())

	// untagged records are never considered duplicates
	legacy := sampleRecords()[2]
	require.NoError(t, j.Add(legacy))
	require.NoError(t, j.Add(legacy))
	assert.Equal(t, 3, j.Len())
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	j := New(filepath.Join(dir, "nested", "berth_memory.json"))
	require.NoError(t, j.Add(sampleRecords()[0]))
	require.NoError(t, j.Save())
	require.NoError(t, j.Save())

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "berth_memory.json", entries[0].Name())
}

func TestSaveFailureKeepsPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "berth_memory.json")
	j := New(path)
	require.NoError(t, j.Add(sampleRecords()[0]))
	require.NoError(t, j.Save())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// replacing the snapshot with a directory makes the rename fail
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), before, 0o644))

	require.NoError(t, j.Add(sampleRecords()[1]))
	err = j.Save()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrPersistence))

	kept, err := os.ReadFile(filepath.Join(path, "keep"))
	require.NoError(t, err)
	assert.Equal(t, before, kept)
}

type fakeRemote struct {
	content     []byte
	uploads     int
	downloadErr error
	uploadErr   error
}

func (f *fakeRemote) Upload(ctx context.Context, localPath string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.content = b
	f.uploads++
	return nil
}

func (f *fakeRemote) Download(ctx context.Context, localPath string) error {
	if f.downloadErr != nil {
		return f.downloadErr
	}
	if f.content == nil {
		return types.ErrNoRemoteCopy
	}
	return os.WriteFile(localPath, f.content, 0o644)
}

func TestMirrorRestoreAfterLocalLoss(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	path := filepath.Join(t.TempDir(), "berth_memory.json")

	m := NewMirror(path, remote)
	_, err := m.Restore(ctx)
	require.NoError(t, err)
	for _, r := range sampleRecords() {
		require.NoError(t, m.Commit(ctx, r))
	}
	assert.Equal(t, 3, remote.uploads)

	// local storage lost: a new run resumes from the remote copy
	require.NoError(t, os.Remove(path))
	m2 := NewMirror(path, remote)
	j, err := m2.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), j.Records())
}

func TestMirrorRemoteFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "berth_memory.json")

	local := New(path)
	require.NoError(t, local.Add(sampleRecords()[0]))
	require.NoError(t, local.Save())

	remote := &fakeRemote{downloadErr: errors.New("drive down"), uploadErr: errors.New("drive down")}
	m := NewMirror(path, remote)
	j, err := m.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, j.Len())

	require.NoError(t, m.Commit(ctx, sampleRecords()[1]))
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
}

func TestMirrorKeepsLocalAheadOfRemote(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	path := filepath.Join(t.TempDir(), "berth_memory.json")
	recs := sampleRecords()

	m := NewMirror(path, remote)
	_, err := m.Restore(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Commit(ctx, recs[0]))

	// saved locally, never reached the remote
	remote.uploadErr = errors.New("drive down")
	require.NoError(t, m.Commit(ctx, recs[1]))
	remote.uploadErr = nil

	m2 := NewMirror(path, remote)
	j, err := m2.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, recs[:2], j.Records())
	assert.True(t, j.Contains(recs[1].Tag))

	onDisk, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, onDisk.Len())

	// the remote copy caught up
	var uploaded []types.TradeRecord
	require.NoError(t, json.Unmarshal(remote.content, &uploaded))
	assert.Equal(t, recs[:2], uploaded)

	_, err = os.Stat(path + ".remote")
	assert.True(t, os.IsNotExist(err))
}

func TestMirrorAdoptsLongerRemote(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	recs := sampleRecords()

	ahead := New(filepath.Join(dir, "ahead.json"))
	for _, r := range recs {
		require.NoError(t, ahead.Add(r))
	}
	require.NoError(t, ahead.Save())
	content, err := os.ReadFile(ahead.Path())
	require.NoError(t, err)

	path := filepath.Join(dir, "berth_memory.json")
	local := New(path)
	require.NoError(t, local.Add(recs[0]))
	require.NoError(t, local.Save())

	remote := &fakeRemote{content: content}
	j, err := NewMirror(path, remote).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, recs, j.Records())
	assert.Equal(t, 0, remote.uploads)
}

func TestMirrorDivergedKeepsLocal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	recs := sampleRecords()

	other := New(filepath.Join(dir, "other.json"))
	require.NoError(t, other.Add(recs[1]))
	require.NoError(t, other.Save())
	content, err := os.ReadFile(other.Path())
	require.NoError(t, err)

	path := filepath.Join(dir, "berth_memory.json")
	local := New(path)
	require.NoError(t, local.Add(recs[0]))
	require.NoError(t, local.Save())

	remote := &fakeRemote{content: content}
	j, err := NewMirror(path, remote).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, recs[:1], j.Records())
	assert.Equal(t, 0, remote.uploads)
	assert.Equal(t, content, remote.content)
}

func TestMirrorReplacesCorruptLocal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	recs := sampleRecords()

	good := New(filepath.Join(dir, "good.json"))
	require.NoError(t, good.Add(recs[0]))
	require.NoError(t, good.Save())
	content, err := os.ReadFile(good.Path())
	require.NoError(t, err)

	path := filepath.Join(dir, "berth_memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	j, err := NewMirror(path, &fakeRemote{content: content}).Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, recs[:1], j.Records())

	// without a remote copy there is nothing to recover from
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = NewMirror(path, &fakeRemote{}).Restore(ctx)
	assert.ErrorIs(t, err, types.ErrPersistence)
}

func TestMirrorSaveFailureSkipsUpload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "berth_memory.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	remote := &fakeRemote{}
	m := NewMirror(path, remote)
	err := m.Commit(ctx, sampleRecords()[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrPersistence))
	assert.Equal(t, 0, remote.uploads)
}

func TestExportSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	recs := sampleRecords()
	require.NoError(t, ExportSQLite(path, recs))
	require.NoError(t, ExportSQLite(path, recs))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&n))
	assert.Equal(t, len(recs), n)

	var dir string
	var lot float64
	require.NoError(t, db.QueryRow(`SELECT direction, lot FROM trades WHERE seq = 2`).Scan(&dir, &lot))
	assert.Equal(t, "sell", dir)
	assert.InDelta(t, 1.37, lot, 1e-9)
}
