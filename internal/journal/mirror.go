package journal

import (
	"context"
	"errors"
	"fmt"
	"os"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/logger"
	"vixfix-trading-bot/internal/types"
)

// Mirror pairs the local journal with a remote copy. Local storage is
// authoritative: remote failures are logged and never returned.
type Mirror struct {
	path    string
	remote  interfaces.RemoteStore
	journal *Journal
}

func NewMirror(path string, remote interfaces.RemoteStore) *Mirror {
	return &Mirror{path: path, remote: remote}
}

// Restore reconciles the local snapshot with the remote copy, then loads it.
// The remote copy only replaces the local file when the local file is
// missing or unreadable, or when local is a strict prefix of remote. A local
// snapshot ahead of the remote one is uploaded again.
func (m *Mirror) Restore(ctx context.Context) (*Journal, error) {
	local, localErr := Load(m.path)
	if m.remote == nil {
		return m.adopt(ctx, local, localErr)
	}

	tmp := m.path + ".remote"
	defer os.Remove(tmp)

	err := m.remote.Download(ctx, tmp)
	switch {
	case errors.Is(err, types.ErrNoRemoteCopy):
		logger.Warn(ctx, "No remote journal found, using local state", "path", m.path)
		if localErr == nil && local.Len() > 0 {
			m.upload(ctx)
		}
		return m.adopt(ctx, local, localErr)
	case err != nil:
		logger.ErrorWithErr(ctx, "Remote journal fetch failed, using local state", err, "path", m.path)
		return m.adopt(ctx, local, localErr)
	}

	remote, err := Load(tmp)
	if err != nil {
		logger.ErrorWithErr(ctx, "Remote journal unreadable, using local state", err, "path", m.path)
		return m.adopt(ctx, local, localErr)
	}

	lr, rr := []types.TradeRecord(nil), remote.Records()
	if localErr == nil {
		lr = local.Records()
	}
	switch {
	case localErr != nil || (len(rr) > len(lr) && isPrefix(lr, rr)):
		if err := os.Rename(tmp, m.path); err != nil {
			return nil, fmt.Errorf("%w: restore journal: %v", types.ErrPersistence, err)
		}
		logger.Info(ctx, "Journal restored from remote", "path", m.path, "trades", len(rr))
		j, err := Load(m.path)
		return m.adopt(ctx, j, err)
	case len(lr) > len(rr) && isPrefix(rr, lr):
		logger.Warn(ctx, "Remote journal is behind local, uploading", "path", m.path,
			"local_trades", len(lr), "remote_trades", len(rr))
		m.upload(ctx)
	case !isPrefix(lr, rr):
		logger.Error(ctx, "Local and remote journals diverge, keeping local and leaving remote untouched",
			"path", m.path, "local_trades", len(lr), "remote_trades", len(rr))
	}
	return m.adopt(ctx, local, nil)
}

func (m *Mirror) adopt(ctx context.Context, j *Journal, err error) (*Journal, error) {
	if err != nil {
		return nil, err
	}
	m.journal = j
	logger.Info(ctx, "Journal loaded", "path", m.path, "trades", j.Len())
	return j, nil
}

func (m *Mirror) upload(ctx context.Context) {
	if err := m.remote.Upload(ctx, m.path); err != nil {
		logger.ErrorWithErr(ctx, "Remote journal upload failed", err, "path", m.path)
		return
	}
	logger.Info(ctx, "Journal mirrored to remote", "path", m.path)
}

// isPrefix reports whether a is a prefix of b.
func isPrefix(a, b []types.TradeRecord) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *Mirror) Journal() *Journal {
	if m.journal == nil {
		m.journal = New(m.path)
	}
	return m.journal
}

// Commit appends rec, saves, and uploads. The upload only happens after a
// successful save; a save failure is returned wrapped in ErrPersistence.
func (m *Mirror) Commit(ctx context.Context, rec types.TradeRecord) error {
	j := m.Journal()
	if err := j.Add(rec); err != nil {
		return err
	}
	if err := j.Save(); err != nil {
		return err
	}
	logger.Info(ctx, "Journal saved", "path", m.path, "trades", j.Len())

	if m.remote == nil {
		return nil
	}
	m.upload(ctx)
	return nil
}
