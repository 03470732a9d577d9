package remote

import (
	"context"
	"os"
	"path/filepath"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/types"
)

// Noop keeps no remote copy.
type Noop struct{}

var _ interfaces.RemoteStore = Noop{}

func (Noop) Upload(ctx context.Context, localPath string) error   { return nil }
func (Noop) Download(ctx context.Context, localPath string) error { return types.ErrNoRemoteCopy }

// replaceFile swaps data in at path via a sibling temp file, so a failed
// download never truncates the local journal.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".remote-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
