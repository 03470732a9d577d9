package remote

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/types"
)

// Dir mirrors the journal into a directory, typically a mounted volume or
// a synced folder.
type Dir struct {
	dir  string
	name string
}

var _ interfaces.RemoteStore = (*Dir)(nil)

func NewDir(dir, name string) *Dir {
	return &Dir{dir: dir, name: name}
}

func (d *Dir) path() string { return filepath.Join(d.dir, d.name) }

func (d *Dir) Upload(ctx context.Context, localPath string) error {
	b, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	return replaceFile(d.path(), b)
}

func (d *Dir) Download(ctx context.Context, localPath string) error {
	b, err := os.ReadFile(d.path())
	if errors.Is(err, fs.ErrNotExist) {
		return types.ErrNoRemoteCopy
	}
	if err != nil {
		return err
	}
	return replaceFile(localPath, b)
}
