package interfaces

import "context"

// RemoteStore mirrors a single local file under a fixed logical name.
type RemoteStore interface {
	Upload(ctx context.Context, localPath string) error
	// Download overwrites localPath with the remote copy. Returns
	// types.ErrNoRemoteCopy if nothing has been uploaded yet.
	Download(ctx context.Context, localPath string) error
}
