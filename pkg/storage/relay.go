package storage

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// RemoteStore is the capability the relay needs from a remote backend.
type RemoteStore interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, publicURL string) error
}

// Relay mirrors locally stored uploads to a remote store when one is
// configured. Remote failures are logged and swallowed; the caller keeps
// the local URL. One attempt per file, no retries.
type Relay struct {
	local  *LocalStorage
	remote RemoteStore
	logger *zap.Logger
}

// NewRelay wraps the local store. remote may be nil, which leaves the
// relay inactive and every publish a no-op.
func NewRelay(local *LocalStorage, remote RemoteStore, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{local: local, remote: remote, logger: logger}
}

// Active reports whether a remote backend is configured.
func (r *Relay) Active() bool {
	return r.remote != nil
}

// Publish attempts to move the named local file to the remote store.
// Returns the URL the paper record should keep: the remote URL on success,
// localURL otherwise. When a remote is configured the local temp copy is
// deleted after the attempt regardless of outcome.
func (r *Relay) Publish(ctx context.Context, filename, localURL string) string {
	if r.remote == nil {
		return localURL
	}

	defer func() {
		if err := r.local.Delete(filename); err != nil {
			r.logger.Warn("relay: local temp cleanup failed", zap.String("file", filename), zap.Error(err))
		}
	}()

	file, err := r.local.Open(filename)
	if err != nil {
		r.logger.Warn("relay: open local file failed", zap.String("file", filename), zap.Error(err))
		return localURL
	}
	defer file.Close() //nolint:errcheck

	remoteURL, err := r.remote.Upload(ctx, filename, file)
	if err != nil {
		r.logger.Warn("relay: remote upload failed", zap.String("file", filename), zap.Error(err))
		return localURL
	}

	return remoteURL
}

// Discard removes the blob behind a paper's file URL, wherever it lives.
// Best effort only; failures are logged and swallowed.
func (r *Relay) Discard(ctx context.Context, fileURL, filename string) {
	if r.remote != nil {
		if err := r.remote.Delete(ctx, fileURL); err != nil {
			r.logger.Warn("relay: remote delete failed", zap.String("url", fileURL), zap.Error(err))
		}
	}
	if err := r.local.Delete(filename); err != nil {
		r.logger.Warn("relay: local delete failed", zap.String("file", filename), zap.Error(err))
	}
}
