package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRemote struct {
	uploadURL string
	uploadErr error
	uploaded  []string
	deleted   []string
	deleteErr error
}

func (f *fakeRemote) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.uploaded = append(f.uploaded, filename)
	return f.uploadURL, nil
}

func (f *fakeRemote) Delete(ctx context.Context, publicURL string) error {
	f.deleted = append(f.deleted, publicURL)
	return f.deleteErr
}

func newRelayFixture(t *testing.T, remote RemoteStore) (*Relay, *LocalStorage) {
	t.Helper()
	local, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewRelay(local, remote, zap.NewNop()), local
}

func TestRelayInactivePassesLocalURLThrough(t *testing.T) {
	relay, local := newRelayFixture(t, nil)
	_, err := local.SaveStream("doc.pdf", bytes.NewReader([]byte("%PDF")))
	require.NoError(t, err)

	url := relay.Publish(context.Background(), "doc.pdf", "/uploads/doc.pdf")
	assert.Equal(t, "/uploads/doc.pdf", url)
	assert.False(t, relay.Active())

	// local file remains the primary copy
	_, statErr := os.Stat(local.Path("doc.pdf"))
	assert.NoError(t, statErr)
}

func TestRelayPublishMovesToRemote(t *testing.T) {
	remote := &fakeRemote{uploadURL: "https://bucket.example.com/papers/doc.pdf"}
	relay, local := newRelayFixture(t, remote)
	_, err := local.SaveStream("doc.pdf", bytes.NewReader([]byte("%PDF")))
	require.NoError(t, err)

	url := relay.Publish(context.Background(), "doc.pdf", "/uploads/doc.pdf")
	assert.Equal(t, "https://bucket.example.com/papers/doc.pdf", url)
	assert.Equal(t, []string{"doc.pdf"}, remote.uploaded)
	assert.True(t, relay.Active())

	_, statErr := os.Stat(local.Path("doc.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRelayPublishFailureKeepsLocalURLButCleansTemp(t *testing.T) {
	remote := &fakeRemote{uploadErr: errors.New("bucket unreachable")}
	relay, local := newRelayFixture(t, remote)
	_, err := local.SaveStream("doc.pdf", bytes.NewReader([]byte("%PDF")))
	require.NoError(t, err)

	url := relay.Publish(context.Background(), "doc.pdf", "/uploads/doc.pdf")
	assert.Equal(t, "/uploads/doc.pdf", url)

	_, statErr := os.Stat(local.Path("doc.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRelayDiscardBestEffort(t *testing.T) {
	remote := &fakeRemote{deleteErr: errors.New("permission denied")}
	relay, local := newRelayFixture(t, remote)
	_, err := local.SaveStream("doc.pdf", bytes.NewReader([]byte("%PDF")))
	require.NoError(t, err)

	relay.Discard(context.Background(), "https://bucket.example.com/papers/doc.pdf", "doc.pdf")
	assert.Equal(t, []string{"https://bucket.example.com/papers/doc.pdf"}, remote.deleted)

	_, statErr := os.Stat(local.Path("doc.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}
