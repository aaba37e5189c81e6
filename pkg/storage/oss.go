package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/pyqhub/papers-api/pkg/config"
)

// OSSStorage uploads blobs to an Aliyun OSS bucket and serves them back
// through stable public URLs.
type OSSStorage struct {
	bucket     *oss.Bucket
	endpoint   string
	bucketName string
	folder     string
}

// NewOSSStorage dials the configured bucket. Callers should only invoke it
// when cfg.Enabled() reports true.
func NewOSSStorage(cfg config.OSSConfig) (*OSSStorage, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("oss credentials incomplete")
	}

	client, err := oss.New(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("oss client: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss bucket %s: %w", cfg.Bucket, err)
	}

	return &OSSStorage{
		bucket:     bucket,
		endpoint:   strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://"),
		bucketName: cfg.Bucket,
		folder:     strings.Trim(cfg.Folder, "/"),
	}, nil
}

// Upload stores the reader under the namespaced key and returns the public URL.
func (s *OSSStorage) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := s.objectKey(filename)
	if err := s.bucket.PutObject(key, r); err != nil {
		return "", fmt.Errorf("oss put %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// Delete removes the object referenced by a public URL previously returned
// by Upload. Unknown URLs are ignored.
func (s *OSSStorage) Delete(ctx context.Context, publicURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, ok := s.keyFromURL(publicURL)
	if !ok {
		return nil
	}
	if err := s.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("oss delete %s: %w", key, err)
	}
	return nil
}

// PublicURL composes the virtual-host style URL for an object key.
func (s *OSSStorage) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", s.bucketName, s.endpoint, key)
}

func (s *OSSStorage) objectKey(filename string) string {
	if s.folder == "" {
		return filename
	}
	return s.folder + "/" + filename
}

func (s *OSSStorage) keyFromURL(publicURL string) (string, bool) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(u.Host, s.bucketName+".") {
		return "", false
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", false
	}
	return key, true
}
