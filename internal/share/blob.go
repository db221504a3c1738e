package share

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fpang/photobooth/internal/s3util"
)

// BlobStore holds share image bytes by key. Get returns ErrNotFound for a
// missing key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Backend() string
}

// Linker is implemented by blob stores that can hand out a time-limited
// direct URL for a key. ok is false when direct links are not enabled.
type Linker interface {
	Link(ctx context.Context, key string) (url string, ok bool, err error)
}

// FileBlobs stores blobs as files under a directory.
type FileBlobs struct {
	mu  sync.RWMutex
	dir string
}

// NewFileBlobs returns a blob store rooted at dir, creating it if needed.
func NewFileBlobs(dir string) (*FileBlobs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create share dir: %w", err)
	}
	return &FileBlobs{dir: dir}, nil
}

func (b *FileBlobs) Backend() string { return "file" }

func (b *FileBlobs) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(b.dir, clean), nil
}

func (b *FileBlobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := b.path(key)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (b *FileBlobs) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	p, err := b.path(key)
	if err != nil {
		return nil, "", ErrNotFound
	}
	b.mu.RLock()
	data, err := os.ReadFile(p)
	b.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", key, err)
	}
	return data, "image/png", nil
}

// S3Blobs stores blobs as objects in one bucket.
type S3Blobs struct {
	client   s3util.ObjectAPI
	bucket   string
	maxBytes int64

	presign s3util.PresignAPI
	linkTTL time.Duration
}

var _ Linker = (*S3Blobs)(nil)

// NewS3Blobs returns a blob store writing to bucket. Reads larger than
// maxBytes fail.
func NewS3Blobs(client s3util.ObjectAPI, bucket string, maxBytes int64) *S3Blobs {
	return &S3Blobs{client: client, bucket: bucket, maxBytes: maxBytes}
}

// WithPresign enables direct links valid for ttl.
func (b *S3Blobs) WithPresign(p s3util.PresignAPI, ttl time.Duration) *S3Blobs {
	b.presign = p
	b.linkTTL = ttl
	return b
}

func (b *S3Blobs) Backend() string { return "s3" }

// Bucket returns the bucket name.
func (b *S3Blobs) Bucket() string { return b.bucket }

func (b *S3Blobs) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return s3util.PutBytes(ctx, b.client, b.bucket, key, data, contentType)
}

func (b *S3Blobs) Get(ctx context.Context, key string) ([]byte, string, error) {
	data, ct, err := s3util.GetBytes(ctx, b.client, b.bucket, key, b.maxBytes)
	if errors.Is(err, s3util.ErrObjectNotFound) {
		return nil, "", ErrNotFound
	}
	return data, ct, err
}

// Link returns a presigned GET URL for key.
func (b *S3Blobs) Link(ctx context.Context, key string) (string, bool, error) {
	if b.presign == nil {
		return "", false, nil
	}
	url, err := s3util.GeneratePresignedURL(ctx, b.presign, b.bucket, key, b.linkTTL)
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}
