package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"

	"retail-sim/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// File is one object of a season export.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Archiver exports finished seasons to durable storage.
type Archiver interface {
	Export(ctx context.Context, sessionID string, files []File) ([]string, error)
}

// New returns the object-storage archiver when configured, else a no-op.
func New(ctx context.Context, cfg config.ArchiveConfig) (Archiver, error) {
	if !cfg.Enabled() {
		return Noop{}, nil
	}
	return NewMinioArchiver(ctx, cfg)
}

type Noop struct{}

func (Noop) Export(ctx context.Context, sessionID string, files []File) ([]string, error) {
	return nil, nil
}

// MinioArchiver writes to any S3-compatible bucket under seasons/<session>/.
type MinioArchiver struct {
	client *minio.Client
	bucket string
}

func NewMinioArchiver(ctx context.Context, cfg config.ArchiveConfig) (*MinioArchiver, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("archive credentials must be provided")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create archive client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinioArchiver{client: client, bucket: cfg.Bucket}, nil
}

func (a *MinioArchiver) Export(ctx context.Context, sessionID string, files []File) ([]string, error) {
	keys := ObjectKeys(sessionID, files)
	for i, f := range files {
		_, err := a.client.PutObject(ctx, a.bucket, keys[i], bytes.NewReader(f.Data), int64(len(f.Data)),
			minio.PutObjectOptions{ContentType: f.ContentType})
		if err != nil {
			return nil, fmt.Errorf("archive upload %s failed: %w", keys[i], err)
		}
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return sorted, nil
}

// ObjectKeys maps each file to its object key, in input order.
func ObjectKeys(sessionID string, files []File) []string {
	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = path.Join("seasons", sessionID, path.Base(f.Name))
	}
	return keys
}

var _ Archiver = (*MinioArchiver)(nil)
