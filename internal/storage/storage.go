package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"visittrack/internal/config"
)

// Object is a read-back handle plus the metadata the upload proxy passes
// through to the client.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	LastModified  time.Time
	ETag          string
}

// ObjectStore is the slice of an object store this service needs: presigned
// PUT URLs for direct client uploads and streamed reads for the proxy.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType, acl string, validity time.Duration) (string, error)
	Get(ctx context.Context, key string) (*Object, error)
	Provider() string
}

// New builds the configured store. A nil store (no error) means uploads are
// not configured; handlers answer 400 in that case.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("storage: AWS_S3_BUCKET is required for provider s3")
		}
		return newS3Store(ctx, cfg.S3Bucket, cfg.S3Region)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("storage: GOOGLE_CLOUD_STORAGE_BUCKET is required for provider gcs")
		}
		return newGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentials)
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}
