package docupdate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/docintel/internal/config"
	"github.com/turtacn/docintel/pkg/errors"
)

// minioAPI abstracts the subset of *minio.Client the archiver needs, so
// tests can substitute a fake without a live object store.
type minioAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinIOArchiver stores every applied diff as an object keyed by root and a
// fresh UUID, preserving a full-fidelity copy independent of the on-disk
// document state (which a later update can overwrite).
type MinIOArchiver struct {
	client minioAPI
	bucket string
}

// NewMinIOArchiver connects to the MinIO endpoint in cfg and ensures the
// target bucket exists.
func NewMinIOArchiver(ctx context.Context, cfg config.MinIOConfig) (*MinIOArchiver, error) {
	if cfg.Endpoint == "" {
		return nil, errors.ConfigError("docupdate: minio.endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.ConfigError("docupdate: minio.bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "docupdate: failed to create minio client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorageError, "docupdate: failed to check bucket existence")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, errors.CodeStorageError, "docupdate: failed to create archive bucket")
		}
	}

	return &MinIOArchiver{client: client, bucket: cfg.Bucket}, nil
}

// Archive implements Archiver, storing diff under a key derived from root
// and a fresh UUID so repeated archives of the same path never collide.
func (a *MinIOArchiver) Archive(ctx context.Context, root, path, diff string) (string, error) {
	objectKey := fmt.Sprintf("%s/%s-%s.diff", sanitizeRoot(root), time.Now().UTC().Format("20060102T150405"), uuid.New().String())

	reader := bytes.NewReader([]byte(diff))
	if _, err := a.client.PutObject(ctx, a.bucket, objectKey, reader, int64(len(diff)), minio.PutObjectOptions{ContentType: "text/markdown"}); err != nil {
		return "", errors.Wrap(err, errors.CodeStorageError, "docupdate: failed to archive diff")
	}
	return objectKey, nil
}

func sanitizeRoot(root string) string {
	out := make([]byte, 0, len(root))
	for i := 0; i < len(root); i++ {
		c := root[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "root"
	}
	return string(out)
}
