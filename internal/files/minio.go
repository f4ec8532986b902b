package files

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"studiohub/internal/config"
)

// MinioStore backs BlobStore with a MinIO/S3 bucket. Objects live under a
// per-project prefix: <scope>/<key>.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the configured endpoint and ensures the bucket
// exists.
func NewMinioStore(ctx context.Context, cfg config.Storage) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func objectName(scope, key string) string {
	return scope + "/" + key
}

func (m *MinioStore) Upload(ctx context.Context, scope, key string, r io.Reader, size int64, contentType string) (BlobRef, error) {
	info, err := m.client.PutObject(ctx, m.bucket, objectName(scope, key), r, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return BlobRef{}, err
	}
	return BlobRef{
		Key:  key,
		Size: info.Size,
		URL:  fmt.Sprintf("s3://%s/%s", m.bucket, objectName(scope, key)),
	}, nil
}

func (m *MinioStore) Download(ctx context.Context, scope, key string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName(scope, key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; surface missing objects here instead of at first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

func (m *MinioStore) Delete(ctx context.Context, scope, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, objectName(scope, key), minio.RemoveObjectOptions{})
}

func (m *MinioStore) List(ctx context.Context, scope string) ([]BlobRef, error) {
	var refs []BlobRef
	prefix := scope + "/"
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		refs = append(refs, BlobRef{
			Key:  obj.Key[len(prefix):],
			Size: obj.Size,
			URL:  fmt.Sprintf("s3://%s/%s", m.bucket, obj.Key),
		})
	}
	return refs, nil
}
