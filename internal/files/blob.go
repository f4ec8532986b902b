package files

import (
	"context"
	"io"
)

// BlobRef describes a stored blob as the collaborator reports it.
type BlobRef struct {
	Key  string
	Size int64
	URL  string
}

// BlobStore is the external blob-storage collaborator. Calls are scoped by
// an opaque project namespace; the blob itself is owned by the collaborator,
// the coordinator only keeps the local index.
type BlobStore interface {
	Upload(ctx context.Context, scope, key string, r io.Reader, size int64, contentType string) (BlobRef, error)
	Download(ctx context.Context, scope, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, scope, key string) error
	List(ctx context.Context, scope string) ([]BlobRef, error)
}
