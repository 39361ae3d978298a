// Package blobstore reads and writes binary objects addressed by
// (bucket, path). Backends: MinIO/S3, Google Cloud Storage, a local
// directory tree and memory.
package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dharsanguruparan/PrintReady/internal/config"
	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/model"
)

// Store is the blob storage role the render pipeline consumes.
type Store interface {
	// Download returns the object content. A missing object is a NotFound error.
	Download(ctx context.Context, ref model.StorageReference) ([]byte, error)
	// Upload creates or replaces the object.
	Upload(ctx context.Context, ref model.StorageReference, data []byte, contentType string) error
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, ref model.StorageReference) error
	// Scheme is the URI scheme used when reporting object locations.
	Scheme() string
}

// Presigner is implemented by backends that can hand out time-limited
// download URLs.
type Presigner interface {
	Presign(ctx context.Context, ref model.StorageReference, ttl time.Duration) (string, error)
}

// New builds the backend named by cfg.StorageBackend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "s3":
		return NewS3Store(cfg)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCSCredentialsFile)
	case "local":
		return NewLocalStore(cfg.LocalRoot), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// URL renders ref in the store's scheme.
func URL(s Store, ref model.StorageReference) string {
	return ref.URI(s.Scheme())
}

func notFound(ref model.StorageReference) error {
	return rerrors.NotFound("object", ref.Bucket+"/"+ref.Path)
}
