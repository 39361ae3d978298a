package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/PrintReady/internal/config"
	"github.com/dharsanguruparan/PrintReady/internal/model"
)

// S3Store wraps MinIO/S3 interactions for source assets and artifacts.
type S3Store struct {
	client *minio.Client
	region string
}

// NewS3Store creates a MinIO client from the Config.
func NewS3Store(cfg *config.Config) (*S3Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &S3Store{client: client, region: cfg.S3Region}, nil
}

// EnsureBuckets makes sure the given buckets exist before use.
func (s *S3Store) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		if bucket == "" {
			continue
		}
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// Download implements Store.
func (s *S3Store) Download(ctx context.Context, ref model.StorageReference) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, ref.Bucket, ref.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.classify(ref, err)
	}
	defer obj.Close()
	// GetObject is lazy; a missing key only surfaces on the first read.
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.classify(ref, err)
	}
	return buf, nil
}

// Upload implements Store.
func (s *S3Store) Upload(ctx context.Context, ref model.StorageReference, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := s.client.PutObject(ctx, ref.Bucket, ref.Path, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", ref.Bucket, ref.Path, err)
	}
	return nil
}

// Delete implements Store. S3 reports success for a missing key.
func (s *S3Store) Delete(ctx context.Context, ref model.StorageReference) error {
	if err := s.client.RemoveObject(ctx, ref.Bucket, ref.Path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", ref.Bucket, ref.Path, err)
	}
	return nil
}

// Scheme implements Store.
func (s *S3Store) Scheme() string { return "s3" }

// Presign returns a signed GET URL for an artifact.
func (s *S3Store) Presign(ctx context.Context, ref model.StorageReference, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, ref.Bucket, ref.Path, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", ref.Bucket, ref.Path, err)
	}
	return u.String(), nil
}

func (s *S3Store) classify(ref model.StorageReference, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return notFound(ref)
	}
	return fmt.Errorf("download %s/%s: %w", ref.Bucket, ref.Path, err)
}
