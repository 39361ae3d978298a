package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"

	"github.com/dharsanguruparan/PrintReady/internal/model"
)

// GCSStore talks to Google Cloud Storage through the JSON API.
type GCSStore struct {
	svc *gcs.Service
}

// NewGCSStore authenticates with credentialsFile, or with application
// default credentials when it is empty.
func NewGCSStore(ctx context.Context, credentialsFile string) (*GCSStore, error) {
	var opt option.ClientOption
	if credentialsFile != "" {
		opt = option.WithCredentialsFile(credentialsFile)
	} else {
		ts, err := google.DefaultTokenSource(ctx, gcs.DevstorageReadWriteScope)
		if err != nil {
			return nil, fmt.Errorf("gcs default credentials: %w", err)
		}
		opt = option.WithTokenSource(ts)
	}
	svc, err := gcs.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("init gcs: %w", err)
	}
	return &GCSStore{svc: svc}, nil
}

// NewGCSStoreWithService wraps an existing service, e.g. one pointed at an
// emulator with option.WithEndpoint.
func NewGCSStoreWithService(svc *gcs.Service) *GCSStore {
	return &GCSStore{svc: svc}
}

// Download implements Store.
func (g *GCSStore) Download(ctx context.Context, ref model.StorageReference) ([]byte, error) {
	resp, err := g.svc.Objects.Get(ref.Bucket, ref.Path).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, notFound(ref)
		}
		return nil, fmt.Errorf("download %s/%s: %w", ref.Bucket, ref.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", ref.Bucket, ref.Path, err)
	}
	return data, nil
}

// Upload implements Store.
func (g *GCSStore) Upload(ctx context.Context, ref model.StorageReference, data []byte, contentType string) error {
	obj := &gcs.Object{Name: ref.Path, ContentType: contentType}
	_, err := g.svc.Objects.Insert(ref.Bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", ref.Bucket, ref.Path, err)
	}
	return nil
}

// Delete implements Store.
func (g *GCSStore) Delete(ctx context.Context, ref model.StorageReference) error {
	err := g.svc.Objects.Delete(ref.Bucket, ref.Path).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("delete %s/%s: %w", ref.Bucket, ref.Path, err)
	}
	return nil
}

// Scheme implements Store.
func (g *GCSStore) Scheme() string { return "gs" }
