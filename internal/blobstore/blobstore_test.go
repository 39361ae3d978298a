package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dharsanguruparan/PrintReady/internal/config"
	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
	"github.com/dharsanguruparan/PrintReady/internal/model"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	ref := model.StorageReference{Bucket: "prints", Path: "prints/o1/li1/print-ready.tif"}

	if _, err := s.Download(ctx, ref); !rerrors.IsNotFound(err) {
		t.Fatalf("missing object: expected not found, got %v", err)
	}
	if err := s.Upload(ctx, ref, []byte("first"), "image/tiff"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := s.Upload(ctx, ref, []byte("second"), "image/tiff"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Download(ctx, ref)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("last write should win, got %q", got)
	}
}

func exerciseDelete(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	ref := model.StorageReference{Bucket: "prints", Path: "prints/o2/li1/print-ready.pdf"}

	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("deleting a missing object: %v", err)
	}
	if err := s.Upload(ctx, ref, []byte("%PDF"), "application/pdf"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Download(ctx, ref); !rerrors.IsNotFound(err) {
		t.Fatalf("deleted object: expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore()
		exerciseDelete(t, s)
		if refs := s.Refs("prints"); len(refs) != 0 {
			t.Fatalf("refs after delete: %v", refs)
		}
	})
	t.Run("local", func(t *testing.T) {
		exerciseDelete(t, NewLocalStore(t.TempDir()))
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exercise(t, s)
	if s.Uploads() != 2 || len(s.Refs("prints")) != 1 {
		t.Fatalf("uploads=%d refs=%v", s.Uploads(), s.Refs("prints"))
	}
	obj, ok := s.Object(model.StorageReference{Bucket: "prints", Path: "prints/o1/li1/print-ready.tif"})
	if !ok || obj.ContentType != "image/tiff" {
		t.Fatalf("object: %+v %v", obj, ok)
	}
	if got := URL(s, model.StorageReference{Bucket: "b", Path: "p.tif"}); got != "gs://b/p.tif" {
		t.Fatalf("url = %s", got)
	}
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStore(root)
	exercise(t, s)
	if _, err := os.Stat(filepath.Join(root, "prints", "prints", "o1", "li1", "print-ready.tif")); err != nil {
		t.Fatalf("file not at expected location: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(root, "prints", "prints", "o1", "li1"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("staging files left behind: %v %v", entries, err)
	}
	if err := s.Upload(context.Background(), model.StorageReference{Bucket: "..", Path: "../escape"}, nil, ""); err == nil {
		t.Fatal("expected escape to be rejected")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.StorageBackend = "local"
	cfg.LocalRoot = t.TempDir()
	s, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if s.Scheme() != "file" {
		t.Fatalf("scheme = %s", s.Scheme())
	}

	cfg.StorageBackend = "s3"
	s, err = New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("minio client construction should not dial: %v", err)
	}
	if s.Scheme() != "s3" {
		t.Fatalf("scheme = %s", s.Scheme())
	}

	cfg.StorageBackend = "ftp"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected unknown backend error")
	}
}
