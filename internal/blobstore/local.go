package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dharsanguruparan/PrintReady/internal/model"
)

// LocalStore maps bucket/path onto root/bucket/path on disk.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (l *LocalStore) file(ref model.StorageReference) (string, error) {
	rel := filepath.FromSlash(ref.Bucket + "/" + ref.Path)
	p := filepath.Join(l.root, rel)
	if !strings.HasPrefix(p, filepath.Clean(l.root)+string(filepath.Separator)) {
		return "", fmt.Errorf("object %s/%s escapes the storage root", ref.Bucket, ref.Path)
	}
	return p, nil
}

// Download implements Store.
func (l *LocalStore) Download(_ context.Context, ref model.StorageReference) ([]byte, error) {
	p, err := l.file(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// Upload implements Store. The file is replaced through a rename so readers
// never observe a partial write.
func (l *LocalStore) Upload(_ context.Context, ref model.StorageReference, data []byte, _ string) error {
	p, err := l.file(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(p), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", p, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replace %s: %w", p, err)
	}
	return nil
}

// Delete implements Store.
func (l *LocalStore) Delete(_ context.Context, ref model.StorageReference) error {
	p, err := l.file(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// Scheme implements Store.
func (l *LocalStore) Scheme() string { return "file" }
