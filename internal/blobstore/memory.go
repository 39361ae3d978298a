package blobstore

import (
	"context"
	"sync"

	"github.com/dharsanguruparan/PrintReady/internal/model"
)

// Object is a stored blob and its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps objects in a map guarded by an RWMutex. It reports
// locations with the gs scheme.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[model.StorageReference]Object
	// uploads counts Upload calls, including overwrites.
	uploads int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[model.StorageReference]Object)}
}

// Put seeds an object.
func (m *MemoryStore) Put(ref model.StorageReference, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref] = Object{Data: append([]byte(nil), data...)}
}

// Download implements Store.
func (m *MemoryStore) Download(_ context.Context, ref model.StorageReference) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[ref]
	if !ok {
		return nil, notFound(ref)
	}
	// Callers get their own copy so they cannot mutate stored content.
	return append([]byte(nil), obj.Data...), nil
}

// Upload implements Store.
func (m *MemoryStore) Upload(_ context.Context, ref model.StorageReference, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	m.uploads++
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, ref model.StorageReference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

// Scheme implements Store.
func (m *MemoryStore) Scheme() string { return "gs" }

// Object returns a stored object.
func (m *MemoryStore) Object(ref model.StorageReference) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[ref]
	return obj, ok
}

// Refs lists the stored references in bucket.
func (m *MemoryStore) Refs(bucket string) []model.StorageReference {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.StorageReference
	for ref := range m.objects {
		if ref.Bucket == bucket {
			out = append(out, ref)
		}
	}
	return out
}

// Uploads reports how many uploads the store has received.
func (m *MemoryStore) Uploads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads
}
