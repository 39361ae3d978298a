package repository

import (
	"context"
	"sync"

	rerrors "github.com/dharsanguruparan/PrintReady/internal/errors"
)

type docKey struct {
	collection string
	id         string
}

// MemoryStore provides an in-memory document store using RWMutex, so
// concurrent readers do not block each other.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[docKey]map[string]any
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[docKey]map[string]any)}
}

// Put replaces a document outright; used to seed fixtures.
func (m *MemoryStore) Put(collection, id string, doc map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[docKey{collection, id}] = deepCopy(doc)
}

// Get implements Store and returns a deep copy.
func (m *MemoryStore) Get(_ context.Context, collection, id string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[docKey{collection, id}]
	if !ok {
		return nil, rerrors.NotFound(collection, id)
	}
	return deepCopy(doc), nil
}

// Merge implements Store.
func (m *MemoryStore) Merge(_ context.Context, collection, id string, partial map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := docKey{collection, id}
	m.docs[key] = DeepMerge(m.docs[key], deepCopy(partial))
	return nil
}
