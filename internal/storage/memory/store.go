package memory

import (
	"context" // request-scoped context, unused by the in-memory store
	"sync"    // guards the documents map

	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
)

// MemoryDocumentStore is an in-memory implementation of interfaces.DocumentStore.
// It keeps one document per key and is safe for concurrent use.
type MemoryDocumentStore struct {
	mu        sync.Mutex        // protects documents
	documents map[string][]byte // key -> serialised document
}

// NewMemoryDocumentStore creates an empty MemoryDocumentStore
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		documents: make(map[string][]byte),
	}
}

// Get returns a copy of the document stored under key.
func (m *MemoryDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {

	m.mu.Lock()         // lock to prevent concurrent modification while reading
	defer m.mu.Unlock() // unlock automatically at the end

	doc, ok := m.documents[key]
	if !ok {
		return nil, interfaces.ErrDocumentNotFound
	}
	// return a copy so callers can't modify the stored bytes
	copied := make([]byte, len(doc))
	copy(copied, doc)
	return copied, nil
}

// Set replaces the document stored under key.
func (m *MemoryDocumentStore) Set(ctx context.Context, key string, value []byte) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(value))
	copy(copied, value)
	m.documents[key] = copied
	return nil // always succeeds in memory
}

// Compile-time check: ensure MemoryDocumentStore implements DocumentStore interface
var _ interfaces.DocumentStore = (*MemoryDocumentStore)(nil)
