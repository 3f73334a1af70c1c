package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhle/pubky-agent/internal/homeserver"
)

// MemoryObjectStore is an in-memory homeserver.Store for tests. Missing
// objects return homeserver.ErrNotFound like the real client; GetErr and
// PutErr simulate transport failures.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	GetErr error
	PutErr error

	// Puts records every written URI in order.
	Puts []string
}

// NewMemoryObjectStore creates an empty store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: make(map[string][]byte),
	}
}

// Get returns the stored bytes at uri.
func (m *MemoryObjectStore) Get(ctx context.Context, uri string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	body, ok := m.objects[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", homeserver.ErrNotFound, uri)
	}
	return append([]byte(nil), body...), nil
}

// Put stores body at uri.
func (m *MemoryObjectStore) Put(ctx context.Context, uri string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PutErr != nil {
		return m.PutErr
	}
	m.objects[uri] = append([]byte(nil), body...)
	m.Puts = append(m.Puts, uri)
	return nil
}

// Seed stores an object directly without recording a put.
func (m *MemoryObjectStore) Seed(uri string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[uri] = append([]byte(nil), body...)
}

// Object returns the stored bytes at uri, if any.
func (m *MemoryObjectStore) Object(uri string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.objects[uri]
	return body, ok
}

// PutCount returns the number of writes performed.
func (m *MemoryObjectStore) PutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Puts)
}
