package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// StoredObject is an object held by MemoryStore
type StoredObject struct {
	Data        []byte
	ContentType string
}

// MemoryStore is an in-process ObjectStore for tests and local development
type MemoryStore struct {
	bucket  string
	baseURL string

	mu      sync.RWMutex
	objects map[string]StoredObject

	// FailPuts and FailDeletes make the matching calls fail
	FailPuts    bool
	FailDeletes bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		baseURL: "http://localhost/storage",
		objects: make(map[string]StoredObject),
	}
}

// Put implements ObjectStore
func (m *MemoryStore) Put(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.FailPuts {
		return "", errors.Errorf("put %s: simulated failure", key)
	}

	body, err := io.ReadAll(data)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read object %s", key)
	}

	m.mu.Lock()
	m.objects[key] = StoredObject{Data: body, ContentType: contentType}
	m.mu.Unlock()

	return m.PublicURL(key), nil
}

// Delete implements ObjectStore
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailDeletes {
		return errors.Errorf("delete %s: simulated failure", key)
	}

	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Sign implements ObjectStore
func (m *MemoryStore) Sign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	expires := time.Now().Add(clampSignedURLTTL(ttl)).Unix()
	return fmt.Sprintf("%s?expires=%d", m.PublicURL(key), expires), nil
}

// PublicURL implements ObjectStore
func (m *MemoryStore) PublicURL(key string) string {
	return objectPublicURL(m.baseURL, m.bucket, key)
}

// KeyFromURL implements ObjectStore
func (m *MemoryStore) KeyFromURL(rawURL string) string {
	return objectKeyFromURL(m.bucket, rawURL)
}

// Get returns a stored object
func (m *MemoryStore) Get(key string) (StoredObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Len returns the number of stored objects
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
