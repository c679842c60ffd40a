package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"forum/internal/storage"
)

// SignedURLHost is the host MemoryBackend signs URLs for.
const SignedURLHost = "files.example.test"

// MemoryBackend is an in-process storage.Backend.
type MemoryBackend struct {
	scheme storage.Scheme
	bucket string
	prefix string

	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	// FailSign makes SignURL fail, for exercising fail-open paths.
	FailSign bool
}

// NewMemoryBackend creates an empty backend for scheme and bucket.
func NewMemoryBackend(scheme storage.Scheme, bucket string) *MemoryBackend {
	return &MemoryBackend{scheme: scheme, bucket: bucket, prefix: "uploads/", objects: make(map[string][]byte)}
}

func (m *MemoryBackend) Scheme() storage.Scheme { return m.scheme }
func (m *MemoryBackend) Bucket() string         { return m.bucket }
func (m *MemoryBackend) KeyPrefix() string      { return m.prefix }

func (m *MemoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *MemoryBackend) SignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSign {
		return "", errors.New("signing disabled")
	}
	u := url.URL{Scheme: "https", Host: SignedURLHost, Path: "/" + m.bucket + "/" + key}
	u.RawQuery = url.Values{"Expires": {fmt.Sprint(int64(ttl.Seconds()))}, "Signature": {"test"}}.Encode()
	return u.String(), nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// Has reports whether key is stored.
func (m *MemoryBackend) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Deleted returns the keys passed to Delete, in order.
func (m *MemoryBackend) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}
