package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// memoryBackend is an in-memory Backend that signs URLs with a fixed host.
type memoryBackend struct {
	mu       sync.Mutex
	scheme   Scheme
	bucket   string
	prefix   string
	objects  map[string][]byte
	types    map[string]string
	failPut  error
	failDel  error
	failSign error
}

func newMemoryBackend(scheme Scheme, bucket, prefix string) *memoryBackend {
	return &memoryBackend{
		scheme:  scheme,
		bucket:  bucket,
		prefix:  prefix,
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *memoryBackend) Scheme() Scheme    { return m.scheme }
func (m *memoryBackend) Bucket() string    { return m.bucket }
func (m *memoryBackend) KeyPrefix() string { return m.prefix }

func (m *memoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if m.failPut != nil {
		return m.failPut
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	m.types[key] = contentType
	return nil
}

func (m *memoryBackend) SignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	if m.failSign != nil {
		return "", m.failSign
	}
	u := url.URL{
		Scheme:   "https",
		Host:     fmt.Sprintf("%s.%s.example.com", m.bucket, m.scheme),
		Path:     "/" + key,
		RawQuery: fmt.Sprintf("Expires=%d", int64(ttl/time.Second)),
	}
	return u.String(), nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	if m.failDel != nil {
		return m.failDel
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.New("no such key")
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
