package storage

import (
	"context"
	"io"
	"time"
)

// Backend is one object storage provider bound to a single bucket.
type Backend interface {
	Scheme() Scheme
	Bucket() string
	// KeyPrefix is prepended to generated object keys.
	KeyPrefix() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	SignURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
