package service

import (
	"context"
	"io"
)

// FileStore is the part of storage.Service the services depend on.
type FileStore interface {
	Upload(ctx context.Context, r io.Reader, size int64, filename, contentType string) (string, error)
	Resolve(ctx context.Context, value, expires string) (string, error)
	Normalize(value string) string
	NormalizeAll(values []string) []string
}
