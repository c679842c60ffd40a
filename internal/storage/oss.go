package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSConfig configures the Aliyun OSS backend.
type OSSConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	KeyPrefix       string
}

// OSSBackend stores objects in one Aliyun OSS bucket.
type OSSBackend struct {
	bucket *oss.Bucket
	name   string
	prefix string
}

// NewOSSBackend builds an OSS client. No network call is made until first use.
func NewOSSBackend(cfg OSSConfig) (*OSSBackend, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, errors.New("oss: endpoint, credentials and bucket are required")
	}

	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret, oss.Timeout(10, 120))
	if err != nil {
		return nil, fmt.Errorf("oss: create client: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss: open bucket %q: %w", cfg.Bucket, err)
	}

	return &OSSBackend{bucket: bucket, name: cfg.Bucket, prefix: cfg.KeyPrefix}, nil
}

func (b *OSSBackend) Scheme() Scheme    { return SchemeOSS }
func (b *OSSBackend) Bucket() string    { return b.name }
func (b *OSSBackend) KeyPrefix() string { return b.prefix }

func (b *OSSBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := []oss.Option{oss.WithContext(ctx), oss.ContentType(contentType)}
	if size > 0 {
		opts = append(opts, oss.ContentLength(size))
	}
	return b.bucket.PutObject(key, r, opts...)
}

// SignURL signs locally; the OSS API is not contacted.
func (b *OSSBackend) SignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	secs := int64(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	return b.bucket.SignURL(key, oss.HTTPGet, secs)
}

func (b *OSSBackend) Delete(ctx context.Context, key string) error {
	return b.bucket.DeleteObject(key, oss.WithContext(ctx))
}
