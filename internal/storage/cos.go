package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tencentyun/cos-go-sdk-v5"
)

// COSConfig configures the Tencent COS backend. BucketURL overrides the
// URL derived from Bucket and Region.
type COSConfig struct {
	SecretID  string
	SecretKey string
	Bucket    string
	Region    string
	KeyPrefix string
	BucketURL string
}

// COSBackend stores objects in one Tencent COS bucket.
type COSBackend struct {
	client    *cos.Client
	secretID  string
	secretKey string
	name      string
	prefix    string
}

// NewCOSBackend builds a COS client. No network call is made until first use.
func NewCOSBackend(cfg COSConfig) (*COSBackend, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, errors.New("cos: credentials and bucket are required")
	}

	raw := cfg.BucketURL
	if raw == "" {
		if cfg.Region == "" {
			return nil, errors.New("cos: region is required")
		}
		raw = fmt.Sprintf("https://%s.cos.%s.myqcloud.com", cfg.Bucket, cfg.Region)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("cos: invalid bucket url: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSBackend{
		client:    client,
		secretID:  cfg.SecretID,
		secretKey: cfg.SecretKey,
		name:      cfg.Bucket,
		prefix:    cfg.KeyPrefix,
	}, nil
}

func (b *COSBackend) Scheme() Scheme    { return SchemeCOS }
func (b *COSBackend) Bucket() string    { return b.name }
func (b *COSBackend) KeyPrefix() string { return b.prefix }

func (b *COSBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.Object.Put(ctx, key, r, &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType:   contentType,
			ContentLength: size,
		},
	})
	return err
}

// SignURL signs locally; the COS API is not contacted.
func (b *COSBackend) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := b.client.Object.GetPresignedURL(ctx, http.MethodGet, key, b.secretID, b.secretKey, ttl, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (b *COSBackend) Delete(ctx context.Context, key string) error {
	_, err := b.client.Object.Delete(ctx, key)
	return err
}
