package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackends_RequireConfig(t *testing.T) {
	_, err := NewOSSBackend(OSSConfig{Endpoint: "https://oss-cn-hangzhou.aliyuncs.com"})
	assert.Error(t, err)

	_, err = NewCOSBackend(COSConfig{SecretID: "id", SecretKey: "key", Bucket: "b-125"})
	assert.Error(t, err, "region or bucket url is required")
}

func TestOSSBackend_SignURL(t *testing.T) {
	b, err := NewOSSBackend(OSSConfig{
		Endpoint:        "https://oss-cn-hangzhou.aliyuncs.com",
		AccessKeyID:     "test-access-key",
		AccessKeySecret: "test-access-secret",
		Bucket:          "forum-oss",
	})
	require.NoError(t, err)
	assert.Equal(t, SchemeOSS, b.Scheme())
	assert.Equal(t, "forum-oss", b.Bucket())

	key := "0b7e6f5c-8d8e-4f59-9d53-3c1f1c2b9e10-photo.png"
	signed, err := b.SignURL(context.Background(), key, time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "forum-oss.oss-cn-hangzhou.aliyuncs.com", u.Host)
	assert.Equal(t, "/"+key, u.Path)
	assert.NotEmpty(t, u.RawQuery)

	assert.Equal(t, "oss:forum-oss:"+key, ConvertToOSSReference(signed))
}

func TestCOSBackend_SignURL(t *testing.T) {
	b, err := NewCOSBackend(COSConfig{
		SecretID:  "test-secret-id",
		SecretKey: "test-secret-key",
		Bucket:    "forum-1250000000",
		Region:    "ap-guangzhou",
		KeyPrefix: "uploads/",
	})
	require.NoError(t, err)
	assert.Equal(t, "uploads/", b.KeyPrefix())

	signed, err := b.SignURL(context.Background(), "uploads/a.png", 30*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "forum-1250000000.cos.ap-guangzhou.myqcloud.com", u.Host)
	assert.Equal(t, "/uploads/a.png", u.Path)
	assert.Contains(t, u.RawQuery, "q-signature")

	svc := NewService(SchemeCOS, "7d", b)
	assert.Equal(t, "cos:forum-1250000000:uploads/a.png", svc.Normalize(signed))
}

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        string
	authorized  bool
}

func TestCOSBackend_PutAndDelete(t *testing.T) {
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
			authorized:  strings.Contains(r.Header.Get("Authorization"), "q-signature"),
		})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewCOSBackend(COSConfig{
		SecretID:  "test-secret-id",
		SecretKey: "test-secret-key",
		Bucket:    "forum-1250000000",
		BucketURL: srv.URL,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Put(ctx, "uploads/a.txt", strings.NewReader("hello"), 5, "text/plain"))
	require.NoError(t, b.Delete(ctx, "uploads/a.txt"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/uploads/a.txt", reqs[0].path)
	assert.Equal(t, "text/plain", reqs[0].contentType)
	assert.Equal(t, "hello", reqs[0].body)
	assert.True(t, reqs[0].authorized)
	assert.Equal(t, http.MethodDelete, reqs[1].method)
	assert.Equal(t, "/uploads/a.txt", reqs[1].path)
}

func TestCOSBackend_PutServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	b, err := NewCOSBackend(COSConfig{SecretID: "id", SecretKey: "key", Bucket: "b-125", BucketURL: srv.URL})
	require.NoError(t, err)

	err = b.Put(context.Background(), "k", strings.NewReader("x"), 1, "text/plain")
	assert.Error(t, err)
}
