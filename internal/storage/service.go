package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/observability"

	"github.com/google/uuid"
)

const maxFilenameLength = 100

// Service dispatches storage operations to the backend named by a
// reference's scheme. New uploads go to the default backend.
type Service struct {
	backends       map[Scheme]Backend
	defaultScheme  Scheme
	defaultExpires string
}

// NewService registers backends; nil backends are skipped so unconfigured
// providers can be passed straight through.
func NewService(defaultScheme Scheme, defaultExpires string, backends ...Backend) *Service {
	s := &Service{
		backends:       make(map[Scheme]Backend, len(backends)),
		defaultScheme:  defaultScheme,
		defaultExpires: defaultExpires,
	}
	for _, b := range backends {
		if b != nil {
			s.backends[b.Scheme()] = b
		}
	}
	return s
}

// Backend returns the backend registered for scheme.
func (s *Service) Backend(scheme Scheme) (Backend, bool) {
	b, ok := s.backends[scheme]
	return b, ok
}

// DefaultExpires is the expiry string used when Resolve is given none.
func (s *Service) DefaultExpires() string {
	return s.defaultExpires
}

// Upload stores r under a fresh key in the default backend and returns its reference.
func (s *Service) Upload(ctx context.Context, r io.Reader, size int64, filename, contentType string) (string, error) {
	b, ok := s.backends[s.defaultScheme]
	if !ok {
		return "", models.NewUploadFailedError(models.NewBackendUnavailableError(string(s.defaultScheme)))
	}

	key := b.KeyPrefix() + uuid.NewString() + "-" + SanitizeFilename(filename)

	ctx, span := observability.StartStorageSpan(ctx, string(b.Scheme()), "put", b.Bucket())
	err := b.Put(ctx, key, r, size, contentType)
	observability.EndSpan(span, err)
	observability.RecordStorage(string(b.Scheme()), "put", err)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "storage upload failed",
			slog.String("scheme", string(b.Scheme())),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return "", models.NewUploadFailedError(err)
	}

	ref := Reference{Scheme: b.Scheme(), Bucket: b.Bucket(), Key: key}
	middleware.Logger.InfoContext(ctx, "file uploaded",
		slog.String("reference", ref.String()),
		slog.Int64("size", size))
	return ref.String(), nil
}

// Resolve returns a signed URL for a reference or a legacy provider URL.
// Values that are neither, including malformed references, are returned
// unchanged. A reference whose backend is not configured is an error.
func (s *Service) Resolve(ctx context.Context, value, expires string) (string, error) {
	if expires == "" {
		expires = s.defaultExpires
	}

	ref, ok := s.referenceFor(value)
	if !ok {
		return value, nil
	}

	b, ok := s.backends[ref.Scheme]
	if !ok {
		return "", models.NewBackendUnavailableError(string(ref.Scheme))
	}

	signed, err := b.SignURL(ctx, ref.Key, ParseExpires(expires))
	observability.RecordStorage(string(ref.Scheme), "sign", err)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Delete removes the object behind a reference or provider URL.
// Unrecognised values fail with InvalidReference.
func (s *Service) Delete(ctx context.Context, value string) error {
	ref, ok := s.referenceFor(value)
	if !ok {
		return models.NewInvalidReferenceError(value)
	}

	b, ok := s.backends[ref.Scheme]
	if !ok {
		return models.NewBackendUnavailableError(string(ref.Scheme))
	}

	ctx, span := observability.StartStorageSpan(ctx, string(ref.Scheme), "delete", b.Bucket())
	err := b.Delete(ctx, ref.Key)
	observability.EndSpan(span, err)
	observability.RecordStorage(string(ref.Scheme), "delete", err)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "storage delete failed",
			slog.String("reference", ref.String()),
			slog.String("error", err.Error()))
		return models.NewDeleteFailedError(err)
	}
	middleware.Logger.InfoContext(ctx, "file deleted", slog.String("reference", ref.String()))
	return nil
}

// Normalize converts provider URLs that point into a configured bucket back
// into references, so signed URLs echoed by clients are never persisted.
func (s *Service) Normalize(value string) string {
	var (
		ref Reference
		ok  bool
	)
	switch {
	case IsOSSURL(value):
		ref, ok = ParseReference(ConvertToOSSReference(value))
	case IsCOSURL(value):
		ref, ok = convertToCOSReference(value)
	}
	if !ok {
		return value
	}
	if b, registered := s.backends[ref.Scheme]; registered && b.Bucket() == ref.Bucket {
		return ref.String()
	}
	return value
}

// NormalizeAll applies Normalize to each value.
func (s *Service) NormalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, s.Normalize(v))
	}
	return out
}

// referenceFor maps a reference or legacy provider URL to a Reference.
func (s *Service) referenceFor(value string) (Reference, bool) {
	if HasReferencePrefix(value) {
		return ParseReference(value)
	}
	if IsCOSURL(value) {
		key, ok := keyFromURL(value)
		if !ok {
			return Reference{}, false
		}
		bucket := ""
		if b, registered := s.backends[SchemeCOS]; registered {
			bucket = b.Bucket()
		}
		return Reference{Scheme: SchemeCOS, Bucket: bucket, Key: key}, true
	}
	if IsOSSURL(value) {
		return ParseReference(ConvertToOSSReference(value))
	}
	return Reference{}, false
}

// SanitizeFilename keeps the base name of filename and replaces characters
// that are unsafe in object keys.
func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r > utf8.RuneSelf:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := b.String()
	if strings.Trim(out, "._") == "" {
		return "file"
	}
	if utf8.RuneCountInString(out) > maxFilenameLength {
		runes := []rune(out)
		out = string(runes[len(runes)-maxFilenameLength:])
	}
	return out
}
