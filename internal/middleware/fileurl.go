package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"forum/internal/featureflags"
	"forum/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// URLResolver turns a stored file reference into a URL a client can fetch.
type URLResolver interface {
	Resolve(ctx context.Context, ref, expires string) (string, error)
}

// fileURLFields are the object keys whose string values are treated as file references.
var fileURLFields = map[string]bool{
	"url":    true,
	"avatar": true,
	"image":  true,
}

// FileURLRewriter rewrites storage references in JSON responses into signed URLs
// after the handler has run. Resolution failures keep the original value.
func FileURLRewriter(resolver URLResolver, flags *featureflags.Manager, expires string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}
		if resolver == nil || !flags.Enabled(featureflags.SignedURLs, userIDFromLocals(c)) {
			return nil
		}

		resp := c.Response()
		if !strings.HasPrefix(string(resp.Header.ContentType()), fiber.MIMEApplicationJSON) {
			return nil
		}
		body := resp.Body()
		if len(bytes.TrimSpace(body)) == 0 {
			return nil
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			Logger.ErrorContext(c.UserContext(), "file url rewrite: invalid JSON body",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return nil
		}

		rw := &urlRewriter{ctx: c.UserContext(), resolver: resolver, expires: expires}
		doc = rw.walk(doc)
		if !rw.changed {
			return nil
		}

		var out bytes.Buffer
		enc := json.NewEncoder(&out)
		// Signed URLs carry query strings; keep '&' readable.
		enc.SetEscapeHTML(false)
		if err := enc.Encode(doc); err != nil {
			Logger.ErrorContext(c.UserContext(), "file url rewrite: re-encode failed",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return nil
		}
		resp.SetBody(bytes.TrimSuffix(out.Bytes(), []byte("\n")))
		return nil
	}
}

type urlRewriter struct {
	ctx      context.Context
	resolver URLResolver
	expires  string
	changed  bool
}

func (w *urlRewriter) walk(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			switch {
			case fileURLFields[k]:
				if s, ok := child.(string); ok && isFileReference(s) {
					node[k] = w.resolve(k, s)
					continue
				}
			case k == "images":
				if arr, ok := child.([]any); ok {
					for i, item := range arr {
						if s, ok := item.(string); ok {
							arr[i] = w.resolve(k, s)
						} else {
							arr[i] = w.walk(item)
						}
					}
					continue
				}
			}
			node[k] = w.walk(child)
		}
		return node
	case []any:
		for i, item := range node {
			node[i] = w.walk(item)
		}
		return node
	default:
		return v
	}
}

func (w *urlRewriter) resolve(field, ref string) string {
	signed, err := w.resolver.Resolve(w.ctx, ref, w.expires)
	if err != nil {
		observability.URLResolveFailures.WithLabelValues(field).Inc()
		Logger.WarnContext(w.ctx, "file url rewrite: resolve failed",
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		return ref
	}
	if signed != ref {
		w.changed = true
	}
	return signed
}

func isFileReference(s string) bool {
	return strings.HasPrefix(s, "oss:") || strings.HasPrefix(s, "cos:") || strings.HasPrefix(s, "http")
}

func userIDFromLocals(c *fiber.Ctx) uint {
	uid, _ := CurrentUserID(c)
	return uid
}
