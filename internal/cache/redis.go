// Package cache holds the shared Redis client and the cache-aside helpers
// built on it. Every helper degrades to a no-op when Redis is absent.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"forum/internal/middleware"
	"forum/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const pingTimeout = 5 * time.Second

var client *redis.Client

// instrumentation traces every command and counts failures. redis.Nil is a
// cache miss, not a failure.
type instrumentation struct{}

func (instrumentation) DialHook(next redis.DialHook) redis.DialHook { return next }

func (instrumentation) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := observability.StartRedisSpan(ctx, cmd.Name())
		err := next(ctx, cmd)
		record(span, cmd.Name(), err)
		return err
	}
}

func (instrumentation) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := observability.StartRedisSpan(ctx, "pipeline")
		err := next(ctx, cmds)
		record(span, "pipeline", err)
		return err
	}
}

func record(span trace.Span, name string, err error) {
	if errors.Is(err, redis.Nil) {
		err = nil
	}
	if err != nil {
		middleware.RedisErrors.WithLabelValues(name).Inc()
	}
	observability.EndSpan(span, err)
}

// parseOptions accepts either a redis:// URL or a bare host:port.
func parseOptions(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis address is empty")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return opts, nil
}

// InitRedis connects the shared client. On any failure the client stays nil
// and the forum runs without caching, rate limiting or cross-instance events.
func InitRedis(addr string) {
	client = nil

	opts, err := parseOptions(addr)
	if err != nil {
		middleware.Logger.Warn("redis disabled", slog.String("error", err.Error()))
		return
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unreachable, continuing without it",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		_ = rdb.Close()
		return
	}

	SetClient(rdb)
	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
}

// GetClient returns the shared client, or nil when Redis is unavailable.
func GetClient() *redis.Client {
	return client
}

// SetClient replaces the shared client. Tests use it to inject miniredis.
func SetClient(rdb *redis.Client) {
	if rdb != nil {
		rdb.AddHook(instrumentation{})
	}
	client = rdb
}
