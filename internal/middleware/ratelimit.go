// Package middleware provides HTTP middleware and request-scoped helpers.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"forum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed answers 503 if Redis is unavailable.
	FailClosed
)

var errNoRedis = errors.New("rate limit: redis client is nil")

// Decision is the outcome of one fixed-window check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is the time left in the current window.
	RetryAfter time.Duration
}

func rateLimitingDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

// CheckRateLimit counts one request by id against resource in a fixed window.
// Outside production-like environments every request is allowed.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (Decision, error) {
	if rateLimitingDisabled() {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if rdb == nil {
		return Decision{}, errNoRedis
	}

	key := "rl:" + resource + ":" + id

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	d := Decision{
		Allowed:    count <= limit,
		Limit:      limit,
		Remaining:  max(limit-count, 0),
		RetryAfter: ttl.Val(),
	}
	if d.RetryAfter <= 0 {
		d.RetryAfter = window
	}
	return d, nil
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`.
// It keys by authenticated userID when present, otherwise by remote IP, and fails open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := CurrentUserID(c); ok {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		d, err := CheckRateLimit(c.UserContext(), rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return models.RespondWithAppError(c, &models.AppError{
				Code:    models.CodeBackendUnavailable,
				Message: "Rate limiting is temporarily unavailable",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			RateLimited.WithLabelValues(resource).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int((d.RetryAfter+time.Second-1)/time.Second)))
			return models.RespondWithAppError(c, models.NewRateLimitedError())
		}
		return c.Next()
	}
}
