package storage

import (
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"time"

	"forum/internal/middleware"
)

// DefaultExpires is used when an expiry string is empty or invalid.
const DefaultExpires = 7 * 24 * time.Hour

var expiresPattern = regexp.MustCompile(`^(\d+)([dhms])?$`)

// ParseExpires parses compact durations such as "7d", "24h", "30m" or "45"
// (seconds). Empty input yields DefaultExpires; invalid input logs a warning
// and yields DefaultExpires.
func ParseExpires(s string) time.Duration {
	if s == "" {
		return DefaultExpires
	}

	m := expiresPattern.FindStringSubmatch(s)
	if m == nil {
		middleware.Logger.Warn("invalid expiry format, using default",
			slog.String("value", s),
			slog.Duration("default", DefaultExpires))
		return DefaultExpires
	}

	unit := time.Second
	switch m[2] {
	case "d":
		unit = 24 * time.Hour
	case "h":
		unit = time.Hour
	case "m":
		unit = time.Minute
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n > math.MaxInt64/int64(unit) {
		middleware.Logger.Warn("expiry out of range, using default", slog.String("value", s))
		return DefaultExpires
	}
	return time.Duration(n) * unit
}
