package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// QueryLogger routes GORM output through slog. Missing records are expected
// on lookups and are never reported as errors.
type QueryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// NewQueryLogger returns a logger that reports errors and slow queries at
// level Warn and every statement at level Info.
func NewQueryLogger(l *slog.Logger, level logger.LogLevel) *QueryLogger {
	return &QueryLogger{log: l, level: level, slow: slowQueryThreshold}
}

func (q *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *QueryLogger) emit(ctx context.Context, at logger.LogLevel, lvl slog.Level, msg string, data []any) {
	if q.level >= at {
		q.log.Log(ctx, lvl, fmt.Sprintf(msg, data...))
	}
}

func (q *QueryLogger) Info(ctx context.Context, msg string, data ...any) {
	q.emit(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (q *QueryLogger) Warn(ctx context.Context, msg string, data ...any) {
	q.emit(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (q *QueryLogger) Error(ctx context.Context, msg string, data ...any) {
	q.emit(ctx, logger.Error, slog.LevelError, msg, data)
}

// Trace logs one executed statement.
func (q *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl   slog.Level
		msg   string
		attrs []slog.Attr
	)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= logger.Error:
		lvl, msg = slog.LevelError, "query failed"
		attrs = append(attrs, slog.String("error", err.Error()))
	case q.slow > 0 && elapsed > q.slow && q.level >= logger.Warn:
		lvl, msg = slog.LevelWarn, "slow query"
	case q.level >= logger.Info:
		lvl, msg = slog.LevelInfo, "query"
	default:
		return
	}

	sql, rows := fc()
	attrs = append(attrs,
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	)
	q.log.LogAttrs(ctx, lvl, msg, attrs...)
}
