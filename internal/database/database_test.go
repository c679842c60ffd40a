package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"forum/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestPrimaryAndReplicaDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost:           "db",
		DBPort:           "5432",
		DBUser:           "forum",
		DBPassword:       "secret",
		DBName:           "forum",
		DBSSLMode:        "require",
		DBConnectTimeout: 3 * time.Second,
	}

	assert.Equal(t,
		"host=db port=5432 user=forum password=secret dbname=forum sslmode=require connect_timeout=3",
		PrimaryDSN(cfg))
	assert.Empty(t, ReplicaDSN(cfg))

	cfg.DBReadHost = "replica"
	cfg.DBReadPort = "5433"
	cfg.DBReadUser = "reader"
	cfg.DBReadPassword = "ro"
	assert.Equal(t,
		"host=replica port=5433 user=reader password=ro dbname=forum sslmode=require connect_timeout=3",
		ReplicaDSN(cfg))
}

func TestBuildDSN_Defaults(t *testing.T) {
	dsn := buildDSN("h", "1", "u", "p", "d", "", 0)
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "connect_timeout=1")
}

func TestQueryLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewQueryLogger(slog.New(slog.NewTextHandler(&buf, nil)), logger.Warn)
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), fc, nil)
	assert.Empty(t, buf.String(), "fast successful queries are not logged at warn level")

	l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "record-not-found is not an error")

	l.Trace(ctx, time.Now(), fc, errors.New("boom"))
	assert.Contains(t, buf.String(), "query failed")

	buf.Reset()
	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	assert.Contains(t, buf.String(), "slow query")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(ctx, time.Now(), fc, errors.New("boom"))
	assert.Empty(t, buf.String())
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := &config.Config{
		DBHost:           "127.0.0.1",
		DBPort:           "1",
		DBUser:           "u",
		DBPassword:       "p",
		DBName:           "d",
		DBConnectTimeout: time.Second,
	}
	_, err := Connect(cfg)
	require.Error(t, err)
}
