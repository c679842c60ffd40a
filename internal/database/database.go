// Package database handles database connections and migrations.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"forum/internal/config"
	"forum/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// PrimaryDSN builds the PostgreSQL DSN for the writable primary.
func PrimaryDSN(cfg *config.Config) string {
	return buildDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBConnectTimeout)
}

// ReplicaDSN builds the DSN for the read replica, or "" when none is configured.
func ReplicaDSN(cfg *config.Config) string {
	if cfg.DBReadHost == "" {
		return ""
	}
	return buildDSN(cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBConnectTimeout)
}

func buildDSN(host, port, user, password, name, sslMode string, timeout time.Duration) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		host, port, user, password, name, sslMode, secs,
	)
}

// Connect opens the primary connection, registers the read replica when
// DB_READ_HOST is set, and verifies connectivity within DB_CONNECT_TIMEOUT.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.Env == "development" {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(PrimaryDSN(cfg)), &gorm.Config{
		Logger:                 NewQueryLogger(middleware.Logger, level),
		TranslateError:         true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if replica := ReplicaDSN(cfg); replica != "" {
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.Open(replica)},
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, fmt.Errorf("failed to register read replica: %w", err)
		}
		middleware.Logger.Info("Read replica registered", slog.String("host", cfg.DBReadHost))
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database within %s: %w", cfg.DBConnectTimeout, err)
	}

	middleware.Logger.Info("Database connected successfully", slog.String("host", cfg.DBHost))
	return db, nil
}

// Primary forces a query onto the writable primary, for reads that must
// observe a write made moments earlier.
func Primary(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).Clauses(dbresolver.Write)
}
