// Package bootstrap connects the long-lived dependencies shared by the
// server and the forumctl commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"forum/internal/cache"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/events"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/password"
	"forum/internal/server"
	"forum/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Migrate runs schema migration after connecting.
	Migrate bool
	// Tracing installs the OpenTelemetry tracer provider.
	Tracing bool
}

// Runtime is the set of connected dependencies.
type Runtime struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Storage   *storage.Service
	Publisher events.Publisher

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to the database, Redis, object storage and the event
// broker. Redis and the broker are optional; their absence is logged.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{}

	if opts.Tracing {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:  "forum-api",
			Environment:  cfg.Env,
			Enabled:      cfg.TracingEnabled,
			Exporter:     cfg.TracingExporter,
			OTLPEndpoint: cfg.TracingOTLPEndpoint,
			SamplerRatio: cfg.TracingSamplerRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	db, err := database.Connect(cfg)
	if err != nil {
		_ = rt.Close(context.Background())
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	if err := rt.attach(cfg, opts); err != nil {
		return nil, err
	}
	return rt, nil
}

// attach wires everything that sits on top of the open database. On failure
// every dependency already acquired, the database included, is released.
func (rt *Runtime) attach(cfg *config.Config, opts Options) (err error) {
	defer func() {
		if err != nil {
			if closeErr := rt.Close(context.Background()); closeErr != nil {
				middleware.Logger.Warn("runtime cleanup after failed init",
					slog.String("error", closeErr.Error()))
			}
		}
	}()

	if opts.Migrate {
		if err := database.Migrate(rt.DB); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	rt.Redis = cache.GetClient()

	rt.Storage, err = NewStorage(cfg)
	if err != nil {
		return err
	}

	rt.Publisher = newPublisher(cfg)

	if err := ensureDevRootAdmin(cfg, rt.DB); err != nil {
		return fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}
	return nil
}

// ServerDeps returns the dependencies server.NewServer needs.
func (rt *Runtime) ServerDeps() server.Deps {
	return server.Deps{
		DB:        rt.DB,
		Redis:     rt.Redis,
		Storage:   rt.Storage,
		Publisher: rt.Publisher,
	}
}

// Close releases the database, Redis and tracing. The publisher is closed by
// the server's Shutdown when a server was started.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if rt.Redis != nil {
		if cache.GetClient() == rt.Redis {
			cache.SetClient(nil)
		}
		if err := rt.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("database close: %w", err))
			}
		}
	}
	if rt.shutdownTracing != nil {
		if err := rt.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NewStorage registers every configured object storage backend. The default
// backend must be among them.
func NewStorage(cfg *config.Config) (*storage.Service, error) {
	var backends []storage.Backend

	if cfg.OSSConfigured() {
		b, err := storage.NewOSSBackend(storage.OSSConfig{
			Endpoint:        cfg.OSSEndpoint,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
			Bucket:          cfg.OSSBucket,
			KeyPrefix:       cfg.OSSKeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}

	if cfg.COSConfigured() {
		b, err := storage.NewCOSBackend(storage.COSConfig{
			SecretID:  cfg.COSSecretID,
			SecretKey: cfg.COSSecretKey,
			Bucket:    cfg.COSBucket,
			Region:    cfg.COSRegion,
			KeyPrefix: cfg.COSKeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}

	svc := storage.NewService(storage.Scheme(cfg.StorageDefault), cfg.FileURLExpires, backends...)
	if _, ok := svc.Backend(storage.Scheme(cfg.StorageDefault)); !ok {
		// Reads of existing references still work through the other backend.
		middleware.Logger.Warn("default storage backend not configured, uploads will fail",
			slog.String("storage_default", cfg.StorageDefault))
	}
	return svc, nil
}

func newPublisher(cfg *config.Config) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.NopPublisher{}
	}
	p, err := events.DialAMQP(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		middleware.Logger.Warn("event broker unavailable, continuing without it",
			slog.String("error", err.Error()))
		return events.NopPublisher{}
	}
	return p
}

func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "forum_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@forum.local"
	}
	if cfg.DevRootPassword == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashed, err := password.Hash(cfg.DevRootPassword)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	return EnsureAdmin(db, username, email, hashed, cfg.DevRootForceCredentials)
}

// EnsureAdmin creates the admin account identified by email, or promotes the
// existing one. With force, the username and password hash are overwritten.
func EnsureAdmin(db *gorm.DB, username, email, hashedPassword string, force bool) error {
	var userID uint
	err := db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Username: username,
				Email:    email,
				Password: hashedPassword,
				Role:     models.RoleAdmin,
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			updates := map[string]any{"role": models.RoleAdmin}
			if force {
				updates["username"] = username
				updates["password"] = hashedPassword
			}
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		userID = user.ID
		return nil
	})
	if err != nil {
		return err
	}

	// The cached copy still carries the old role.
	cache.InvalidateUser(context.Background(), userID)
	middleware.Logger.Info("admin account ensured",
		slog.Uint64("user_id", uint64(userID)), slog.String("email", email))
	return nil
}
