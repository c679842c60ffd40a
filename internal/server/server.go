// Package server contains the HTTP and WebSocket handlers of the forum API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "forum/docs" // swagger docs
	"forum/internal/config"
	"forum/internal/events"
	"forum/internal/featureflags"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/notifications"
	"forum/internal/repository"
	"forum/internal/service"
	"forum/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the long-lived clients the server is built from.
type Deps struct {
	DB        *gorm.DB
	Redis     *redis.Client
	Storage   *storage.Service
	Publisher events.Publisher
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokenTTL       time.Duration

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository

	storage      *storage.Service
	publisher    events.Publisher
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	postService    *service.PostService
	commentService *service.CommentService
	userService    *service.UserService
	uploadService  *service.UploadService
}

// NewServer wires repositories and services on top of already-connected dependencies.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("database is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("storage service is required")
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("forum-api"),
		tokenTTL:       storage.ParseExpires(cfg.JWTExpiresIn),
		userRepo:       repository.NewUserRepository(deps.DB),
		postRepo:       repository.NewPostRepository(deps.DB),
		commentRepo:    repository.NewCommentRepository(deps.DB),
		storage:        deps.Storage,
		publisher:      publisher,
		notifier:       notifications.NewNotifier(deps.Redis),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	if bad := s.featureFlags.Invalid(); len(bad) > 0 {
		middleware.Logger.Warn("ignoring malformed feature flags", slog.Any("entries", bad))
	}

	s.userService = service.NewUserService(s.userRepo, s.storage)
	s.postService = service.NewPostService(s.postRepo, s.storage, s.userService.IsAdmin)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.userRepo, s.userService.IsAdmin)
	s.uploadService = service.NewUploadService(s.storage, cfg.UploadMaxSizeMB, cfg.FileURLExpires)

	return s, nil
}

// NewApp builds a fiber app with the full middleware chain and route table.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Forum API",
		// Multipart framing on top of the largest accepted file.
		BodyLimit: int(s.uploadService.MaxBytes()) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				switch fe.Code {
				case fiber.StatusNotFound:
					return models.RespondWithError(c, fe.Code, &models.AppError{Code: models.CodeNotFound, Message: "Route not found"})
				case fiber.StatusRequestEntityTooLarge:
					return models.RespondWithAppError(c, models.NewFileTooLargeError(s.config.UploadMaxSizeMB))
				case fiber.StatusMethodNotAllowed:
					return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
				}
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
				slog.String("path", c.Path()), slog.String("error", err.Error()))
			return models.RespondWithAppError(c, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (300 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithAppError(c, models.NewRateLimitedError())
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/api/metrics/dashboard", monitor.New(monitor.Config{Title: "Forum API Metrics"}))
	app.Get("/api/swagger/*", swagger.HandlerDefault)

	// Storage references in JSON bodies become signed URLs on the way out.
	api := app.Group("/api", middleware.FileURLRewriter(s.storage, s.featureFlags, s.config.FileURLExpires))
	auth := s.AuthRequired()

	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.RateLimitWithPolicy(s.redis, 5, 10*time.Minute, middleware.FailClosed, "register"), s.Register)
	authGroup.Post("/login", middleware.RateLimitWithPolicy(s.redis, 10, 5*time.Minute, middleware.FailClosed, "login"), s.Login)
	authGroup.Get("/me", auth, s.Me)
	authGroup.Post("/logout", auth, s.Logout)

	// Specific /posts routes before generic /:id
	posts := api.Group("/posts")
	posts.Get("/", s.ListPosts)
	posts.Get("/liked", auth, s.ListLikedPosts)
	posts.Get("/user/:userId", s.ListUserPosts)
	posts.Post("/", auth, middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/like", auth, s.LikePost)
	posts.Delete("/:id/like", auth, s.UnlikePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", auth, s.UpdatePost)
	posts.Delete("/:id", auth, s.DeletePost)

	comments := api.Group("/comments")
	comments.Get("/me", auth, s.ListMyComments)
	comments.Get("/post/:postId", s.ListComments)
	comments.Post("/post/:postId", auth, middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	comments.Get("/:commentId/replies", s.ListReplies)
	comments.Put("/:id", auth, s.UpdateComment)
	comments.Delete("/:id", auth, s.DeleteComment)

	api.Post("/uploads", auth, middleware.RateLimit(s.redis, 30, time.Minute, "upload"), s.Upload)

	users := api.Group("/users")
	users.Put("/profile", auth, s.UpdateProfile)
	users.Get("/:id", s.GetUserProfile)

	admin := api.Group("/admin", auth, s.AdminRequired())
	admin.Get("/posts", s.AdminListPosts)
	admin.Delete("/posts/:id", s.AdminDeletePost)
	admin.Get("/users", s.AdminListUsers)
	admin.Put("/users/:id/role", s.AdminSetRole)
	admin.Get("/feature-flags", s.GetFeatureFlags)

	ws := api.Group("/ws")
	ws.Post("/ticket", auth, s.IssueWSTicket)
	ws.Get("/", auth, s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis reachability.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it rate limiting, caching and token
	// revocation degrade, but requests are still served.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires the websocket hub to Redis fan-out and serves on cfg.Port until
// Shutdown is called.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
		middleware.Logger.Warn("realtime fan-out disabled", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP listener, websocket hub and event publisher.
// Database and Redis belong to the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("hub shutdown: %w", err))
	}
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event publisher close: %w", err))
	}

	middleware.Logger.Info("server shutdown complete")
	return errors.Join(errs...)
}
