package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum/internal/bootstrap"
	"forum/internal/middleware"
	"forum/internal/server"

	"github.com/spf13/cobra"
)

var (
	servePort      string
	serveNoMigrate bool
)

// serveCmd runs the API server until SIGINT or SIGTERM.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server. Migrations are applied on startup unless
--no-migrate is given.

Examples:
  forumctl serve                 # Listen on PORT from the environment
  forumctl serve --port 9000     # Override the listen port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "Listen port (defaults to PORT)")
	serveCmd.Flags().BoolVar(&serveNoMigrate, "no-migrate", false, "Skip schema migration on startup")
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{Migrate: !serveNoMigrate, Tracing: true})
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, rt.ServerDeps())
	if err != nil {
		_ = rt.Close(context.Background())
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		middleware.Logger.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		middleware.Logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if err := rt.Close(shutdownCtx); err != nil {
		middleware.Logger.Error("runtime close error", slog.String("error", err.Error()))
	}
	return serveErr
}
