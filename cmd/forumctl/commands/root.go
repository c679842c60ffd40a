package commands

import (
	"fmt"
	"os"

	"forum/internal/bootstrap"
	"forum/internal/config"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	envOverride string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "forumctl",
	Short: "Forum API server and maintenance tool",
	Long: `forumctl runs the forum API server and the tasks that operate on its database.

Commands:
  serve    - Run the HTTP API server
  migrate  - Apply schema migrations
  seed     - Populate the database with generated or fixture data
  admin    - Manage administrator accounts
  files    - Delete stored objects`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envOverride, "env", "", "Override APP_ENV for this invocation")
}

// loadConfig reads configuration, applying the --env override first.
func loadConfig() (*config.Config, error) {
	if envOverride != "" {
		if err := os.Setenv("APP_ENV", envOverride); err != nil {
			return nil, err
		}
	}
	return config.LoadConfig()
}

// openRuntime loads configuration and connects without starting tracing.
func openRuntime(migrate bool) (*bootstrap.Runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return bootstrap.InitRuntime(cfg, bootstrap.Options{Migrate: migrate})
}
