package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd applies the gorm schema for every persistent model.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations",
	Long: `Create or update the users, posts, comments and likes tables.

Examples:
  forumctl migrate
  forumctl migrate --env production`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close(context.Background()) }()

		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
