package commands

import (
	"context"
	"fmt"
	"io"

	"forum/internal/seed"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	seedOpts     = seed.DefaultOptions()
	seedFixtures string
)

// seedCmd populates the database with generated data or a YAML fixture file.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with sample data",
	Long: `Populate the database with generated users, posts, comment trees and likes,
or with a hand-written YAML fixture file.

Examples:
  forumctl seed                          # Default demo dataset
  forumctl seed --users 5 --posts 10     # Smaller dataset
  forumctl seed --clean                  # Wipe forum tables first
  forumctl seed --dry-run                # Generate without writing
  forumctl seed --fixtures forum.yaml    # Load fixtures instead`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(true)
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close(context.Background()) }()

		return runSeed(rt.DB, cmd.OutOrStdout(), seedOpts, seedFixtures)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.NumUsers, "users", seedOpts.NumUsers, "Number of users to create")
	f.IntVar(&seedOpts.NumPosts, "posts", seedOpts.NumPosts, "Number of posts to create")
	f.IntVar(&seedOpts.CommentsPerPost, "comments", seedOpts.CommentsPerPost, "Maximum top-level comments per post")
	f.IntVar(&seedOpts.RepliesPerComment, "replies", seedOpts.RepliesPerComment, "Maximum replies per top-level comment")
	f.Float64Var(&seedOpts.LikeChance, "like-chance", seedOpts.LikeChance, "Probability that a user likes a post")
	f.IntVar(&seedOpts.MaxDays, "max-days", seedOpts.MaxDays, "Spread creation times over this many days")
	f.BoolVar(&seedOpts.ShouldClean, "clean", false, "Delete existing forum data before seeding")
	f.BoolVar(&seedOpts.DryRun, "dry-run", false, "Generate data without writing it")
	f.StringVar(&seedFixtures, "fixtures", "", "Load a YAML fixture file instead of generating data")
}

func runSeed(db *gorm.DB, out io.Writer, opts seed.Options, fixtures string) error {
	var (
		sum seed.Summary
		err error
	)
	if fixtures != "" {
		fx, loadErr := seed.LoadFixtures(fixtures)
		if loadErr != nil {
			return loadErr
		}
		if opts.ShouldClean {
			if err := seed.Clean(db); err != nil {
				return fmt.Errorf("clean: %w", err)
			}
		}
		sum, err = seed.ApplyFixtures(db, fx)
	} else {
		sum, err = seed.Seed(db, opts)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Seeded %d users, %d posts, %d comments, %d replies, %d likes\n",
		sum.Users, sum.Posts, sum.Comments, sum.Replies, sum.Likes)
	if fixtures == "" && sum.Users > 0 {
		fmt.Fprintf(out, "Generated users have the password: %s\n", seed.DefaultPassword)
	}
	return nil
}
