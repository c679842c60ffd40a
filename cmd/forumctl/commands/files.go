package commands

import (
	"context"
	"fmt"
	"io"

	"forum/internal/models"
	"forum/internal/storage"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var filesForce bool

// filesCmd groups object storage maintenance.
var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Maintain uploaded objects",
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <reference>...",
	Short: "Delete stored objects by reference or provider URL",
	Long: `Delete stored objects. A reference still used by a post or an avatar is
skipped unless --force is given.

Examples:
  forumctl files delete oss:forum-oss:uploads/3f1c-a.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(false)
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close(context.Background()) }()
		return deleteFiles(cmd.Context(), rt.DB, rt.Storage, cmd.OutOrStdout(), args, filesForce)
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
	filesCmd.AddCommand(filesDeleteCmd)
	filesDeleteCmd.Flags().BoolVar(&filesForce, "force", false, "Delete even when posts or avatars still use the object")
}

// filesInUse counts the posts and users that still point at ref.
func filesInUse(db *gorm.DB, ref string) (posts, users int64, err error) {
	// Images are stored as a JSON array, so match the quoted element.
	if err = db.Model(&models.Post{}).Where("images LIKE ?", `%"`+ref+`"%`).Count(&posts).Error; err != nil {
		return 0, 0, err
	}
	err = db.Model(&models.User{}).Where("avatar = ?", ref).Count(&users).Error
	return posts, users, err
}

func deleteFiles(ctx context.Context, db *gorm.DB, files *storage.Service, out io.Writer, values []string, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var failed int
	for _, v := range values {
		ref := files.Normalize(v)
		if !force {
			posts, users, err := filesInUse(db, ref)
			if err != nil {
				return fmt.Errorf("check usage of %s: %w", ref, err)
			}
			if posts+users > 0 {
				fmt.Fprintf(out, "skipped %s: used by %d post(s) and %d user(s)\n", ref, posts, users)
				continue
			}
		}
		if err := files.Delete(ctx, ref); err != nil {
			fmt.Fprintf(out, "failed %s: %v\n", ref, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "deleted %s\n", ref)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d deletions failed", failed, len(values))
	}
	return nil
}
