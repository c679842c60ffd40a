package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"forum/internal/bootstrap"
	"forum/internal/models"
	"forum/internal/password"
	"forum/internal/repository"
	"forum/internal/service"
	"forum/internal/validation"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	adminUsername string
	adminEmail    string
	adminPassword string
	adminForce    bool
)

// adminCmd groups administrator account management.
var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage administrator accounts",
	Long: `Manage administrator accounts.

Subcommands:
  promote  - Grant ADMIN to a user
  demote   - Revoke ADMIN from a user
  list     - List administrators
  create   - Create or promote an administrator by email`,
}

var adminPromoteCmd = &cobra.Command{
	Use:   "promote <user_id>",
	Short: "Grant ADMIN to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			return setRole(cmd.Context(), db, cmd.OutOrStdout(), args[0], models.RoleAdmin)
		})
	},
}

var adminDemoteCmd = &cobra.Command{
	Use:   "demote <user_id>",
	Short: "Revoke ADMIN from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			return setRole(cmd.Context(), db, cmd.OutOrStdout(), args[0], models.RoleUser)
		})
	},
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List administrators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			return listAdmins(db, cmd.OutOrStdout())
		})
	},
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create or promote an administrator by email",
	Long: `Create an administrator account, or promote the account that already
uses the email. With --force the username and password are overwritten.

Examples:
  forumctl admin create --username root --email root@forum.local --password s3cret!`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			return createAdmin(db, cmd.OutOrStdout(), adminUsername, adminEmail, adminPassword, adminForce)
		})
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminPromoteCmd, adminDemoteCmd, adminListCmd, adminCreateCmd)

	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "Username for a new account")
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "Account email")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "Plain-text password")
	adminCreateCmd.Flags().BoolVar(&adminForce, "force", false, "Overwrite username and password of an existing account")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
}

func withDB(fn func(db *gorm.DB) error) error {
	rt, err := openRuntime(false)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.Background()) }()
	return fn(rt.DB)
}

func setRole(ctx context.Context, db *gorm.DB, out io.Writer, rawID, role string) error {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid user id %q", rawID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	users := service.NewUserService(repository.NewUserRepository(db), nil)
	user, err := users.SetRole(ctx, uint(id), role)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return fmt.Errorf("user %d not found", id)
		}
		return err
	}
	fmt.Fprintf(out, "%s (ID: %d) is now %s\n", user.Username, user.ID, user.Role)
	return nil
}

func listAdmins(db *gorm.DB, out io.Writer) error {
	var admins []models.User
	if err := db.Where("role = ?", models.RoleAdmin).Order("id").Find(&admins).Error; err != nil {
		return fmt.Errorf("fetch admins: %w", err)
	}
	if len(admins) == 0 {
		fmt.Fprintln(out, "No admins found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL")
	for _, a := range admins {
		fmt.Fprintf(w, "%d\t%s\t%s\n", a.ID, a.Username, a.Email)
	}
	return w.Flush()
}

func createAdmin(db *gorm.DB, out io.Writer, username, email, plain string, force bool) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}
	if err := validation.ValidatePassword(plain); err != nil {
		return err
	}

	hashed, err := password.Hash(plain)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := bootstrap.EnsureAdmin(db, username, email, hashed, force); err != nil {
		return err
	}
	fmt.Fprintf(out, "Administrator %s ensured\n", email)
	return nil
}
