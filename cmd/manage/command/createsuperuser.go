package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mediareview/database"
	"mediareview/internal/microservices/http-api/repository"
	"mediareview/internal/microservices/http-api/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	superuserName  string
	superuserEmail string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create or promote the bootstrap administrator",
	Long: `Creates an admin account with the superuser and staff flags set, or
promotes the existing account with the same username and email. Defaults come
from ADMIN_USERNAME and ADMIN_EMAIL. The account then obtains a token through
the regular signup and token endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		username, email := superuserName, superuserEmail
		if username == "" {
			username = cfg.AdminUsername
		}
		if email == "" {
			email = cfg.AdminEmail
		}
		if username == "" || email == "" {
			return errors.New("username and email are required (flags or ADMIN_USERNAME/ADMIN_EMAIL)")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		user, created, err := service.EnsureSuperuser(ctx, repository.NewUserRepository(db), username, email)
		if err != nil {
			return fmt.Errorf("create superuser: %w", err)
		}

		if created {
			color.Green("✓ Superuser %q created", user.Username)
		} else {
			color.Yellow("✓ User %q promoted to superuser", user.Username)
		}
		color.HiBlack("Request a confirmation code with POST /api/v1/auth/signup/")
		return nil
	},
}

func init() {
	createSuperuserCmd.Flags().StringVar(&superuserName, "username", "", "superuser username (default $ADMIN_USERNAME)")
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "superuser email (default $ADMIN_EMAIL)")
}
