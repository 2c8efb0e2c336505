package system

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/database"
	"github.com/Alijeyrad/simward_backend/pkg/firebase"
)

// NewSeedSuperadminCommand creates the first platform user. Superadmins have
// no organisation and cannot be created through the API.
func NewSeedSuperadminCommand() *cobra.Command {
	var email, firstName, lastName string

	cmd := &cobra.Command{
		Use:   "seed-superadmin",
		Short: "Create a platform superadmin and link their Firebase account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				return errors.New("--email is required")
			}

			cfg, err := readConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cfg)
			defer cancel()

			db, err := database.NewFromCentralConfig(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()
			users := repo.NewClient(db.GetConnection()).Users

			idp, err := firebase.New(ctx, cfg.Firebase)
			if err != nil {
				return fmt.Errorf("failed to init firebase: %w", err)
			}
			uid, err := ensureFirebaseAccount(ctx, idp, email, strings.TrimSpace(firstName+" "+lastName))
			if err != nil {
				return err
			}

			u, err := users.GetByEmail(ctx, email)
			switch {
			case errors.Is(err, repo.ErrNotFound):
				u = &repo.User{
					FirebaseUID: &uid,
					Email:       email,
					FirstName:   firstName,
					LastName:    lastName,
					Role:        authorize.UserRoleSuperAdmin,
				}
				if err := users.Create(ctx, u); err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}
			case err != nil:
				return fmt.Errorf("failed to look up user: %w", err)
			case u.Role != authorize.UserRoleSuperAdmin:
				return fmt.Errorf("user %s already exists with role %q", email, u.Role)
			default:
				if err := users.SetFirebaseUID(ctx, u.ID, uid); err != nil {
					return fmt.Errorf("failed to link firebase account: %w", err)
				}
			}

			auth, cleanup, err := openAuthorization(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup(context.Background())

			if err := authorize.SyncUserRole(ctx, auth, u.ID.String(), authorize.UserRoleSuperAdmin, ""); err != nil {
				return fmt.Errorf("failed to grant superadmin role: %w", err)
			}

			fmt.Printf("Superadmin %s ready (id %s).\n", email, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address of the superadmin")
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")

	return cmd
}

func ensureFirebaseAccount(ctx context.Context, idp firebase.IdentityProvider, email, name string) (string, error) {
	uid, err := idp.LookupByEmail(ctx, email)
	if err == nil {
		return uid, nil
	}
	if !errors.Is(err, firebase.ErrUserNotFound) {
		return "", fmt.Errorf("failed to look up firebase account: %w", err)
	}
	uid, err = idp.CreateAccount(ctx, firebase.NewAccount{Email: email, DisplayName: name})
	if err != nil {
		return "", fmt.Errorf("failed to create firebase account: %w", err)
	}
	return uid, nil
}
