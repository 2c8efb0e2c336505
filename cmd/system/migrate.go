package system

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simward_backend/config"
	"github.com/Alijeyrad/simward_backend/internal/repo/migrations"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/database"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seed RBAC policies",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			n, err := database.NewMigrator(db.GetConnection(), migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Printf("applied %d migration(s)\n", n)

			auth, cleanup, err := openAuthorization(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup(context.Background())

			if err := authorize.SeedDefaultPolicies(ctx, auth); err != nil {
				return fmt.Errorf("failed to seed policies: %w", err)
			}
			slog.InfoContext(ctx, "rbac policies seeded")
			return nil
		},
	}

	cmd.AddCommand(newMigrateStatusCommand())

	return cmd
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List known migrations and whether they have been applied",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			statuses, err := database.NewMigrator(db.GetConnection(), migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to read migration status: %w", err)
			}
			for _, s := range statuses {
				applied := "pending"
				if s.Applied && s.AppliedAt != nil {
					applied = s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%04d  %-40s  %s\n", s.Version, s.Name, applied)
			}
			return nil
		},
	}
}

func readConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

func commandContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	return context.WithTimeout(context.Background(), timeout)
}

func openAuthorization(ctx context.Context, cfg *config.Config) (authorize.IAuthorization, authorize.CleanupFunc, error) {
	// Commands write policy directly, so neither audit nor the watcher apply.
	opts := authorize.OptionsFrom(cfg.Authorization)
	opts.Audit, opts.Watch = false, false
	auth, cleanup, err := authorize.Open(ctx, opts, database.NewDSN(cfg.CasbinDatabase), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("open authorization: %w", err)
	}
	return auth, cleanup, nil
}
