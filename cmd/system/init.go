package system

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simward_backend/pkg/database"
)

func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the application and policy databases if missing",
		Long: `init connects to the server's postgres database and creates every
database listed under server.databases that does not exist yet. Run it
once before migrate on a fresh server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cfg)
			defer cancel()

			server := database.FromCentralConfig(cfg.Database)
			if err := database.EnsureDatabases(ctx, server, cfg.Server.Databases); err != nil {
				return fmt.Errorf("initialize databases: %w", err)
			}
			fmt.Println("databases ready")
			return nil
		},
	}
}
