package system

import "github.com/spf13/cobra"

// NewSystemCommand groups one-off operator commands. None of them start
// the HTTP server.
func NewSystemCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "system",
		Short: "Provisioning and maintenance commands",
		Long: `Commands an operator runs against a deployment: create the databases,
apply migrations and RBAC seed policies, bootstrap the first superadmin
and regenerate CLI reference docs.`,
	}
	cmd.AddCommand(
		NewInitCommand(),
		NewMigrateCommand(),
		NewSeedSuperadminCommand(),
		NewGenDocsCommand(),
	)
	return cmd
}
