package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/Alijeyrad/simward_backend/cmd/http"
	systemcmd "github.com/Alijeyrad/simward_backend/cmd/system"
	"github.com/Alijeyrad/simward_backend/pkg/logs"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "simward",
	Short: "Simward multi-tenant clinical simulation backend.",
	Long: `Simward is a multi-tenant backend for clinical training wards.
Organisations manage simulated patients, observations with early warning scores,
prescriptions, investigations and live teaching sessions from one deployment.`,
}

func Execute() {
	slog.SetDefault(logs.Default())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
