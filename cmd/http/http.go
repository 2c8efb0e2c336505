package http

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewHTTPCommand groups the commands that run the public API.
func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "http",
		Aliases: []string{"serve"},
		Short:   "Run the REST API and the realtime relay",
	}
	cmd.AddCommand(NewStartCommand())
	return cmd
}

// configDir turns the --config file path into the directory viper searches.
func configDir(path string) string {
	return filepath.Dir(path)
}
