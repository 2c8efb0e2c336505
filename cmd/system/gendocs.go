package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func NewGenDocsCommand() *cobra.Command {
	var outDir, format string

	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Generate reference docs for every simward command",
		Long: `gendocs walks the command tree and writes one file per command.
Formats are markdown (default), man and yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", outDir, err)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %q: %w", dir, err)
			}
			if err := writeDocs(cmd.Root(), dir, format); err != nil {
				return err
			}
			fmt.Printf("%s docs written to %s\n", format, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "outdir", "docs/cli", "output directory")
	cmd.Flags().StringVar(&format, "format", "markdown", "markdown, man or yaml")
	return cmd
}

func writeDocs(root *cobra.Command, dir, format string) error {
	root.DisableAutoGenTag = true
	switch format {
	case "markdown", "md":
		return doc.GenMarkdownTree(root, dir)
	case "man":
		return doc.GenManTree(root, &doc.GenManHeader{Title: "SIMWARD", Section: "1"}, dir)
	case "yaml":
		return doc.GenYamlTree(root, dir)
	default:
		return fmt.Errorf("unknown docs format %q", format)
	}
}
