// Package cli holds the widget-sidebar command tree
package cli

import (
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags
var Version = "dev"

// NewRootCommand builds the widget-sidebar root command
func NewRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "widget-sidebar",
		Short: "Widget sidebar service",
		Long: `widget-sidebar serves ordered area and project containers of relations and
components over HTTP, and exports or imports them from the command line.

Examples:
  widget-sidebar serve
  widget-sidebar migrate
  widget-sidebar export --container 3 --format yaml --out area.yaml
  widget-sidebar import --file area.yaml --mode merge`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml)")

	cmd.AddCommand(newServeCommand(&configFile))
	cmd.AddCommand(newMigrateCommand(&configFile))
	cmd.AddCommand(newExportCommand(&configFile))
	cmd.AddCommand(newImportCommand(&configFile))
	cmd.AddCommand(newAuditCommand(&configFile))
	cmd.AddCommand(newTokenCommand(&configFile))

	return cmd
}
