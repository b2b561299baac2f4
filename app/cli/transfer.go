package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	businessflow "github.com/amirphl/widget-sidebar/business_flow"
	"github.com/amirphl/widget-sidebar/utils"
	"github.com/spf13/cobra"
)

func newExportCommand(configFile *string) *cobra.Command {
	var (
		containerID uint
		format      string
		out         string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a container to a json, yaml or xlsx file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*configFile)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := context.WithTimeout(context.Background(), utils.ExportRequestTimeout)
			defer cancel()

			format = businessflow.NormalizeFormat(format, rt.cfg.Export.DefaultFormat)
			name, data, err := rt.flows.Exports.Export(ctx, containerID, format)
			if err != nil {
				return err
			}

			if out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if out == "" {
				out = filepath.Join(rt.cfg.Export.Directory, name)
			}
			if dir := filepath.Dir(out); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create export directory: %w", err)
				}
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported container %d to %s\n", containerID, out)
			return nil
		},
	}

	cmd.Flags().UintVar(&containerID, "container", 0, "container id")
	cmd.Flags().StringVarP(&format, "format", "f", "", "json, yaml or xlsx (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default <export dir>/<name>)")
	_ = cmd.MarkFlagRequired("container")

	return cmd
}

func newImportCommand(configFile *string) *cobra.Command {
	var (
		file   string
		format string
		mode   string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create or merge a container from an exported file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*configFile)
			if err != nil {
				return err
			}
			defer rt.close()

			var data []byte
			if file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(file), ".")
			}
			format = businessflow.NormalizeFormat(format, businessflow.FormatJSON)

			doc, err := rt.flows.Exports.ParseDocument(data, format)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), utils.ExportRequestTimeout)
			defer cancel()

			container, err := rt.flows.Exports.Import(ctx, doc, mode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s %q as container %d (mode %s)\n",
				container.Kind, container.Name, container.ID, mode)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "file to import, - for stdin")
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default from the file extension)")
	cmd.Flags().StringVarP(&mode, "mode", "m", businessflow.ImportModeNew, "new or merge")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
