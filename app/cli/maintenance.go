package cli

import (
	"context"
	"fmt"

	"github.com/amirphl/widget-sidebar/app/scheduler"
	"github.com/amirphl/widget-sidebar/app/services"
	"github.com/amirphl/widget-sidebar/config"
	"github.com/amirphl/widget-sidebar/utils"
	"github.com/spf13/cobra"
)

func newMigrateCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*configFile)
			if err != nil {
				return err
			}
			defer rt.close()

			return rt.migrate()
		},
	}
}

func newAuditCommand(configFile *string) *cobra.Command {
	var (
		normalize bool
		prune     bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check every container for colliding order indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*configFile)
			if err != nil {
				return err
			}
			defer rt.close()

			mcfg := rt.cfg.Maintenance
			mcfg.AutoNormalize = normalize
			mcfg.PruneCategoryTags = prune

			auditor := scheduler.NewOrderAuditor(rt.flows.Containers, rt.flows.Engine, rt.flows.Categories, mcfg, rt.log)
			ctx, cancel := context.WithTimeout(context.Background(), utils.ExportRequestTimeout)
			defer cancel()

			report := auditor.RunOnce(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "checked: %d\n", report.Checked)
			fmt.Fprintf(out, "inconsistent: %v\n", report.Inconsistent)
			if normalize {
				fmt.Fprintf(out, "normalized: %v\n", report.Normalized)
			}
			if prune {
				fmt.Fprintf(out, "pruned category tags: %d\n", report.PrunedTags)
			}
			if report.Failures > 0 {
				return fmt.Errorf("%d containers could not be audited", report.Failures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&normalize, "normalize", false, "renumber inconsistent containers")
	cmd.Flags().BoolVar(&prune, "prune-category-tags", false, "delete category tags no category uses")

	return cmd
}

func newTokenCommand(configFile *string) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			a := cfg.Auth
			tokens, err := services.NewTokenService(a.TokenTTL, a.Issuer, a.Audience, a.SecretKey)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateToken(subject)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&subject, "subject", "s", "", "token subject")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}
