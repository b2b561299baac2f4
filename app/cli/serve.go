package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirphl/widget-sidebar/app/middleware"
	"github.com/amirphl/widget-sidebar/app/router"
	"github.com/amirphl/widget-sidebar/app/scheduler"
	"github.com/amirphl/widget-sidebar/app/services"
	"github.com/spf13/cobra"
)

func newServeCommand(configFile *string) *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(*configFile)
			if err != nil {
				return err
			}
			defer rt.close()

			if autoMigrate {
				if err := rt.migrate(); err != nil {
					return err
				}
			}
			return serve(rt)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "migrate the schema before serving")

	return cmd
}

func serve(rt *runtime) error {
	cfg := rt.cfg

	var auth *middleware.AuthMiddleware
	if cfg.Auth.Enabled {
		tokens, err := services.NewTokenService(cfg.Auth.TokenTTL, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.SecretKey)
		if err != nil {
			return fmt.Errorf("failed to build token service: %w", err)
		}
		auth = middleware.NewAuthMiddleware(tokens)
	}

	r := router.NewFiberRouter(cfg, rt.log, rt.flows.Handlers(cfg.Export.DefaultFormat), auth)
	r.SetupRoutes()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if rt.rc != nil {
		rt.stops = append(rt.stops, startCacheHealthMonitor(ctx, rt.rc, cfg.Cache.HealthCheckInterval, rt.log))
	}
	if cfg.Maintenance.Enabled {
		auditor := scheduler.NewOrderAuditor(rt.flows.Containers, rt.flows.Engine, rt.flows.Categories, cfg.Maintenance, rt.log)
		rt.stops = append(rt.stops, auditor.Start(ctx))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		rt.log.Info("server starting", "address", address)
		errChan <- r.Start(address)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case sig := <-sigChan:
		rt.log.Info("shutting down gracefully", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := r.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		rt.log.Error("error during shutdown", "error", err)
		return err
	}

	rt.log.Info("server stopped")
	return nil
}
