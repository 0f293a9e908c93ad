package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loyalty-ledger-go/internal/api"
	"loyalty-ledger-go/internal/common"
	"loyalty-ledger-go/internal/config"
	"loyalty-ledger-go/internal/housekeeper"
	"loyalty-ledger-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP with bearer-token authentication",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, opts.mirror)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SERVER_ADDR)")
	return cmd
}

func serve(ctx context.Context, cfg *models.Config, mirror bool) error {
	auth, err := api.NewTokenAuthenticator(cfg.Server)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := common.InitializeServices(ctx, cfg, common.ServiceOptions{
		Registerer:   reg,
		EnableMirror: mirror,
	})
	if err != nil {
		return err
	}
	defer services.Close()

	svc := api.NewLedgerService(services.Ledger, services.Store)

	hk := housekeeper.NewHousekeeper(housekeeper.HousekeeperConfig{
		Ledger:            svc,
		Recorder:          services.Metrics,
		ReconcileInterval: cfg.Housekeeping.ReconcileInterval,
		PurgeInterval:     cfg.Housekeeping.PurgeInterval,
	})
	if err := hk.Start(ctx); err != nil {
		return err
	}
	defer hk.Stop()

	handler := api.NewRouter(api.RouterConfig{
		Service:        svc,
		Authenticator:  auth,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	zap.L().Info("Starting loyalty ledger server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("backend", cfg.Backend))
	return api.Run(ctx, cfg.Server.Addr, handler)
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Sign a bearer token for SUBJECT with AUTH_HMAC_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			auth, err := api.NewTokenAuthenticator(cfg.Server)
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(models.Identity(args[0]), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
