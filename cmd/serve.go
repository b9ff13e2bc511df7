package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mzee2025/rdi-dashboard/internal/config"
	"github.com/mzee2025/rdi-dashboard/internal/refresh"
	"github.com/mzee2025/rdi-dashboard/internal/resilience"
	"github.com/mzee2025/rdi-dashboard/internal/server"
	"github.com/mzee2025/rdi-dashboard/internal/source"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard and refresh it on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		onaSrc, err := initONASource()
		if err != nil {
			return err
		}
		src := source.NewGuarded(onaSrc, resilience.Config{
			FailureThreshold: cfg.Source.BreakerThreshold,
			ResetTimeout:     time.Duration(cfg.Source.BreakerResetSecs) * time.Second,
		})
		a, err := initApp(ctx, config.ModeServe, src, prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		defer a.Close()

		sched, err := refresh.NewScheduler(a.Orch, cfg.Refresh.Interval, cfg.Refresh.OnStart)
		if err != nil {
			return err
		}
		srv := server.New(server.Config{
			Port:            cfg.Server.Port,
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			RefreshInterval: cfg.Refresh.Interval,
		}, a.Orch)

		zap.L().Info("starting rdi dashboard",
			zap.String("source", src.Name()),
			zap.String("schedule", cfg.Refresh.Interval),
			zap.Int("port", cfg.Server.Port),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Run(gctx) })
		g.Go(func() error { return sched.Run(gctx) })
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
