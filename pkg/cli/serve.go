package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/cli/config"
	httpctrl "github.com/secmon-lab/complytrack/pkg/controller/http"
	"github.com/secmon-lab/complytrack/pkg/service/worker"
	"github.com/secmon-lab/complytrack/pkg/usecase"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
	"github.com/secmon-lab/complytrack/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func cmdServe() *cli.Command {
	var addr string
	var enableMetrics bool
	var snapshotInterval time.Duration
	var repoCfg config.Repository
	var catalogCfg config.Catalog
	var slackCfg config.Slack

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":3000",
			Sources:     cli.EnvVars("COMPLYTRACK_ADDR", "PORT"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "metrics",
			Usage:       "Expose Prometheus metrics on /metrics",
			Value:       true,
			Sources:     cli.EnvVars("COMPLYTRACK_METRICS"),
			Destination: &enableMetrics,
		},
		&cli.DurationFlag{
			Name:        "metrics-snapshot-interval",
			Usage:       "Interval for refreshing the per-status risk gauges",
			Value:       time.Minute,
			Sources:     cli.EnvVars("COMPLYTRACK_METRICS_SNAPSHOT_INTERVAL"),
			Destination: &snapshotInterval,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, catalogCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Serve configuration",
				"addr", addr,
				"repository", repoCfg,
				"catalog", catalogCfg,
				"slack", slackCfg,
			)

			catalog, err := catalogCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load seed catalog")
			}

			notifier, err := slackCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure slack notification")
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			ucOpts := []usecase.Option{
				usecase.WithCatalog(catalog),
			}
			if notifier != nil {
				ucOpts = append(ucOpts, usecase.WithNotifier(notifier))
			}

			var httpOpts []httpctrl.Options
			if enableMetrics {
				m := metrics.New()
				ucOpts = append(ucOpts, usecase.WithMetrics(m))
				httpOpts = append(httpOpts, httpctrl.WithMetrics(m))

				snapshotWorker := worker.NewRiskSnapshotWorker(repo.Risk(), m, snapshotInterval)
				if err := snapshotWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start risk snapshot worker")
				}
				defer snapshotWorker.Stop()
			}

			uc := usecase.New(repo, ucOpts...)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc.Risk, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "metrics", enableMetrics)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server", goerr.V("addr", addr))
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
			case <-ctx.Done():
				logging.Default().Info("Context canceled, shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			// Let in-flight notifications finish before the repository closes
			if err := uc.Wait(shutdownCtx); err != nil {
				logging.Default().Warn("pending notifications were not drained", "error", err.Error())
			}

			logging.Default().Info("Server shutdown completed")
			return nil
		},
	}
}
