// ABOUTME: Serve command running the background refresh and cleanup scheduler
// ABOUTME: Optionally exposes Prometheus metrics over HTTP and shuts down cleanly on SIGINT/SIGTERM

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harper/inkreader/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh feeds and clean up on a schedule",
	Long: `Run in the foreground, refreshing every feed each refresh_interval and
deleting articles past the retention window each cleanup_interval.

A refresh that is still running when the next one is due is skipped rather
than started twice. With --metrics-addr (or metrics_addr in the config)
Prometheus metrics are served at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noInitial, _ := cmd.Flags().GetBool("no-initial-refresh")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		if metricsAddr == "" {
			metricsAddr = cfg.MetricsAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched, err := scheduler.New(core, scheduler.Options{
			RefreshInterval: cfg.RefreshInterval.Std(),
			CleanupInterval: cfg.CleanupInterval.Std(),
			InitialRefresh:  !noInitial,
			Metrics:         appMetrics,
			Logger:          logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}

		g, gctx := errgroup.WithContext(ctx)

		var srv *http.Server
		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", appMetrics.Handler())
			srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			g.Go(func() error {
				logger.Info("metrics server listening", slog.String("addr", metricsAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			})
		}

		sched.Start(gctx)
		fmt.Fprintf(cmd.OutOrStdout(), "Refreshing every %s, cleaning up every %s (retention %d days)\n",
			cfg.RefreshInterval, cfg.CleanupInterval, core.RetentionDays())

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			var errs []error
			if err := sched.Stop(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
			if srv != nil {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
				}
			}
			return errors.Join(errs...)
		})

		err = g.Wait()
		fmt.Fprintln(cmd.OutOrStdout(), "Graceful shutdown: scheduler stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("no-initial-refresh", false, "wait for the first interval instead of refreshing at startup")
	serveCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
}
