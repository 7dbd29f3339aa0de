package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Ning0612/Dropzone/internal/adapter/local"
	"github.com/Ning0612/Dropzone/internal/lock"
	"github.com/Ning0612/Dropzone/internal/metrics"
	"github.com/Ning0612/Dropzone/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var listen, lockDir string

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Treat entries created in a directory as drops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cmd.Flags().Changed("metrics-listen") {
				a.cfg.Metrics.Listen = listen
			}

			inboxLock, err := lock.New(lockDir, args[0])
			if err != nil {
				return err
			}
			if err := inboxLock.Acquire(a.cfg.Dropzone.Name); err != nil {
				return err
			}
			defer func() {
				if err := inboxLock.Release(); err != nil {
					a.log.Warn("failed to release inbox lock", "error", err)
				}
			}()

			src, err := local.New(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer src.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			rec := metrics.New(reg)

			svc, err := a.newService(cmd, rec)
			if err != nil {
				return err
			}

			w, err := watch.New(args[0], src, svc,
				watch.WithDebounce(a.cfg.Watch.Debounce),
				watch.WithLogger(a.log),
			)
			if err != nil {
				return err
			}

			if addr := a.cfg.Metrics.Listen; addr != "" {
				stopMetrics := a.serveMetrics(addr, reg)
				defer stopMetrics()
			}

			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&lockDir, "lock-dir", "", "directory for the inbox lock (default: user config dir)")
	cmd.Flags().StringVar(&listen, "metrics-listen", "", "serve Prometheus metrics on this address, e.g. :9102")
	return cmd
}

// serveMetrics exposes /metrics until the returned func is called
func (a *app) serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.log.Warn("metrics server shutdown", "error", err)
		}
	}
}
