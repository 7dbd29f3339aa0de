package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Dropzone/internal/scheduler"
)

func newPollCmd(a *app) *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)

	cmd := &cobra.Command{
		Use:   "poll <path>...",
		Short: "Drop the same paths from a source on an interval",
		Long: `Poll re-resolves the given paths from the source every --interval and
emits one event per run. Use it for remote sources such as gdrive or s3,
which cannot be watched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			src, err := a.openSource(ctx)
			if err != nil {
				return fmt.Errorf("open source: %w", err)
			}
			defer src.Close()

			svc, err := a.newService(cmd, nil)
			if err != nil {
				return err
			}

			runner := scheduler.RunnerFunc(func(ctx context.Context) error {
				payload, err := entryPayload(ctx, src, args)
				if err != nil {
					return err
				}
				return svc.HandleDrop(ctx, payload)
			})

			if once {
				return runner.RunOnce(ctx)
			}

			sched, err := scheduler.NewIntervalScheduler(
				scheduler.Config{Interval: interval, Immediate: true},
				runner,
				scheduler.WithLogger(a.log),
			)
			if err != nil {
				return err
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}

			a.log.Info("polling", "paths", args, "interval", interval)
			<-sched.Done()

			status := sched.Status()
			a.log.Info("polling stopped", "runs", status.TotalRuns, "failed", status.FailedRuns)
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "time between runs")
	cmd.Flags().BoolVar(&once, "once", false, "run a single drop and exit")
	return cmd
}
