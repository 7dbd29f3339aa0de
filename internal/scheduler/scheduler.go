// Package scheduler re-runs a drop on a fixed interval, for sources that
// cannot push change notifications.
package scheduler

import (
	"context"
	"time"
)

// Scheduler runs a Runner until stopped
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
	Status() *Status
	// Done is closed once the loop has exited
	Done() <-chan struct{}
}

// Status is a snapshot of scheduler progress
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
}

// Config configures an IntervalScheduler
type Config struct {
	// Interval between runs
	Interval time.Duration

	// Immediate runs once on Start instead of waiting a full interval
	Immediate bool
}

// Runner performs one scheduled drop
type Runner interface {
	RunOnce(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) RunOnce(ctx context.Context) error { return f(ctx) }
