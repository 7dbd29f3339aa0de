package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ning0612/Dropzone/internal/domain"
	"github.com/Ning0612/Dropzone/internal/logger"
)

// IntervalScheduler runs a Runner on a time.Ticker
type IntervalScheduler struct {
	config Config
	runner Runner
	logger logger.Logger

	mu          sync.RWMutex
	running     bool
	stopped     bool // a stopped scheduler cannot be restarted
	stopOnce    sync.Once
	closeOnce   sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}

	stats struct {
		lastRunTime    time.Time
		nextRunTime    time.Time
		totalRuns      int
		successfulRuns int
		failedRuns     int
		lastError      string
	}
}

// Option configures an IntervalScheduler
type Option func(*IntervalScheduler)

// WithLogger sets the logger used for failed runs
func WithLogger(l logger.Logger) Option {
	return func(s *IntervalScheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewIntervalScheduler creates an interval scheduler
func NewIntervalScheduler(config Config, runner Runner, opts ...Option) (*IntervalScheduler, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %v", domain.ErrConfigInvalid, config.Interval)
	}
	if runner == nil {
		return nil, fmt.Errorf("%w: runner cannot be nil", domain.ErrConfigInvalid)
	}

	s := &IntervalScheduler{
		config:      config,
		runner:      runner,
		logger:      &logger.NullLogger{},
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins the scheduling loop
func (s *IntervalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.stopped {
		return fmt.Errorf("scheduler cannot be restarted after stop")
	}

	s.running = true
	s.stats.nextRunTime = time.Now().Add(s.config.Interval)

	go s.run(ctx)
	return nil
}

func (s *IntervalScheduler) run(ctx context.Context) {
	defer s.closeOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.running = false
		s.mu.Unlock()
		close(s.stoppedChan)
	})

	if s.config.Immediate {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *IntervalScheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	s.stats.lastRunTime = time.Now()
	s.stats.totalRuns++
	s.stats.nextRunTime = time.Now().Add(s.config.Interval)
	s.mu.Unlock()

	err := s.runner.RunOnce(ctx)

	// a newer interaction replacing this one is not a failure
	if errors.Is(err, domain.ErrSuperseded) {
		err = nil
	}
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("scheduled drop failed", "error", err)
	}

	s.mu.Lock()
	if err != nil {
		s.stats.failedRuns++
		s.stats.lastError = err.Error()
	} else {
		s.stats.successfulRuns++
		s.stats.lastError = ""
	}
	s.mu.Unlock()
}

// Stop ends the loop and waits for an in-flight run to finish
func (s *IntervalScheduler) Stop() error {
	s.mu.RLock()
	if !s.running {
		s.mu.RUnlock()
		return fmt.Errorf("scheduler is not running")
	}
	s.mu.RUnlock()

	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	<-s.stoppedChan

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

// Done is closed once the loop has exited
func (s *IntervalScheduler) Done() <-chan struct{} {
	return s.stoppedChan
}

// Status returns the current scheduler status
func (s *IntervalScheduler) Status() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Status{
		Running:        s.running,
		LastRunTime:    s.stats.lastRunTime,
		NextRunTime:    s.stats.nextRunTime,
		TotalRuns:      s.stats.totalRuns,
		SuccessfulRuns: s.stats.successfulRuns,
		FailedRuns:     s.stats.failedRuns,
		LastError:      s.stats.lastError,
	}
}
