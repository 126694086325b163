// Package scheduler runs the daily fiscal-year-end expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appfunding "github.com/banper/backend/internal/application/funding"
	"go.uber.org/zap"
)

// Sweeper expires allocations whose fiscal year has closed
type Sweeper interface {
	ExpireClosedFiscalYears(ctx context.Context, now time.Time) (appfunding.ExpirySweepResult, error)
}

// SweepRecorder receives the outcome of every sweep run
type SweepRecorder interface {
	RecordSweep(ctx context.Context, err error)
}

// ExpiryTriggerConfig holds configuration for the daily sweep
type ExpiryTriggerConfig struct {
	SweepHour     int // 0-23, in Location
	SweepMinute   int
	CheckInterval time.Duration
	JobTimeout    time.Duration
	Location      *time.Location
}

// DefaultExpiryTriggerConfig runs the sweep at 00:30 UTC
func DefaultExpiryTriggerConfig() ExpiryTriggerConfig {
	return ExpiryTriggerConfig{
		SweepHour:     0,
		SweepMinute:   30,
		CheckInterval: time.Minute,
		JobTimeout:    30 * time.Minute,
		Location:      time.UTC,
	}
}

// Validate checks the configured time of day and intervals
func (c ExpiryTriggerConfig) Validate() error {
	if c.SweepHour < 0 || c.SweepHour > 23 || c.SweepMinute < 0 || c.SweepMinute > 59 {
		return fmt.Errorf("%w: sweep time %02d:%02d", ErrInvalidConfig, c.SweepHour, c.SweepMinute)
	}
	if c.CheckInterval <= 0 || c.JobTimeout <= 0 {
		return fmt.Errorf("%w: check interval and job timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// ExpiryTrigger checks the clock every CheckInterval and runs the sweep once
// per day when the configured time of day is reached. The sweep is
// idempotent, so a restart that runs it twice on one day is harmless.
type ExpiryTrigger struct {
	config   ExpiryTriggerConfig
	sweeper  Sweeper
	recorder SweepRecorder
	logger   *zap.Logger
	now      func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
	sweeping    atomic.Bool
}

// NewExpiryTrigger creates a trigger. recorder may be nil.
func NewExpiryTrigger(config ExpiryTriggerConfig, sweeper Sweeper, recorder SweepRecorder, logger *zap.Logger) (*ExpiryTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &ExpiryTrigger{
		config:   config,
		sweeper:  sweeper,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start starts the check loop
func (t *ExpiryTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Expiry sweep trigger started",
		zap.Int("sweep_hour", t.config.SweepHour),
		zap.Int("sweep_minute", t.config.SweepMinute),
		zap.Duration("check_interval", t.config.CheckInterval),
	)
	return nil
}

// Stop stops the loop and waits for a running sweep until ctx expires
func (t *ExpiryTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	cancel := t.cancel
	t.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Expiry sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *ExpiryTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the sweep if the time of day has been reached and it
// has not run yet today
func (t *ExpiryTrigger) checkAndTrigger(ctx context.Context) bool {
	now := t.now().In(t.config.Location)
	today := now.Format(time.DateOnly)

	t.mu.Lock()
	if t.lastRunDate == today || !t.due(now) {
		t.mu.Unlock()
		return false
	}
	t.lastRunDate = today
	t.mu.Unlock()

	if _, err := t.RunNow(ctx); err != nil {
		t.logger.Error("Scheduled expiry sweep failed", zap.Error(err))
	}
	return true
}

// due reports whether now is at or after today's sweep time. A loop that
// was down at the exact minute still runs later the same day.
func (t *ExpiryTrigger) due(now time.Time) bool {
	sweepAt := time.Date(now.Year(), now.Month(), now.Day(), t.config.SweepHour, t.config.SweepMinute, 0, 0, t.config.Location)
	return !now.Before(sweepAt)
}

// RunNow runs one sweep immediately, bounded by JobTimeout. It fails with
// ErrSweepInProgress instead of overlapping a running sweep.
func (t *ExpiryTrigger) RunNow(ctx context.Context) (appfunding.ExpirySweepResult, error) {
	if !t.sweeping.CompareAndSwap(false, true) {
		return appfunding.ExpirySweepResult{}, ErrSweepInProgress
	}
	defer t.sweeping.Store(false)

	ctx, cancel := context.WithTimeout(ctx, t.config.JobTimeout)
	defer cancel()

	started := t.now().In(t.config.Location)
	result, err := t.sweeper.ExpireClosedFiscalYears(ctx, started)
	if t.recorder != nil {
		t.recorder.RecordSweep(ctx, err)
	}
	if err != nil {
		return result, err
	}

	t.logger.Info("Expiry sweep run finished",
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", t.now().Sub(started)),
	)
	return result, nil
}
