package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appfunding "github.com/banper/backend/internal/application/funding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	mu     sync.Mutex
	calls  []time.Time
	err    error
	block  chan struct{}
	result appfunding.ExpirySweepResult
}

func (f *fakeSweeper) ExpireClosedFiscalYears(ctx context.Context, now time.Time) (appfunding.ExpirySweepResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, now)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return appfunding.ExpirySweepResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeSweeper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *fakeRecorder) RecordSweep(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func newTestTrigger(t *testing.T, sweeper Sweeper, recorder SweepRecorder) *ExpiryTrigger {
	t.Helper()
	cfg := DefaultExpiryTriggerConfig()
	cfg.SweepHour = 1
	cfg.SweepMinute = 0
	cfg.CheckInterval = 10 * time.Millisecond
	cfg.JobTimeout = time.Second
	trigger, err := NewExpiryTrigger(cfg, sweeper, recorder, zap.NewNop())
	require.NoError(t, err)
	return trigger
}

func TestExpiryTriggerConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultExpiryTriggerConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*ExpiryTriggerConfig)
	}{
		{"hour too large", func(c *ExpiryTriggerConfig) { c.SweepHour = 24 }},
		{"negative minute", func(c *ExpiryTriggerConfig) { c.SweepMinute = -1 }},
		{"zero check interval", func(c *ExpiryTriggerConfig) { c.CheckInterval = 0 }},
		{"zero job timeout", func(c *ExpiryTriggerConfig) { c.JobTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultExpiryTriggerConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestExpiryTrigger_RunsOncePerDay(t *testing.T) {
	sweeper := &fakeSweeper{}
	recorder := &fakeRecorder{}
	trigger := newTestTrigger(t, sweeper, recorder)
	ctx := context.Background()

	trigger.now = func() time.Time { return time.Date(2025, 1, 2, 0, 59, 0, 0, time.UTC) }
	assert.False(t, trigger.checkAndTrigger(ctx), "before sweep time")

	trigger.now = func() time.Time { return time.Date(2025, 1, 2, 1, 0, 0, 0, time.UTC) }
	assert.True(t, trigger.checkAndTrigger(ctx))

	trigger.now = func() time.Time { return time.Date(2025, 1, 2, 13, 0, 0, 0, time.UTC) }
	assert.False(t, trigger.checkAndTrigger(ctx), "already ran today")

	// a missed minute still runs later the same day
	trigger.now = func() time.Time { return time.Date(2025, 1, 3, 7, 45, 0, 0, time.UTC) }
	assert.True(t, trigger.checkAndTrigger(ctx))

	require.Equal(t, 2, sweeper.callCount())
	assert.Equal(t, 2025, sweeper.calls[0].Year())
	assert.Equal(t, []error{nil, nil}, recorder.errs)
}

func TestExpiryTrigger_UsesConfiguredLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	sweeper := &fakeSweeper{}
	cfg := DefaultExpiryTriggerConfig()
	cfg.SweepHour, cfg.SweepMinute = 0, 5
	cfg.Location = jakarta
	trigger, err := NewExpiryTrigger(cfg, sweeper, nil, zap.NewNop())
	require.NoError(t, err)

	// 2024-12-31 17:10 UTC is already 2025-01-01 00:10 in Jakarta
	trigger.now = func() time.Time { return time.Date(2024, 12, 31, 17, 10, 0, 0, time.UTC) }
	require.True(t, trigger.checkAndTrigger(context.Background()))

	require.Equal(t, 1, sweeper.callCount())
	assert.Equal(t, 2025, sweeper.calls[0].Year())
}

func TestExpiryTrigger_RunNowReportsFailure(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("database unavailable")}
	recorder := &fakeRecorder{}
	trigger := newTestTrigger(t, sweeper, recorder)

	_, err := trigger.RunNow(context.Background())

	assert.EqualError(t, err, "database unavailable")
	require.Len(t, recorder.errs, 1)
	assert.Error(t, recorder.errs[0])
}

func TestExpiryTrigger_RunNowDoesNotOverlap(t *testing.T) {
	sweeper := &fakeSweeper{block: make(chan struct{}), result: appfunding.ExpirySweepResult{Expired: 3}}
	trigger := newTestTrigger(t, sweeper, nil)

	done := make(chan appfunding.ExpirySweepResult)
	go func() {
		result, _ := trigger.RunNow(context.Background())
		done <- result
	}()

	require.Eventually(t, func() bool { return sweeper.callCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err := trigger.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(sweeper.block)
	assert.Equal(t, 3, (<-done).Expired)

	_, err = trigger.RunNow(context.Background())
	assert.NoError(t, err)
}

func TestExpiryTrigger_StartStop(t *testing.T) {
	sweeper := &fakeSweeper{}
	trigger := newTestTrigger(t, sweeper, nil)
	trigger.now = func() time.Time { return time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	require.NoError(t, trigger.Start(ctx))
	require.NoError(t, trigger.Start(ctx))

	assert.Eventually(t, func() bool { return sweeper.callCount() == 1 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(stopCtx))
	require.NoError(t, trigger.Stop(stopCtx))
	assert.Equal(t, 1, sweeper.callCount())
}
