package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when LedgerMetrics is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LedgerSnapshotProvider gives the periodic collector the committed totals
// of every tenant. The allocation repository satisfies it.
type LedgerSnapshotProvider interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	Summarize(ctx context.Context, scope shared.Scope) (*ledger.AllocationSummary, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	Snapshots       LedgerSnapshotProvider
}

// LedgerMetrics turns committed domain events into counters and keeps
// per-tenant balance gauges up to date. It is registered on the event bus
// as a wildcard handler.
type LedgerMetrics struct {
	logger *zap.Logger

	eventsTotal      *Counter
	disbursedAmount  *Counter
	spentAmount      *Counter
	refundedAmount   *Counter
	expiredRemaining *Counter
	transactionSize  *Histogram
	sweepRuns        *Counter

	allocatedGauge *Gauge
	remainingGauge *Gauge

	snapshots   LedgerSnapshotProvider
	interval    time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// NewLedgerMetrics creates the ledger instruments on the given meter
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	m := &LedgerMetrics{
		logger:    logger,
		snapshots: cfg.Snapshots,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}

	counters := []struct {
		target           **Counter
		name, desc, unit string
	}{
		{&m.eventsTotal, "banper_ledger_events_total", "Committed funding and ledger events", "{events}"},
		{&m.disbursedAmount, "banper_disbursed_amount_total", "Funds released by disbursement", "{rupiah}"},
		{&m.spentAmount, "banper_spent_amount_total", "Funds recorded as expenditure", "{rupiah}"},
		{&m.refundedAmount, "banper_refunded_amount_total", "Funds returned to allocations by transaction deletion", "{rupiah}"},
		{&m.expiredRemaining, "banper_expired_remaining_total", "Unspent funds closed by fiscal year expiry", "{rupiah}"},
		{&m.sweepRuns, "banper_expiry_sweep_runs_total", "Fiscal year expiry sweep runs", "{runs}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	m.transactionSize, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "banper_transaction_amount",
		Description: "Distribution of recorded expenditure amounts",
		Unit:        "{rupiah}",
		Boundaries:  []float64{1e4, 1e5, 5e5, 1e6, 5e6, 1e7, 5e7, 1e8},
	})
	if err != nil {
		return nil, err
	}

	m.allocatedGauge, err = NewGauge(cfg.Meter, "banper_allocated_amount", "Allocated funds per tenant", "{rupiah}")
	if err != nil {
		return nil, err
	}
	m.remainingGauge, err = NewGauge(cfg.Meter, "banper_remaining_amount", "Unspent funds per tenant", "{rupiah}")
	if err != nil {
		return nil, err
	}

	return m, nil
}

// EventTypes returns nil so the bus delivers every event
func (m *LedgerMetrics) EventTypes() []string {
	return nil
}

// Handle records one committed event
func (m *LedgerMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	scopeAttrs := []attribute.KeyValue{
		AttrTenantID.String(event.TenantID().String()),
		AttrProgramID.String(event.ProgramID().String()),
	}
	m.eventsTotal.Inc(ctx, append(scopeAttrs, AttrEventType.String(event.EventType()))...)

	switch e := event.(type) {
	case *funding.FundingRequestDisbursedEvent:
		m.disbursedAmount.Add(ctx, e.DisbursedAmount, scopeAttrs...)
	case *ledger.TransactionEvent:
		attrs := append(scopeAttrs, AttrCategory.String(string(e.Category)))
		switch e.EventType() {
		case ledger.EventTypeTransactionRecorded:
			m.spentAmount.Add(ctx, e.Amount, attrs...)
			m.transactionSize.Record(ctx, float64(e.Amount), attrs...)
		case ledger.EventTypeTransactionDeleted:
			m.refundedAmount.Add(ctx, e.Amount, attrs...)
		}
	case *ledger.AllocationEvent:
		if e.EventType() == ledger.EventTypeAllocationExpired {
			m.expiredRemaining.Add(ctx, e.RemainingAmount, append(scopeAttrs, AttrSource.String(string(e.Source)))...)
		}
	}
	return nil
}

// RecordSweep records the outcome of one expiry sweep run
func (m *LedgerMetrics) RecordSweep(ctx context.Context, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.sweepRuns.Inc(ctx, AttrSweepResult.String(result))
}

// StartPeriodicCollection starts refreshing the balance gauges. It is
// non-blocking and only starts once; use Stop to end it.
func (m *LedgerMetrics) StartPeriodicCollection(ctx context.Context) {
	m.collectOnce.Do(func() {
		if m.snapshots == nil {
			m.logger.Debug("No snapshot provider configured, skipping balance gauges")
			return
		}
		go m.runPeriodicCollection(ctx)
	})
}

func (m *LedgerMetrics) runPeriodicCollection(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CollectBalances(ctx)
	for {
		select {
		case <-m.stopChan:
			m.logger.Info("Stopping ledger balance collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CollectBalances(ctx)
		}
	}
}

// CollectBalances records the allocated and remaining totals of every tenant
func (m *LedgerMetrics) CollectBalances(ctx context.Context) {
	if m.snapshots == nil {
		return
	}
	tenants, err := m.snapshots.ListTenantIDs(ctx)
	if err != nil {
		m.logger.Error("Failed to list tenants for balance metrics", zap.Error(err))
		return
	}
	for _, tenantID := range tenants {
		summary, err := m.snapshots.Summarize(ctx, shared.NewScope(tenantID, uuid.Nil))
		if err != nil {
			m.logger.Warn("Failed to summarize tenant allocations",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		attr := AttrTenantID.String(tenantID.String())
		m.allocatedGauge.Record(ctx, summary.AllocatedAmount, attr)
		m.remainingGauge.Record(ctx, summary.RemainingAmount, attr)
	}
}

// Stop stops the periodic collection. It is safe to call more than once.
func (m *LedgerMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

var _ shared.EventHandler = (*LedgerMetrics)(nil)
