package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/banper/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type stubSnapshots struct {
	tenants   []uuid.UUID
	summaries map[uuid.UUID]*ledger.AllocationSummary
	listErr   error
}

func (s *stubSnapshots) ListTenantIDs(context.Context) ([]uuid.UUID, error) {
	return s.tenants, s.listErr
}

func (s *stubSnapshots) Summarize(_ context.Context, scope shared.Scope) (*ledger.AllocationSummary, error) {
	summary, ok := s.summaries[scope.TenantID]
	if !ok {
		return nil, errors.New("no summary")
	}
	return summary, nil
}

func newTestLedgerMetrics(t *testing.T, snapshots telemetry.LedgerSnapshotProvider) (*telemetry.LedgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:           provider.Meter("test"),
		Logger:          zap.NewNop(),
		CollectInterval: time.Hour,
		Snapshots:       snapshots,
	})
	require.NoError(t, err)
	t.Cleanup(m.Stop)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func sumOf(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func gaugeOf(rm metricdata.ResourceMetrics, name string) map[string]int64 {
	values := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if gauge, ok := m.Data.(metricdata.Gauge[int64]); ok {
				for _, dp := range gauge.DataPoints {
					tenant, _ := dp.Attributes.Value(telemetry.AttrTenantID)
					values[tenant.AsString()] = dp.Value
				}
			}
		}
	}
	return values
}

func transactionEvent(eventType string, scope shared.Scope, amount int64) *ledger.TransactionEvent {
	id := uuid.New()
	return &ledger.TransactionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, ledger.AggregateTypeTransaction, id, scope),
		TransactionID:   id,
		Category:        ledger.CategoryFoodProcurement,
		Amount:          amount,
	}
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{})
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestLedgerMetrics_Handle(t *testing.T) {
	m, reader := newTestLedgerMetrics(t, nil)
	ctx := context.Background()
	scope := shared.NewScope(uuid.New(), uuid.New())

	assert.Empty(t, m.EventTypes())

	requestID := uuid.New()
	events := []shared.DomainEvent{
		&funding.FundingRequestDisbursedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(funding.EventTypeFundingRequestDisbursed, funding.AggregateTypeFundingRequest, requestID, scope),
			RequestID:       requestID,
			RequestedAmount: 1000,
			DisbursedAmount: 900,
		},
		transactionEvent(ledger.EventTypeTransactionRecorded, scope, 300),
		transactionEvent(ledger.EventTypeTransactionRecorded, scope, 200),
		transactionEvent(ledger.EventTypeTransactionDeleted, scope, 200),
		transactionEvent(ledger.EventTypeTransactionApproved, scope, 300),
		&ledger.AllocationEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypeAllocationExpired, ledger.AggregateTypeAllocation, uuid.New(), scope),
			Source:          ledger.FundingSourceCentralBudget,
			RemainingAmount: 600,
		},
	}
	for _, e := range events {
		require.NoError(t, m.Handle(ctx, e))
	}

	rm := collect(t, reader)
	assert.Equal(t, int64(len(events)), sumOf(rm, "banper_ledger_events_total"))
	assert.Equal(t, int64(900), sumOf(rm, "banper_disbursed_amount_total"))
	assert.Equal(t, int64(500), sumOf(rm, "banper_spent_amount_total"))
	assert.Equal(t, int64(200), sumOf(rm, "banper_refunded_amount_total"))
	assert.Equal(t, int64(600), sumOf(rm, "banper_expired_remaining_total"))
}

func TestLedgerMetrics_RecordSweep(t *testing.T) {
	m, reader := newTestLedgerMetrics(t, nil)
	ctx := context.Background()

	m.RecordSweep(ctx, nil)
	m.RecordSweep(ctx, errors.New("db down"))

	assert.Equal(t, int64(2), sumOf(collect(t, reader), "banper_expiry_sweep_runs_total"))
}

func TestLedgerMetrics_CollectBalances(t *testing.T) {
	healthy, broken := uuid.New(), uuid.New()
	snapshots := &stubSnapshots{
		tenants: []uuid.UUID{healthy, broken},
		summaries: map[uuid.UUID]*ledger.AllocationSummary{
			healthy: {Count: 2, AllocatedAmount: 1500, SpentAmount: 400, RemainingAmount: 1100},
		},
	}
	m, reader := newTestLedgerMetrics(t, snapshots)

	m.CollectBalances(context.Background())

	rm := collect(t, reader)
	assert.Equal(t, map[string]int64{healthy.String(): 1500}, gaugeOf(rm, "banper_allocated_amount"))
	assert.Equal(t, map[string]int64{healthy.String(): 1100}, gaugeOf(rm, "banper_remaining_amount"))
}

func TestLedgerMetrics_CollectBalancesListError(t *testing.T) {
	m, reader := newTestLedgerMetrics(t, &stubSnapshots{listErr: errors.New("db down")})

	m.CollectBalances(context.Background())

	assert.Empty(t, gaugeOf(collect(t, reader), "banper_remaining_amount"))
}

func TestLedgerMetrics_PeriodicCollection(t *testing.T) {
	tenant := uuid.New()
	snapshots := &stubSnapshots{
		tenants: []uuid.UUID{tenant},
		summaries: map[uuid.UUID]*ledger.AllocationSummary{
			tenant: {AllocatedAmount: 10, RemainingAmount: 7},
		},
	}
	m, reader := newTestLedgerMetrics(t, snapshots)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartPeriodicCollection(ctx)
	m.StartPeriodicCollection(ctx)

	// the first collection runs immediately on start
	assert.Eventually(t, func() bool {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			return false
		}
		return gaugeOf(rm, "banper_remaining_amount")[tenant.String()] == 7
	}, time.Second, 10*time.Millisecond)

	m.Stop()
	m.Stop()
}
