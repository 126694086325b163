package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/banper/backend/internal/domain/funding"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() shared.Scope {
	return shared.NewScope(uuid.New(), uuid.New())
}

func createTestAllocation(t *testing.T, amount int64) *Allocation {
	a, err := NewAllocation(testScope(), FundingSourceCentralBudget, amount, 2026, "DECREE-1")
	require.NoError(t, err)
	return a
}

func TestDeriveAllocationStatus(t *testing.T) {
	tests := []struct {
		allocated int64
		spent     int64
		override  AllocationOverride
		want      AllocationStatus
	}{
		{100, 0, OverrideNone, AllocationStatusActive},
		{100, 1, OverrideNone, AllocationStatusPartiallySpent},
		{100, 99, OverrideNone, AllocationStatusPartiallySpent},
		{100, 100, OverrideNone, AllocationStatusFullySpent},
		{100, 0, OverrideFrozen, AllocationStatusFrozen},
		{100, 100, OverrideFrozen, AllocationStatusFrozen},
		{100, 50, OverrideCancelled, AllocationStatusCancelled},
		{100, 50, OverrideExpired, AllocationStatusExpired},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got := DeriveAllocationStatus(tt.allocated, tt.spent, tt.override)
			assert.Equal(t, tt.want, got)
			// Pure: same inputs, same output
			assert.Equal(t, got, DeriveAllocationStatus(tt.allocated, tt.spent, tt.override))
		})
	}
}

func TestNewAllocation(t *testing.T) {
	scope := testScope()

	t.Run("starts active with full remaining", func(t *testing.T) {
		a, err := NewAllocation(scope, FundingSourceGrant, 500, 2026, " SK-12 ")
		require.NoError(t, err)
		assert.Equal(t, int64(500), a.AllocatedAmount)
		assert.Equal(t, int64(0), a.SpentAmount)
		assert.Equal(t, int64(500), a.RemainingAmount)
		assert.Equal(t, AllocationStatusActive, a.Status)
		assert.Equal(t, "SK-12", a.DecreeReference)
		assert.Nil(t, a.FundingRequestID)
		assert.True(t, a.IsBalanced())
	})

	t.Run("amount must be positive", func(t *testing.T) {
		_, err := NewAllocation(scope, FundingSourceGrant, 0, 2026, "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("source must be known", func(t *testing.T) {
		_, err := NewAllocation(scope, FundingSource("LOTTERY"), 100, 2026, "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})

	t.Run("fiscal year must be plausible", func(t *testing.T) {
		_, err := NewAllocation(scope, FundingSourceGrant, 100, 1999, "")
		assert.ErrorIs(t, err, shared.ErrValidationFailed)
	})
}

func TestNewAllocationFromDisbursement(t *testing.T) {
	scope := testScope()
	fr, err := funding.NewFundingRequest(scope, funding.Details{
		RequestedAmount:   100,
		CostBreakdown:     funding.CostBreakdown{Food: 100},
		Beneficiaries:     10,
		OperationalPeriod: "Q1",
		OperationalDays:   60,
	})
	require.NoError(t, err)

	_, err = NewAllocationFromDisbursement(fr, FundingSourceCentralBudget, 2026)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	require.NoError(t, fr.Submit("REQ-1", time.Now()))
	require.NoError(t, fr.Approve(funding.Approval{Number: "APV-1", Date: time.Now(), ApproverName: "A", ApproverPosition: "B"}))
	require.NoError(t, fr.Disburse(funding.Disbursement{
		Amount: 100, Date: time.Now(), SettlementReference: "S", ReceivingAccount: "R",
	}, decimal.Zero))

	a, err := NewAllocationFromDisbursement(fr, FundingSourceCentralBudget, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(100), a.AllocatedAmount)
	assert.Equal(t, int64(0), a.SpentAmount)
	assert.Equal(t, int64(100), a.RemainingAmount)
	assert.Equal(t, AllocationStatusActive, a.Status)
	require.NotNil(t, a.FundingRequestID)
	assert.Equal(t, fr.ID, *a.FundingRequestID)
	assert.Equal(t, scope, a.Scope())
	assert.Equal(t, "APV-1", a.DecreeReference)
}

func TestAllocation_OverspendGuard(t *testing.T) {
	a := createTestAllocation(t, 100)

	require.NoError(t, a.EnsureCanSpend(60))
	require.NoError(t, a.Reconcile(60))
	assert.Equal(t, AllocationStatusPartiallySpent, a.Status)

	require.NoError(t, a.EnsureCanSpend(40))
	require.NoError(t, a.Reconcile(100))
	assert.Equal(t, AllocationStatusFullySpent, a.Status)
	assert.Equal(t, int64(0), a.RemainingAmount)

	assert.ErrorIs(t, a.EnsureCanSpend(1), shared.ErrConservationViolation)

	// replacing 40 with 30 frees room, 40 with 41 does not
	assert.NoError(t, a.EnsureCanReplace(40, 30))
	assert.ErrorIs(t, a.EnsureCanReplace(40, 41), shared.ErrConservationViolation)

	// reverse after a delete
	require.NoError(t, a.Reconcile(60))
	assert.Equal(t, AllocationStatusPartiallySpent, a.Status)
	assert.Equal(t, int64(40), a.RemainingAmount)
	assert.True(t, a.IsBalanced())
}

func TestAllocation_OverspendGuardHugeAmounts(t *testing.T) {
	a := createTestAllocation(t, 100)
	require.NoError(t, a.Reconcile(60))

	assert.ErrorIs(t, a.EnsureCanSpend(math.MaxInt64), shared.ErrConservationViolation)
	assert.ErrorIs(t, a.EnsureCanReplace(10, math.MaxInt64), shared.ErrConservationViolation)
	assert.NoError(t, a.EnsureCanReplace(60, 100))
}

func TestAllocation_ReconcileRejectsOverspend(t *testing.T) {
	a := createTestAllocation(t, 100)
	assert.ErrorIs(t, a.Reconcile(101), shared.ErrConservationViolation)
	assert.ErrorIs(t, a.Reconcile(-1), shared.ErrConservationViolation)
	assert.Equal(t, int64(0), a.SpentAmount)
	assert.True(t, a.IsBalanced())
}

func TestAllocation_ReconcileEmitsFullySpentOnce(t *testing.T) {
	a := createTestAllocation(t, 100)
	a.ClearDomainEvents()

	require.NoError(t, a.Reconcile(100))
	require.NoError(t, a.Reconcile(100))

	events := a.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeAllocationFullySpent, events[0].EventType())
}

func TestAllocation_FreezeUnfreeze(t *testing.T) {
	a := createTestAllocation(t, 100)
	require.NoError(t, a.Reconcile(30))

	require.NoError(t, a.Freeze("audit"))
	assert.Equal(t, AllocationStatusFrozen, a.Status)
	assert.Equal(t, "audit", a.FreezeReason)
	assert.ErrorIs(t, a.EnsureCanSpend(1), shared.ErrInvalidState)

	// totals untouched, recomputation keeps the override
	require.NoError(t, a.Reconcile(20))
	assert.Equal(t, AllocationStatusFrozen, a.Status)
	assert.Equal(t, int64(80), a.RemainingAmount)

	// idempotent
	require.NoError(t, a.Freeze("again"))
	assert.Equal(t, "audit", a.FreezeReason)

	require.NoError(t, a.Unfreeze())
	assert.Equal(t, AllocationStatusPartiallySpent, a.Status)
	assert.Nil(t, a.FrozenAt)
	assert.ErrorIs(t, a.Unfreeze(), shared.ErrInvalidState)
}

func TestAllocation_Expire(t *testing.T) {
	nextYear := time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("expires after fiscal year with funds left", func(t *testing.T) {
		a := createTestAllocation(t, 100)
		assert.True(t, a.IsExpirable(nextYear))
		require.NoError(t, a.Expire(nextYear))
		assert.Equal(t, AllocationStatusExpired, a.Status)
		assert.ErrorIs(t, a.EnsureCanSpend(1), shared.ErrInvalidState)
		assert.ErrorIs(t, a.Unfreeze(), shared.ErrInvalidState)
		assert.ErrorIs(t, a.Freeze(""), shared.ErrInvalidState)
	})

	t.Run("open fiscal year cannot expire", func(t *testing.T) {
		a := createTestAllocation(t, 100)
		now := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
		assert.False(t, a.IsExpirable(now))
		assert.ErrorIs(t, a.Expire(now), shared.ErrInvalidState)
	})

	t.Run("fully spent allocation does not expire", func(t *testing.T) {
		a := createTestAllocation(t, 100)
		require.NoError(t, a.Reconcile(100))
		assert.False(t, a.IsExpirable(nextYear))
		assert.ErrorIs(t, a.Expire(nextYear), shared.ErrInvalidState)
	})

	t.Run("frozen allocation may expire", func(t *testing.T) {
		a := createTestAllocation(t, 100)
		require.NoError(t, a.Freeze(""))
		require.NoError(t, a.Expire(nextYear))
		assert.Equal(t, AllocationStatusExpired, a.Status)
	})
}

func TestAllocation_Cancel(t *testing.T) {
	a := createTestAllocation(t, 100)
	assert.ErrorIs(t, a.Cancel(""), shared.ErrValidationFailed)
	require.NoError(t, a.Cancel("decree revoked"))
	assert.Equal(t, AllocationStatusCancelled, a.Status)
	assert.ErrorIs(t, a.Cancel("again"), shared.ErrInvalidState)
	assert.ErrorIs(t, a.Expire(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)), shared.ErrInvalidState)
}

func TestAllocation_EnsureDeletable(t *testing.T) {
	a := createTestAllocation(t, 100)
	assert.NoError(t, a.EnsureDeletable(0))
	assert.ErrorIs(t, a.EnsureDeletable(1), shared.ErrInvalidState)
}
