package funding

import (
	"context"

	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// ledgerUnit runs one mutation of an allocation's ledger: it holds the
// allocation lock for the whole read, validate, write and reconcile cycle and
// runs the cycle in a single database transaction. Lost races are retried
// with a fresh read.
type ledgerUnit struct {
	txScope TransactionScope
	locker  AllocationLocker
	retry   RetryPolicy
}

func (u ledgerUnit) run(ctx context.Context, allocationID uuid.UUID, fn func(repos TransactionalRepositories) error) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_unit", "run",
		telemetry.WithAttribute(telemetry.SpanAttrAllocationID, allocationID),
	)
	defer span.End()

	attempt := 0
	err := u.retry.run(ctx, func() error {
		attempt++
		release, err := u.locker.Lock(ctx, allocationID)
		if err != nil {
			return err
		}
		defer release()

		return u.txScope.Execute(ctx, fn)
	})
	telemetry.SetAttribute(span, telemetry.SpanAttrAttempt, attempt)
	telemetry.RecordError(span, err)
	return err
}

// reconcile recomputes the allocation totals from its live transactions and
// saves the allocation with a version check. It must run on the same repos
// as the transaction write that made it necessary.
func reconcile(ctx context.Context, repos TransactionalRepositories, allocation *ledger.Allocation) error {
	spent, err := repos.Transactions().SumLiveAmounts(ctx, allocation.ID)
	if err != nil {
		return err
	}
	if err := allocation.Reconcile(spent); err != nil {
		return err
	}
	return repos.Allocations().SaveWithLock(ctx, allocation)
}
