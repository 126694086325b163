package funding

import (
	"context"
	"time"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// AllocationLocker serializes the read, validate, write and reconcile unit of
// a single allocation. Lock blocks until the allocation is free or the
// implementation's wait budget runs out, which is reported as CONFLICT.
type AllocationLocker interface {
	Lock(ctx context.Context, allocationID uuid.UUID) (release func(), err error)
}

// RetryPolicy bounds how often a unit of work that lost an optimistic
// version race is re-run. Every attempt re-reads state from scratch.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy retries a lost race three times, starting at 20ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// run executes op, retrying CONFLICT errors with exponential backoff.
// Any other error is returned as soon as it happens.
func (p RetryPolicy) run(ctx context.Context, op func() error) error {
	if p.MaxRetries <= 0 {
		return op()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxRetries)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil || shared.KindOf(err) == shared.KindConflict {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// pendingEvents collects the events raised during one attempt of a unit of
// work. They are published only after the database transaction commits.
type pendingEvents []shared.DomainEvent

func (p *pendingEvents) take(aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		*p = append(*p, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
}
