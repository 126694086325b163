package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InProcessLocker serializes allocation work inside one process. It is only
// correct when a single instance writes to the database.
type InProcessLocker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	wait    time.Duration
}

type entry struct {
	slot chan struct{}
	refs int
}

// NewInProcessLocker creates a locker that waits at most wait for a busy
// allocation. A zero wait blocks until the context is done.
func NewInProcessLocker(wait time.Duration) *InProcessLocker {
	return &InProcessLocker{
		entries: make(map[uuid.UUID]*entry),
		wait:    wait,
	}
}

// Lock blocks until the allocation is free. The returned release is safe to
// call more than once.
func (l *InProcessLocker) Lock(ctx context.Context, allocationID uuid.UUID) (func(), error) {
	e := l.acquireEntry(allocationID)

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case e.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.slot
				l.releaseEntry(allocationID, e)
			})
		}, nil
	case <-waitCtx.Done():
		l.releaseEntry(allocationID, e)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, notObtained(allocationID)
	}
}

func (l *InProcessLocker) acquireEntry(id uuid.UUID) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	return e
}

func (l *InProcessLocker) releaseEntry(id uuid.UUID, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

// held reports how many allocations currently have a holder or waiter
func (l *InProcessLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func notObtained(allocationID uuid.UUID) error {
	return shared.NewConflictError("LOCK_NOT_OBTAINED",
		fmt.Sprintf("Allocation %s is busy, try again", allocationID))
}
