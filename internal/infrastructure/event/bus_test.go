package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/banper/backend/internal/domain/ledger"
	"github.com/banper/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	scope := shared.NewScope(uuid.New(), uuid.New())
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), scope),
	}
}

type testHandler struct {
	eventTypes []string
	err        error
	panics     bool

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler()
	bus.Subscribe(handler, ledger.EventTypeTransactionRecorded)

	event := newTestEvent(ledger.EventTypeTransactionRecorded)
	require.NoError(t, bus.Publish(context.Background(), event, newTestEvent(ledger.EventTypeAllocationFrozen)))

	require.Equal(t, 1, handler.count())
	assert.Equal(t, event, handler.handled[0])
}

func TestInMemoryEventBus_SubscribeUsesHandlerEventTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	typed := newTestHandler(ledger.EventTypeAllocationExpired)
	wildcard := newTestHandler()
	bus.Subscribe(typed)
	bus.Subscribe(wildcard)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx,
		newTestEvent(ledger.EventTypeAllocationExpired),
		newTestEvent(ledger.EventTypeAllocationCreated),
	))

	assert.Equal(t, 1, typed.count())
	assert.Equal(t, 2, wildcard.count())
}

func TestInMemoryEventBus_FailingHandlersDoNotStopDelivery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newTestHandler()
	failing.err = errors.New("handler error")
	panicking := newTestHandler()
	panicking.panics = true
	healthy := newTestHandler()

	bus.Subscribe(failing, "TestEvent")
	bus.Subscribe(panicking, "TestEvent")
	bus.Subscribe(healthy, "TestEvent")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("TestEvent")))

	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, panicking.count())
	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, 2, logs.FilterMessage("Event handler failed").Len())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler, "TestEvent")

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, newTestEvent("TestEvent")))
	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(ctx, newTestEvent("TestEvent")))

	assert.Equal(t, 1, handler.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	assert.False(t, bus.IsRunning())
	require.NoError(t, bus.Start(ctx))
	assert.True(t, bus.IsRunning())
	require.NoError(t, bus.Stop(ctx))
	assert.False(t, bus.IsRunning())
}

func TestInMemoryEventBus_DeliversBeforePublishReturns(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler, "allocation.created")
	ctx := context.Background()

	// lifecycle does not gate delivery
	require.NoError(t, bus.Publish(ctx, newTestEvent("allocation.created")))
	assert.Equal(t, 1, handler.count())

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("allocation.created")))
	assert.Equal(t, 2, handler.count())

	require.NoError(t, bus.Stop(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent("allocation.created")))
	assert.Equal(t, 3, handler.count())
}
