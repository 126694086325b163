package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingExporter struct {
	mu         sync.Mutex
	bodies     []string
	severities []log.Severity
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
		e.severities = append(e.severities, r.Severity())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) snapshot() ([]string, []log.Severity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...), append([]log.Severity(nil), e.severities...)
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false, ServiceName: "test-service"}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))

	_, ok := NewZapOTELCore(lp, zapcore.InfoLevel).(*levelFilterCore)
	assert.False(t, ok, "disabled provider yields the nop core")
	assert.False(t, NewZapOTELCore(nil, zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestBridgedLogger_ExportsAtOrAboveLevel(t *testing.T) {
	ctx := context.Background()
	exporter := &recordingExporter{}

	lp, err := newLoggerProvider(
		LogsConfig{Enabled: true, ServiceName: "test-service"},
		sdklog.NewSimpleProcessor(exporter),
		zap.NewNop(),
	)
	require.NoError(t, err)
	require.True(t, lp.IsEnabled())

	localCore, local := observer.New(zapcore.DebugLevel)
	logger := NewBridgedLogger(localCore, NewZapOTELCore(lp, zapcore.InfoLevel))

	logger.Debug("allocation lookup")
	logger.Warn("overspend rejected", zap.String("allocation_id", "a-1"))
	require.NoError(t, lp.ForceFlush(ctx))

	assert.Equal(t, 2, local.Len(), "local output keeps every level")

	bodies, severities := exporter.snapshot()
	assert.Equal(t, []string{"overspend rejected"}, bodies)
	assert.Equal(t, []log.Severity{log.SeverityWarn}, severities)

	assert.NoError(t, lp.Shutdown(ctx))
}

func TestLevelFilterCore_WithKeepsLevel(t *testing.T) {
	base, _ := observer.New(zapcore.DebugLevel)
	core := (&levelFilterCore{Core: base, minLevel: zapcore.WarnLevel}).With([]zapcore.Field{zap.String("k", "v")})

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}
