package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

// installRecorder makes the global tracer provider record ended spans;
// otelgorm picks up the global provider when the plugin is created
func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func spanNamed(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTracedDB(t)

	require.NoError(t, NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop()).Register(db))

	assert.Nil(t, db.Callback().Query().Get("banper_slow_query:query"))
	assert.Nil(t, db.Callback().Query().Get("otel:before:select"))
}

func TestDBTracingPlugin_DoubleRegistration(t *testing.T) {
	db := setupTracedDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop())

	require.NoError(t, plugin.Register(db))
	assert.Error(t, plugin.Register(db))
}

func TestDBTracingPlugin_RecordsStatementAttributes(t *testing.T) {
	sr := installRecorder(t)
	db := setupTracedDB(t)
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
		DBSystem:        "sqlite",
	}, zap.NewNop())
	require.NoError(t, plugin.Register(db))

	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Name: "kitchen"}).Error)

	created := spanNamed(sr.Ended(), "gorm.Create")
	require.NotNil(t, created)

	attrs := make(map[string]string)
	for _, kv := range created.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "1", attrs["db.rows_affected"])
	assert.Equal(t, "traced_rows", attrs["db.sql.table"])
	assert.Equal(t, "true", attrs["db.slow_query"])

	var slowEvent bool
	for _, e := range created.Events() {
		if e.Name == "slow_query_warning" {
			slowEvent = true
		}
	}
	assert.True(t, slowEvent)
}

func TestDBTracingPlugin_MarksFailedStatements(t *testing.T) {
	sr := installRecorder(t)
	db := setupTracedDB(t)
	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop()).Register(db))

	err := db.WithContext(context.Background()).Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)

	raw := spanNamed(sr.Ended(), "gorm.Raw")
	require.NotNil(t, raw)
	assert.Equal(t, codes.Error, raw.Status().Code)
}

func TestDBTracingPlugin_NotFoundIsNotAnError(t *testing.T) {
	sr := installRecorder(t)
	db := setupTracedDB(t)
	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{Enabled: true, DBSystem: "sqlite"}, zap.NewNop()).Register(db))

	var row tracedRow
	err := db.WithContext(context.Background()).First(&row, "name = ?", "nobody").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	query := spanNamed(sr.Ended(), "gorm.Query")
	require.NotNil(t, query)
	assert.NotEqual(t, codes.Error, query.Status().Code)
}
