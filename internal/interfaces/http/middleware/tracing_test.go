package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	engine := gin.New()
	engine.Use(RequestID(), Tracing("banper-test"), SpanEnricher())
	engine.GET("/transactions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.POST("/transactions", func(c *gin.Context) {
		c.Set(ErrorKindKey, "CONSERVATION_VIOLATION")
		c.Status(http.StatusUnprocessableEntity)
	})
	engine.DELETE("/transactions/:id", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return engine, sr
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[string]string {
	attrs := make(map[string]string)
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	return attrs
}

func TestTracing_NamesSpanAfterRoute(t *testing.T) {
	engine, sr := tracedEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/transactions/abc", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name(), "/transactions/:id")
	assert.Equal(t, "req-7", spanAttrs(spans[0])["request_id"])
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestSpanEnricher_TagsDomainRejection(t *testing.T) {
	engine, sr := tracedEngine(t)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/transactions", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "CONSERVATION_VIOLATION", spanAttrs(spans[0])["error_kind"])
}

func TestSpanEnricher_MarksServerErrors(t *testing.T) {
	engine, sr := tracedEngine(t)

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/transactions/abc", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
