package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) (int64, []metricdata.DataPoint[int64]) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, sum.DataPoints
		}
	}
	return 0, nil
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := HTTPMetrics(provider.Meter("http.server"))
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(metrics, Scope())
	engine.GET("/allocations/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.POST("/allocations/:id/freeze", func(c *gin.Context) {
		c.Set(ErrorKindKey, "INVALID_STATE")
		c.Status(http.StatusUnprocessableEntity)
	})

	tenantID := uuid.New()
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/allocations/" + uuid.NewString()},
		{http.MethodGet, "/allocations/" + uuid.NewString()},
		{http.MethodPost, "/allocations/" + uuid.NewString() + "/freeze"},
	} {
		req := httptest.NewRequest(r.method, r.path, nil)
		req.Header.Set(TenantHeader, tenantID.String())
		engine.ServeHTTP(httptest.NewRecorder(), req)
	}

	total, points := counterTotal(t, reader, "http_server_request_total")
	assert.Equal(t, int64(3), total)
	for _, dp := range points {
		route, _ := dp.Attributes.Value("http.route")
		assert.Contains(t, []string{"/allocations/:id", "/allocations/:id/freeze"}, route.AsString())
		tenant, _ := dp.Attributes.Value("tenant_id")
		assert.Equal(t, tenantID.String(), tenant.AsString())
	}

	rejected, points := counterTotal(t, reader, "banper_http_domain_errors_total")
	assert.Equal(t, int64(1), rejected)
	require.Len(t, points, 1)
	kind, _ := points[0].Attributes.Value("error_kind")
	assert.Equal(t, "INVALID_STATE", kind.AsString())
}
