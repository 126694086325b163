package middleware

import (
	"time"

	"github.com/banper/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrorKindKey is set by the handlers when a request failed with a domain error
const ErrorKindKey = "error_kind"

type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	domainErrors    *telemetry.Counter
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}

	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	domainErrors, err := telemetry.NewCounter(meter,
		"banper_http_domain_errors_total", "Requests rejected by a ledger rule, by error kind", "{request}")
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		domainErrors:    domainErrors,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics records request count, latency and domain rejections on meter.
// Routes are labelled by their pattern to keep cardinality bounded.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.activeRequests.Add(ctx, 1)

		c.Next()

		m.activeRequests.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		base := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		m.requestDuration.RecordDuration(ctx, time.Since(start), base...)

		counted := append(base, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))
		if scope, ok := GetScope(c); ok {
			counted = append(counted, telemetry.AttrTenantID.String(scope.TenantID.String()))
		}
		m.requestTotal.Inc(ctx, counted...)

		if kind := c.GetString(ErrorKindKey); kind != "" {
			m.domainErrors.Inc(ctx, append(base, telemetry.AttrErrorKind.String(kind))...)
		}
	}, nil
}
