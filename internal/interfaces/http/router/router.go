// Package router assembles the gin engine and mounts the API handlers.
package router

import (
	"github.com/banper/backend/internal/infrastructure/logger"
	"github.com/banper/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// EngineConfig configures the middleware chain built by NewEngine
type EngineConfig struct {
	ServiceName    string
	Logger         *zap.Logger
	Meter          metric.Meter // nil disables HTTP metrics
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
}

// NewEngine creates a gin engine with the shared middleware chain.
// Order matters: the request id must exist before the request logger and
// span enricher read it, and metrics run inside the traced span.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.Tracing(cfg.ServiceName),
		middleware.SpanEnricher(),
	)
	if cfg.Meter != nil {
		metrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}
	engine.Use(middleware.CORS(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	return engine, nil
}

// MountSwagger serves the registered API documentation under /swagger
func MountSwagger(engine *gin.Engine, cfg middleware.SwaggerConfig) {
	engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg), ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Router manages HTTP route registration
type Router struct {
	engine          *gin.Engine
	apiVersion      string
	scopeMiddleware []gin.HandlerFunc
	public          []RouteRegistrar
	scoped          []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithScopedMiddleware appends middleware that runs after Scope on tenant routes
func WithScopedMiddleware(handlers ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.scopeMiddleware = append(r.scopeMiddleware, handlers...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a registrar whose routes require the tenant scope headers
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.scoped = append(r.scoped, registrar)
	return r
}

// RegisterPublic adds a registrar whose routes need no tenant scope
func (r *Router) RegisterPublic(registrar RouteRegistrar) *Router {
	r.public = append(r.public, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.public {
		registrar.RegisterRoutes(api)
	}

	scoped := api.Group("", append([]gin.HandlerFunc{middleware.Scope()}, r.scopeMiddleware...)...)
	for _, registrar := range r.scoped {
		registrar.RegisterRoutes(scoped)
	}
}
