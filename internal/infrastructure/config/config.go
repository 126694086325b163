package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Ledger    LedgerConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
	Swagger   SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int  // in minutes
	ConnMaxIdleTime int  // in minutes
	MigrateOnStart  bool // apply embedded migrations before serving
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	TrustedProxies  []string
	RateLimit       RateLimitConfig
	Idempotency     IdempotencyConfig
}

// RateLimitConfig bounds requests per tenant
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// IdempotencyConfig controls replay of POST requests carrying an Idempotency-Key
type IdempotencyConfig struct {
	Enabled bool
	Backend string        // memory or redis, same values as the lock backend
	TTL     time.Duration // how long a completed response is replayed
}

// Lock backends for the per-allocation critical section
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// LedgerConfig holds allocation ledger settings
type LedgerConfig struct {
	// DisbursementCeiling is the largest allowed disbursement as a multiple of
	// the requested amount, e.g. "1.00" for never more than requested.
	DisbursementCeiling decimal.Decimal
	LockBackend         string        // memory (single instance) or redis (multi instance)
	LockTTL             time.Duration // how long a held redis lock survives a crashed holder
	LockWait            time.Duration // how long to wait for a busy allocation before CONFLICT
	ConflictRetries     int           // retries of a unit that lost an optimistic version race
	DefaultSource       string        // funding source recorded on allocations created by disbursement
}

// SchedulerConfig holds the fiscal-year expiry sweep configuration
type SchedulerConfig struct {
	Enabled       bool
	SweepHour     int // hour of day the sweep runs (0-23)
	SweepMinute   int
	CheckInterval time.Duration
	JobTimeout    time.Duration
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled    bool     // Whether to enable Swagger endpoint
	AllowedIPs []string // IP whitelist (CIDR notation supported, empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	DBTraceEnabled    bool // Enable database query tracing (otelgorm)
	DBSlowQueryThresh time.Duration
	LogsEnabled       bool // Export zap logs over OTLP alongside the local output
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BANPER_ prefix (e.g., BANPER_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("BANPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	ceiling := decimal.Zero
	if raw := strings.TrimSpace(v.GetString("ledger.disbursement_ceiling")); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("ledger.disbursement_ceiling: %w", err)
		}
		ceiling = d
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			MigrateOnStart:  v.GetBool("database.migrate_on_start"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
			RateLimit: RateLimitConfig{
				Enabled:           v.GetBool("http.rate_limit.enabled"),
				RequestsPerSecond: v.GetFloat64("http.rate_limit.requests_per_second"),
				Burst:             v.GetInt("http.rate_limit.burst"),
			},
			Idempotency: IdempotencyConfig{
				Enabled: v.GetBool("http.idempotency.enabled"),
				Backend: strings.ToLower(v.GetString("http.idempotency.backend")),
				TTL:     v.GetDuration("http.idempotency.ttl"),
			},
		},
		Ledger: LedgerConfig{
			DisbursementCeiling: ceiling,
			LockBackend:         strings.ToLower(v.GetString("ledger.lock_backend")),
			LockTTL:             v.GetDuration("ledger.lock_ttl"),
			LockWait:            v.GetDuration("ledger.lock_wait"),
			ConflictRetries:     v.GetInt("ledger.conflict_retries"),
			DefaultSource:       v.GetString("ledger.default_source"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			SweepHour:     v.GetInt("scheduler.sweep_hour"),
			SweepMinute:   v.GetInt("scheduler.sweep_minute"),
			CheckInterval: v.GetDuration("scheduler.check_interval"),
			JobTimeout:    v.GetDuration("scheduler.job_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "banper-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "banper"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.RateLimit.RequestsPerSecond == 0 {
		cfg.HTTP.RateLimit.RequestsPerSecond = 20
	}
	if cfg.HTTP.RateLimit.Burst == 0 {
		cfg.HTTP.RateLimit.Burst = 40
	}
	if cfg.HTTP.Idempotency.Backend == "" {
		cfg.HTTP.Idempotency.Backend = LockBackendMemory
	}
	if cfg.HTTP.Idempotency.TTL == 0 {
		cfg.HTTP.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Ledger.DisbursementCeiling.IsZero() {
		cfg.Ledger.DisbursementCeiling = decimal.NewFromInt(1)
	}
	if cfg.Ledger.LockBackend == "" {
		cfg.Ledger.LockBackend = LockBackendMemory
	}
	if cfg.Ledger.LockTTL == 0 {
		cfg.Ledger.LockTTL = 30 * time.Second
	}
	if cfg.Ledger.LockWait == 0 {
		cfg.Ledger.LockWait = 5 * time.Second
	}
	if cfg.Ledger.ConflictRetries == 0 {
		cfg.Ledger.ConflictRetries = 3
	}
	if cfg.Ledger.DefaultSource == "" {
		cfg.Ledger.DefaultSource = "CENTRAL_BUDGET"
	}
	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "banper-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Ledger.DisbursementCeiling.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("ledger.disbursement_ceiling must be at least 1.00, got %s", c.Ledger.DisbursementCeiling)
	}
	if c.Ledger.LockBackend != LockBackendMemory && c.Ledger.LockBackend != LockBackendRedis {
		return fmt.Errorf("ledger.lock_backend must be %q or %q, got %q", LockBackendMemory, LockBackendRedis, c.Ledger.LockBackend)
	}
	if c.Ledger.LockTTL <= c.Ledger.LockWait && c.Ledger.LockBackend == LockBackendRedis {
		return fmt.Errorf("ledger.lock_ttl (%s) must exceed ledger.lock_wait (%s)", c.Ledger.LockTTL, c.Ledger.LockWait)
	}
	if c.Ledger.ConflictRetries < 0 {
		return fmt.Errorf("ledger.conflict_retries cannot be negative")
	}

	if c.HTTP.RateLimit.Enabled && c.HTTP.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("http.rate_limit.requests_per_second cannot be negative")
	}
	if b := c.HTTP.Idempotency.Backend; b != LockBackendMemory && b != LockBackendRedis {
		return fmt.Errorf("http.idempotency.backend must be %q or %q, got %q", LockBackendMemory, LockBackendRedis, b)
	}

	if c.Scheduler.SweepHour < 0 || c.Scheduler.SweepHour > 23 {
		return fmt.Errorf("scheduler.sweep_hour must be between 0 and 23, got %d", c.Scheduler.SweepHour)
	}
	if c.Scheduler.SweepMinute < 0 || c.Scheduler.SweepMinute > 59 {
		return fmt.Errorf("scheduler.sweep_minute must be between 0 and 59, got %d", c.Scheduler.SweepMinute)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled or have IP restriction in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
