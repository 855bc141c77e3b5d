// Package config loads the server configuration from environment variables,
// applies defaults, normalizes values and validates the result. Planner,
// feedback and optimizer settings are returned in the option types those
// packages consume.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-seat-planner/internal/feedback"
	"github.com/tbourn/go-seat-planner/internal/optimizer"
	"github.com/tbourn/go-seat-planner/internal/planner"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
	JWTSecret  string // empty disables bearer tokens
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the server.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64 // plan requests carry the whole roster
	GinMode           string

	// Logging / Docs
	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string
	SlowRequest    time.Duration // access log warns above this; 0 disables

	// Storage. DatabaseURL selects Postgres; otherwise DBPath is a SQLite file.
	DatabaseURL string
	DBPath      string

	// Rate limiting
	RateRPS       float64
	RateBurst     int
	RateWriteCost int // tokens charged for unsafe methods

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration

	// Domain
	Planner   planner.Options
	Feedback  feedback.Config
	Optimizer optimizer.Config

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result.
func Load() (Config, error) {
	po := planner.DefaultOptions()
	pw := po.Weights
	fb := feedback.DefaultConfig()

	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 4<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),
		SlowRequest:    getdur("SLOW_REQUEST", 2*time.Second),

		DatabaseURL: strings.TrimSpace(getenv("DATABASE_URL", "")),
		DBPath:      getenv("DB_PATH", "planner.db"),

		RateRPS:       getfloat("RATE_RPS", 5.0),
		RateBurst:     getint("RATE_BURST", 10),
		RateWriteCost: getint("RATE_WRITE_COST", 2),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
			JWTSecret:  getenv("JWT_SECRET", ""),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Planner: planner.Options{
			Weights: planner.Weights{
				Zone:              getfloat("PLAN_W_ZONE", pw.Zone),
				Window:            getfloat("PLAN_W_WINDOW", pw.Window),
				Accessible:        getfloat("PLAN_W_ACCESSIBLE", pw.Accessible),
				AccessibleReserve: getfloat("PLAN_W_ACCESSIBLE_RESERVE", pw.AccessibleReserve),
				Priority:          getfloat("PLAN_W_PRIORITY", pw.Priority),
				Commute:           getfloat("PLAN_W_COMMUTE", pw.Commute),
				ProjectPenalty:    getfloat("PLAN_W_PROJECT", pw.ProjectPenalty),
				Feedback:          getfloat("PLAN_W_FEEDBACK", pw.Feedback),
			},
			OptimalThreshold:   getint("PLAN_OPTIMAL_THRESHOLD", po.OptimalThreshold),
			ClusterFraction:    getfloat("PLAN_CLUSTER_FRACTION", po.ClusterFraction),
			ClusterMinZoneSize: getint("PLAN_CLUSTER_MIN_ZONE_SIZE", po.ClusterMinZoneSize),
			ZoneMatchMinRate:   getfloat("PLAN_ZONE_MATCH_MIN_RATE", po.ZoneMatchMinRate),
			DeptDayCapPct:      getfloat("PLAN_DEPT_DAY_CAP_PCT", po.DeptDayCapPct),
			DefaultCapacity:    getint("PLAN_DEFAULT_CAPACITY", po.DefaultCapacity),
		},
		Feedback: feedback.Config{
			Alpha:     getfloat("FEEDBACK_EMA_ALPHA", fb.Alpha),
			LowScore:  getfloat("FEEDBACK_LOW_SCORE", fb.LowScore),
			LowStreak: getint("FEEDBACK_LOW_STREAK", fb.LowStreak),
			QueueSize: getint("FEEDBACK_QUEUE_SIZE", fb.QueueSize),
		},
		Optimizer: optimizer.Config{
			BaseURL:  strings.TrimSpace(getenv("OPTIMIZER_URL", "")),
			Timeout:  getdur("OPTIMIZER_TIMEOUT", 5*time.Second),
			Cooldown: getdur("OPTIMIZER_COOLDOWN", 30*time.Second),
		},

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-seat-planner"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be > 0")
	}
	if cfg.DatabaseURL == "" && strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH must not be empty when DATABASE_URL is unset")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.RateWriteCost < 1 || cfg.RateWriteCost > cfg.RateBurst {
		return errors.New("RATE_WRITE_COST must be in [1, RATE_BURST]")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if err := cfg.Planner.Validate(); err != nil {
		return fmt.Errorf("PLAN_*: %w", err)
	}
	if a := cfg.Feedback.Alpha; a <= 0 || a > 1 {
		return errors.New("FEEDBACK_EMA_ALPHA must be in (0,1]")
	}
	if cfg.Feedback.LowScore < 1 || cfg.Feedback.LowScore > 5 {
		return errors.New("FEEDBACK_LOW_SCORE must be in [1,5]")
	}
	if cfg.Feedback.LowStreak < 1 || cfg.Feedback.QueueSize < 1 {
		return errors.New("FEEDBACK_LOW_STREAK and FEEDBACK_QUEUE_SIZE must be >= 1")
	}
	if cfg.Optimizer.BaseURL != "" && !strings.HasPrefix(cfg.Optimizer.BaseURL, "http") {
		return errors.New("OPTIMIZER_URL must be an http(s) URL")
	}
	if cfg.Optimizer.Timeout <= 0 || cfg.Optimizer.Cooldown < 0 {
		return errors.New("OPTIMIZER_TIMEOUT must be > 0 and OPTIMIZER_COOLDOWN >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
