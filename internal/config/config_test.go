package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-seat-planner/internal/feedback"
	"github.com/tbourn/go-seat-planner/internal/planner"
)

func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "DATABASE_URL", "OPTIMIZER_URL", "JWT_SECRET"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

func containsErr(err error, want string) bool {
	return err != nil && strings.Contains(err.Error(), want)
}

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" || cfg.DBPath != "planner.db" || cfg.DatabaseURL != "" {
		t.Fatalf("storage/docs defaults unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Planner, planner.DefaultOptions()) {
		t.Fatalf("planner defaults = %+v", cfg.Planner)
	}
	if cfg.Feedback != feedback.DefaultConfig() {
		t.Fatalf("feedback defaults = %+v", cfg.Feedback)
	}
	if cfg.Optimizer.BaseURL != "" || cfg.Optimizer.Timeout != 5*time.Second || cfg.Optimizer.Cooldown != 30*time.Second {
		t.Fatalf("optimizer defaults = %+v", cfg.Optimizer)
	}
	if cfg.MaxBodyBytes != 4<<20 || cfg.RateWriteCost != 2 || cfg.Security.JWTSecret != "" {
		t.Fatalf("limits defaults unexpected: %+v", cfg)
	}
	if cfg.OTEL.ServiceName != "go-seat-planner" {
		t.Fatalf("service name = %q", cfg.OTEL.ServiceName)
	}
}

func TestLoad_OverridesAndNormalization(t *testing.T) {
	env := map[string]string{
		"PORT":                 "8088",
		"READ_TIMEOUT":         "2s",
		"WRITE_TIMEOUT":        "3s",
		"GIN_MODE":             "weird",
		"LOG_LEVEL":            "warning",
		"LOG_PRETTY":           "yes",
		"SWAGGER_ENABLED":      "on",
		"API_BASE_PATH":        "api/v2/",
		"DATABASE_URL":         " postgres://planner@db/planner ",
		"DB_PATH":              "",
		"RATE_RPS":             "x",
		"RATE_BURST":           "4",
		"RATE_WRITE_COST":      "3",
		"CORS_ALLOWED_ORIGINS": " https://a.com , , http://b ",
		"ENABLE_HSTS":          "TRUE",
		"JWT_SECRET":           "s3cret",
		"IDEMPOTENCY_TTL":      "48h",

		"PLAN_DEFAULT_CAPACITY":      "120",
		"PLAN_OPTIMAL_THRESHOLD":     "64",
		"PLAN_CLUSTER_FRACTION":      "0.7",
		"PLAN_CLUSTER_MIN_ZONE_SIZE": "4",
		"PLAN_ZONE_MATCH_MIN_RATE":   "0.4",
		"PLAN_DEPT_DAY_CAP_PCT":      "0.6",
		"PLAN_W_ZONE":                "0.8",
		"PLAN_W_FEEDBACK":            "0",

		"FEEDBACK_EMA_ALPHA":  "0.5",
		"FEEDBACK_LOW_SCORE":  "2",
		"FEEDBACK_LOW_STREAK": "2",
		"FEEDBACK_QUEUE_SIZE": "8",

		"OPTIMIZER_URL":      "http://optimizer:9000",
		"OPTIMIZER_TIMEOUT":  "750ms",
		"OPTIMIZER_COOLDOWN": "1m",

		"OTEL_ENABLED":            "1",
		"OTEL_TRACES_SAMPLER_ARG": "0.25",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.WriteTimeout != 3*time.Second || cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://planner@db/planner" || cfg.DBPath != "planner.db" {
		t.Fatalf("storage unexpected: %q %q", cfg.DatabaseURL, cfg.DBPath)
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 4 || cfg.RateWriteCost != 3 {
		t.Fatalf("rate limiting unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.JWTSecret != "s3cret" || cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}

	p := cfg.Planner
	if p.DefaultCapacity != 120 || p.OptimalThreshold != 64 || p.ClusterFraction != 0.7 ||
		p.ClusterMinZoneSize != 4 || p.ZoneMatchMinRate != 0.4 || p.DeptDayCapPct != 0.6 {
		t.Fatalf("planner unexpected: %+v", p)
	}
	if p.Weights.Zone != 0.8 || p.Weights.Feedback != 0 || p.Weights.Window != planner.DefaultWeights().Window {
		t.Fatalf("weights unexpected: %+v", p.Weights)
	}
	if cfg.Feedback != (feedback.Config{Alpha: 0.5, LowScore: 2, LowStreak: 2, QueueSize: 8}) {
		t.Fatalf("feedback unexpected: %+v", cfg.Feedback)
	}
	if cfg.Optimizer.BaseURL != "http://optimizer:9000" || cfg.Optimizer.Timeout != 750*time.Millisecond || cfg.Optimizer.Cooldown != time.Minute {
		t.Fatalf("optimizer unexpected: %+v", cfg.Optimizer)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 0.25 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty port", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"body bytes", map[string]string{"MAX_BODY_BYTES": "-1"}, "MAX_BODY_BYTES"},
		{"no storage", map[string]string{"DB_PATH": "   "}, "DB_PATH"},
		{"rate rps", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"write cost above burst", map[string]string{"RATE_BURST": "2", "RATE_WRITE_COST": "3"}, "RATE_WRITE_COST"},
		{"hsts", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"negative weight", map[string]string{"PLAN_W_WINDOW": "-1"}, "PLAN_*"},
		{"bounded terms dominate", map[string]string{"PLAN_W_PRIORITY": "0.4", "PLAN_W_COMMUTE": "0.3"}, "PLAN_*"},
		{"cluster fraction", map[string]string{"PLAN_CLUSTER_FRACTION": "1.5"}, "PLAN_*"},
		{"dept cap", map[string]string{"PLAN_DEPT_DAY_CAP_PCT": "2"}, "PLAN_*"},
		{"alpha", map[string]string{"FEEDBACK_EMA_ALPHA": "1.5"}, "FEEDBACK_EMA_ALPHA"},
		{"low score", map[string]string{"FEEDBACK_LOW_SCORE": "7"}, "FEEDBACK_LOW_SCORE"},
		{"queue", map[string]string{"FEEDBACK_QUEUE_SIZE": "0"}, "FEEDBACK_QUEUE_SIZE"},
		{"optimizer url", map[string]string{"OPTIMIZER_URL": "optimizer:9000"}, "OPTIMIZER_URL"},
		{"optimizer timeout", map[string]string{"OPTIMIZER_TIMEOUT": "0s"}, "OPTIMIZER_TIMEOUT"},
		{"sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); !containsErr(err, tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_PostgresMakesDBPathOptional(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("DB_PATH", "   ")
	if _, err := Load(); err != nil {
		t.Fatalf("DB_PATH must be optional with DATABASE_URL: %v", err)
	}
}

func TestHelpers_Parsing(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	t.Setenv("F", " 3.14 ")
	t.Setenv("F_BAD", "nope")
	t.Setenv("I", "42")
	t.Setenv("D", "150ms")
	t.Setenv("D_BAD", "zzz")

	if getenv("X_EMPTY", "d") != "d" || getfloat("F", 0) != 3.14 || getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getenv/getfloat")
	}
	if getint("I", 0) != 42 || getint("F_BAD", 7) != 7 {
		t.Fatalf("getint")
	}
	if getdur("D", time.Second) != 150*time.Millisecond || getdur("D_BAD", 2*time.Second) != 2*time.Second {
		t.Fatalf("getdur")
	}

	for i, v := range []string{"1", "TRUE", " yes ", "On"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false", v)
		}
	}
	for i, v := range []string{"0", "false", " no ", "Off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true", v)
		}
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if splitCSV("") != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV = %#v", got)
	}
	for in, want := range map[string]string{"": "/", "v1": "/v1", "/v1//": "/v1", " / ": "/"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
