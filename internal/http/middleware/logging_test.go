package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes every JSON line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ln := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if ln == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(ln), &m); err != nil {
			t.Fatalf("bad log line %q: %v", ln, err)
		}
		out = append(out, m)
	}
	return out
}

func accessLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	for _, m := range logLines(t, buf) {
		if m["message"] == "http_request" {
			return m
		}
	}
	t.Fatalf("no access log line in:\n%s", buf.String())
	return nil
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		if v, ok := c.Get(requestIDKey); !ok || v == "" {
			t.Fatalf("requestID not set in context")
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rid", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated %s header", requestIDHeader)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rid", nil)
	req.Header.Set(strings.ToLower(requestIDHeader), "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestAccessLog_LevelsAndRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name  string
		path  string
		level string
		label string
	}{
		{"ok", "/plans/42", "info", "/plans/:id"},
		{"client error", "/plans/bad", "warn", "/plans/:id"},
		{"gin error", "/boom", "error", "/boom"},
		{"unmatched", "/nope/E001", "warn", "unmatched"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := captureLogger(t)
			r := gin.New()
			r.Use(RequestID(), AccessLog(AccessLogOptions{}))
			r.GET("/plans/:id", func(c *gin.Context) {
				if c.Param("id") == "bad" {
					c.Status(http.StatusBadRequest)
					return
				}
				c.String(http.StatusOK, "ok")
			})
			r.GET("/boom", func(c *gin.Context) {
				_ = c.Error(errSentinel{})
				c.Status(http.StatusOK)
			})

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

			line := accessLine(t, buf)
			if line["level"] != tc.level || line["path"] != tc.label {
				t.Fatalf("level=%v path=%v, want %s %s", line["level"], line["path"], tc.level, tc.label)
			}
			if line["request_id"] == "" {
				t.Fatalf("missing request_id: %v", line)
			}
		})
	}
}

type errSentinel struct{}

func (errSentinel) Error() string { return "boom" }

func TestAccessLog_RedactsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), AccessLog(AccessLogOptions{
		LogHeaders: true,
		Redact:     RedactOptions{MaskHeaders: []string{"X-Api-Key"}},
	}))
	r.GET("/employees/:id/feedback", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet,
		"/employees/E001/feedback?full_name=Ada+Lovelace&contact=ada@example.com&page=2", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Api-Key", "k-1")
	req.Header.Set("X-Trace", "ref 123e4567-e89b-12d3-a456-426614174000")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leak := range []string{"Lovelace", "ada@example.com", "secret", "k-1", "123e4567", "E001"} {
		if strings.Contains(out, leak) {
			t.Fatalf("log leaked %q:\n%s", leak, out)
		}
	}
	line := accessLine(t, buf)
	if q := line["query"]; q != "contact=[REDACTED:email]&full_name=[REDACTED]&page=2" {
		t.Fatalf("query = %v", q)
	}
	hdrs, _ := line["headers"].(map[string]any)
	if hdrs["Authorization"] != "[REDACTED]" || hdrs["X-Trace"] != "ref [REDACTED:id]" {
		t.Fatalf("headers = %v", hdrs)
	}
}

func TestAccessLog_SlowRequestsWarn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(AccessLog(AccessLogOptions{SlowThreshold: time.Millisecond}))
	r.POST("/plans", func(c *gin.Context) {
		time.Sleep(5 * time.Millisecond)
		c.Status(http.StatusCreated)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/plans", nil))

	line := accessLine(t, buf)
	if line["level"] != "warn" || line["slow"] != true {
		t.Fatalf("expected slow warn, got %v", line)
	}
}

func TestRecovery_PanicsToJSON500AndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), AccessLog(AccessLogOptions{}), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIDHeader, "rid-9")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from Recovery, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-9" {
		t.Fatalf("unexpected body: %v", body)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic log, got:\n%s", buf.String())
	}
}

func TestRecovery_PanicAfterWrite_NoJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_ = captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial-body")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))
	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("expected no JSON error body after write; got %q", w.Body.String())
	}
}

func TestLoggerFrom_FallbackAndRequestScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)

	buf := captureLogger(t)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/use", func(c *gin.Context) {
		lg := LoggerFrom(c)
		lg.Info().Msg("custom")
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))
	if strings.Contains(buf.String(), `"request_id"`) {
		t.Fatalf("fallback logger unexpectedly had request_id")
	}

	buf = captureLogger(t)
	r = gin.New()
	r.Use(RequestID(), AccessLog(AccessLogOptions{}))
	r.GET("/use", func(c *gin.Context) {
		lg := LoggerFrom(c)
		lg.Info().Msg("custom2")
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/use", nil)
	req.Header.Set("X-User-ID", "facilities")
	r.ServeHTTP(httptest.NewRecorder(), req)

	for _, m := range logLines(t, buf) {
		if m["message"] == "custom2" {
			if m["request_id"] == "" || m["user_id"] != "facilities" {
				t.Fatalf("scoped logger fields missing: %v", m)
			}
			return
		}
	}
	t.Fatalf("custom2 not logged:\n%s", buf.String())
}

func TestTruncate(t *testing.T) {
	if truncate("hello", 10) != "hello" || truncate("abc", 0) != "abc" {
		t.Fatalf("truncate no-op failed")
	}
	if got := truncate("abcdefgh", 5); got != "abcde…" {
		t.Fatalf("truncate = %q", got)
	}
}
