package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabelsAndInflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/plans/:id", func(c *gin.Context) { c.String(http.StatusOK, "{}") })
	r.POST("/plans", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseGet := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/plans/:id", "200"))
	baseMiss := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404"))
	basePost := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/plans", "204"))

	for _, p := range []string{"/plans/a", "/plans/b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/employees/E001/whatever", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/plans", strings.NewReader(`{"employees":[]}`)))

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/plans/:id", "200")); got != baseGet+2 {
		t.Fatalf("route counter = %v; want %v", got, baseGet+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404")); got != baseMiss+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, baseMiss+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/plans", "204")); got != basePost+1 {
		t.Fatalf("post counter = %v; want %v", got, basePost+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
	if n := testutil.CollectAndCount(httpReqSize); n == 0 {
		t.Fatalf("request size histogram not observed")
	}
}
