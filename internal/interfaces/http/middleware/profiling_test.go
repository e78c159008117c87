package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveProfiled registers the route behind the profiling middleware, issues
// one request, and returns the pprof labels visible inside the handler.
func serveProfiled(t *testing.T, cfg ProfilingConfig, method, route, path string, pre ...gin.HandlerFunc) map[string]string {
	t.Helper()

	seen := make(map[string]string)
	r := gin.New()
	r.Use(pre...)
	r.Use(ProfilingWithConfig(cfg))
	r.Handle(method, route, func(c *gin.Context) {
		ctx := c.Request.Context()
		for _, key := range []string{"controller", "route", "method", "tenant_id"} {
			if v, ok := pprof.Label(ctx, key); ok {
				seen[key] = v
			}
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	require.Equal(t, http.StatusOK, w.Code)
	return seen
}

func TestDefaultProfilingConfig(t *testing.T) {
	cfg := DefaultProfilingConfig()

	assert.True(t, cfg.Enabled)
	assert.Contains(t, cfg.SkipPaths, "/health")
	assert.Contains(t, cfg.SkipPaths, "/healthz")
	assert.Contains(t, cfg.SkipPaths, "/ready")
	assert.Contains(t, cfg.SkipPaths, "/metrics")
	assert.Contains(t, cfg.SkipPathPrefixes, "/swagger")
	assert.Contains(t, cfg.SkipPathPrefixes, "/api-docs")
}

func TestProfilingMiddleware_Disabled(t *testing.T) {
	cfg := ProfilingConfig{Enabled: false}

	labels := serveProfiled(t, cfg, http.MethodPost, "/api/v1/ledger/earn", "/api/v1/ledger/earn")
	assert.Empty(t, labels, "disabled middleware must not attach labels")
}

func TestProfilingMiddleware_AttachesRequestLabels(t *testing.T) {
	cfg := DefaultProfilingConfig()

	labels := serveProfiled(t, cfg,
		http.MethodGet, "/api/v1/ledger/accounts/:id/balance", "/api/v1/ledger/accounts/acct-42/balance")

	assert.Equal(t, "GET", labels["method"])
	assert.Equal(t, "/api/v1/ledger/accounts/:id/balance", labels["route"])
	assert.Equal(t, "ledger", labels["controller"])
	assert.NotContains(t, labels, "tenant_id", "no tenant middleware ran")
}

func TestProfilingMiddleware_SkipPaths(t *testing.T) {
	tests := []struct {
		name       string
		route      string
		shouldSkip bool
	}{
		{"health_exact", "/health", true},
		{"metrics_exact", "/metrics", true},
		{"swagger_prefix", "/swagger/index.html", true},
		{"api_docs_prefix", "/api-docs/v1", true},
		{"ledger_route", "/api/v1/ledger/redeem", false},
		{"health_subpath", "/health/check", false}, // prefix list does not cover /health
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labels := serveProfiled(t, DefaultProfilingConfig(), http.MethodGet, tt.route, tt.route)
			if tt.shouldSkip {
				assert.Empty(t, labels, "path %s must not be labeled", tt.route)
			} else {
				assert.NotEmpty(t, labels, "path %s must be labeled", tt.route)
			}
		})
	}
}

func TestProfilingMiddleware_CustomSkipPaths(t *testing.T) {
	cfg := ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/internal/reconcile"},
		SkipPathPrefixes: []string{"/internal/admin"},
	}

	tests := []struct {
		route      string
		shouldSkip bool
	}{
		{"/internal/reconcile", true},
		{"/internal/admin/dashboard", true},
		{"/api/v1/ledger/earn", false},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			labels := serveProfiled(t, cfg, http.MethodGet, tt.route, tt.route)
			if tt.shouldSkip {
				assert.Empty(t, labels)
			} else {
				assert.NotEmpty(t, labels)
			}
		})
	}
}

func TestProfilingMiddleware_TenantLabel(t *testing.T) {
	cfg := DefaultProfilingConfig()

	t.Run("from jwt claims", func(t *testing.T) {
		labels := serveProfiled(t, cfg, http.MethodGet, "/api/v1/ledger/balance", "/api/v1/ledger/balance",
			func(c *gin.Context) {
				c.Set(JWTTenantIDKey, "tenant-travelco")
				c.Next()
			})
		assert.Equal(t, "tenant-travelco", labels["tenant_id"])
	})

	t.Run("fallback to tenant middleware", func(t *testing.T) {
		labels := serveProfiled(t, cfg, http.MethodGet, "/api/v1/ledger/balance", "/api/v1/ledger/balance",
			func(c *gin.Context) {
				c.Set(TenantIDKey, "tenant-nomadair")
				c.Next()
			})
		assert.Equal(t, "tenant-nomadair", labels["tenant_id"])
	})

	t.Run("jwt claims take precedence", func(t *testing.T) {
		labels := serveProfiled(t, cfg, http.MethodGet, "/api/v1/ledger/balance", "/api/v1/ledger/balance",
			func(c *gin.Context) {
				c.Set(JWTTenantIDKey, "tenant-travelco")
				c.Set(TenantIDKey, "tenant-nomadair")
				c.Next()
			})
		assert.Equal(t, "tenant-travelco", labels["tenant_id"])
	})

	t.Run("wrong type ignored", func(t *testing.T) {
		labels := serveProfiled(t, cfg, http.MethodGet, "/api/v1/ledger/balance", "/api/v1/ledger/balance",
			func(c *gin.Context) {
				c.Set(JWTTenantIDKey, 12345)
				c.Next()
			})
		assert.NotContains(t, labels, "tenant_id")
	})
}

func TestProfilingMiddleware_DefaultConstructor(t *testing.T) {
	r := gin.New()
	handlerCalled := false
	r.Use(Profiling())
	r.GET("/api/v1/ledger/balance", func(c *gin.Context) {
		handlerCalled = true
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, handlerCalled)
}

func TestProfilingMiddleware_PreservesGinContext(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("audit_source", "booking-service")
		c.Next()
	})
	r.Use(ProfilingWithConfig(DefaultProfilingConfig()))
	r.GET("/api/v1/ledger/balance", func(c *gin.Context) {
		value, exists := c.Get("audit_source")
		assert.True(t, exists)
		assert.Equal(t, "booking-service", value)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExtractControllerFromRoute(t *testing.T) {
	tests := []struct {
		name  string
		route string
		want  string
	}{
		{"flat resource", "/api/v1/ledger", "ledger"},
		{"verb under resource", "/api/v1/ledger/earn", "ledger"},
		{"param after resource", "/api/v1/accounts/:id", "accounts"},
		{"nested after param", "/api/v1/accounts/:id/balance", "accounts"},
		{"no version segment", "/api/accounts", "accounts"},
		{"bare version", "/v2/milestones", "milestones"},
		{"multi digit version", "/api/v10/milestones", "milestones"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractControllerFromRoute(tt.route))
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("v10"))
	assert.True(t, isVersionSegment("V2"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("version"))
	assert.False(t, isVersionSegment("v1a"))
	assert.False(t, isVersionSegment("ledger"))
}
