package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dashboardOrigin = "https://dashboard.travelco.example"

// newCORSRouter serves ledger routes behind the given CORS config.
func newCORSRouter(cfg CORSConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/api/v1/ledger/balance", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"cash": "0"})
	})
	router.POST("/api/v1/ledger/earn", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{})
	})
	return router
}

func TestCORS_DefaultRejectsCrossOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS())
	router.GET("/api/v1/ledger/balance", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil)
	req.Header.Set("Origin", dashboardOrigin)
	router.ServeHTTP(w, req)

	// The default whitelist is empty. The request is served, but the browser
	// gets no grant.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWithConfig(t *testing.T) {
	whitelisted := CORSConfig{
		AllowOrigins:     []string{dashboardOrigin},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Tenant-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           3600,
	}

	t.Run("allowed origin gets the full grant", func(t *testing.T) {
		router := newCORSRouter(whitelisted)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil)
		req.Header.Set("Origin", dashboardOrigin)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, dashboardOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Tenant-ID")
		assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("unlisted origin gets no grant", func(t *testing.T) {
		router := newCORSRouter(whitelisted)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil)
		req.Header.Set("Origin", "https://evil.example")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same-origin request needs no headers", func(t *testing.T) {
		router := newCORSRouter(whitelisted)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard allows any origin without credentials", func(t *testing.T) {
		cfg := whitelisted
		cfg.AllowOrigins = []string{"*"}
		router := newCORSRouter(cfg)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil)
		req.Header.Set("Origin", "https://partner.example")
		router.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight from an allowed origin", func(t *testing.T) {
		router := newCORSRouter(whitelisted)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodOptions, "/api/v1/ledger/earn", nil)
		req.Header.Set("Origin", dashboardOrigin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, dashboardOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight from an unlisted origin still gets 204", func(t *testing.T) {
		router := newCORSRouter(whitelisted)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodOptions, "/api/v1/ledger/earn", nil)
		req.Header.Set("Origin", "https://evil.example")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("zero max age omits the header", func(t *testing.T) {
		cfg := whitelisted
		cfg.MaxAge = 0
		router := newCORSRouter(cfg)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodOptions, "/api/v1/ledger/earn", nil)
		req.Header.Set("Origin", dashboardOrigin)
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))
	})
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins, "origins must be configured explicitly")
	assert.Contains(t, cfg.AllowHeaders, "X-Tenant-ID")
	assert.Contains(t, cfg.AllowHeaders, "Authorization")
	assert.True(t, cfg.AllowCredentials)
}

func TestRequestID(t *testing.T) {
	newRouter := func() *gin.Engine {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(RequestID())
		router.GET("/api/v1/ledger/balance", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"request_id": c.GetString("request_id")})
		})
		return router
	}

	t.Run("generates an id when the header is absent", func(t *testing.T) {
		router := newRouter()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil)
		router.ServeHTTP(w, req)

		id := w.Header().Get("X-Request-ID")
		require.NotEmpty(t, id)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("keeps an incoming id for cross-service correlation", func(t *testing.T) {
		router := newRouter()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil)
		req.Header.Set("X-Request-ID", "booking-service-req-42")
		router.ServeHTTP(w, req)

		assert.Equal(t, "booking-service-req-42", w.Header().Get("X-Request-ID"))
	})
}

func TestGenerateRequestID(t *testing.T) {
	id1 := generateRequestID()
	id2 := generateRequestID()

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
	assert.Len(t, id1, 32, "expected 16 random bytes hex encoded")
}

func TestSecure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Secure())
	router.GET("/api/v1/ledger/balance", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, w.Header().Get("Permissions-Policy"))
	// HSTS stays off until TLS termination is in place.
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecureWithConfig(t *testing.T) {
	serve := func(cfg SecurityConfig) *httptest.ResponseRecorder {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(SecureWithConfig(cfg))
		router.GET("/api/v1/ledger/balance", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{})
		})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/ledger/balance", nil)
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("HSTS with subdomains and preload", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.HSTSEnabled = true
		cfg.HSTSMaxAge = 600
		cfg.HSTSPreload = true

		w := serve(cfg)
		hsts := w.Header().Get("Strict-Transport-Security")
		assert.Contains(t, hsts, "max-age=600")
		assert.Contains(t, hsts, "includeSubDomains")
		assert.Contains(t, hsts, "preload")
	})

	t.Run("CSP disabled", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.CSPEnabled = false

		w := serve(cfg)
		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
	})

	t.Run("custom CSP directive", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.CSPDirective = "default-src 'none'"

		w := serve(cfg)
		assert.Equal(t, "default-src 'none'", w.Header().Get("Content-Security-Policy"))
	})

	t.Run("permissions policy disabled", func(t *testing.T) {
		cfg := DefaultSecurityConfig()
		cfg.PermissionsPolicyEnabled = false

		w := serve(cfg)
		assert.Empty(t, w.Header().Get("Permissions-Policy"))
	})

	t.Run("baseline headers always present", func(t *testing.T) {
		w := serve(SecurityConfig{})
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})
}
