package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tahatra21/solarhub-sub000/config"
	"github.com/Tahatra21/solarhub-sub000/pkg/jwt"
	"github.com/Tahatra21/solarhub-sub000/pkg/metrics"
	"github.com/Tahatra21/solarhub-sub000/pkg/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "middleware-test-secret-0123456789",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

var testIdentity = jwt.Identity{UserID: 42, Username: "alice", Role: "Contributor", RoleID: 2}

// unreachableRedis 指向不可达地址，所有命令都会返回错误
func unreachableRedis() *redis.Client {
	return redis.NewFromClient(goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}), zap.NewNop())
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func authEngine(mgr *jwt.Manager, rdb *redis.Client, seen *gin.H) *gin.Engine {
	r := gin.New()
	r.GET("/p", JWTAuth(mgr, rdb), func(c *gin.Context) {
		*seen = gin.H{
			"user_id": c.GetInt64("user_id"),
			"role":    c.GetString("role"),
			"role_id": c.GetInt64("role_id"),
			"jti":     c.GetString("jti"),
		}
		_, hasExp := c.Get("token_exp")
		(*seen)["has_exp"] = hasExp
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestJWTAuth_RejectsMissingOrMalformedHeader(t *testing.T) {
	var seen gin.H
	r := authEngine(newJWT(), nil, &seen)

	for _, header := range []string{"", "Token abc", "Bearer", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := do(r, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header=%q", header)
	}
	assert.Nil(t, seen)
}

func TestJWTAuth_ValidAccessTokenSetsContext(t *testing.T) {
	mgr := newJWT()
	token, err := mgr.GenerateAccessToken(testIdentity)
	require.NoError(t, err)

	var seen gin.H
	r := authEngine(mgr, nil, &seen)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := do(r, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(42), seen["user_id"])
	assert.Equal(t, "Contributor", seen["role"])
	assert.Equal(t, int64(2), seen["role_id"])
	assert.NotEmpty(t, seen["jti"])
	assert.Equal(t, true, seen["has_exp"])
}

func TestJWTAuth_RejectsRefreshToken(t *testing.T) {
	mgr := newJWT()
	token, err := mgr.GenerateRefreshToken(testIdentity)
	require.NoError(t, err)

	var seen gin.H
	r := authEngine(mgr, nil, &seen)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
}

// Redis 不可用时黑名单检查放行
func TestJWTAuth_RedisDownAllows(t *testing.T) {
	mgr := newJWT()
	token, err := mgr.GenerateAccessToken(testIdentity)
	require.NoError(t, err)

	rdb := unreachableRedis()
	defer rdb.Close()

	var seen gin.H
	r := authEngine(mgr, rdb, &seen)
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	assert.Equal(t, http.StatusNoContent, do(r, req).Code)
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	cases := []struct {
		name string
		role string
		want int
	}{
		{"admin allowed", "Admin", http.StatusOK},
		{"contributor allowed", "Contributor", http.StatusOK},
		{"user forbidden", "User", http.StatusForbidden},
		{"no role", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/w", func(c *gin.Context) {
				if tc.role != "" {
					c.Set("role", tc.role)
				}
			}, RoleAuth("Admin", "Contributor"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			w := do(r, httptest.NewRequest(http.MethodGet, "/w", nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

// ── RateLimit ──

func TestRateLimit_LocalFallback(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(nil, RateLimitOptions{RPS: 0.001, Burst: 2}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		codes = append(codes, do(r, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// 不同 IP 独立计数
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, do(r, req).Code)
}

func TestRateLimit_RedisErrorFallsBackToLocal(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	r := gin.New()
	r.POST("/login", RateLimit(rdb, RateLimitOptions{Limit: 100, Window: time.Minute, RPS: 0.001, Burst: 1}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	first := do(r, httptest.NewRequest(http.MethodPost, "/login", nil))
	second := do(r, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimit_ZeroRPSDisablesLocal(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(nil, RateLimitOptions{}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	for i := 0; i < 20; i++ {
		require.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code)
	}
}

// ── BodyLimit ──

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/b", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	small := httptest.NewRequest(http.MethodPost, "/b", strings.NewReader(`{"a":"b"}`))
	small.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusOK, do(r, small).Code)

	large := httptest.NewRequest(http.MethodPost, "/b", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`))
	large.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, large).Code)

	// 未声明长度的请求体在读取时截断
	chunked := httptest.NewRequest(http.MethodPost, "/b", bytes.NewBufferString(`{"a":"`+strings.Repeat("y", 64)+`"}`))
	chunked.ContentLength = -1
	chunked.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, chunked).Code)
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/r", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("X-Request-ID", "given-id")
	w = do(r, req)
	assert.Equal(t, "given-id", w.Header().Get("X-Request-ID"))
}

// ── Metrics ──

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	m := metrics.New("plc_test")
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/products/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, httptest.NewRequest(http.MethodGet, "/products/1", nil))
	do(r, httptest.NewRequest(http.MethodGet, "/products/2", nil))
	do(r, httptest.NewRequest(http.MethodGet, "/nope", nil))

	// /products/:id 与 unmatched 各一条序列
	n, err := testutil.GatherAndCount(m.Registry(), "plc_test_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_NilSafe(t *testing.T) {
	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

// ── CORS ──

func TestCORS_AllowedOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/c", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/c", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := do(r, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/c", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = do(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestID_RejectsUnsafeValue(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/r", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/r", nil)
	req.Header.Set("X-Request-ID", "bad id\nforged")
	w := do(r, req)
	assert.NotEqual(t, "bad id\nforged", w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())
}

// ── SecurityHeaders ──

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/api/v1/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/uploads/a.png", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/uploads/a.png", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = do(r, req)
	assert.Empty(t, w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}
