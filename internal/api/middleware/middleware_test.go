package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"regulations/backend/config"
	"regulations/backend/pkg/jwt"
	"regulations/backend/pkg/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "middleware-test-secret",
		Issuer:         "regulations",
		AccessTokenTTL: 15 * time.Minute,
	})
}

// 指向不可达地址的 Redis，用于验证降级放行
func unreachableRedis() *redis.Client {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	return redis.NewFromUniversal(rdb, zap.NewNop())
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth_Rejects(t *testing.T) {
	r := gin.New()
	r.Use(JWTAuth(newJWT(), nil, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		header string
	}{
		{"缺少认证头", ""},
		{"格式错误", "Token abc"},
		{"无效 token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if w := do(r, req); w.Code != http.StatusUnauthorized {
				t.Errorf("期望 401，实际 %d", w.Code)
			}
		})
	}
}

func TestJWTAuth_InjectsKnownRolesOnly(t *testing.T) {
	mgr := newJWT()
	token, err := mgr.GenerateAccessToken("u-1", "Faculty", []string{"scheme_faculty", "superuser"})
	if err != nil {
		t.Fatalf("签发 token 失败: %v", err)
	}

	var gotUID string
	var gotRoles []string
	r := gin.New()
	r.Use(JWTAuth(mgr, nil, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) {
		gotUID = c.GetString("user_id")
		gotRoles = c.GetStringSlice("roles")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(r, req); w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if gotUID != "u-1" {
		t.Errorf("期望 user_id=u-1，实际=%q", gotUID)
	}
	if len(gotRoles) != 1 || gotRoles[0] != "scheme_faculty" {
		t.Errorf("未知角色应被过滤，实际=%v", gotRoles)
	}
}

func TestJWTAuth_RedisFailureDegrades(t *testing.T) {
	mgr := newJWT()
	token, _ := mgr.GenerateAccessToken("u-1", "", []string{"viewer"})

	r := gin.New()
	r.Use(JWTAuth(mgr, unreachableRedis(), zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if w := do(r, req); w.Code != http.StatusOK {
		t.Errorf("Redis 不可用时应降级放行，实际 %d", w.Code)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		set   bool
		want  int
	}{
		{"具有角色", []string{"viewer", "admin"}, true, http.StatusOK},
		{"缺少角色", []string{"viewer"}, true, http.StatusForbidden},
		{"未认证", nil, false, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) {
				if tt.set {
					c.Set("roles", tt.roles)
				}
			})
			r.Use(RoleAuth("admin"))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			if w := do(r, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != tt.want {
				t.Errorf("期望 %d，实际 %d", tt.want, w.Code)
			}
		})
	}
}

// ── BodyLimit ──

func TestBodyLimit_RejectsByContentLength(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"too long"}`))
	if w := do(r, req); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("期望 413，实际 %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
	if w := do(r, req); w.Code != http.StatusOK {
		t.Errorf("小请求体期望 200，实际 %d", w.Code)
	}
}

func TestBodyLimit_StreamingBodyDetected(t *testing.T) {
	var bindErr error
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/x", func(c *gin.Context) {
		var v map[string]string
		bindErr = c.ShouldBindJSON(&v)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"too long"}`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	do(r, req)

	if !IsBodyTooLarge(bindErr) {
		t.Errorf("期望识别为请求体过大，实际: %v", bindErr)
	}
}

// ── RateLimit ──

func TestRateLimit_NilRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		if w := do(r, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != http.StatusOK {
			t.Fatalf("第 %d 次请求期望 200，实际 %d", i+1, w.Code)
		}
	}
}

func TestRateLimit_RedisFailureDegrades(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(unreachableRedis(), 1, time.Minute, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	if w := do(r, httptest.NewRequest(http.MethodGet, "/x", nil)); w.Code != http.StatusOK {
		t.Errorf("Redis 不可用时应降级放行，实际 %d", w.Code)
	}
}

// ── RequestID / CORS ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	if got := do(r, req).Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("应沿用传入的 Request-ID，实际=%q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", 100))
	if got := do(r, req).Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("超长 Request-ID 应被替换为 UUID，实际=%q", got)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://portal.example.edu/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://portal.example.edu")
	w := do(r, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("预检请求期望 204，实际 %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://portal.example.edu" {
		t.Errorf("允许的来源未回写")
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	if w := do(r, req); w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("未授权来源不应返回 CORS 头")
	}
}
