package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mediareview/internal/logging"
	"mediareview/internal/microservices/http-api/dto"
	"mediareview/internal/microservices/http-api/models"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth struct {
	users map[string]*models.User
}

func (s stubAuth) Signup(context.Context, dto.Decoder) (*dto.SignupResponse, error) { return nil, nil }
func (s stubAuth) Token(context.Context, dto.Decoder) (*dto.TokenResponse, error)   { return nil, nil }
func (s stubAuth) ParseAccessToken(string) (*service.Claims, error)                 { return nil, nil }

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, service.ErrInvalidToken
}

func TestAuthenticate(t *testing.T) {
	auth := stubAuth{users: map[string]*models.User{
		"good": {ID: 7, Username: "alice", Role: models.RoleModerator},
	}}

	var seen permission.Actor
	r := gin.New()
	r.Use(Authenticate(auth))
	r.GET("/", func(c *gin.Context) {
		seen = ActorFrom(c)
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		status int
		actor  permission.Actor
	}{
		{"anonymous", "", http.StatusNoContent, permission.Anonymous()},
		{"valid token", "Bearer good", http.StatusNoContent, permission.Actor{ID: 7, Username: "alice", Role: models.RoleModerator}},
		{"lowercase scheme", "bearer good", http.StatusNoContent, permission.Actor{ID: 7, Username: "alice", Role: models.RoleModerator}},
		{"bad token", "Bearer nope", http.StatusUnauthorized, permission.Actor{}},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, permission.Actor{}},
		{"missing token", "Bearer", http.StatusUnauthorized, permission.Actor{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = permission.Actor{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.actor, seen)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"detail"`)
			}
		})
	}
}

func TestActorFrom_DefaultsToAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.True(t, ActorFrom(c).IsAnonymous())
}

func TestRequestLogger_PropagatesID(t *testing.T) {
	var fromCtx string
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/", func(c *gin.Context) {
		fromCtx = logging.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, fromCtx)
	assert.Equal(t, fromCtx, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", fromCtx)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"internal server error"}`, w.Body.String())
}

func echoBody(t *testing.T, body string) string {
	t.Helper()
	var got string
	r := gin.New()
	r.Use(SanitizeInput("text", "description"))
	r.POST("/", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		got = string(b)
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	return got
}

func TestSanitizeInput(t *testing.T) {
	t.Run("strips markup from listed fields", func(t *testing.T) {
		got := echoBody(t, `{"text":"<script>alert(1)</script>Great & <b>bold</b>","score":5}`)
		assert.JSONEq(t, `{"text":"Great & bold","score":5}`, got)
	})

	t.Run("leaves other fields alone", func(t *testing.T) {
		got := echoBody(t, `{"name":"<i>x</i>"}`)
		assert.JSONEq(t, `{"name":"<i>x</i>"}`, got)
	})

	t.Run("passes invalid json through", func(t *testing.T) {
		assert.Equal(t, `{"text":`, echoBody(t, `{"text":`))
	})

	t.Run("leaves non-string values", func(t *testing.T) {
		got := echoBody(t, `{"text":42}`)
		assert.JSONEq(t, `{"text":42}`, got)
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		old := maxBodyBytes
		maxBodyBytes = 64
		t.Cleanup(func() { maxBodyBytes = old })

		called := false
		r := gin.New()
		r.Use(SanitizeInput("text"))
		r.POST("/", func(c *gin.Context) { called = true })

		w := httptest.NewRecorder()
		body := `{"text":"` + strings.Repeat("a", 100) + `"}`
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.False(t, called)
	})
}

func limitedRouter(l Limiter) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(l))
	r.POST("/auth/token", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hit(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	r := limitedRouter(NewRedisLimiter(rdb, 3, time.Minute))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r).Code)
	}
	// the counter carries the window expiry from its first request on
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:10.0.0.1"))
	got, err := mr.Get("ratelimit:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "3", got)

	w := hit(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "throttled")

	mr.FastForward(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, hit(r).Code)
}

func TestRateLimit_RedisDownFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	r := limitedRouter(NewRedisLimiter(rdb, 1, time.Minute))
	assert.Equal(t, http.StatusOK, hit(r).Code)
	assert.Equal(t, http.StatusOK, hit(r).Code)
}

func TestRateLimit_Local(t *testing.T) {
	r := limitedRouter(NewLocalLimiter(2, time.Minute))
	assert.Equal(t, http.StatusOK, hit(r).Code)
	assert.Equal(t, http.StatusOK, hit(r).Code)

	w := hit(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestLocalLimiter_DropsIdleBuckets(t *testing.T) {
	l := NewLocalLimiter(2, time.Minute)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		ok, _, err := l.Allow(ctx, ip)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 3, l.size())

	clock = clock.Add(30 * time.Second)
	_, _, _ = l.Allow(ctx, "10.0.0.1")
	assert.Equal(t, 3, l.size())

	clock = clock.Add(time.Minute)
	ok, _, err := l.Allow(ctx, "10.0.0.4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, l.size())
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, errors.New("unavailable")
}

func TestRateLimit_ErrorLetsRequestThrough(t *testing.T) {
	assert.Equal(t, http.StatusOK, hit(limitedRouter(failingLimiter{})).Code)
}

func TestMetrics_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/titles/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/titles/1", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
