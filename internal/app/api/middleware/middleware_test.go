package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
)

type fakeTokens map[string]string

func (f fakeTokens) ParseToken(token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	return f.users[id], f.err
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware(), RequestLoggerMiddleware(zap.NewNop().Sugar()))
	r.Use(mw...)
	r.GET("/x", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":     UserID(c),
			"ctx_user_id": logctx.UserID(c.Request.Context()),
			"trace_id":    logctx.TraceID(c.Request.Context()),
		})
	})
	return r
}

func do(r http.Handler, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTraceMiddleware_PropagatesRequestID(t *testing.T) {
	w := do(newEngine(), map[string]string{HeaderRequestID: "abc-123"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
	assert.Contains(t, w.Body.String(), `"trace_id":"abc-123"`)
}

func TestTraceMiddleware_GeneratesID(t *testing.T) {
	w := do(newEngine(), nil)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestBearerAuth(t *testing.T) {
	r := newEngine(BearerAuth(fakeTokens{"good": "u1"}, zap.NewNop().Sugar()))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, map[string]string{"Authorization": tc.header})
			require.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
				assert.Contains(t, w.Body.String(), `"ctx_user_id":"u1"`)
			} else {
				assert.Contains(t, w.Body.String(), `"code":40100`)
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	users := &fakeUsers{users: map[string]*models.User{
		"admin": {ID: "admin", IsAdmin: true},
		"plain": {ID: "plain"},
	}}
	log := zap.NewNop().Sugar()
	r := newEngine(BearerAuth(fakeTokens{"a": "admin", "p": "plain", "g": "ghost"}, log), AdminOnly(users, log))

	assert.Equal(t, http.StatusOK, do(r, map[string]string{"Authorization": "Bearer a"}).Code)
	assert.Equal(t, http.StatusForbidden, do(r, map[string]string{"Authorization": "Bearer p"}).Code)
	assert.Equal(t, http.StatusForbidden, do(r, map[string]string{"Authorization": "Bearer g"}).Code)

	users.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, do(r, map[string]string{"Authorization": "Bearer a"}).Code)
}

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(0.0001, 2)
	r := newEngine(l.Middleware())

	fromIP := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, fromIP("10.0.0.1"))
	assert.Equal(t, http.StatusOK, fromIP("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, fromIP("10.0.0.1"))
	assert.Equal(t, http.StatusOK, fromIP("10.0.0.2"))
}

func TestIPRateLimiter_CleanupDropsIdleVisitors(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	l.limiter("1.1.1.1")
	now = now.Add(time.Minute)
	l.limiter("2.2.2.2")
	now = now.Add(150 * time.Second)
	l.Cleanup()

	assert.NotContains(t, l.visitors, "1.1.1.1")
	assert.Contains(t, l.visitors, "2.2.2.2")
}

func TestRegisterValidators_NotBlank(t *testing.T) {
	require.NoError(t, RegisterValidators())

	type body struct {
		Name string `json:"name" binding:"notblank"`
	}
	gin.SetMode(gin.TestMode)
	for payload, ok := range map[string]bool{`{"name":"ann"}`: true, `{"name":"   "}`: false, `{}`: false} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		c.Request.Header.Set("Content-Type", "application/json")
		var b body
		err := c.ShouldBindJSON(&b)
		assert.Equal(t, ok, err == nil, payload)
	}
}
