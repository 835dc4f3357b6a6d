package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rejectAll struct{}

func (rejectAll) ParseToken(string) (string, error) { return "", errors.New("no") }

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Mount(r, Routes{Tokens: rejectAll{}}, zap.NewNop().Sugar())
	return r
}

func TestMount_RegistersEndpoints(t *testing.T) {
	r := newTestServer(t)

	routes := map[string]bool{}
	for _, rt := range r.Routes() {
		routes[rt.Method+" "+rt.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /health",
		"GET /swagger/*any",
		"POST /api/auth/signup",
		"POST /api/auth/login",
		"GET /api/auth/me",
		"PUT /api/auth/profile",
		"PUT /api/auth/password",
		"POST /api/subscriptions/webhook",
		"POST /api/subscriptions/create-checkout-session",
		"POST /api/subscriptions/create-portal-session",
		"GET /api/contacts",
		"GET /api/contacts/:id",
		"POST /api/contacts",
		"PUT /api/contacts/:id",
		"DELETE /api/contacts/:id",
		"GET /api/interactions",
		"GET /api/interactions/contact/:contactId",
		"GET /api/notes",
		"GET /api/tags",
		"GET /api/dashboard/stats",
		"GET /api/admin/settings",
		"PUT /api/admin/settings/:key",
		"POST /api/admin/settings/initialize",
		"POST /api/admin/users",
		"PUT /api/admin/users/:id/admin",
		"POST /api/admin/statistics",
		"POST /api/admin/statistics/snapshot",
		"GET /api/admin/subscriptions/:id/history",
		"POST /api/admin/webhook-events",
	} {
		assert.True(t, routes[want], want)
	}
}

func TestMount_ProtectedRoutesRequireBearer(t *testing.T) {
	r := newTestServer(t)

	for _, target := range []struct{ method, path string }{
		{http.MethodGet, "/api/contacts"},
		{http.MethodGet, "/api/dashboard/stats"},
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/subscriptions/create-checkout-session"},
		{http.MethodGet, "/api/admin/settings"},
	} {
		req := httptest.NewRequest(target.method, target.path, nil)
		req.Header.Set("Authorization", "Bearer whatever")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, target.path)
	}
}

func TestMount_HealthIsPublic(t *testing.T) {
	r := newTestServer(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
