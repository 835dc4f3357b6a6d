package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/contactbook/internal/app/service/auth"
	"github.com/fatflowers/contactbook/internal/app/service/statistics"
	"github.com/fatflowers/contactbook/internal/app/service/user"
	webhooklog "github.com/fatflowers/contactbook/internal/app/service/webhook_log"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/types"
)

type fakeAuth struct {
	signupErr error
	users     map[string]string
}

func (f *fakeAuth) Signup(_ context.Context, req *auth.SignupRequest) (*auth.AuthResult, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &auth.AuthResult{Token: "tok", User: &models.User{ID: "u1", Email: req.Email}}, nil
}

func (f *fakeAuth) Login(_ context.Context, req *auth.LoginRequest) (*auth.AuthResult, error) {
	if f.users[req.Email] != req.Password {
		return nil, types.ErrInvalidCredentials
	}
	return &auth.AuthResult{Token: "tok", User: &models.User{ID: "u1", Email: req.Email}}, nil
}

func (f *fakeAuth) Me(_ context.Context, userID string) (*auth.MeResult, error) {
	return &auth.MeResult{User: &models.User{ID: userID}}, nil
}

func (f *fakeAuth) UpdateProfile(_ context.Context, userID string, req *auth.UpdateProfileRequest) (*models.User, error) {
	return &models.User{ID: userID, Email: req.Email, Name: req.Name}, nil
}

func (f *fakeAuth) ChangePassword(context.Context, string, *auth.ChangePasswordRequest) error {
	return types.ErrInvalidCredentials
}

func newAuthEngine(t *testing.T, svc AuthService) http.Handler {
	r := newTestEngine(t)
	RegisterAuthRoutes(r.Group("/api/auth"), svc, asUser("u1"), nopLog)
	return r
}

func TestAuth_Signup(t *testing.T) {
	body := map[string]any{"email": "ann@example.com", "password": "longenough"}

	w := doJSON(newAuthEngine(t, &fakeAuth{}), http.MethodPost, "/api/auth/signup", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"token":"tok"`)
	assert.NotContains(t, w.Body.String(), "password")

	cases := map[error]int{
		types.ErrRegistrationClosed: http.StatusForbidden,
		types.ErrEmailTaken:         http.StatusConflict,
		fmt.Errorf("boom"):          http.StatusInternalServerError,
	}
	for err, status := range cases {
		w := doJSON(newAuthEngine(t, &fakeAuth{signupErr: err}), http.MethodPost, "/api/auth/signup", body)
		assert.Equal(t, status, w.Code, err.Error())
	}

	w = doJSON(newAuthEngine(t, &fakeAuth{}), http.MethodPost, "/api/auth/signup", map[string]any{"email": "ann@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth_InternalErrorsAreNotLeaked(t *testing.T) {
	w := doJSON(newAuthEngine(t, &fakeAuth{signupErr: fmt.Errorf("pq: password=hunter2")}), http.MethodPost, "/api/auth/signup",
		map[string]any{"email": "ann@example.com", "password": "longenough"})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestAuth_LoginAndPassword(t *testing.T) {
	r := newAuthEngine(t, &fakeAuth{users: map[string]string{"ann@example.com": "longenough"}})

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodPost, "/api/auth/login", map[string]any{"email": "ann@example.com", "password": "longenough"}).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodPost, "/api/auth/login", map[string]any{"email": "ann@example.com", "password": "wrong"}).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodPut, "/api/auth/password", map[string]any{"current_password": "x", "new_password": "longenough"}).Code)

	w := doJSON(r, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"id":"u1"`)
}

type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) List(context.Context) ([]*models.Setting, error) {
	return lo.MapToSlice(f.values, func(k, v string) *models.Setting { return &models.Setting{Key: k, Value: v} }), nil
}

func (f *fakeSettings) Upsert(_ context.Context, key, value string) (*models.Setting, error) {
	f.values[key] = value
	return &models.Setting{Key: key, Value: value}, nil
}

func (f *fakeSettings) Initialize(ctx context.Context) ([]*models.Setting, error) {
	if _, ok := f.values[models.SettingAllowRegistration]; !ok {
		f.values[models.SettingAllowRegistration] = "true"
	}
	return f.List(ctx)
}

type fakeAdminUsers struct {
	actor, target string
	isAdmin       bool
}

func (f *fakeAdminUsers) Scan(_ context.Context, req *user.ScanUsersRequest) (*user.ScanUsersResponse, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	return &user.ScanUsersResponse{Items: []*user.UserItem{}, Total: 0}, nil
}

func (f *fakeAdminUsers) SetAdmin(_ context.Context, actorID, targetID string, isAdmin bool) (*models.User, error) {
	if actorID == targetID && !isAdmin {
		return nil, fmt.Errorf("%w: cannot remove your own admin access", types.ErrInvalidArgument)
	}
	f.actor, f.target, f.isAdmin = actorID, targetID, isAdmin
	return &models.User{ID: targetID, IsAdmin: isAdmin}, nil
}

type fakeStats struct {
	snapshotDay time.Time
}

func (f *fakeStats) GetSubscriptionStatistic(_ context.Context, req *statistics.SubscriptionStatisticRequest) (*statistics.SubscriptionStatisticResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &statistics.SubscriptionStatisticResponse{DataItems: map[statistics.StatisticType][]statistics.SubscriptionStatisticResponseDataItem{
		statistics.StatisticTypeSubscriptionStatusCount: {{Label: "active", Value: 2}},
	}}, nil
}

func (f *fakeStats) SaveDailySnapshots(_ context.Context, day time.Time) (int64, error) {
	f.snapshotDay = day
	return 4, nil
}

type fakeHistory struct{}

func (fakeHistory) History(context.Context, string) ([]*models.SubscriptionLog, error) { return nil, nil }

type fakeWebhookLogs struct{}

func (fakeWebhookLogs) Scan(_ context.Context, req *webhooklog.ScanRequest) (*webhooklog.ScanResponse, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	return &webhooklog.ScanResponse{Items: []*models.WebhookEventLog{}}, nil
}

func newAdminEngine(t *testing.T, s AdminServices) http.Handler {
	r := newTestEngine(t)
	RegisterAdminRoutes(r.Group("/api/admin", asUser("admin-1")), s, nopLog)
	return r
}

func TestAdmin_Settings(t *testing.T) {
	settings := &fakeSettings{values: map[string]string{}}
	r := newAdminEngine(t, AdminServices{Settings: settings})

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPut, "/api/admin/settings/ALLOW_REGISTRATION", map[string]any{}).Code)

	w := doJSON(r, http.MethodPut, "/api/admin/settings/ALLOW_REGISTRATION", map[string]any{"value": "false"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", settings.values[models.SettingAllowRegistration])

	w = doJSON(r, http.MethodPost, "/api/admin/settings/initialize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", settings.values[models.SettingAllowRegistration])
}

func TestAdmin_SetAdmin(t *testing.T) {
	users := &fakeAdminUsers{}
	r := newAdminEngine(t, AdminServices{Users: users})

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPut, "/api/admin/users/u2/admin", map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPut, "/api/admin/users/u2/admin", map[string]any{"is_admin": "yes"}).Code)

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodPut, "/api/admin/users/u2/admin", map[string]any{"is_admin": false}).Code)
	assert.Equal(t, "admin-1", users.actor)
	assert.Equal(t, "u2", users.target)
	assert.False(t, users.isAdmin)

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPut, "/api/admin/users/admin-1/admin", map[string]any{"is_admin": false}).Code)
}

func TestAdmin_ScanUsers_RejectsUnknownFilter(t *testing.T) {
	r := newAdminEngine(t, AdminServices{Users: &fakeAdminUsers{}})

	w := doJSON(r, http.MethodPost, "/api/admin/users", map[string]any{
		"filters": []map[string]any{{"field": "password_hash", "operator": "eq", "values": []any{"x"}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodPost, "/api/admin/users", map[string]any{}).Code)
}

func TestAdmin_Statistics(t *testing.T) {
	stats := &fakeStats{}
	r := newAdminEngine(t, AdminServices{Statistics: stats})

	w := doJSON(r, http.MethodPost, "/api/admin/statistics", map[string]any{
		"data_items": []map[string]any{{"id": "subscription_status_count"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"label":"active"`)

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/admin/statistics", map[string]any{"data_items": []any{}}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodPost, "/api/admin/statistics", map[string]any{
		"data_items": []map[string]any{{"id": "daily_gmv"}},
	}).Code)

	w = doJSON(r, http.MethodPost, "/api/admin/statistics/snapshot", map[string]any{"date": "2024-01-15T00:00:00Z"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"snapshot_date":"2024-01-15","saved":4}`, string(decodeEnvelope(t, w).Data))

	w = doJSON(r, http.MethodPost, "/api/admin/statistics/snapshot", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.WithinDuration(t, time.Now(), stats.snapshotDay, time.Minute)
}

func TestAdmin_HistoryAndWebhookEvents(t *testing.T) {
	r := newAdminEngine(t, AdminServices{Subscriptions: fakeHistory{}, WebhookLogs: fakeWebhookLogs{}})

	w := doJSON(r, http.MethodGet, "/api/admin/subscriptions/sub_1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, w).Data))

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodPost, "/api/admin/webhook-events", map[string]any{"size": 10}).Code)
}
