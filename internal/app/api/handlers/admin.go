package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/contactbook/internal/app/api/middleware"
	"github.com/fatflowers/contactbook/internal/app/service/statistics"
	"github.com/fatflowers/contactbook/internal/app/service/user"
	webhooklog "github.com/fatflowers/contactbook/internal/app/service/webhook_log"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/response"
)

type SettingService interface {
	List(ctx context.Context) ([]*models.Setting, error)
	Upsert(ctx context.Context, key, value string) (*models.Setting, error)
	Initialize(ctx context.Context) ([]*models.Setting, error)
}

type AdminUserService interface {
	Scan(ctx context.Context, req *user.ScanUsersRequest) (*user.ScanUsersResponse, error)
	SetAdmin(ctx context.Context, actorID, targetID string, isAdmin bool) (*models.User, error)
}

type StatisticService interface {
	GetSubscriptionStatistic(ctx context.Context, req *statistics.SubscriptionStatisticRequest) (*statistics.SubscriptionStatisticResponse, error)
	SaveDailySnapshots(ctx context.Context, snapshotDate time.Time) (int64, error)
}

type SubscriptionHistoryService interface {
	History(ctx context.Context, stripeSubscriptionID string) ([]*models.SubscriptionLog, error)
}

type WebhookLogService interface {
	Scan(ctx context.Context, req *webhooklog.ScanRequest) (*webhooklog.ScanResponse, error)
}

type UpdateSettingRequest struct {
	Value *string `json:"value" binding:"required"`
}

type SetAdminRequest struct {
	IsAdmin *bool `json:"is_admin" binding:"required"`
}

type SnapshotRequest struct {
	// Date defaults to today (UTC).
	Date *time.Time `json:"date"`
}

type SnapshotResponse struct {
	SnapshotDate string `json:"snapshot_date"`
	Saved        int64  `json:"saved"`
}

// @Summary      List settings (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSettings
// @Router       /api/admin/settings [get]
func ApiListSettings(svc SettingService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.List(c.Request.Context())
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Update setting (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        key      path  string                true  "Setting key"
// @Param        request  body  UpdateSettingRequest  true  "New value"
// @Success      200  {object}  handlers.RespSetting
// @Router       /api/admin/settings/{key} [put]
func ApiUpdateSetting(svc SettingService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSettingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		row, err := svc.Upsert(c.Request.Context(), c.Param("key"), *req.Value)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		logctx.FromGin(c, log).Infow("setting_updated", "key", row.Key)
		c.JSON(http.StatusOK, response.OKT(row))
	}
}

// @Summary      Initialize default settings (Admin)
// @Description  Creates missing default settings without touching existing values.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSettings
// @Router       /api/admin/settings/initialize [post]
func ApiInitializeSettings(svc SettingService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.Initialize(c.Request.Context())
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      List users (Admin)
// @Description  Retrieves a paginated and filterable list of users with their subscription state.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body user.ScanUsersRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespScanUsers
// @Router       /api/admin/users [post]
func ApiScanUsers(svc AdminUserService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req user.ScanUsersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		res, err := svc.Scan(c.Request.Context(), &req)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Toggle admin flag (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string           true  "User ID"
// @Param        request  body  SetAdminRequest  true  "Admin flag"
// @Success      200  {object}  handlers.RespUser
// @Failure      400  {object}  handlers.RespOK
// @Router       /api/admin/users/{id}/admin [put]
func ApiSetAdmin(svc AdminUserService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetAdminRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		u, err := svc.SetAdmin(c.Request.Context(), mw.UserID(c), c.Param("id"), *req.IsAdmin)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(u))
	}
}

// @Summary      Subscription statistics (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.SubscriptionStatisticRequest true "Statistic data items and filters"
// @Success      200  {object}  handlers.RespSubscriptionStatistic
// @Router       /api/admin/statistics [post]
func ApiGetSubscriptionStatistic(svc StatisticService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.SubscriptionStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		res, err := svc.GetSubscriptionStatistic(c.Request.Context(), &req)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Save daily subscription snapshot (Admin)
// @Description  Copies every subscription into the daily snapshot table. Intended for a daily cron.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SnapshotRequest false "Snapshot date"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/admin/statistics/snapshot [post]
func ApiSaveDailySnapshots(svc StatisticService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SnapshotRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				abortBadRequest(c, err)
				return
			}
		}
		day := time.Now().UTC()
		if req.Date != nil {
			day = req.Date.UTC()
		}
		n, err := svc.SaveDailySnapshots(c.Request.Context(), day)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(SnapshotResponse{SnapshotDate: day.Format(time.DateOnly), Saved: n}))
	}
}

// @Summary      Subscription change history (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        id  path  string  true  "Stripe subscription ID"
// @Success      200  {object}  handlers.RespSubscriptionHistory
// @Router       /api/admin/subscriptions/{id}/history [get]
func ApiSubscriptionHistory(svc SubscriptionHistoryService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.History(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		if rows == nil {
			rows = []*models.SubscriptionLog{}
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Webhook event journal (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body webhook_log.ScanRequest true "Filters and pagination"
// @Success      200  {object}  handlers.RespWebhookEvents
// @Router       /api/admin/webhook-events [post]
func ApiScanWebhookEvents(svc WebhookLogService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req webhooklog.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBadRequest(c, err)
			return
		}
		res, err := svc.Scan(c.Request.Context(), &req)
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// AdminServices groups the dependencies of the admin routes.
type AdminServices struct {
	Settings      SettingService
	Users         AdminUserService
	Statistics    StatisticService
	Subscriptions SubscriptionHistoryService
	WebhookLogs   WebhookLogService
}

// RegisterAdminRoutes mounts admin endpoints. r must already enforce bearer
// auth and the admin guard.
func RegisterAdminRoutes(r gin.IRouter, s AdminServices, log *zap.SugaredLogger) {
	r.GET("/settings", ApiListSettings(s.Settings, log))
	r.PUT("/settings/:key", ApiUpdateSetting(s.Settings, log))
	r.POST("/settings/initialize", ApiInitializeSettings(s.Settings, log))

	r.POST("/users", ApiScanUsers(s.Users, log))
	r.PUT("/users/:id/admin", ApiSetAdmin(s.Users, log))

	r.POST("/statistics", ApiGetSubscriptionStatistic(s.Statistics, log))
	r.POST("/statistics/snapshot", ApiSaveDailySnapshots(s.Statistics, log))

	r.GET("/subscriptions/:id/history", ApiSubscriptionHistory(s.Subscriptions, log))
	r.POST("/webhook-events", ApiScanWebhookEvents(s.WebhookLogs, log))
}
