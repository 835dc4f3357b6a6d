package handlers

import (
	"github.com/fatflowers/contactbook/internal/app/service/auth"
	"github.com/fatflowers/contactbook/internal/app/service/billing"
	"github.com/fatflowers/contactbook/internal/app/service/statistics"
	"github.com/fatflowers/contactbook/internal/app/service/user"
	webhooklog "github.com/fatflowers/contactbook/internal/app/service/webhook_log"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/response"
)

// Envelope types below exist for swagger only; handlers use response.OKT.

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespAuth struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    auth.AuthResult          `json:"data"`
}

type RespMe struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    auth.MeResult            `json:"data"`
}

type RespUser struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.User              `json:"data"`
}

type RespContact struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Contact           `json:"data"`
}

type RespInteractions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Interaction     `json:"data"`
}

type RespDashboardStats struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    statistics.DashboardStats `json:"data"`
}

type RespCheckoutSession struct {
	Code    response.APIResponseCode      `json:"code"`
	Message string                        `json:"message"`
	Data    billing.CheckoutSessionResult `json:"data"`
}

type RespPortalSession struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    billing.PortalSessionResult `json:"data"`
}

type RespSettings struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.Setting         `json:"data"`
}

type RespSetting struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Setting           `json:"data"`
}

type RespScanUsers struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    user.ScanUsersResponse   `json:"data"`
}

// RespSubscriptionStatistic wraps SubscriptionStatisticResponse in the standard envelope.
type RespSubscriptionStatistic struct {
	Code    response.APIResponseCode                 `json:"code"`
	Message string                                   `json:"message"`
	Data    statistics.SubscriptionStatisticResponse `json:"data"`
}

type RespSnapshot struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    SnapshotResponse         `json:"data"`
}

type RespSubscriptionHistory struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.SubscriptionLog `json:"data"`
}

type RespWebhookEvents struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    webhooklog.ScanResponse  `json:"data"`
}
