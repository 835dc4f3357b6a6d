package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	mw "github.com/fatflowers/contactbook/internal/app/api/middleware"
	"github.com/fatflowers/contactbook/internal/app/service/billing"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/response"
)

// MaxWebhookBodyBytes bounds webhook payloads. Provider events are far smaller.
const MaxWebhookBodyBytes = 64 << 10

type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, userID string) (*billing.CheckoutSessionResult, error)
	CreatePortalSession(ctx context.Context, userID string) (*billing.PortalSessionResult, error)
}

type WebhookHandler interface {
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader, traceID string) (billing.Outcome, error)
}

// WebhookAck is the body returned to the provider for accepted deliveries.
type WebhookAck struct {
	Received bool `json:"received"`
}

// @Summary      Create checkout session
// @Description  Opens a hosted subscription checkout for the caller.
// @Tags         Subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespCheckoutSession
// @Failure      500  {object}  handlers.RespOK
// @Router       /api/subscriptions/create-checkout-session [post]
func ApiCreateCheckoutSession(svc CheckoutService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.CreateCheckoutSession(c.Request.Context(), mw.UserID(c))
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Create portal session
// @Description  Opens the hosted billing portal. 404 when the caller has never checked out.
// @Tags         Subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespPortalSession
// @Failure      404  {object}  handlers.RespOK
// @Router       /api/subscriptions/create-portal-session [post]
func ApiCreatePortalSession(svc CheckoutService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.CreatePortalSession(c.Request.Context(), mw.UserID(c))
		if err != nil {
			abortWithError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Stripe webhook
// @Description  Receives signed billing events. The signature is checked over the raw body.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header  string  true  "Webhook signature"
// @Param        payload           body    string  true  "Raw event payload"
// @Success      200  {object}  handlers.WebhookAck
// @Failure      400  {object}  handlers.RespOK
// @Failure      500  {object}  handlers.RespOK
// @Router       /api/subscriptions/webhook [post]
func ApiStripeWebhook(h WebhookHandler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := logctx.FromGin(c, log)
		l.Infow("webhook_stripe_received")

		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Abort(c, http.StatusRequestEntityTooLarge, response.APIResponseCodeBadRequest, "payload too large")
				return
			}
			response.Abort(c, http.StatusBadRequest, response.APIResponseCodeBadRequest, "failed to read body")
			return
		}

		outcome, err := h.HandleWebhook(c.Request.Context(), payload, c.GetHeader(billing.SignatureHeader), c.GetString(logctx.KeyTraceID))
		if err != nil {
			if errors.Is(err, billing.ErrVerification) {
				response.Abort(c, http.StatusBadRequest, response.APIResponseCodeBadRequest, "signature verification failed")
				return
			}
			l.Errorw("webhook_stripe_handle_error", "error", err)
			response.Abort(c, http.StatusInternalServerError, response.APIResponseCodeError, "webhook handling failed")
			return
		}
		l.Infow("webhook_stripe_handled", "outcome", outcome)
		c.JSON(http.StatusOK, WebhookAck{Received: true})
	}
}

// RegisterSubscriptionRoutes mounts the webhook without auth and the
// session endpoints behind bearer.
func RegisterSubscriptionRoutes(r gin.IRouter, svc CheckoutService, h WebhookHandler, bearer gin.HandlerFunc, log *zap.SugaredLogger) {
	r.POST("/webhook", ApiStripeWebhook(h, log))

	authed := r.Group("", bearer)
	authed.POST("/create-checkout-session", ApiCreateCheckoutSession(svc, log))
	authed.POST("/create-portal-session", ApiCreatePortalSession(svc, log))
}
