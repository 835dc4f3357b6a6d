package webhook_handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fatflowers/contactbook/internal/app/service/billing"
	webhooklog "github.com/fatflowers/contactbook/internal/app/service/webhook_log"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/metrics"
	"github.com/fatflowers/contactbook/pkg/types"
)

type verifier interface {
	Verify(payload []byte, signatureHeader string) (billing.Event, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, ev billing.Event) (billing.Outcome, error)
}

type journal interface {
	Save(ctx context.Context, row *models.WebhookEventLog) error
}

// Handler runs one webhook delivery through verification, the journal and
// the reconciler.
type Handler struct {
	verifier   verifier
	reconciler reconciler
	journal    journal
	Logger     *zap.SugaredLogger
}

func NewHandler(v *billing.Verifier, r *billing.Reconciler, j *webhooklog.Service, log *zap.SugaredLogger) *Handler {
	return newHandler(v, r, j, log)
}

func newHandler(v verifier, r reconciler, j journal, log *zap.SugaredLogger) *Handler {
	return &Handler{verifier: v, reconciler: r, journal: j, Logger: log}
}

var Module = fx.Options(fx.Provide(NewHandler))

// HandleWebhook verifies payload against signatureHeader and reconciles the
// event. A verification failure returns an error wrapping
// billing.ErrVerification and leaves no trace in the journal.
func (h *Handler) HandleWebhook(ctx context.Context, payload []byte, signatureHeader, traceID string) (outcome billing.Outcome, resErr error) {
	l := logctx.FromCtx(ctx, h.Logger)

	ev, err := h.verifier.Verify(payload, signatureHeader)
	if err != nil {
		l.Warnw("webhook_verification_failed", "error", err)
		return "", err
	}
	meta := ev.Meta()
	l = l.With("event_id", meta.ID, "event_type", meta.Type)

	row := &models.WebhookEventLog{
		Provider:       string(types.PaymentProviderStripe),
		EventID:        meta.ID,
		EventType:      meta.Type,
		EventCreatedAt: meta.Created,
		TraceID:        traceID,
		Data:           datatypes.JSON(payload),
		Status:         models.WebhookEventLogStatusReceived,
	}
	// Journal failures never fail the delivery.
	if err := h.journal.Save(ctx, row); err != nil {
		l.Errorw("webhook_journal_failed", "status", row.Status, "error", err)
	}

	start := time.Now()
	defer func() {
		label := string(outcome)
		if resErr != nil {
			label = "error"
		}
		metrics.IncWebhookEvent(string(types.PaymentProviderStripe), meta.Type, label)
		metrics.ObserveBusinessProcess("webhook", meta.Type, start)

		result := map[string]any{
			"outcome":         outcome,
			"subscription_id": billing.SubscriptionIDOf(ev),
		}
		if resErr != nil {
			result["error"] = resErr.Error()
		}
		if resBytes, err := json.Marshal(result); err != nil {
			l.Errorw("webhook_result_marshal_failed", "error", err)
		} else {
			j := datatypes.JSON(resBytes)
			row.Result = &j
		}
		row.Status = JournalStatus(outcome, resErr)
		if err := h.journal.Save(ctx, row); err != nil {
			l.Errorw("webhook_journal_failed", "status", row.Status, "error", err)
		}
	}()

	outcome, resErr = h.reconciler.Reconcile(ctx, ev)
	if resErr != nil {
		l.Errorw("webhook_reconcile_failed", "error", resErr)
		return outcome, resErr
	}
	l.Infow("webhook_handled", "outcome", outcome)
	return outcome, nil
}

// JournalStatus maps a reconciliation result onto the journal status.
func JournalStatus(outcome billing.Outcome, err error) models.WebhookEventLogStatus {
	if err != nil {
		return models.WebhookEventLogStatusHandleFailed
	}
	switch outcome {
	case billing.OutcomeApplied:
		return models.WebhookEventLogStatusHandled
	case billing.OutcomeUnresolvedUser, billing.OutcomeUnresolvedSubscription:
		return models.WebhookEventLogStatusUnmatched
	default:
		return models.WebhookEventLogStatusIgnored
	}
}

// IsClientError reports whether err should be answered with a 4xx so the
// provider stops retrying.
func IsClientError(err error) bool {
	return errors.Is(err, billing.ErrVerification)
}
