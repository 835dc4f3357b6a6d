package subscription

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/contactbook/internal/app/service/billing"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/tool"
	types "github.com/fatflowers/contactbook/pkg/types"
)

// Service is the gorm-backed subscription store.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

var _ billing.Store = (*Service)(nil)

// CreateSubscription inserts m and its change log in one transaction. A row
// with the same stripe_subscription_id makes the insert a no-op.
func (s *Service) CreateSubscription(ctx context.Context, m *models.Subscription, eventID string) (bool, error) {
	if m.ID == "" {
		m.ID = tool.GenerateUUIDV7()
	}

	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.createWithin(tx, m, eventID)
		return err
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// createWithin inserts m on tx and logs it only when a row was written.
func (s *Service) createWithin(tx *gorm.DB, m *models.Subscription, eventID string) (bool, error) {
	res := insertSubscription(tx, m)
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, s.saveLog(tx, nil, m, types.SubscriptionChangeReasonCheckoutCompleted, eventID)
}

func insertSubscription(tx *gorm.DB, m *models.Subscription) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_subscription_id"}},
		DoNothing: true,
	}).Create(m)
}

// ApplyChange locks the row by external id and applies change unless a newer
// event has already been applied. Events with the same timestamp as the
// last applied one still apply.
func (s *Service) ApplyChange(ctx context.Context, change billing.SubscriptionChange) (billing.Outcome, error) {
	var outcome billing.Outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		outcome, err = s.applyWithin(tx, change)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", billing.ErrPersistence, err)
	}
	return outcome, nil
}

func (s *Service) applyWithin(tx *gorm.DB, change billing.SubscriptionChange) (billing.Outcome, error) {
	var current models.Subscription
	err := lockSubscription(tx, change.StripeSubscriptionID, &current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return billing.OutcomeUnresolvedSubscription, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load subscription: %w", err)
	}

	if !ShouldApply(&current, change) {
		return billing.OutcomeStale, nil
	}

	before := current
	change.Apply(&current)
	current.LastEventAt = change.EventAt
	if err := tx.Save(&current).Error; err != nil {
		return "", fmt.Errorf("failed to save subscription: %w", err)
	}
	if err := s.saveLog(tx, &before, &current, change.Reason, change.EventID); err != nil {
		return "", err
	}
	return billing.OutcomeApplied, nil
}

func lockSubscription(tx *gorm.DB, stripeSubscriptionID string, dest *models.Subscription) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Take(dest)
}

// ShouldApply reports whether change is not older than the last event
// applied to current.
func ShouldApply(current *models.Subscription, change billing.SubscriptionChange) bool {
	return !change.EventAt.Before(current.LastEventAt)
}

func (s *Service) saveLog(tx *gorm.DB, before, after *models.Subscription, reason types.SubscriptionChangeReason, eventID string) error {
	log := &models.SubscriptionLog{
		ID:                   tool.GenerateUUIDV7(),
		UserID:               after.UserID,
		StripeSubscriptionID: after.StripeSubscriptionID,
		Reason:               reason,
		EventID:              eventID,
		Before:               datatypes.NewJSONType(before),
		After:                datatypes.NewJSONType(after),
	}
	if err := tx.Create(log).Error; err != nil {
		return fmt.Errorf("failed to save subscription log: %w", err)
	}
	return nil
}

// LatestForUser returns the most recently created subscription of userID, or
// nil when the user never subscribed.
func (s *Service) LatestForUser(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to load latest subscription", "user_id", userID, "error", err)
		return nil, err
	}
	return &sub, nil
}

// History lists the change log of one subscription, newest first.
func (s *Service) History(ctx context.Context, stripeSubscriptionID string) ([]*models.SubscriptionLog, error) {
	var logs []*models.SubscriptionLog
	if err := s.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Order("created_at desc").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
