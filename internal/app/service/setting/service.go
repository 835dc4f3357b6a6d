package setting

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/config"
	"github.com/fatflowers/contactbook/pkg/logctx"
)

// Service manages admin-editable settings.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

var Module = fx.Options(fx.Provide(New))

// Defaults are the settings created by Initialize when missing.
func (s *Service) Defaults() []*models.Setting {
	return []*models.Setting{
		{
			Key:         models.SettingAllowRegistration,
			Value:       "true",
			Type:        "boolean",
			Label:       "Allow Registration",
			Description: lo.ToPtr("Allow new users to register for accounts"),
		},
		{
			Key:         models.SettingStripeMode,
			Value:       lo.Ternary(s.cfg.Stripe.Mode != "", s.cfg.Stripe.Mode, "test"),
			Type:        "string",
			Label:       "Stripe Mode",
			Description: lo.ToPtr("Current Stripe configuration mode (test or production)"),
		},
	}
}

func (s *Service) List(ctx context.Context) ([]*models.Setting, error) {
	var rows []*models.Setting
	if err := s.db.WithContext(ctx).Order("key asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return rows, nil
}

// Upsert sets key to value, creating a string setting labelled with the key
// when it does not exist yet.
func (s *Service) Upsert(ctx context.Context, key, value string) (*models.Setting, error) {
	row := &models.Setting{Key: key, Value: value, Type: "string", Label: key}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}

	var saved models.Setting
	if err := s.db.WithContext(ctx).Where("key = ?", key).Take(&saved).Error; err != nil {
		return nil, fmt.Errorf("failed to reload setting %s: %w", key, err)
	}
	logctx.FromCtx(ctx, s.log).Infow("setting_updated", "key", key, "value", value)
	return &saved, nil
}

// Initialize creates the default settings that are missing and leaves
// existing values untouched.
func (s *Service) Initialize(ctx context.Context) ([]*models.Setting, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(s.Defaults()).Error
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settings: %w", err)
	}
	return s.List(ctx)
}

// Bool reads a boolean setting, returning def when it is missing or unparsable.
func (s *Service) Bool(ctx context.Context, key string, def bool) (bool, error) {
	var row models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return ParseBool(row.Value, def), nil
}

// ParseBool accepts the values strconv.ParseBool does and falls back to def.
func ParseBool(v string, def bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
