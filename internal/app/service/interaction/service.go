package interaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/tool"
	"github.com/fatflowers/contactbook/pkg/types"
)

type Input struct {
	ContactID   string    `json:"contact_id" binding:"required,uuid"`
	Type        string    `json:"type" binding:"notblank,max=64"`
	Date        time.Time `json:"date" binding:"required"`
	Duration    *int      `json:"duration" binding:"omitempty,min=0"`
	Description string    `json:"description" binding:"notblank"`
	Location    *string   `json:"location" binding:"omitempty,max=255"`
	Outcome     *string   `json:"outcome"`
	FollowUp    bool      `json:"follow_up"`
}

func (in *Input) apply(i *models.Interaction) {
	i.ContactID = in.ContactID
	i.Type = in.Type
	i.Date = in.Date.UTC()
	i.Duration = in.Duration
	i.Description = in.Description
	i.Location = in.Location
	i.Outcome = in.Outcome
	i.FollowUp = in.FollowUp
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

var Module = fx.Options(fx.Provide(New))

// List returns all of the user's interactions, newest first, with their contact.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Interaction, error) {
	var rows []*models.Interaction
	if err := s.db.WithContext(ctx).
		Preload("Contact").
		Where("user_id = ?", userID).
		Order("date desc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return rows, nil
}

func (s *Service) ListByContact(ctx context.Context, userID, contactID string) ([]*models.Interaction, error) {
	if err := ensureContact(s.db.WithContext(ctx), userID, contactID); err != nil {
		return nil, err
	}
	var rows []*models.Interaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Order("date desc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return rows, nil
}

// Create records an interaction and moves the contact's last contact date to
// the interaction date.
func (s *Service) Create(ctx context.Context, userID string, in *Input) (*models.Interaction, error) {
	i := &models.Interaction{ID: tool.GenerateUUIDV7(), UserID: userID}
	in.apply(i)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureContact(tx, userID, i.ContactID); err != nil {
			return err
		}
		if err := tx.Omit("Contact").Create(i).Error; err != nil {
			return fmt.Errorf("failed to create interaction: %w", err)
		}
		if err := tx.Model(&models.Contact{}).
			Where("id = ?", i.ContactID).
			Update("last_contact", i.Date).Error; err != nil {
			return fmt.Errorf("failed to update last contact: %w", err)
		}
		return loadContact(tx, i)
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("interaction_created", "interaction_id", i.ID, "contact_id", i.ContactID)
	return i, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in *Input) (*models.Interaction, error) {
	if !tool.IsUUID(id) {
		return nil, types.ErrNotFound
	}
	var i models.Interaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := takeOwned(tx, userID, id, &i); err != nil {
			return err
		}
		if err := ensureContact(tx, userID, in.ContactID); err != nil {
			return err
		}
		in.apply(&i)
		if err := tx.Omit("Contact").Save(&i).Error; err != nil {
			return fmt.Errorf("failed to update interaction: %w", err)
		}
		return loadContact(tx, &i)
	})
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if !tool.IsUUID(id) {
		return types.ErrNotFound
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Interaction{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete interaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func loadContact(tx *gorm.DB, i *models.Interaction) error {
	var c models.Contact
	if err := tx.Where("id = ?", i.ContactID).Take(&c).Error; err != nil {
		return fmt.Errorf("failed to load interaction contact: %w", err)
	}
	i.Contact = &c
	return nil
}

func takeOwned(tx *gorm.DB, userID, id string, out *models.Interaction) error {
	err := tx.Where("id = ? AND user_id = ?", id, userID).Take(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load interaction: %w", err)
	}
	return nil
}

// ensureContact fails with types.ErrNotFound unless contactID is one of the
// user's contacts.
func ensureContact(tx *gorm.DB, userID, contactID string) error {
	if !tool.IsUUID(contactID) {
		return types.ErrNotFound
	}
	var n int64
	if err := tx.Model(&models.Contact{}).
		Where("id = ? AND user_id = ?", contactID, userID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check contact: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: contact", types.ErrNotFound)
	}
	return nil
}
