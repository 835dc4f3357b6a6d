package note

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/tool"
	"github.com/fatflowers/contactbook/pkg/types"
)

// Input is a note body. A nil ContactID leaves the note unattached.
type Input struct {
	ContactID *string `json:"contact_id" binding:"omitempty,uuid"`
	Title     *string `json:"title" binding:"omitempty,max=255"`
	Content   string  `json:"content" binding:"notblank"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

var Module = fx.Options(fx.Provide(New))

func (s *Service) List(ctx context.Context, userID string) ([]*models.Note, error) {
	var rows []*models.Note
	if err := s.db.WithContext(ctx).
		Preload("Contact").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return rows, nil
}

func (s *Service) Create(ctx context.Context, userID string, in *Input) (*models.Note, error) {
	n := &models.Note{ID: tool.GenerateUUIDV7(), UserID: userID, ContactID: in.ContactID, Title: in.Title, Content: in.Content}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureContact(tx, userID, n.ContactID); err != nil {
			return err
		}
		if err := tx.Omit("Contact").Create(n).Error; err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}
		return preloadContact(tx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in *Input) (*models.Note, error) {
	if !tool.IsUUID(id) {
		return nil, types.ErrNotFound
	}
	var n models.Note
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&n).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load note: %w", err)
		}
		if err := ensureContact(tx, userID, in.ContactID); err != nil {
			return err
		}
		n.ContactID, n.Title, n.Content = in.ContactID, in.Title, in.Content
		if err := tx.Omit("Contact").Save(&n).Error; err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}
		return preloadContact(tx, &n)
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if !tool.IsUUID(id) {
		return types.ErrNotFound
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Note{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete note: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func preloadContact(tx *gorm.DB, n *models.Note) error {
	n.Contact = nil
	if n.ContactID == nil {
		return nil
	}
	var c models.Contact
	if err := tx.Where("id = ?", *n.ContactID).Take(&c).Error; err != nil {
		return fmt.Errorf("failed to load note contact: %w", err)
	}
	n.Contact = &c
	return nil
}

func ensureContact(tx *gorm.DB, userID string, contactID *string) error {
	if contactID == nil {
		return nil
	}
	if !tool.IsUUID(*contactID) {
		return types.ErrNotFound
	}
	var n int64
	if err := tx.Model(&models.Contact{}).
		Where("id = ? AND user_id = ?", *contactID, userID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check contact: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: contact", types.ErrNotFound)
	}
	return nil
}
