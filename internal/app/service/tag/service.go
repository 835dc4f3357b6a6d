package tag

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

type Input struct {
	Name  string  `json:"name" binding:"notblank,max=128"`
	Color *string `json:"color" binding:"omitempty,hexcolor"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

var Module = fx.Options(fx.Provide(New))

const contactCountSelect = "tags.*, (SELECT COUNT(*) FROM contact_tags ct WHERE ct.tag_id = tags.id) AS contact_count"

// List returns the user's tags by name with how many contacts carry each.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Tag, error) {
	var rows []*models.Tag
	if err := s.db.WithContext(ctx).
		Model(&models.Tag{}).
		Select(contactCountSelect).
		Where("tags.user_id = ?", userID).
		Order("tags.name asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return rows, nil
}

func (s *Service) Create(ctx context.Context, userID string, in *Input) (*models.Tag, error) {
	t := &models.Tag{ID: tool.GenerateUUIDV7(), UserID: userID, Name: in.Name, Color: in.Color}
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in *Input) (*models.Tag, error) {
	if !tool.IsUUID(id) {
		return nil, types.ErrNotFound
	}
	res := s.db.WithContext(ctx).Model(&models.Tag{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"name": in.Name, "color": in.Color})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update tag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrNotFound
	}
	var t models.Tag
	if err := s.db.WithContext(ctx).Model(&models.Tag{}).
		Select(contactCountSelect).
		Where("tags.id = ?", id).
		Take(&t).Error; err != nil {
		return nil, fmt.Errorf("failed to reload tag: %w", err)
	}
	return &t, nil
}

// Delete removes the tag and detaches it from every contact.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if !tool.IsUUID(id) {
		return types.ErrNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tag
		err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load tag: %w", err)
		}
		if err := tx.Exec("DELETE FROM contact_tags WHERE tag_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to detach tag: %w", err)
		}
		if err := tx.Delete(&t).Error; err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		return nil
	})
}
