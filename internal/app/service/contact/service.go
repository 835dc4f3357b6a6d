package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/tool"
	"github.com/fatflowers/contactbook/pkg/types"
)

// Input is the writable part of a contact. On update, nil LastContact and
// NextFollowUp keep the stored values and a nil TagIDs keeps the tag set.
type Input struct {
	FirstName    string     `json:"first_name" binding:"notblank,max=255"`
	LastName     string     `json:"last_name" binding:"max=255"`
	Email        *string    `json:"email" binding:"omitempty,email"`
	Phone        *string    `json:"phone" binding:"omitempty,max=64"`
	Company      *string    `json:"company" binding:"omitempty,max=255"`
	Position     *string    `json:"position" binding:"omitempty,max=255"`
	Department   *string    `json:"department" binding:"omitempty,max=255"`
	Location     *string    `json:"location" binding:"omitempty,max=255"`
	LinkedIn     *string    `json:"linkedin" binding:"omitempty,max=255"`
	Twitter      *string    `json:"twitter" binding:"omitempty,max=255"`
	Notes        *string    `json:"notes"`
	LastContact  *time.Time `json:"last_contact"`
	NextFollowUp *time.Time `json:"next_follow_up"`
	Relationship *string    `json:"relationship" binding:"omitempty,max=64"`
	Importance   *string    `json:"importance" binding:"omitempty,max=64"`
	TagIDs       []string   `json:"tag_ids" binding:"omitempty,dive,uuid"`
}

// apply copies in onto c.
func (in *Input) apply(c *models.Contact) {
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.Email = in.Email
	c.Phone = in.Phone
	c.Company = in.Company
	c.Position = in.Position
	c.Department = in.Department
	c.Location = in.Location
	c.LinkedIn = in.LinkedIn
	c.Twitter = in.Twitter
	c.Notes = in.Notes
	c.Relationship = in.Relationship
	c.Importance = in.Importance
	if in.LastContact != nil {
		c.LastContact = lo.ToPtr(in.LastContact.UTC())
	}
	if in.NextFollowUp != nil {
		c.NextFollowUp = lo.ToPtr(in.NextFollowUp.UTC())
	}
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

var Module = fx.Options(fx.Provide(New))

// List returns the user's contacts, most recently updated first, each with its
// tags and latest interaction.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Contact, error) {
	var rows []*models.Contact
	if err := s.db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name asc") }).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	if len(rows) == 0 {
		return rows, nil
	}

	var latest []*models.Interaction
	if err := s.db.WithContext(ctx).Raw(
		`SELECT DISTINCT ON (contact_id) * FROM interactions WHERE user_id = ? ORDER BY contact_id, date DESC`,
		userID,
	).Scan(&latest).Error; err != nil {
		return nil, fmt.Errorf("failed to load latest interactions: %w", err)
	}
	AttachLatest(rows, latest)
	return rows, nil
}

// AttachLatest sets each contact's Interactions to its entry in latest.
func AttachLatest(contacts []*models.Contact, latest []*models.Interaction) {
	byContact := lo.KeyBy(latest, func(i *models.Interaction) string { return i.ContactID })
	for _, c := range contacts {
		if it, ok := byContact[c.ID]; ok {
			c.Interactions = []*models.Interaction{it}
		} else {
			c.Interactions = []*models.Interaction{}
		}
	}
}

// Get returns one contact with tags, interactions and notes.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Contact, error) {
	if !tool.IsUUID(id) {
		return nil, types.ErrNotFound
	}
	var c models.Contact
	err := s.db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name asc") }).
		Preload("Interactions", func(db *gorm.DB) *gorm.DB { return db.Order("date desc") }).
		Preload("ContactNotes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at desc") }).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return &c, nil
}

func (s *Service) Create(ctx context.Context, userID string, in *Input) (*models.Contact, error) {
	c := &models.Contact{ID: tool.GenerateUUIDV7(), UserID: userID}
	in.apply(c)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := ownedTags(tx, userID, in.TagIDs)
		if err != nil {
			return err
		}
		c.Tags = tags
		if err := tx.Omit("Tags.*").Create(c).Error; err != nil {
			return fmt.Errorf("failed to create contact: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logctx.FromCtx(ctx, s.log).Infow("contact_created", "contact_id", c.ID)
	return c, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in *Input) (*models.Contact, error) {
	if !tool.IsUUID(id) {
		return nil, types.ErrNotFound
	}
	var c models.Contact
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", id, userID).Take(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load contact: %w", err)
		}

		in.apply(&c)
		if err := tx.Omit(clause.Associations).Save(&c).Error; err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}

		if in.TagIDs != nil {
			tags, err := ownedTags(tx, userID, in.TagIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&c).Omit("Tags.*").Association("Tags").Replace(tags); err != nil {
				return fmt.Errorf("failed to replace tags: %w", err)
			}
		}
		return tx.Model(&c).Order("name asc").Association("Tags").Find(&c.Tags)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if !tool.IsUUID(id) {
		return types.ErrNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Contact
		err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load contact: %w", err)
		}
		if err := tx.Model(&c).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("failed to detach tags: %w", err)
		}
		if err := tx.Delete(&c).Error; err != nil {
			return fmt.Errorf("failed to delete contact: %w", err)
		}
		return nil
	})
}

// ownedTags loads the tags in ids, failing unless all of them belong to userID.
func ownedTags(tx *gorm.DB, userID string, ids []string) ([]*models.Tag, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return []*models.Tag{}, nil
	}
	var tags []*models.Tag
	if err := tx.Where("user_id = ? AND id IN ?", userID, ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	if len(tags) != len(ids) {
		return nil, fmt.Errorf("%w: unknown tag id", types.ErrInvalidArgument)
	}
	return tags, nil
}
