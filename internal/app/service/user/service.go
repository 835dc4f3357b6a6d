package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/contactbook/internal/app/service/billing"
	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/tool"
	"github.com/fatflowers/contactbook/pkg/types"
)

// Service is the gorm-backed user store.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

var _ billing.UserStore = (*Service)(nil)

// NormalizeEmail lowercases and trims an address before it is stored or
// looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where(query, args...).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (*models.User, error) {
	if !tool.IsUUID(id) {
		return nil, nil
	}
	return s.findOne(ctx, "id = ?", id)
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "email = ?", NormalizeEmail(email))
}

func (s *Service) FindByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return s.findOne(ctx, "stripe_customer_id = ?", customerID)
}

// ClaimCustomerID writes customerID only into an empty slot. When another
// request got there first the stored id is returned instead, so a user never
// maps to more than one billing customer.
func (s *Service) ClaimCustomerID(ctx context.Context, userID, customerID string) (string, error) {
	res := claimCustomerID(s.db.WithContext(ctx), userID, customerID)
	if res.Error != nil {
		return "", fmt.Errorf("failed to set customer id: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return customerID, nil
	}

	u, err := s.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to reload user: %w", err)
	}
	if u == nil {
		return "", fmt.Errorf("%w: user %s", types.ErrNotFound, userID)
	}
	stored := lo.FromPtr(u.StripeCustomerID)
	if stored == "" {
		return "", fmt.Errorf("customer id for user %s was not stored", userID)
	}
	logctx.FromCtx(ctx, s.log).Infow("customer_id_already_claimed", "user_id", userID, "stored_customer_id", stored)
	return stored, nil
}

func claimCustomerID(tx *gorm.DB, userID, customerID string) *gorm.DB {
	return tx.Model(&models.User{}).
		Where("id = ? AND (stripe_customer_id IS NULL OR stripe_customer_id = '')", userID).
		Update("stripe_customer_id", customerID)
}

// Create inserts u. A duplicate email yields types.ErrEmailTaken.
func (s *Service) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = tool.GenerateUUIDV7()
	}
	u.Email = NormalizeEmail(u.Email)
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return types.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("user_created", "user_id", u.ID)
	return nil
}

// UpdateProfile changes the name and email of a user.
func (s *Service) UpdateProfile(ctx context.Context, id string, name *string, email string) (*models.User, error) {
	email = NormalizeEmail(email)
	if other, err := s.FindByEmail(ctx, email); err != nil {
		return nil, err
	} else if other != nil && other.ID != id {
		return nil, types.ErrEmailTaken
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"name": name, "email": email})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, types.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *Service) SetPasswordHash(ctx context.Context, id, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("failed to update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// SetAdmin toggles the admin flag of target. An admin cannot remove their
// own flag.
func (s *Service) SetAdmin(ctx context.Context, actorID, targetID string, isAdmin bool) (*models.User, error) {
	if actorID == targetID && !isAdmin {
		return nil, fmt.Errorf("%w: cannot remove your own admin status", types.ErrInvalidArgument)
	}
	u, err := s.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, types.ErrNotFound
	}
	if err := s.db.WithContext(ctx).Model(u).Update("is_admin", isAdmin).Error; err != nil {
		return nil, fmt.Errorf("failed to update admin flag: %w", err)
	}
	u.IsAdmin = isAdmin
	logctx.FromCtx(ctx, s.log).Infow("user_admin_changed", "target_user_id", targetID, "is_admin", isAdmin)
	return u, nil
}

// ScanFilterFields are the columns admin scans may filter and sort on.
var ScanFilterFields = []string{"email", "name", "is_admin", "created_at"}

type ScanUsersRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// UserItem is a user row enriched with its latest subscription state.
type UserItem struct {
	models.User
	Subscription *SubscriptionSummary `json:"subscription"`
}

type SubscriptionSummary struct {
	Status           types.SubscriptionStatus `json:"status"`
	CurrentPeriodEnd time.Time                `json:"current_period_end"`
}

type ScanUsersResponse struct {
	Items []*UserItem `json:"items"`
	Total int64       `json:"total"`
}

// Normalize applies paging defaults and validates filters and sorting.
func (r *ScanUsersRequest) Normalize() error {
	if r.Size <= 0 {
		r.Size = 20
	}
	if r.Size > 200 {
		r.Size = 200
	}
	if r.From < 0 {
		r.From = 0
	}
	if r.SortBy == "" {
		r.SortBy = "created_at"
	}
	if !lo.Contains(ScanFilterFields, r.SortBy) {
		return fmt.Errorf("%w: unsupported sort field %q", types.ErrInvalidArgument, r.SortBy)
	}
	if r.SortOrder != "asc" {
		r.SortOrder = "desc"
	}
	if err := types.ValidateFilters(r.Filters, ScanFilterFields...); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}
	return nil
}

// Scan implements the paginated admin user listing.
func (s *Service) Scan(ctx context.Context, req *ScanUsersRequest) (*ScanUsersResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Model(&models.User{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var rows []*models.User
	q := tx.Limit(req.Size).Offset(req.From).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	latest, err := s.latestSubscriptions(ctx, lo.Map(rows, func(u *models.User, _ int) string { return u.ID }))
	if err != nil {
		return nil, err
	}

	items := lo.Map(rows, func(u *models.User, _ int) *UserItem {
		item := &UserItem{User: *u}
		if sub, ok := latest[u.ID]; ok {
			item.Subscription = &SubscriptionSummary{
				Status:           sub.Status,
				CurrentPeriodEnd: sub.CurrentPeriodEnd,
			}
		}
		return item
	})
	return &ScanUsersResponse{Items: items, Total: total}, nil
}

func (s *Service) latestSubscriptions(ctx context.Context, userIDs []string) (map[string]*models.Subscription, error) {
	if len(userIDs) == 0 {
		return map[string]*models.Subscription{}, nil
	}
	var subs []*models.Subscription
	if err := s.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at asc").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	// Later rows overwrite earlier ones, leaving the newest per user.
	return lo.SliceToMap(subs, func(s *models.Subscription) (string, *models.Subscription) {
		return s.UserID, s
	}), nil
}
