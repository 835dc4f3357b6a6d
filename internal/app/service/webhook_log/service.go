package webhook_log

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/tool"
	"github.com/fatflowers/contactbook/pkg/types"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

var Module = fx.Options(fx.Provide(New))

// Save upserts a journal row. A row without an ID is given one, so a caller
// can save the same value twice to move it from received to its final status.
// Nil input is ignored.
func (s *Service) Save(ctx context.Context, row *models.WebhookEventLog) error {
	if row == nil {
		return nil
	}
	if row.ID == "" {
		row.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save webhook event log: %v", err)
		return fmt.Errorf("failed to save webhook event log: %w", err)
	}
	return nil
}

// ScanFilterFields are the journal columns admin scans may filter on.
var ScanFilterFields = []string{"provider", "event_id", "event_type", "status", "created_at"}

type ScanRequest struct {
	Filters []*types.CommonFilter `json:"filters"`
	From    int                   `json:"from"`
	Size    int                   `json:"size"`
}

type ScanResponse struct {
	Items []*models.WebhookEventLog `json:"items"`
	Total int64                     `json:"total"`
}

func (r *ScanRequest) Normalize() error {
	if r.From < 0 {
		r.From = 0
	}
	if r.Size <= 0 {
		r.Size = 20
	}
	r.Size = lo.Min([]int{r.Size, 200})
	if err := types.ValidateFilters(r.Filters, ScanFilterFields...); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}
	return nil
}

// Scan lists journal rows newest first.
func (s *Service) Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Model(&models.WebhookEventLog{})
	if len(req.Filters) > 0 {
		q = q.Where(clause.Where{Exprs: []clause.Expression{types.FiltersAnd(req.Filters)}})
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count webhook event logs: %w", err)
	}
	var items []*models.WebhookEventLog
	if err := q.Order("created_at desc").Offset(req.From).Limit(req.Size).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to scan webhook event logs: %w", err)
	}
	return &ScanResponse{Items: items, Total: total}, nil
}
