package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

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

type StatisticType string

const (
	StatisticTypeSubscriptionStatusCount           StatisticType = "subscription_status_count"
	StatisticTypeDailyNewSubscriptionCount         StatisticType = "daily_new_subscription_count"
	StatisticTypeTotalActiveSubscriptionCount      StatisticType = "total_active_subscription_count"
	StatisticTypeDailySubscriptionCount            StatisticType = "daily_subscription_count"
	StatisticTypeDailyAccumulatedSubscriptionCount StatisticType = "daily_accumulated_subscription_count"
	StatisticTypeDailyCanceledSubscriptionCount    StatisticType = "daily_canceled_subscription_count"
)

var statisticTypes = []StatisticType{
	StatisticTypeSubscriptionStatusCount,
	StatisticTypeDailyNewSubscriptionCount,
	StatisticTypeTotalActiveSubscriptionCount,
	StatisticTypeDailySubscriptionCount,
	StatisticTypeDailyAccumulatedSubscriptionCount,
	StatisticTypeDailyCanceledSubscriptionCount,
}

// FilterFields are subscription columns a statistics request may filter on.
// Filters apply only to statistics computed from the subscriptions table.
var FilterFields = []string{"stripe_price_id", "status", "cancel_at_period_end"}

var filterable = []StatisticType{
	StatisticTypeSubscriptionStatusCount,
	StatisticTypeDailyNewSubscriptionCount,
	StatisticTypeTotalActiveSubscriptionCount,
}

type SubscriptionStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type SubscriptionStatisticRequest struct {
	Filters   []*types.CommonFilter            `json:"filters"`
	DataItems []*SubscriptionStatisticDataItem `json:"data_items" binding:"required,min=1,dive,required"`
}

func (r *SubscriptionStatisticRequest) Validate() error {
	if err := types.ValidateFilters(r.Filters, FilterFields...); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidArgument, err)
	}
	for _, di := range r.DataItems {
		if di == nil || !lo.Contains(statisticTypes, di.ID) {
			return fmt.Errorf("%w: invalid data item", types.ErrInvalidArgument)
		}
	}
	return nil
}

// where returns the filter clause for statistic t, or nil when filters do
// not apply to it.
func (r *SubscriptionStatisticRequest) where(t StatisticType) clause.Expression {
	if len(r.Filters) == 0 || !lo.Contains(filterable, t) {
		return nil
	}
	return types.FiltersAnd(r.Filters)
}

type SubscriptionStatisticResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type SubscriptionStatisticResponse struct {
	DataItems map[StatisticType][]SubscriptionStatisticResponseDataItem `json:"data_items"`
}

// DashboardStats are the per-user figures on the dashboard.
type DashboardStats struct {
	TotalContacts     int64 `json:"total_contacts"`
	FollowUpsDue      int64 `json:"follow_ups_due"`
	ContactedContacts int64 `json:"contacted_contacts"`
	TotalInteractions int64 `json:"total_interactions"`
	TotalNotes        int64 `json:"total_notes"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	now func() time.Time
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

var Module = fx.Options(fx.Provide(New))

// Dashboard counts the user's contacts, due follow-ups and activity.
func (s *Service) Dashboard(ctx context.Context, userID string) (*DashboardStats, error) {
	var out DashboardStats
	db := s.db.WithContext(ctx)
	counts := []struct {
		dst   *int64
		model any
		where string
		args  []any
	}{
		{&out.TotalContacts, &models.Contact{}, "user_id = ?", []any{userID}},
		{&out.FollowUpsDue, &models.Contact{}, "user_id = ? AND next_follow_up <= ?", []any{userID, s.now().UTC()}},
		{&out.ContactedContacts, &models.Contact{}, "user_id = ? AND last_contact IS NOT NULL", []any{userID}},
		{&out.TotalInteractions, &models.Interaction{}, "user_id = ?", []any{userID}},
		{&out.TotalNotes, &models.Note{}, "user_id = ?", []any{userID}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count dashboard stats: %w", err)
		}
	}
	return &out, nil
}

// SaveDailySnapshots copies every subscription into the snapshot table for
// the given day. Rerunning for the same day keeps the first copy.
func (s *Service) SaveDailySnapshots(ctx context.Context, snapshotDate time.Time) (int64, error) {
	var subs []*models.Subscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return 0, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}
	snaps := BuildSnapshots(subs, snapshotDate, s.now())
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_subscription_id"}, {Name: "snapshot_date"}},
			DoNothing: true,
		}).
		CreateInBatches(snaps, 500)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to save snapshots: %w", res.Error)
	}
	logctx.FromCtx(ctx, s.log).Infow("subscription_snapshots_saved",
		"snapshot_date", snapshotDate.Format(time.DateOnly), "count", res.RowsAffected)
	return res.RowsAffected, nil
}

func BuildSnapshots(subs []*models.Subscription, snapshotDate, now time.Time) []*models.SubscriptionDailySnapshot {
	day := snapshotDate.UTC().Format(time.DateOnly)
	return lo.Map(subs, func(sub *models.Subscription, _ int) *models.SubscriptionDailySnapshot {
		return &models.SubscriptionDailySnapshot{
			ID:                   tool.GenerateUUIDV7(),
			UserID:               sub.UserID,
			StripeSubscriptionID: sub.StripeSubscriptionID,
			Status:               sub.Status,
			CurrentPeriodEnd:     sub.CurrentPeriodEnd,
			CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
			SnapshotDate:         day,
			SnapshotCreatedAt:    now,
		}
	})
}

func (s *Service) subscriptions(ctx context.Context, request *SubscriptionStatisticRequest, t StatisticType) *gorm.DB {
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName())
	if w := request.where(t); w != nil {
		q = q.Where(clause.Where{Exprs: []clause.Expression{w}})
	}
	return q
}

func (s *Service) getSubscriptionStatusCount(ctx context.Context, request *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	q := s.subscriptions(ctx, request, StatisticTypeSubscriptionStatusCount).
		Select("status as label, count(*) as value").
		Group("status").
		Order("label")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyNewSubscriptionCount(ctx context.Context, request *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	q := s.subscriptions(ctx, request, StatisticTypeDailyNewSubscriptionCount).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(*) as value").
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalActiveSubscriptionCount(ctx context.Context, request *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	q := s.subscriptions(ctx, request, StatisticTypeTotalActiveSubscriptionCount).
		Select("count(*) as value").
		Where("status IN ?", []types.SubscriptionStatus{types.SubscriptionStatusActive, types.SubscriptionStatusTrialing}).
		Where("current_period_end >= ?", s.now().UTC())
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailySubscriptionCount(ctx context.Context, _ *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.SubscriptionDailySnapshot{}).TableName()).
		Select("snapshot_date as date, count(*) as value").
		Where("status IN ?", []types.SubscriptionStatus{types.SubscriptionStatusActive, types.SubscriptionStatusTrialing}).
		Group("snapshot_date").
		Order("snapshot_date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyAccumulatedSubscriptionCount(ctx context.Context, _ *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	err := s.db.WithContext(ctx).Raw(`
WITH min_max_dates AS (
    SELECT MIN(DATE(created_at)) as min_date, MAX(DATE(created_at)) as max_date FROM subscriptions
),
distinct_dates AS (
    SELECT generate_series(min_date, max_date, '1 day'::interval) as date FROM min_max_dates
),
user_id_date AS (
    SELECT user_id, DATE(created_at) as date FROM subscriptions
)
SELECT TO_CHAR(d.date, 'YYYY-MM-DD') as date, COUNT(DISTINCT s.user_id) as value
FROM distinct_dates d
LEFT JOIN user_id_date s ON s.date <= d.date
GROUP BY d.date
ORDER BY d.date DESC
`).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyCanceledSubscriptionCount(ctx context.Context, _ *SubscriptionStatisticRequest) ([]SubscriptionStatisticResponseDataItem, error) {
	var results []SubscriptionStatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.SubscriptionLog{}).TableName()).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as date, count(DISTINCT stripe_subscription_id) as value").
		Where("reason = ?", types.SubscriptionChangeReasonSubscriptionDeleted).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getSubscriptionStatistic(ctx context.Context, request *SubscriptionStatisticRequest, dataItem *SubscriptionStatisticDataItem) ([]SubscriptionStatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeSubscriptionStatusCount:
		return s.getSubscriptionStatusCount(ctx, request)
	case StatisticTypeDailyNewSubscriptionCount:
		return s.getDailyNewSubscriptionCount(ctx, request)
	case StatisticTypeTotalActiveSubscriptionCount:
		return s.getTotalActiveSubscriptionCount(ctx, request)
	case StatisticTypeDailySubscriptionCount:
		return s.getDailySubscriptionCount(ctx, request)
	case StatisticTypeDailyAccumulatedSubscriptionCount:
		return s.getDailyAccumulatedSubscriptionCount(ctx, request)
	case StatisticTypeDailyCanceledSubscriptionCount:
		return s.getDailyCanceledSubscriptionCount(ctx, request)
	default:
		return nil, fmt.Errorf("%w: invalid data item id: %s", types.ErrInvalidArgument, dataItem.ID)
	}
}

// GetSubscriptionStatistic computes every requested data item concurrently.
// The first failure is returned.
func (s *Service) GetSubscriptionStatistic(ctx context.Context, request *SubscriptionStatisticRequest) (*SubscriptionStatisticResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	results := make(map[StatisticType][]SubscriptionStatisticResponseDataItem, len(request.DataItems))
	for _, item := range lo.UniqBy(request.DataItems, func(di *SubscriptionStatisticDataItem) StatisticType { return di.ID }) {
		wg.Add(1)
		go func(di *SubscriptionStatisticDataItem) {
			defer wg.Done()
			res, err := s.getSubscriptionStatistic(ctx, request, di)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to compute %s: %w", di.ID, err)
				}
				return
			}
			results[di.ID] = lo.Ternary(res == nil, []SubscriptionStatisticResponseDataItem{}, res)
		}(item)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return &SubscriptionStatisticResponse{DataItems: results}, nil
}
