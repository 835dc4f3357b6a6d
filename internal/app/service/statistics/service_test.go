package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/types"
)

func TestRequestValidate(t *testing.T) {
	ok := &SubscriptionStatisticRequest{
		DataItems: []*SubscriptionStatisticDataItem{{ID: StatisticTypeSubscriptionStatusCount}},
		Filters: []*types.CommonFilter{{
			Field: "stripe_price_id", Operator: types.CommonFilterOperatorEq, Values: []any{"price_1"},
		}},
	}
	require.NoError(t, ok.Validate())

	badItem := &SubscriptionStatisticRequest{DataItems: []*SubscriptionStatisticDataItem{{ID: "daily_gmv"}}}
	require.ErrorIs(t, badItem.Validate(), types.ErrInvalidArgument)

	badFilter := &SubscriptionStatisticRequest{
		DataItems: ok.DataItems,
		Filters:   []*types.CommonFilter{{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{"x"}}},
	}
	require.ErrorIs(t, badFilter.Validate(), types.ErrInvalidArgument)
}

func TestRequestWhere_OnlyForSubscriptionTableStatistics(t *testing.T) {
	req := &SubscriptionStatisticRequest{Filters: []*types.CommonFilter{{
		Field: "status", Operator: types.CommonFilterOperatorEq, Values: []any{"active"},
	}}}
	assert.NotNil(t, req.where(StatisticTypeSubscriptionStatusCount))
	assert.NotNil(t, req.where(StatisticTypeTotalActiveSubscriptionCount))
	assert.Nil(t, req.where(StatisticTypeDailySubscriptionCount))
	assert.Nil(t, req.where(StatisticTypeDailyCanceledSubscriptionCount))

	assert.Nil(t, (&SubscriptionStatisticRequest{}).where(StatisticTypeSubscriptionStatusCount))
}

func TestGetSubscriptionStatistic_RejectsInvalidBeforeQuerying(t *testing.T) {
	svc := New(nil, zap.NewNop().Sugar())
	_, err := svc.GetSubscriptionStatistic(t.Context(), &SubscriptionStatisticRequest{
		DataItems: []*SubscriptionStatisticDataItem{{ID: "renewal_success_rate"}},
	})
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestBuildSnapshots(t *testing.T) {
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 16, 0, 5, 0, 0, time.UTC)
	subs := []*models.Subscription{
		{UserID: "u1", StripeSubscriptionID: "sub_1", Status: types.SubscriptionStatusActive, CurrentPeriodEnd: end},
		{UserID: "u2", StripeSubscriptionID: "sub_2", Status: types.SubscriptionStatusCanceled, CancelAtPeriodEnd: true},
	}
	day := time.Date(2024, 1, 15, 23, 0, 0, 0, time.FixedZone("X", -2*3600))

	snaps := BuildSnapshots(subs, day, now)

	require.Len(t, snaps, 2)
	assert.Equal(t, "2024-01-16", snaps[0].SnapshotDate)
	assert.Equal(t, "sub_1", snaps[0].StripeSubscriptionID)
	assert.Equal(t, end, snaps[0].CurrentPeriodEnd)
	assert.Equal(t, now, snaps[0].SnapshotCreatedAt)
	assert.True(t, snaps[1].CancelAtPeriodEnd)
	assert.NotEqual(t, snaps[0].ID, snaps[1].ID)
}
