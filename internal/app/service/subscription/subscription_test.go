package subscription

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fatflowers/contactbook/internal/app/service/billing"
	models "github.com/fatflowers/contactbook/internal/models"
	types "github.com/fatflowers/contactbook/pkg/types"
)

func TestShouldApply(t *testing.T) {
	last := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	current := &models.Subscription{LastEventAt: last}

	require.True(t, ShouldApply(current, billing.SubscriptionChange{EventAt: last.Add(time.Second)}))
	require.True(t, ShouldApply(current, billing.SubscriptionChange{EventAt: last}), "same-second events apply")
	require.False(t, ShouldApply(current, billing.SubscriptionChange{EventAt: last.Add(-time.Second)}))

	require.True(t, ShouldApply(&models.Subscription{}, billing.SubscriptionChange{EventAt: last}), "fresh row accepts any event")
}

// dryRunDB builds postgres SQL without a server and records every statement.
func dryRunDB(t *testing.T) (*gorm.DB, *[]string) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 port=1 user=test dbname=test sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	var stmts []string
	record := func(tx *gorm.DB) { stmts = append(stmts, tx.Statement.SQL.String()) }
	require.NoError(t, db.Callback().Create().After("gorm:create").Register("test:record_create", record))
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:record_query", record))
	require.NoError(t, db.Callback().Update().After("gorm:update").Register("test:record_update", record))
	return db, &stmts
}

func TestCreateWithin_InsertIgnoresConflictOnExternalID(t *testing.T) {
	db, stmts := dryRunDB(t)
	svc := NewService(db, zap.NewNop().Sugar())

	// A dry run affects no rows, which is what a redelivered checkout sees.
	created, err := svc.createWithin(db, &models.Subscription{
		ID:                   "0192f000-0000-7000-8000-000000000001",
		UserID:               "0192f000-0000-7000-8000-000000000002",
		StripeSubscriptionID: "sub_1",
		Status:               types.SubscriptionStatusActive,
	}, "evt_1")
	require.NoError(t, err)
	assert.False(t, created)

	require.Len(t, *stmts, 1, "no change log is written for a conflicting insert")
	insert := (*stmts)[0]
	assert.True(t, strings.HasPrefix(insert, `INSERT INTO "subscriptions"`), insert)
	assert.Contains(t, insert, `ON CONFLICT ("stripe_subscription_id") DO NOTHING`)
	assert.NotContains(t, insert, "subscription_log")
}

func TestApplyWithin_LocksRowAndStoresEventTime(t *testing.T) {
	db, stmts := dryRunDB(t)
	svc := NewService(db, zap.NewNop().Sugar())

	eventAt := time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)
	outcome, err := svc.applyWithin(db, billing.SubscriptionChange{
		StripeSubscriptionID: "sub_1",
		EventID:              "evt_2",
		EventAt:              eventAt,
		Reason:               types.SubscriptionChangeReasonSubscriptionDeleted,
		Apply: func(sub *models.Subscription) {
			// a dry run scans nothing, so give the row its key here
			sub.ID = "0192f000-0000-7000-8000-000000000001"
			sub.Status = types.SubscriptionStatusCanceled
		},
	})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeApplied, outcome)

	require.Len(t, *stmts, 3)
	lock, update, logRow := (*stmts)[0], (*stmts)[1], (*stmts)[2]

	assert.True(t, strings.HasPrefix(lock, `SELECT * FROM "subscriptions"`), lock)
	assert.Contains(t, lock, "stripe_subscription_id = $1")
	assert.Contains(t, lock, "FOR UPDATE")

	assert.True(t, strings.HasPrefix(update, `UPDATE "subscriptions" SET`), update)
	assert.Contains(t, update, `"last_event_at"=`)
	assert.Contains(t, update, `"id" = `)

	assert.True(t, strings.HasPrefix(logRow, `INSERT INTO "subscription_log"`), logRow)
}
