package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"draw-service/internal/database"
	"draw-service/internal/models"
	"draw-service/internal/services"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory sqlite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts an active user holding balance, backed by a completed
// manual credit so the ledger invariant holds from the start.
func CreateUser(t *testing.T, db *gorm.DB, id string, balance int64) models.User {
	t.Helper()

	user := models.User{
		ID:           id,
		DisplayName:  "user " + id,
		Status:       models.UserStatusActive,
		Role:         models.RoleUser,
		ReferralCode: fmt.Sprintf("R%07d", dbSeq.Add(1)),
	}
	require.NoError(t, db.Create(&user).Error)

	if balance > 0 {
		ledger := services.NewLedgerService(db, services.NewLocalLocker(), services.DefaultLedgerNode())
		_, err := ledger.Credit(context.Background(), id, balance, models.TrxManualCredit, services.TrxMeta{Description: "test funding"})
		require.NoError(t, err)
		user.Balance = balance
	}
	return user
}

// FakeDispatcher records every signal and event it receives.
type FakeDispatcher struct {
	mu     sync.Mutex
	Closes []services.CloseSignal
	Events []services.NotificationEvent
	Err    error
}

func (f *FakeDispatcher) EnqueueDrawClose(ctx context.Context, sig services.CloseSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closes = append(f.Closes, sig)
	return f.Err
}

func (f *FakeDispatcher) Notify(ctx context.Context, ev services.NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, ev)
	return f.Err
}

func (f *FakeDispatcher) CloseSignals() []services.CloseSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.CloseSignal(nil), f.Closes...)
}

func (f *FakeDispatcher) Notifications() []services.NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.NotificationEvent(nil), f.Events...)
}
