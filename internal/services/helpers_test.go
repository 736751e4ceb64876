package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"draw-service/internal/models"
	"draw-service/internal/services"
	"draw-service/internal/testutil"
)

type env struct {
	db         *gorm.DB
	dispatcher *testutil.FakeDispatcher
	rules      services.Rules
	ledger     *services.LedgerService
	users      *services.UserService
	entries    *services.EntryService
	draws      *services.DrawService
	claims     *services.ClaimService
	tasks      *services.TaskService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithThreshold(t, 5)
}

func newEnvWithThreshold(t *testing.T, threshold int) *env {
	t.Helper()

	db := testutil.NewDB(t)
	rules := services.DefaultRules()
	rules.CompletionThreshold = threshold
	rules.LockWait = 2 * time.Second

	locks := services.NewLocalLocker()
	dispatcher := &testutil.FakeDispatcher{}
	ledger := services.NewLedgerService(db, locks, services.DefaultLedgerNode())
	ledger.Rules = rules

	draws := services.NewDrawService(db, ledger, locks, dispatcher, rules)
	draws.NewRandom = func() services.RandomSource { return services.SeededSource(42) }

	return &env{
		db:         db,
		dispatcher: dispatcher,
		rules:      rules,
		ledger:     ledger,
		users:      services.NewUserService(db),
		entries:    services.NewEntryService(db, ledger, dispatcher, rules),
		draws:      draws,
		claims:     services.NewClaimService(db, ledger, dispatcher, rules),
		tasks:      services.NewTaskService(db, locks, rules),
	}
}

func (e *env) createDraw(t *testing.T, number int) *models.Draw {
	t.Helper()
	draw, err := e.draws.CreateDraw(context.Background(), services.CreateDrawDTO{
		DrawNumber: number,
		DrawTime:   time.Now().UTC(),
	})
	require.NoError(t, err)
	return draw
}

func (e *env) buy(t *testing.T, userID, drawID string) *services.PurchaseResult {
	t.Helper()
	res, err := e.entries.PurchaseEntry(context.Background(), userID, drawID)
	require.NoError(t, err)
	return res
}

func (e *env) reloadDraw(t *testing.T, drawID string) *models.Draw {
	t.Helper()
	draw, err := e.draws.GetDraw(context.Background(), drawID)
	require.NoError(t, err)
	return draw
}

func (e *env) balance(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := e.ledger.Balance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func (e *env) requireConsistent(t *testing.T) {
	t.Helper()
	mismatches, err := e.ledger.Audit(context.Background())
	require.NoError(t, err)
	require.Empty(t, mismatches)
}

// deadlineRecorder collects every statement that ran without a deadline
// while it is on.
type deadlineRecorder struct {
	mu      sync.Mutex
	on      bool
	missing []string
}

func recordDeadlines(t *testing.T, db *gorm.DB) *deadlineRecorder {
	t.Helper()
	r := &deadlineRecorder{}
	check := func(tx *gorm.DB) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.on {
			return
		}
		if _, ok := tx.Statement.Context.Deadline(); !ok {
			r.missing = append(r.missing, tx.Statement.Table)
		}
	}
	cb := db.Callback()
	require.NoError(t, cb.Create().Before("gorm:create").Register("test:deadline_create", check))
	require.NoError(t, cb.Query().Before("gorm:query").Register("test:deadline_query", check))
	require.NoError(t, cb.Update().Before("gorm:update").Register("test:deadline_update", check))
	require.NoError(t, cb.Delete().Before("gorm:delete").Register("test:deadline_delete", check))
	require.NoError(t, cb.Row().Before("gorm:row").Register("test:deadline_row", check))
	require.NoError(t, cb.Raw().Before("gorm:raw").Register("test:deadline_raw", check))
	return r
}

func (r *deadlineRecorder) set(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.on = on
}

func (r *deadlineRecorder) undeadlined() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.missing...)
}
