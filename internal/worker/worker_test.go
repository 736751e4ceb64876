package worker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draw-service/internal/models"
	"draw-service/internal/services"
	"draw-service/internal/testutil"
	"draw-service/internal/worker"
)

type fixture struct {
	draws   *services.DrawService
	entries *services.EntryService
	worker  *worker.Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	rules := services.DefaultRules()
	rules.CompletionThreshold = 3

	locks := services.NewLocalLocker()
	dispatcher := &testutil.FakeDispatcher{}
	ledger := services.NewLedgerService(db, locks, services.DefaultLedgerNode())
	draws := services.NewDrawService(db, ledger, locks, dispatcher, rules)
	draws.NewRandom = func() services.RandomSource { return services.SeededSource(7) }

	for i := 0; i < 3; i++ {
		testutil.CreateUser(t, db, fmt.Sprintf("u%d", i), 100)
	}
	return &fixture{
		draws:   draws,
		entries: services.NewEntryService(db, ledger, dispatcher, rules),
		worker:  worker.NewWorker(draws),
	}
}

func TestNewDrawCloseTask(t *testing.T) {
	sig := services.CloseSignal{DrawID: "d1", Trigger: services.TriggerThreshold}
	task, err := worker.NewDrawCloseTask(sig)
	require.NoError(t, err)
	assert.Equal(t, worker.TypeDrawClose, task.Type())

	var got services.CloseSignal
	require.NoError(t, json.Unmarshal(task.Payload(), &got))
	assert.Equal(t, sig, got)

	note, err := worker.NewNotificationTask(services.NotificationEvent{Kind: services.EventWinnerSelected, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, worker.TypeNotificationSend, note.Type())
}

func TestHandleDrawCloseBadPayload(t *testing.T) {
	f := newFixture(t)
	err := f.worker.HandleDrawClose(context.Background(), asynq.NewTask(worker.TypeDrawClose, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleDrawCloseCompletesDraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draw, err := f.draws.CreateDraw(ctx, services.CreateDrawDTO{DrawNumber: 1, DrawTime: time.Now().UTC()})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.entries.PurchaseEntry(ctx, fmt.Sprintf("u%d", i), draw.ID)
		require.NoError(t, err)
	}

	task, err := worker.NewDrawCloseTask(services.CloseSignal{DrawID: draw.ID, Trigger: services.TriggerThreshold})
	require.NoError(t, err)
	require.NoError(t, f.worker.HandleDrawClose(ctx, task))

	reloaded, err := f.draws.GetDraw(ctx, draw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DrawCompleted, reloaded.Status)
	assert.Len(t, reloaded.Winners, 3)

	// redelivery is harmless
	require.NoError(t, f.worker.HandleDrawClose(ctx, task))
}

func TestHandleDrawCloseFailureSkipsRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draw, err := f.draws.CreateDraw(ctx, services.CreateDrawDTO{DrawNumber: 1, DrawTime: time.Now().UTC().Add(-7 * time.Hour)})
	require.NoError(t, err)

	task, err := worker.NewDrawCloseTask(services.CloseSignal{DrawID: draw.ID, Trigger: services.TriggerDeadline})
	require.NoError(t, err)
	err = f.worker.HandleDrawClose(ctx, task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleNotification(t *testing.T) {
	f := newFixture(t)
	task, err := worker.NewNotificationTask(services.NotificationEvent{Kind: services.EventClaimSettled, UserID: "u1", ClaimID: 9})
	require.NoError(t, err)
	require.NoError(t, f.worker.HandleNotification(context.Background(), task))

	err = f.worker.HandleNotification(context.Background(), asynq.NewTask(worker.TypeNotificationSend, []byte("nope")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
