package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"draw-service/internal/services"
	"draw-service/pkg/errorx"
)

func TestListTasksSeeded(t *testing.T) {
	e := newEnv(t)
	tasks, err := e.tasks.ListTasks(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, tasks, 10)
	assert.Equal(t, "task1", tasks[0].ID)
	for i := 1; i < len(tasks); i++ {
		assert.LessOrEqual(t, tasks[i-1].Order, tasks[i].Order)
	}
}

func TestUpsertAndDisableTask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.tasks.UpsertTask(ctx, services.TaskDefinitionDTO{ID: "task11", Title: "Share a ticket", Enabled: true, Order: 11})
	require.NoError(t, err)
	_, err = e.tasks.UpsertTask(ctx, services.TaskDefinitionDTO{ID: "task11", Title: "Share two tickets", Enabled: true, Order: 11})
	require.NoError(t, err)

	tasks, err := e.tasks.ListTasks(ctx, true)
	require.NoError(t, err)
	require.Len(t, tasks, 11)
	assert.Equal(t, "Share two tickets", tasks[10].Title)

	require.NoError(t, e.tasks.SetTaskEnabled(ctx, "task11", false))
	require.NoError(t, e.tasks.SetTaskEnabled(ctx, "task11", false))
	tasks, err = e.tasks.ListTasks(ctx, true)
	require.NoError(t, err)
	assert.Len(t, tasks, 10)

	require.ErrorIs(t, e.tasks.SetTaskEnabled(ctx, "nope", true), errorx.ErrNotFound)
	_, err = e.tasks.UpsertTask(ctx, services.TaskDefinitionDTO{ID: "task12"})
	require.ErrorIs(t, err, errorx.ErrValidation)
}

func TestCompleteTask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	date := "2026-06-01"

	progress, err := e.tasks.Progress(ctx, "u1", date)
	require.NoError(t, err)
	assert.Zero(t, progress.TaskCount)
	assert.Len(t, progress.CompletedTasks, 10)

	progress, err = e.tasks.CompleteTask(ctx, "u1", date, "task3")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.TaskCount)
	assert.True(t, progress.CompletedTasks["task3"])

	progress, err = e.tasks.CompleteTask(ctx, "u1", date, "task3")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.TaskCount)

	progress, err = e.tasks.CompleteTask(ctx, "u1", date, "task4")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.TaskCount)

	other, err := e.tasks.Progress(ctx, "u1", "2026-06-02")
	require.NoError(t, err)
	assert.Zero(t, other.TaskCount)

	_, err = e.tasks.CompleteTask(ctx, "u1", date, "task99")
	require.ErrorIs(t, err, errorx.ErrNotFound)

	require.NoError(t, e.tasks.SetTaskEnabled(ctx, "task5", false))
	_, err = e.tasks.CompleteTask(ctx, "u1", date, "task5")
	require.ErrorIs(t, err, errorx.ErrNotFound)

	_, err = e.tasks.CompleteTask(ctx, "u1", "June 1", "task1")
	require.ErrorIs(t, err, errorx.ErrValidation)
}
