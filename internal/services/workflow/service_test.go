package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chargeback/internal/clock"
	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/services/audit"
	"chargeback/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc      Service
	clock    *clock.FakeClock
	tasks    repositories.TaskRepository
	disputes repositories.DisputeRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		clock:    clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		tasks:    repositories.NewTaskRepository(db),
		disputes: repositories.NewDisputeRepository(db),
	}
	f.svc = NewService(f.tasks, f.disputes, audit.Nop{}, f.clock, 0, zap.NewNop())
	return f
}

func (f *fixture) dispute(t *testing.T, d models.Dispute) uint {
	t.Helper()
	require.NoError(t, f.disputes.Create(context.Background(), &d))
	return d.ID
}

func TestService_GenerateOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.dispute(t, models.Dispute{CaseID: "CB-1", Amount: 10})

	generated, err := f.svc.Generate(ctx, id)
	require.NoError(t, err)
	assert.True(t, generated)

	generated, err = f.svc.Generate(ctx, id)
	require.NoError(t, err)
	assert.False(t, generated)

	tasks, err := f.tasks.ListByDispute(ctx, id)
	require.NoError(t, err)
	assert.Len(t, tasks, 14)

	_, err = f.svc.Generate(ctx, 999)
	assert.ErrorIs(t, err, ErrDisputeNotFound)
}

func TestService_GenerateConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.dispute(t, models.Dispute{CaseID: "CB-1", Amount: 10})

	var wg sync.WaitGroup
	var generated int32
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.svc.Generate(ctx, id)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				atomic.AddInt32(&generated, 1)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), generated)

	tasks, err := f.tasks.ListByDispute(ctx, id)
	require.NoError(t, err)
	assert.Len(t, tasks, 14)
}

func TestService_ChecklistMarksOverdue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.dispute(t, models.Dispute{CaseID: "CB-1", Amount: 10})

	_, err := f.svc.Generate(ctx, id)
	require.NoError(t, err)

	list, err := f.svc.Checklist(ctx, id)
	require.NoError(t, err)
	first := list.Tasks[0]
	_, err = f.svc.UpdateTask(ctx, first.ID, TaskUpdate{Status: strPtr(models.TaskStatusCompleted)})
	require.NoError(t, err)

	// Triage tasks were due on May 3rd; on May 4th the open ones are overdue.
	f.clock.Advance(3 * 24 * time.Hour)
	list, err = f.svc.Checklist(ctx, id)
	require.NoError(t, err)

	statuses := map[string]int{}
	for _, task := range list.Tasks {
		statuses[task.Status]++
	}
	assert.Equal(t, 1, statuses[models.TaskStatusCompleted])
	assert.Equal(t, 2, statuses[models.TaskStatusOverdue])
	assert.Equal(t, 11, statuses[models.TaskStatusPending])

	require.NotNil(t, list.Stage)
	assert.Equal(t, StageTriage, *list.Stage)
	assert.Equal(t, "Triage", list.StageName)
	assert.False(t, list.StageMismatch)
}

func TestService_OverdueUsesStartOfDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.dispute(t, models.Dispute{CaseID: "CB-1", Amount: 10})
	_, err := f.svc.Generate(ctx, id)
	require.NoError(t, err)

	// Due May 3rd 09:00; on May 3rd at 18:00 the task is due today, not overdue.
	f.clock.Advance(2*24*time.Hour + 9*time.Hour)
	n, err := f.svc.ReconcileOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	f.clock.Advance(12 * time.Hour)
	n, err = f.svc.ReconcileOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestService_StageMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.dispute(t, models.Dispute{CaseID: "CB-1", Amount: 10, Status: models.DisputeStatusSubmitted})
	_, err := f.svc.Generate(ctx, id)
	require.NoError(t, err)

	list, err := f.svc.Checklist(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StageTriage, *list.Stage)
	assert.Equal(t, StageAwaitingDecision, list.InferredStage)
	assert.True(t, list.StageMismatch)
}

func TestService_UpdateTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.dispute(t, models.Dispute{CaseID: "CB-1", Amount: 10})
	_, err := f.svc.Generate(ctx, id)
	require.NoError(t, err)
	list, err := f.svc.Checklist(ctx, id)
	require.NoError(t, err)
	taskID := list.Tasks[0].ID

	task, err := f.svc.UpdateTask(ctx, taskID, TaskUpdate{Status: strPtr(models.TaskStatusCompleted), Assignee: strPtr("ana")})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, "ana", task.Assignee)

	task, err = f.svc.UpdateTask(ctx, taskID, TaskUpdate{Status: strPtr(models.TaskStatusInProgress)})
	require.NoError(t, err)
	assert.Nil(t, task.CompletedAt)

	_, err = f.svc.UpdateTask(ctx, taskID, TaskUpdate{Status: strPtr("done")})
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)
	_, err = f.svc.UpdateTask(ctx, 9999, TaskUpdate{})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestService_ChecklistWithoutTasks(t *testing.T) {
	f := newFixture(t)
	id := f.dispute(t, models.Dispute{CaseID: "CB-1", Amount: 10})

	list, err := f.svc.Checklist(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, list.Tasks)
	assert.Nil(t, list.Stage)
	assert.False(t, list.StageMismatch)
}

func strPtr(s string) *string { return &s }
