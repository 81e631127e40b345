package repositories

import (
	"context"
	"testing"
	"time"

	"chargeback/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func TestDisputeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDisputeRepository(newTestDB(t))

	seed := []models.Dispute{
		{CaseID: "CB-1", Amount: 100, Status: models.DisputeStatusNew, Processor: "Adyen", ChargebackDate: "2024-01-10"},
		{CaseID: "CB-2", Amount: 200, Status: models.DisputeStatusWon, Processor: "Stripe", ChargebackDate: "2024-02-10"},
		{CaseID: "CB-3", Amount: 300, Status: models.DisputeStatusWon, Processor: "Adyen", ChargebackDate: "2024-03-10"},
	}
	for i := range seed {
		require.NoError(t, repo.Create(ctx, &seed[i]))
	}

	t.Run("find by case id", func(t *testing.T) {
		d, err := repo.FindByCaseID(ctx, "CB-2")
		require.NoError(t, err)
		assert.Equal(t, 200.0, d.Amount)

		_, err = repo.FindByCaseID(ctx, "CB-X")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list with filters", func(t *testing.T) {
		list, total, err := repo.List(ctx, models.DisputeFilter{Processor: "Adyen"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, list, 2)

		list, total, err = repo.List(ctx, models.DisputeFilter{From: "2024-02-01", To: "2024-03-31", Status: models.DisputeStatusWon})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, "CB-2", list[0].CaseID)

		list, total, err = repo.List(ctx, models.DisputeFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, list, 1)
		assert.Equal(t, "CB-2", list[0].CaseID)
	})

	t.Run("patch touches only given columns", func(t *testing.T) {
		d, err := repo.FindByCaseID(ctx, "CB-1")
		require.NoError(t, err)

		require.NoError(t, repo.Patch(ctx, d.ID, map[string]interface{}{"status": models.DisputeStatusLost}))

		d, err = repo.FindByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DisputeStatusLost, d.Status)
		assert.Equal(t, 100.0, d.Amount)
		assert.Equal(t, "Adyen", d.Processor)

		assert.ErrorIs(t, repo.Patch(ctx, 9999, map[string]interface{}{"status": "won"}), ErrNotFound)
	})

	t.Run("custom values round trip", func(t *testing.T) {
		d := &models.Dispute{CaseID: "CB-4", Amount: 10, CustomValues: models.JSON{"store": "Berlin"}}
		require.NoError(t, repo.Create(ctx, d))

		got, err := repo.FindByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "Berlin", got.CustomValues["store"])
	})
}

func TestVampRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewVampRepository(newTestDB(t))

	for _, r := range []models.VampRecord{
		{MerchantID: "M1", PeriodMonth: "2024-01", CardNetwork: "Visa", TC05Count: 1000},
		{MerchantID: "M1", PeriodMonth: "2024-02", CardNetwork: "Visa", TC05Count: 1200},
		{MerchantID: "M2", PeriodMonth: "2024-02", CardNetwork: "Mastercard", TC05Count: 500},
	} {
		r := r
		require.NoError(t, repo.Create(ctx, &r))
	}

	got, err := repo.FindByPeriod(ctx, "M1", "2024-02", "Visa")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got.TC05Count)

	list, err := repo.List(ctx, models.VampFilter{PeriodFrom: "2024-02"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "M1", list[0].MerchantID)

	require.NoError(t, repo.Delete(ctx, got.ID))
	_, err = repo.FindByID(ctx, got.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_MarkOverdue(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	today := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	created, err := repo.CreateChecklist(ctx, 1, []models.WorkflowTask{
		{Stage: "Triage", Title: "late", Status: models.TaskStatusPending, DueDate: today.Add(-24 * time.Hour)},
		{Stage: "Triage", Title: "due today", Status: models.TaskStatusPending, DueDate: today},
		{Stage: "Triage", Title: "done late", Status: models.TaskStatusCompleted, DueDate: today.Add(-48 * time.Hour)},
	})
	require.NoError(t, err)
	require.True(t, created)
	created, err = repo.CreateChecklist(ctx, 2, []models.WorkflowTask{
		{Stage: "Triage", Title: "other dispute", Status: models.TaskStatusPending, DueDate: today.Add(-24 * time.Hour)},
	})
	require.NoError(t, err)
	require.True(t, created)

	n, err := repo.MarkOverdue(ctx, 1, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := repo.ListByDispute(ctx, 1)
	require.NoError(t, err)
	statuses := map[string]string{}
	for _, task := range list {
		statuses[task.Title] = task.Status
	}
	assert.Equal(t, models.TaskStatusOverdue, statuses["late"])
	assert.Equal(t, models.TaskStatusPending, statuses["due today"])
	assert.Equal(t, models.TaskStatusCompleted, statuses["done late"])

	other, err := repo.ListByDispute(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other, 1)

	n, err = repo.MarkOverdue(ctx, 0, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTaskRepository_CreateChecklistOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	due := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	checklist := func() []models.WorkflowTask {
		return []models.WorkflowTask{
			{StageIndex: 0, Stage: "Triage", Title: "review", Status: models.TaskStatusPending, DueDate: due},
			{StageIndex: 1, Stage: "Evidence Collection", Title: "gather", Status: models.TaskStatusPending, DueDate: due},
		}
	}

	created, err := repo.CreateChecklist(ctx, 7, checklist())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateChecklist(ctx, 7, checklist())
	require.NoError(t, err)
	assert.False(t, created)

	list, err := repo.ListByDispute(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// the unique index rejects a second copy of a task even outside CreateChecklist
	dup := models.WorkflowTask{DisputeID: 7, StageIndex: 0, Stage: "Triage", Title: "review", Status: models.TaskStatusPending, DueDate: due}
	assert.ErrorIs(t, translate(db.Create(&dup).Error), ErrDuplicate)
}

func TestCustomFieldRepository_Options(t *testing.T) {
	ctx := context.Background()
	repo := NewCustomFieldRepository(newTestDB(t))

	field := &models.CustomField{Key: "channel", Label: "Channel", Type: models.FieldTypeDropdown, Options: []string{"web", "pos", "moto"}}
	require.NoError(t, repo.Create(ctx, field))

	got, err := repo.FindByID(ctx, field.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "pos", "moto"}, []string(got.Options))
}

func TestUserRepository_IncrementTokenVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user := &models.User{Email: "a@example.com", Password: "x", Name: "A", TokenVersion: 1}
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.IncrementTokenVersion(ctx, user.ID))

	got, err := repo.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TokenVersion)
}

func TestAuditRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &models.AuditLog{EventID: "e1", EntityType: "dispute", EntityID: "1", Action: "create"}))
	require.NoError(t, repo.Create(ctx, &models.AuditLog{EventID: "e2", EntityType: "dispute", EntityID: "2", Action: "create"}))
	require.NoError(t, repo.Create(ctx, &models.AuditLog{EventID: "e3", EntityType: "task", EntityID: "1", Action: "update"}))

	entries, total, err := repo.List(ctx, "dispute", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, entries, 2)
}
