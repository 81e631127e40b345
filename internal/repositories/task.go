package repositories

import (
	"context"
	"errors"
	"time"

	"chargeback/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type TaskRepository interface {
	// CreateChecklist inserts the tasks of one dispute unless it already has
	// any. It reports whether the tasks were created.
	CreateChecklist(ctx context.Context, disputeID uint, tasks []models.WorkflowTask) (bool, error)
	ListByDispute(ctx context.Context, disputeID uint) ([]models.WorkflowTask, error)
	FindByID(ctx context.Context, id uint) (*models.WorkflowTask, error)
	Update(ctx context.Context, task *models.WorkflowTask) error
	// MarkOverdue flips pending tasks due before cutoff to overdue. A zero
	// disputeID applies to every dispute.
	MarkOverdue(ctx context.Context, disputeID uint, cutoff time.Time) (int64, error)
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// CreateChecklist checks and inserts inside one transaction. A concurrent
// caller that loses the race hits the (dispute, stage, title) unique index and
// gets false.
func (r *taskRepository) CreateChecklist(ctx context.Context, disputeID uint, tasks []models.WorkflowTask) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.WorkflowTask{}).Where("dispute_id = ?", disputeID).Count(&count).Error; err != nil {
			return eris.Wrap(err, "repositories: count tasks")
		}
		if count > 0 {
			return nil
		}
		for i := range tasks {
			tasks[i].DisputeID = disputeID
			if err := tx.Create(&tasks[i]).Error; err != nil {
				return translate(err)
			}
		}
		created = true
		return nil
	})
	if errors.Is(err, ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "repositories: create checklist for dispute %d", disputeID)
	}
	return created, nil
}

func (r *taskRepository) ListByDispute(ctx context.Context, disputeID uint) ([]models.WorkflowTask, error) {
	var tasks []models.WorkflowTask
	err := r.db.WithContext(ctx).
		Where("dispute_id = ?", disputeID).
		Order("stage_index ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, eris.Wrap(err, "repositories: list tasks")
	}
	return tasks, nil
}

func (r *taskRepository) FindByID(ctx context.Context, id uint) (*models.WorkflowTask, error) {
	var task models.WorkflowTask
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *models.WorkflowTask) error {
	return translate(r.db.WithContext(ctx).Save(task).Error)
}

func (r *taskRepository) MarkOverdue(ctx context.Context, disputeID uint, cutoff time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.WorkflowTask{}).
		Where("status = ? AND due_date < ?", models.TaskStatusPending, cutoff)
	if disputeID != 0 {
		q = q.Where("dispute_id = ?", disputeID)
	}
	res := q.Update("status", models.TaskStatusOverdue)
	if res.Error != nil {
		return 0, eris.Wrap(res.Error, "repositories: mark overdue")
	}
	return res.RowsAffected, nil
}
