package workflow

import (
	"context"
	"errors"
	"time"

	"chargeback/internal/clock"
	"chargeback/internal/metrics"
	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/services/audit"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const stageSpacing = 2 * 24 * time.Hour

// Checklist is a dispute's tasks with both stage projections.
type Checklist struct {
	DisputeID     uint                  `json:"dispute_id"`
	Tasks         []models.WorkflowTask `json:"tasks"`
	Stage         *int                  `json:"stage"`
	StageName     string                `json:"stage_name,omitempty"`
	InferredStage int                   `json:"inferred_stage"`
	StageMismatch bool                  `json:"stage_mismatch"`
}

// TaskUpdate holds the mutable fields of a task. Nil fields are left alone.
type TaskUpdate struct {
	Status   *string    `json:"status"`
	Assignee *string    `json:"assignee"`
	DueDate  *time.Time `json:"due_date"`
}

type Service interface {
	// Generate creates the template tasks of a dispute. It does nothing and
	// reports false when the dispute already has tasks.
	Generate(ctx context.Context, disputeID uint) (bool, error)
	Checklist(ctx context.Context, disputeID uint) (*Checklist, error)
	UpdateTask(ctx context.Context, taskID uint, update TaskUpdate) (*models.WorkflowTask, error)
	// ReconcileOverdue marks overdue every pending task of every dispute due
	// before the start of today.
	ReconcileOverdue(ctx context.Context) (int64, error)
}

type service struct {
	tasks          repositories.TaskRepository
	disputes       repositories.DisputeRepository
	audit          audit.Recorder
	clock          clock.Clock
	coverLetterMin int
	logger         *zap.Logger
}

func NewService(
	tasks repositories.TaskRepository,
	disputes repositories.DisputeRepository,
	recorder audit.Recorder,
	clk clock.Clock,
	coverLetterMin int,
	logger *zap.Logger,
) Service {
	if clk == nil {
		clk = clock.Real{}
	}
	return &service{
		tasks:          tasks,
		disputes:       disputes,
		audit:          recorder,
		clock:          clk,
		coverLetterMin: coverLetterMin,
		logger:         logger,
	}
}

// BuildTasks expands the stage templates for d. Stage i is due
// (i+1)*2 days after now, never later than the dispute's SLA deadline.
func BuildTasks(d *models.Dispute, now time.Time) []models.WorkflowTask {
	var tasks []models.WorkflowTask
	for idx, stage := range Stages {
		due := now.Add(time.Duration(idx+1) * stageSpacing)
		if d.SLADeadline != nil && d.SLADeadline.Before(due) {
			due = *d.SLADeadline
		}
		for _, tpl := range stage.Tasks {
			tasks = append(tasks, models.WorkflowTask{
				DisputeID:  d.ID,
				StageIndex: idx,
				Stage:      stage.Name,
				Title:      tpl.Title,
				Priority:   tpl.Priority,
				Status:     models.TaskStatusPending,
				DueDate:    due,
			})
		}
	}
	return tasks
}

func (s *service) dispute(ctx context.Context, id uint) (*models.Dispute, error) {
	d, err := s.disputes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, eris.Wrap(err, "workflow: load dispute")
	}
	return d, nil
}

func (s *service) Generate(ctx context.Context, disputeID uint) (bool, error) {
	d, err := s.dispute(ctx, disputeID)
	if err != nil {
		return false, err
	}

	tasks := BuildTasks(d, s.clock.Now())
	created, err := s.tasks.CreateChecklist(ctx, disputeID, tasks)
	if err != nil {
		return false, eris.Wrap(err, "workflow: create tasks")
	}
	if !created {
		return false, nil
	}

	s.audit.Record(ctx, audit.EntityDispute, disputeID, models.AuditActionGenerate, map[string]interface{}{
		"tasks": len(tasks),
	})
	s.logger.Info("workflow tasks generated", zap.Uint("dispute_id", disputeID), zap.Int("tasks", len(tasks)))
	return true, nil
}

func (s *service) cutoff() time.Time {
	return clock.StartOfDay(s.clock.Now())
}

func (s *service) Checklist(ctx context.Context, disputeID uint) (*Checklist, error) {
	d, err := s.dispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	n, err := s.tasks.MarkOverdue(ctx, disputeID, s.cutoff())
	if err != nil {
		return nil, eris.Wrap(err, "workflow: reconcile overdue tasks")
	}
	metrics.OverdueTransitions(n)

	tasks, err := s.tasks.ListByDispute(ctx, disputeID)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: list tasks")
	}
	if tasks == nil {
		tasks = []models.WorkflowTask{}
	}

	list := &Checklist{
		DisputeID:     disputeID,
		Tasks:         tasks,
		Stage:         ChecklistStage(tasks),
		InferredStage: InferStage(d, s.coverLetterMin),
	}
	if list.Stage != nil {
		list.StageName = Stages[*list.Stage].Name
		list.StageMismatch = *list.Stage != list.InferredStage
	}
	return list, nil
}

func validTaskStatus(status string) bool {
	switch status {
	case models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusCompleted, models.TaskStatusOverdue:
		return true
	}
	return false
}

func (s *service) UpdateTask(ctx context.Context, taskID uint, update TaskUpdate) (*models.WorkflowTask, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, eris.Wrap(err, "workflow: load task")
	}

	previous := task.Status
	if update.Status != nil {
		if !validTaskStatus(*update.Status) {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *update.Status
		if task.Status == models.TaskStatusCompleted {
			if task.CompletedAt == nil {
				now := s.clock.Now()
				task.CompletedAt = &now
			}
		} else {
			task.CompletedAt = nil
		}
	}
	if update.Assignee != nil {
		task.Assignee = *update.Assignee
	}
	if update.DueDate != nil {
		task.DueDate = *update.DueDate
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, eris.Wrap(err, "workflow: update task")
	}

	s.audit.Record(ctx, audit.EntityTask, task.ID, models.AuditActionUpdate, map[string]interface{}{
		"dispute_id": task.DisputeID,
		"from":       previous,
		"to":         task.Status,
	})
	return task, nil
}

func (s *service) ReconcileOverdue(ctx context.Context) (int64, error) {
	n, err := s.tasks.MarkOverdue(ctx, 0, s.cutoff())
	if err != nil {
		return 0, eris.Wrap(err, "workflow: reconcile overdue tasks")
	}
	metrics.OverdueTransitions(n)
	if n > 0 {
		s.logger.Info("tasks marked overdue", zap.Int64("count", n))
	}
	return n, nil
}
