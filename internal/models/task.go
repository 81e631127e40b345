package models

import (
	"time"

	"gorm.io/gorm"
)

// Workflow task statuses
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusOverdue    = "overdue"
)

// Task priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// WorkflowTask is one checklist item of a dispute's response workflow.
type WorkflowTask struct {
	gorm.Model
	DisputeID   uint       `gorm:"index;uniqueIndex:idx_task_item;not null" json:"dispute_id"`
	StageIndex  int        `gorm:"uniqueIndex:idx_task_item;not null" json:"stage_index"`
	Stage       string     `gorm:"not null" json:"stage"`
	Title       string     `gorm:"uniqueIndex:idx_task_item;not null" json:"title"`
	Priority    string     `gorm:"default:'medium'" json:"priority"`
	Status      string     `gorm:"index;default:'pending'" json:"status"`
	DueDate     time.Time  `gorm:"index" json:"due_date"`
	Assignee    string     `json:"assignee"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsDone reports whether the task no longer blocks its stage.
func (t *WorkflowTask) IsDone() bool {
	return t.Status == TaskStatusCompleted
}
