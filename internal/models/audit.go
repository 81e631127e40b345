package models

import "time"

// Audit actions
const (
	AuditActionCreate       = "create"
	AuditActionUpdate       = "update"
	AuditActionDelete       = "delete"
	AuditActionStatusChange = "status_change"
	AuditActionGenerate     = "generate_tasks"
	AuditActionImport       = "bulk_import"
)

// AuditLog is an append-only record of a change made through the API.
type AuditLog struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	EventID    string    `gorm:"uniqueIndex;size:36;not null" json:"event_id"`
	Actor      string    `gorm:"index" json:"actor"`
	EntityType string    `gorm:"index;not null" json:"entity_type"`
	EntityID   string    `gorm:"index" json:"entity_id"`
	Action     string    `gorm:"not null" json:"action"`
	Details    JSON      `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
