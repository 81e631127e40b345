package repositories

import (
	"context"

	"chargeback/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *auditRepository) List(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if entityID != "" {
		q = q.Where("entity_id = ?", entityID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, eris.Wrap(err, "repositories: count audit log")
	}

	var entries []models.AuditLog
	q = q.Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, 0, eris.Wrap(err, "repositories: list audit log")
	}
	return entries, total, nil
}
