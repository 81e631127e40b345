package repositories

import (
	"context"

	"chargeback/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type CustomFieldRepository interface {
	Create(ctx context.Context, field *models.CustomField) error
	FindByID(ctx context.Context, id uint) (*models.CustomField, error)
	List(ctx context.Context) ([]models.CustomField, error)
	Update(ctx context.Context, field *models.CustomField) error
	Delete(ctx context.Context, id uint) error
}

type customFieldRepository struct {
	db *gorm.DB
}

func NewCustomFieldRepository(db *gorm.DB) CustomFieldRepository {
	return &customFieldRepository{db: db}
}

func (r *customFieldRepository) Create(ctx context.Context, field *models.CustomField) error {
	return translate(r.db.WithContext(ctx).Create(field).Error)
}

func (r *customFieldRepository) FindByID(ctx context.Context, id uint) (*models.CustomField, error) {
	var field models.CustomField
	if err := r.db.WithContext(ctx).First(&field, id).Error; err != nil {
		return nil, translate(err)
	}
	return &field, nil
}

func (r *customFieldRepository) List(ctx context.Context) ([]models.CustomField, error) {
	var fields []models.CustomField
	if err := r.db.WithContext(ctx).Order("position ASC, id ASC").Find(&fields).Error; err != nil {
		return nil, eris.Wrap(err, "repositories: list custom fields")
	}
	return fields, nil
}

func (r *customFieldRepository) Update(ctx context.Context, field *models.CustomField) error {
	return translate(r.db.WithContext(ctx).Save(field).Error)
}

func (r *customFieldRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.CustomField{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
