package repositories

import (
	"context"

	"chargeback/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type VampRepository interface {
	Create(ctx context.Context, record *models.VampRecord) error
	FindByID(ctx context.Context, id uint) (*models.VampRecord, error)
	FindByPeriod(ctx context.Context, merchantID, period, network string) (*models.VampRecord, error)
	List(ctx context.Context, filter models.VampFilter) ([]models.VampRecord, error)
	Update(ctx context.Context, record *models.VampRecord) error
	Delete(ctx context.Context, id uint) error
}

type vampRepository struct {
	db *gorm.DB
}

func NewVampRepository(db *gorm.DB) VampRepository {
	return &vampRepository{db: db}
}

func (r *vampRepository) Create(ctx context.Context, record *models.VampRecord) error {
	return translate(r.db.WithContext(ctx).Create(record).Error)
}

func (r *vampRepository) FindByID(ctx context.Context, id uint) (*models.VampRecord, error) {
	var record models.VampRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *vampRepository) FindByPeriod(ctx context.Context, merchantID, period, network string) (*models.VampRecord, error) {
	var record models.VampRecord
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND period_month = ? AND card_network = ?", merchantID, period, network).
		First(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *vampRepository) List(ctx context.Context, filter models.VampFilter) ([]models.VampRecord, error) {
	q := r.db.WithContext(ctx).Model(&models.VampRecord{})
	if filter.MerchantID != "" {
		q = q.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.CardNetwork != "" {
		q = q.Where("card_network = ?", filter.CardNetwork)
	}
	if filter.PeriodFrom != "" {
		q = q.Where("period_month >= ?", filter.PeriodFrom)
	}
	if filter.PeriodTo != "" {
		q = q.Where("period_month <= ?", filter.PeriodTo)
	}
	if filter.ProjectID != nil {
		q = q.Where("project_id = ?", *filter.ProjectID)
	}

	var records []models.VampRecord
	err := q.Order("period_month DESC, merchant_id ASC, card_network ASC").Find(&records).Error
	if err != nil {
		return nil, eris.Wrap(err, "repositories: list vamp records")
	}
	return records, nil
}

func (r *vampRepository) Update(ctx context.Context, record *models.VampRecord) error {
	return translate(r.db.WithContext(ctx).Save(record).Error)
}

func (r *vampRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.VampRecord{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
