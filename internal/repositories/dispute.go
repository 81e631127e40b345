package repositories

import (
	"context"

	"chargeback/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type DisputeRepository interface {
	Create(ctx context.Context, dispute *models.Dispute) error
	FindByID(ctx context.Context, id uint) (*models.Dispute, error)
	FindByCaseID(ctx context.Context, caseID string) (*models.Dispute, error)
	List(ctx context.Context, filter models.DisputeFilter) ([]models.Dispute, int64, error)
	Update(ctx context.Context, dispute *models.Dispute) error
	// Patch updates only the given columns of one dispute.
	Patch(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
}

type disputeRepository struct {
	db *gorm.DB
}

func NewDisputeRepository(db *gorm.DB) DisputeRepository {
	return &disputeRepository{db: db}
}

func (r *disputeRepository) Create(ctx context.Context, dispute *models.Dispute) error {
	return translate(r.db.WithContext(ctx).Create(dispute).Error)
}

func (r *disputeRepository) FindByID(ctx context.Context, id uint) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).First(&dispute, id).Error; err != nil {
		return nil, translate(err)
	}
	return &dispute, nil
}

func (r *disputeRepository) FindByCaseID(ctx context.Context, caseID string) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).Where("case_id = ?", caseID).First(&dispute).Error; err != nil {
		return nil, translate(err)
	}
	return &dispute, nil
}

func (r *disputeRepository) List(ctx context.Context, filter models.DisputeFilter) ([]models.Dispute, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Dispute{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Processor != "" {
		q = q.Where("processor = ?", filter.Processor)
	}
	if filter.CardNetwork != "" {
		q = q.Where("card_network = ?", filter.CardNetwork)
	}
	if filter.MerchantID != "" {
		q = q.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.ProjectID != nil {
		q = q.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.From != "" {
		q = q.Where("chargeback_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("chargeback_date <= ?", filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, eris.Wrap(err, "repositories: count disputes")
	}

	q = q.Order("id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}

	var disputes []models.Dispute
	if err := q.Find(&disputes).Error; err != nil {
		return nil, 0, eris.Wrap(err, "repositories: list disputes")
	}
	return disputes, total, nil
}

func (r *disputeRepository) Update(ctx context.Context, dispute *models.Dispute) error {
	return translate(r.db.WithContext(ctx).Save(dispute).Error)
}

func (r *disputeRepository) Patch(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Dispute{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *disputeRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Dispute{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
