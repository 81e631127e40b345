package repositories

import (
	"context"

	"chargeback/internal/models"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uint) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uint) error
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	return translate(r.db.WithContext(ctx).Create(project).Error)
}

func (r *projectRepository) FindByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&projects).Error; err != nil {
		return nil, eris.Wrap(err, "repositories: list projects")
	}
	return projects, nil
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	return translate(r.db.WithContext(ctx).Save(project).Error)
}

func (r *projectRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Project{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
