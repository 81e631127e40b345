// Package project manages the merchant groupings used for Stripe pulls.
package project

import (
	"context"
	"errors"
	"strings"

	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/services/audit"
	"chargeback/internal/validation"

	"github.com/rotisserie/eris"
)

var ErrProjectNotFound = errors.New("project not found")

type Service interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	Get(ctx context.Context, id uint) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Update(ctx context.Context, id uint, p *models.Project) (*models.Project, error)
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo  repositories.ProjectRepository
	audit audit.Recorder
}

func NewService(repo repositories.ProjectRepository, recorder audit.Recorder) Service {
	return &service{repo: repo, audit: recorder}
}

func check(p *models.Project) error {
	p.Name = strings.TrimSpace(p.Name)
	p.MerchantID = strings.TrimSpace(p.MerchantID)
	v := validation.New()
	v.Project(p)
	return v.Err()
}

func (s *service) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	if err := check(p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, eris.Wrap(err, "project: create")
	}
	s.audit.Record(ctx, audit.EntityProject, p.ID, models.AuditActionCreate, map[string]interface{}{"name": p.Name})
	return p, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, eris.Wrap(err, "project: get")
	}
	return p, nil
}

func (s *service) List(ctx context.Context) ([]models.Project, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "project: list")
	}
	return projects, nil
}

func (s *service) Update(ctx context.Context, id uint, p *models.Project) (*models.Project, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Model = existing.Model
	if err := check(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, eris.Wrap(err, "project: update")
	}
	s.audit.Record(ctx, audit.EntityProject, id, models.AuditActionUpdate, nil)
	return p, nil
}

func (s *service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrProjectNotFound
		}
		return eris.Wrap(err, "project: delete")
	}
	s.audit.Record(ctx, audit.EntityProject, id, models.AuditActionDelete, nil)
	return nil
}
