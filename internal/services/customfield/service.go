package customfield

import (
	"context"
	"errors"
	"sort"

	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/services/audit"
	"chargeback/internal/validation"

	"github.com/rotisserie/eris"
)

var (
	ErrFieldNotFound = errors.New("custom field not found")
	ErrDuplicateKey  = errors.New("a custom field with this key already exists")
)

type Service interface {
	Create(ctx context.Context, field *models.CustomField) (*models.CustomField, error)
	Update(ctx context.Context, id uint, field *models.CustomField) (*models.CustomField, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]models.CustomField, error)
	// Validate checks dispute custom values against every definition.
	Validate(ctx context.Context, values map[string]interface{}) (map[string]interface{}, error)
}

type service struct {
	repo  repositories.CustomFieldRepository
	audit audit.Recorder
}

func NewService(repo repositories.CustomFieldRepository, recorder audit.Recorder) Service {
	return &service{repo: repo, audit: recorder}
}

func check(field *models.CustomField) error {
	v := validation.New()
	v.CustomField(field)
	return v.Err()
}

func (s *service) Create(ctx context.Context, field *models.CustomField) (*models.CustomField, error) {
	if err := check(field); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, field); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateKey
		}
		return nil, eris.Wrap(err, "customfield: create")
	}
	s.audit.Record(ctx, audit.EntityCustomField, field.ID, models.AuditActionCreate, map[string]interface{}{"key": field.Key})
	return field, nil
}

func (s *service) Update(ctx context.Context, id uint, field *models.CustomField) (*models.CustomField, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, eris.Wrap(err, "customfield: load")
	}
	field.Model = existing.Model
	if err := check(field); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, field); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateKey
		}
		return nil, eris.Wrap(err, "customfield: update")
	}
	s.audit.Record(ctx, audit.EntityCustomField, id, models.AuditActionUpdate, nil)
	return field, nil
}

func (s *service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrFieldNotFound
		}
		return eris.Wrap(err, "customfield: delete")
	}
	s.audit.Record(ctx, audit.EntityCustomField, id, models.AuditActionDelete, nil)
	return nil
}

func (s *service) List(ctx context.Context) ([]models.CustomField, error) {
	fields, err := s.repo.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "customfield: list")
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Position < fields[j].Position })
	return fields, nil
}

func (s *service) Validate(ctx context.Context, values map[string]interface{}) (map[string]interface{}, error) {
	stored, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(stored))
	for i := range stored {
		f, err := FromModel(&stored[i])
		if err != nil {
			return nil, eris.Wrap(err, "customfield: load definition")
		}
		fields = append(fields, f)
	}

	out, problems := ValidateValues(fields, values)
	if len(problems) > 0 {
		return nil, &validation.Error{Fields: prefixed(problems)}
	}
	return out, nil
}

func prefixed(problems map[string]string) map[string]string {
	out := make(map[string]string, len(problems))
	for k, v := range problems {
		out["custom_values."+k] = v
	}
	return out
}
