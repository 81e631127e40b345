// Package dispute manages chargeback cases and bulk status updates.
package dispute

import (
	"context"
	"errors"
	"strings"
	"time"

	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/services/audit"
	"chargeback/internal/services/currency"
	"chargeback/internal/validation"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FieldValidator checks custom values against the configured fields.
type FieldValidator interface {
	Validate(ctx context.Context, values map[string]interface{}) (map[string]interface{}, error)
}

type Service struct {
	repo      repositories.DisputeRepository
	fields    FieldValidator
	converter currency.Converter
	audit     audit.Recorder
	logger    *zap.Logger
}

// NewService builds the dispute service. fields and converter may be nil,
// which disables custom value checks and USD normalization.
func NewService(
	repo repositories.DisputeRepository,
	fields FieldValidator,
	converter currency.Converter,
	recorder audit.Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		fields:    fields,
		converter: converter,
		audit:     recorder,
		logger:    logger,
	}
}

func (s *Service) prepare(ctx context.Context, d *models.Dispute) error {
	d.CaseID = strings.TrimSpace(d.CaseID)
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	if d.Currency == "" {
		d.Currency = currency.Target
	}
	if d.Status == "" {
		d.Status = models.DisputeStatusNew
	}

	v := validation.New()
	v.Dispute(d)
	if err := v.Err(); err != nil {
		return err
	}

	if s.fields != nil {
		values, err := s.fields.Validate(ctx, d.CustomValues)
		if err != nil {
			return err
		}
		d.CustomValues = models.JSON(values)
	}

	s.normalizeUSD(ctx, d)
	return nil
}

// normalizeUSD fills AmountUSD for non-USD disputes. Conversion failures
// leave it empty.
func (s *Service) normalizeUSD(ctx context.Context, d *models.Dispute) {
	if d.AmountUSD != nil || d.Currency == currency.Target || s.converter == nil {
		return
	}

	date := ""
	if _, err := time.Parse(validation.DateLayout, d.ChargebackDate); err == nil {
		date = d.ChargebackDate
	}
	res, err := s.converter.Convert(ctx, currency.Request{Currency: d.Currency, Amount: d.Amount, Date: date})
	if err != nil {
		s.logger.Warn("usd normalization failed",
			zap.String("case_id", d.CaseID),
			zap.String("currency", d.Currency),
			zap.Error(err))
		return
	}
	d.AmountUSD = &res.USDAmount
}

func (s *Service) Create(ctx context.Context, d *models.Dispute) (*models.Dispute, error) {
	if err := s.prepare(ctx, d); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateCase
		}
		return nil, eris.Wrap(err, "dispute: create")
	}

	s.audit.Record(ctx, audit.EntityDispute, d.ID, models.AuditActionCreate, map[string]interface{}{
		"case_id": d.CaseID,
		"amount":  d.Amount,
	})
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Dispute, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrDisputeNotFound
		}
		return nil, eris.Wrap(err, "dispute: get")
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, filter models.DisputeFilter) ([]models.Dispute, int64, error) {
	disputes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, eris.Wrap(err, "dispute: list")
	}
	return disputes, total, nil
}

func (s *Service) Update(ctx context.Context, id uint, d *models.Dispute) (*models.Dispute, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Model = existing.Model
	if err := s.prepare(ctx, d); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, d); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateCase
		}
		return nil, eris.Wrap(err, "dispute: update")
	}

	details := map[string]interface{}{}
	if existing.Status != d.Status {
		details["status_from"] = existing.Status
		details["status_to"] = d.Status
	}
	s.audit.Record(ctx, audit.EntityDispute, id, models.AuditActionUpdate, details)
	return d, nil
}

// StatusPatch is a status change with its optional companions.
type StatusPatch struct {
	Status         string `json:"status"`
	ResolutionDate string `json:"resolution_date"`
	Notes          string `json:"notes"`
}

func (p StatusPatch) fields() map[string]interface{} {
	fields := map[string]interface{}{"status": p.Status}
	if p.ResolutionDate != "" {
		fields["resolution_date"] = p.ResolutionDate
	}
	if p.Notes != "" {
		fields["notes"] = p.Notes
	}
	return fields
}

// PatchStatus updates only the status columns of one dispute.
func (s *Service) PatchStatus(ctx context.Context, id uint, patch StatusPatch) (*models.Dispute, error) {
	patch.Status = strings.ToLower(strings.TrimSpace(patch.Status))
	v := validation.New()
	v.Required("status", patch.Status)
	v.OneOf("status", patch.Status, validation.DisputeStatuses...)
	v.Date("resolution_date", patch.ResolutionDate)
	if err := v.Err(); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Patch(ctx, id, patch.fields()); err != nil {
		return nil, eris.Wrap(err, "dispute: patch status")
	}

	s.audit.Record(ctx, audit.EntityDispute, id, models.AuditActionStatusChange, map[string]interface{}{
		"from": existing.Status,
		"to":   patch.Status,
	})
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrDisputeNotFound
		}
		return eris.Wrap(err, "dispute: delete")
	}
	s.audit.Record(ctx, audit.EntityDispute, id, models.AuditActionDelete, nil)
	return nil
}
