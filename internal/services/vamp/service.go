package vamp

import (
	"context"
	"errors"
	"io"
	"strings"

	"chargeback/internal/config"
	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/services/audit"
	"chargeback/internal/validation"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RecordView is a stored record together with its derived ratios.
type RecordView struct {
	models.VampRecord
	Ratios
}

// Summary counts records per risk tier.
type Summary struct {
	Total     int            `json:"total"`
	ByRisk    map[string]int `json:"by_risk"`
	Excessive []RecordView   `json:"excessive"`
}

// Service manages VAMP period records. Ratios are computed on every read.
type Service interface {
	Create(ctx context.Context, record *models.VampRecord) (*RecordView, error)
	Get(ctx context.Context, id uint) (*RecordView, error)
	Update(ctx context.Context, id uint, record *models.VampRecord) (*RecordView, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter models.VampFilter) ([]RecordView, error)
	Summary(ctx context.Context, filter models.VampFilter) (*Summary, error)
	Export(ctx context.Context, w io.Writer, filter models.VampFilter) error
	// Upsert creates or replaces the record keyed by merchant, period and
	// network. It reports whether a new record was created.
	Upsert(ctx context.Context, record *models.VampRecord) (*RecordView, bool, error)
	Thresholds() ThresholdTable
}

type service struct {
	repo   repositories.VampRepository
	audit  audit.Recorder
	table  ThresholdTable
	logger *zap.Logger
}

func NewService(repo repositories.VampRepository, recorder audit.Recorder, table ThresholdTable, logger *zap.Logger) Service {
	if table == nil {
		table = DefaultThresholds()
	}
	return &service{repo: repo, audit: recorder, table: table, logger: logger}
}

// ThresholdsFromConfig applies non-zero config overrides to the defaults.
func ThresholdsFromConfig(cfg config.Config) ThresholdTable {
	table := DefaultThresholds()
	override := func(network string, standard, excessive float64) {
		th := table[network]
		if standard > 0 {
			th.Standard = standard
		}
		if excessive > 0 {
			th.Excessive = excessive
		}
		table[network] = th
	}
	override(NetworkVisa, cfg.VisaStandard, cfg.VisaExcessive)
	override(NetworkMastercard, cfg.MastercardStandard, cfg.MastercardExcessive)
	return table
}

func (s *service) Thresholds() ThresholdTable {
	return s.table
}

func (s *service) view(r models.VampRecord) RecordView {
	return RecordView{VampRecord: r, Ratios: Compute(&r, s.table)}
}

func normalize(r *models.VampRecord) {
	r.MerchantID = strings.TrimSpace(r.MerchantID)
	r.CardNetwork = strings.TrimSpace(r.CardNetwork)
	r.PeriodMonth = strings.TrimSpace(r.PeriodMonth)
	if r.Source == "" {
		r.Source = models.VampSourceManual
	}
}

func (s *service) Create(ctx context.Context, record *models.VampRecord) (*RecordView, error) {
	normalize(record)
	v := validation.New()
	v.VampRecord(record)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicatePeriod
		}
		return nil, eris.Wrap(err, "vamp: create record")
	}
	s.audit.Record(ctx, audit.EntityVamp, record.ID, models.AuditActionCreate, map[string]interface{}{
		"merchant_id": record.MerchantID,
		"period":      record.PeriodMonth,
		"network":     record.CardNetwork,
	})

	view := s.view(*record)
	return &view, nil
}

func (s *service) Get(ctx context.Context, id uint) (*RecordView, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, eris.Wrap(err, "vamp: get record")
	}
	view := s.view(*record)
	return &view, nil
}

func (s *service) Update(ctx context.Context, id uint, record *models.VampRecord) (*RecordView, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, eris.Wrap(err, "vamp: load record")
	}

	normalize(record)
	record.Model = existing.Model
	v := validation.New()
	v.VampRecord(record)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicatePeriod
		}
		return nil, eris.Wrap(err, "vamp: update record")
	}
	s.audit.Record(ctx, audit.EntityVamp, id, models.AuditActionUpdate, nil)

	view := s.view(*record)
	return &view, nil
}

func (s *service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrRecordNotFound
		}
		return eris.Wrap(err, "vamp: delete record")
	}
	s.audit.Record(ctx, audit.EntityVamp, id, models.AuditActionDelete, nil)
	return nil
}

func (s *service) List(ctx context.Context, filter models.VampFilter) ([]RecordView, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "vamp: list records")
	}

	views := make([]RecordView, 0, len(records))
	for _, r := range records {
		views = append(views, s.view(r))
	}
	return views, nil
}

func (s *service) Summary(ctx context.Context, filter models.VampFilter) (*Summary, error) {
	views, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Total: len(views),
		ByRisk: map[string]int{
			RiskUnknown:   0,
			RiskHealthy:   0,
			RiskStandard:  0,
			RiskExcessive: 0,
		},
		Excessive: []RecordView{},
	}
	for _, v := range views {
		summary.ByRisk[v.Risk]++
		if v.Risk == RiskExcessive {
			summary.Excessive = append(summary.Excessive, v)
		}
	}
	return summary, nil
}

func (s *service) Export(ctx context.Context, w io.Writer, filter models.VampFilter) error {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return eris.Wrap(err, "vamp: list records for export")
	}
	return ExportCSV(w, records, s.table)
}

func (s *service) Upsert(ctx context.Context, record *models.VampRecord) (*RecordView, bool, error) {
	normalize(record)
	v := validation.New()
	v.VampRecord(record)
	if err := v.Err(); err != nil {
		return nil, false, err
	}

	existing, err := s.repo.FindByPeriod(ctx, record.MerchantID, record.PeriodMonth, record.CardNetwork)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		view, err := s.Create(ctx, record)
		if err != nil {
			return nil, false, err
		}
		return view, true, nil
	case err != nil:
		return nil, false, eris.Wrap(err, "vamp: look up period")
	}

	// Counters the upstream pull does not report are kept.
	if record.TC40Count == 0 && record.TC40Amount == 0 {
		record.TC40Count = existing.TC40Count
		record.TC40Amount = existing.TC40Amount
	}
	if record.CE30Count == 0 {
		record.CE30Count = existing.CE30Count
	}
	if record.MerchantAlias == "" {
		record.MerchantAlias = existing.MerchantAlias
	}
	if record.ProjectID == nil {
		record.ProjectID = existing.ProjectID
	}

	view, err := s.Update(ctx, existing.ID, record)
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("vamp record replaced",
		zap.String("merchant_id", record.MerchantID),
		zap.String("period", record.PeriodMonth),
		zap.String("source", record.Source))
	return view, false, nil
}
