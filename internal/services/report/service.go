package report

import (
	"context"
	"time"

	"chargeback/internal/clock"
	"chargeback/internal/metrics"
	"chargeback/internal/models"
	"chargeback/internal/repositories"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DashboardCacheKey is where the latest dashboard snapshot is cached.
const DashboardCacheKey = "reports:dashboard"

// Cache is the subset of the cache service reports use.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
}

// Totals are portfolio-wide figures over all disputes.
type Totals struct {
	Disputes        int     `json:"disputes"`
	Open            int     `json:"open"`
	Amount          float64 `json:"amount"`
	WonAmount       float64 `json:"won_amount"`
	RecoveredAmount float64 `json:"recovered_amount"`
	WinRate         float64 `json:"win_rate"`
}

// Dashboard is the precomputed reports overview.
type Dashboard struct {
	GeneratedAt      time.Time        `json:"generated_at"`
	Totals           Totals           `json:"totals"`
	VolumeByMonth    []AggregationRow `json:"volume_by_month"`
	AmountByMonth    []AggregationRow `json:"amount_by_month"`
	WinRateByMonth   []AggregationRow `json:"win_rate_by_month"`
	ByProcessor      []AggregationRow `json:"by_processor"`
	ByReasonCategory []AggregationRow `json:"by_reason_category"`
	ByStatus         []AggregationRow `json:"by_status"`
	Anomalies        []Anomaly        `json:"anomalies"`
}

type Service interface {
	Aggregate(ctx context.Context, filter models.DisputeFilter, metric, groupBy string) ([]AggregationRow, error)
	Anomalies(ctx context.Context, filter models.DisputeFilter) ([]Anomaly, error)
	// Dashboard returns the cached snapshot when present, computing and
	// caching a new one otherwise.
	Dashboard(ctx context.Context) (*Dashboard, error)
	RefreshDashboard(ctx context.Context) (*Dashboard, error)
}

type service struct {
	disputes  repositories.DisputeRepository
	cache     Cache
	clock     clock.Clock
	threshold float64
	logger    *zap.Logger
}

// NewService builds the report service. cache may be nil.
func NewService(disputes repositories.DisputeRepository, cache Cache, clk clock.Clock, threshold float64, logger *zap.Logger) Service {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &service{
		disputes:  disputes,
		cache:     cache,
		clock:     clk,
		threshold: threshold,
		logger:    logger,
	}
}

func (s *service) load(ctx context.Context, filter models.DisputeFilter) ([]models.Dispute, error) {
	filter.Limit, filter.Offset = 0, 0
	records, _, err := s.disputes.List(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "report: load disputes")
	}
	return records, nil
}

func (s *service) Aggregate(ctx context.Context, filter models.DisputeFilter, metric, groupBy string) ([]AggregationRow, error) {
	if !ValidMetric(metric) {
		return nil, ErrUnknownMetric
	}
	if !ValidGroupBy(groupBy) {
		return nil, ErrUnknownGroupBy
	}

	defer metrics.ObserveReport("aggregate", time.Now())
	records, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	metrics.ReportRun(metric, groupBy)
	return Aggregate(records, metric, groupBy), nil
}

func (s *service) Anomalies(ctx context.Context, filter models.DisputeFilter) ([]Anomaly, error) {
	records, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	return AnalyzeTrailing(records, s.clock.Now(), s.threshold), nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s.cache != nil {
		var cached Dashboard
		found, err := s.cache.Get(ctx, DashboardCacheKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if found {
			return &cached, nil
		}
	}
	return s.RefreshDashboard(ctx)
}

func (s *service) RefreshDashboard(ctx context.Context) (*Dashboard, error) {
	defer metrics.ObserveReport("dashboard", time.Now())

	records, err := s.load(ctx, models.DisputeFilter{})
	if err != nil {
		return nil, err
	}
	dash := BuildDashboard(records, s.clock.Now(), s.threshold)

	if s.cache != nil {
		if err := s.cache.Set(ctx, DashboardCacheKey, dash); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return dash, nil
}

// BuildDashboard computes a dashboard snapshot from records.
func BuildDashboard(records []models.Dispute, now time.Time, threshold float64) *Dashboard {
	dash := &Dashboard{
		GeneratedAt:      now.UTC(),
		VolumeByMonth:    Aggregate(records, MetricVolume, GroupMonth),
		AmountByMonth:    Aggregate(records, MetricAmount, GroupMonth),
		WinRateByMonth:   Aggregate(records, MetricWinRate, GroupMonth),
		ByProcessor:      Aggregate(records, MetricVolume, GroupProcessor),
		ByReasonCategory: Aggregate(records, MetricVolume, GroupReasonCategory),
		ByStatus:         Aggregate(records, MetricVolume, GroupStatus),
		Anomalies:        AnalyzeTrailing(records, now, threshold),
	}

	var all bucket
	for i := range records {
		all.add(&records[i])
		if !records[i].IsTerminal() {
			dash.Totals.Open++
		}
	}
	dash.Totals.Disputes = all.count
	dash.Totals.Amount = all.amount.Round(2).InexactFloat64()
	dash.Totals.WonAmount = all.wonAmount.Round(2).InexactFloat64()
	dash.Totals.RecoveredAmount = all.recovered.Round(2).InexactFloat64()
	dash.Totals.WinRate = all.value(MetricWinRate).Round(2).InexactFloat64()
	return dash
}
