// Package stripepull aggregates a month of Stripe charges and disputes into
// VAMP counters.
package stripepull

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"chargeback/internal/metrics"
	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/services/vamp"
	"chargeback/internal/validation"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const chargeSucceeded = "succeeded"

type Request struct {
	ProjectID   uint   `json:"project_id"`
	SecretKey   string `json:"stripe_secret_key"`
	PeriodMonth string `json:"period_month"`
	Save        bool   `json:"save"`
}

type Result struct {
	ProjectID    uint             `json:"project_id"`
	PeriodMonth  string           `json:"period_month"`
	AccountID    string           `json:"account_id"`
	MerchantName string           `json:"merchant_name"`
	TC05Count    int64            `json:"tc05_count"`
	TC05Amount   float64          `json:"tc05_amount"`
	TC15Count    int64            `json:"tc15_count"`
	TC15Amount   float64          `json:"tc15_amount"`
	Saved        bool             `json:"saved"`
	Record       *vamp.RecordView `json:"record,omitempty"`
}

type Service interface {
	Pull(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	projects repositories.ProjectRepository
	vamp     vamp.Service
	open     SourceFactory
	logger   *zap.Logger
}

// NewService builds the pull service. A nil factory uses the Stripe API.
func NewService(projects repositories.ProjectRepository, vampService vamp.Service, open SourceFactory, logger *zap.Logger) Service {
	if open == nil {
		open = NewStripeSource
	}
	return &service{projects: projects, vamp: vampService, open: open, logger: logger}
}

// PeriodBounds returns the UTC start of the month and of the next month.
func PeriodBounds(period string) (time.Time, time.Time, error) {
	if !validation.IsPeriodMonth(period) {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
	return start.UTC(), start.UTC().AddDate(0, 1, 0), nil
}

// minorToMajor converts an amount in minor currency units.
func minorToMajor(sum int64) float64 {
	return decimal.New(sum, -2).InexactFloat64()
}

func (s *service) Pull(ctx context.Context, req Request) (*Result, error) {
	period := strings.TrimSpace(req.PeriodMonth)
	from, to, err := PeriodBounds(period)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.SecretKey) == "" {
		return nil, ErrMissingKey
	}
	if req.ProjectID == 0 {
		return nil, ErrMissingProject
	}

	project, err := s.projects.FindByID(ctx, req.ProjectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, eris.Wrap(err, "stripepull: load project")
	}

	src := s.open(strings.TrimSpace(req.SecretKey))

	var (
		mu       sync.Mutex
		merchant *Merchant
		tc05     int64
		tc05Sum  int64
		tc15     int64
		tc15Sum  int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := src.Merchant(gctx)
		if err != nil {
			return err
		}
		mu.Lock()
		merchant = m
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		return src.Charges(gctx, from, to, func(c Charge) {
			if c.Status != chargeSucceeded || !c.Captured {
				return
			}
			mu.Lock()
			tc05++
			tc05Sum += c.Amount
			mu.Unlock()
		})
	})
	g.Go(func() error {
		return src.Disputes(gctx, from, to, func(d Dispute) {
			mu.Lock()
			tc15++
			tc15Sum += d.Amount
			mu.Unlock()
		})
	})
	if err := g.Wait(); err != nil {
		metrics.StripePull("error")
		var uerr *UpstreamError
		if errors.As(err, &uerr) {
			return nil, uerr
		}
		return nil, eris.Wrap(err, "stripepull: list activity")
	}

	result := &Result{
		ProjectID:    project.ID,
		PeriodMonth:  period,
		AccountID:    merchant.AccountID,
		MerchantName: merchant.DisplayName,
		TC05Count:    tc05,
		TC05Amount:   minorToMajor(tc05Sum),
		TC15Count:    tc15,
		TC15Amount:   minorToMajor(tc15Sum),
	}
	s.logger.Info("stripe activity pulled",
		zap.Uint("project_id", project.ID),
		zap.String("period", period),
		zap.Int64("tc05_count", tc05),
		zap.Int64("tc15_count", tc15))

	if req.Save {
		view, err := s.save(ctx, project, merchant, result)
		if err != nil {
			metrics.StripePull("error")
			return nil, err
		}
		result.Saved = true
		result.Record = view
	}
	metrics.StripePull("ok")
	return result, nil
}

func (s *service) save(ctx context.Context, project *models.Project, merchant *Merchant, res *Result) (*vamp.RecordView, error) {
	merchantID := project.MerchantID
	if merchantID == "" {
		merchantID = merchant.AccountID
	}
	alias := project.MerchantAlias
	if alias == "" {
		alias = merchant.DisplayName
	}
	network := project.CardNetwork
	if network == "" {
		network = vamp.NetworkVisa
	}

	projectID := project.ID
	view, _, err := s.vamp.Upsert(ctx, &models.VampRecord{
		ProjectID:     &projectID,
		MerchantID:    merchantID,
		MerchantAlias: alias,
		PeriodMonth:   res.PeriodMonth,
		CardNetwork:   network,
		TC05Count:     res.TC05Count,
		TC05Amount:    res.TC05Amount,
		TC15Count:     res.TC15Count,
		TC15Amount:    res.TC15Amount,
		Source:        models.VampSourceAPIImport,
	})
	if err != nil {
		return nil, eris.Wrap(err, "stripepull: save vamp record")
	}
	return view, nil
}
