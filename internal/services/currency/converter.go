// Package currency converts dispute amounts to USD using an external FX
// rate provider.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chargeback/internal/clock"
	"chargeback/internal/metrics"
	"chargeback/internal/repositories/cache"
	"chargeback/internal/validation"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Target is the currency every amount is converted to.
const Target = "USD"

const latestTTL = time.Hour

// Cache is the subset of the cache service the converter uses.
type Cache interface {
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
}

type Request struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date,omitempty"`
}

type Result struct {
	USDAmount float64 `json:"usd_amount"`
	Rate      float64 `json:"rate"`
	Currency  string  `json:"currency"`
	Date      string  `json:"date"`
}

// Converter converts amounts to USD.
type Converter interface {
	Convert(ctx context.Context, req Request) (*Result, error)
}

type Options struct {
	BaseURL       string
	RatePerSecond float64
	Timeout       time.Duration
	HistoricalTTL time.Duration
	HTTPClient    *http.Client
	Clock         clock.Clock
}

type rateQuote struct {
	Rate float64 `json:"rate"`
	Date string  `json:"date"`
}

// providerResponse is the body of a rate lookup.
type providerResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

type converter struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   Cache
	ttl     time.Duration
	clock   clock.Clock
	logger  *zap.Logger
}

// NewConverter builds a converter backed by the provider at opts.BaseURL.
// c may be nil.
func NewConverter(opts Options, c Cache, logger *zap.Logger) Converter {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 5
	}
	if opts.HistoricalTTL == 0 {
		opts.HistoricalTTL = 24 * time.Hour
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &converter{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  opts.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		cache:   c,
		ttl:     opts.HistoricalTTL,
		clock:   opts.Clock,
		logger:  logger,
	}
}

func (c *converter) Convert(ctx context.Context, req Request) (*Result, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Currency))
	if !validation.IsCurrency(code) {
		return nil, ErrInvalidCurrency
	}
	date := strings.TrimSpace(req.Date)
	if date != "" {
		if _, err := time.Parse(validation.DateLayout, date); err != nil {
			return nil, ErrInvalidDate
		}
	}

	if code == Target {
		if date == "" {
			date = c.clock.Now().UTC().Format(validation.DateLayout)
		}
		return result(code, req.Amount, rateQuote{Rate: 1, Date: date}), nil
	}

	quote, err := c.quote(ctx, code, date)
	if err != nil {
		return nil, err
	}
	return result(code, req.Amount, *quote), nil
}

func result(code string, amount float64, q rateQuote) *Result {
	usd := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(q.Rate)).Round(2)
	return &Result{
		USDAmount: usd.InexactFloat64(),
		Rate:      q.Rate,
		Currency:  code,
		Date:      q.Date,
	}
}

// quote returns the rate for code on date, falling back to the provider's
// latest rate when the historical lookup fails.
func (c *converter) quote(ctx context.Context, code, date string) (*rateQuote, error) {
	if date != "" {
		key := cache.GenerateKey("fx", code, date)
		if q, ok := c.cached(ctx, key); ok {
			metrics.FXLookup("cache", "hit")
			return q, nil
		}

		q, err := c.fetch(ctx, date, code)
		if err == nil {
			metrics.FXLookup("historical", "ok")
			c.store(ctx, key, q, c.ttl)
			return q, nil
		}
		metrics.FXLookup("historical", "error")
		c.logger.Warn("historical rate lookup failed, using latest",
			zap.String("currency", code), zap.String("date", date), zap.Error(err))
	}

	key := cache.GenerateKey("fx", code, "latest")
	if q, ok := c.cached(ctx, key); ok {
		metrics.FXLookup("cache", "hit")
		return q, nil
	}
	q, err := c.fetch(ctx, "latest", code)
	if err != nil {
		metrics.FXLookup("latest", "error")
		if errors.Is(err, ErrRateUnavailable) {
			return nil, ErrRateUnavailable
		}
		return nil, err
	}
	metrics.FXLookup("latest", "ok")
	c.store(ctx, key, q, latestTTL)
	return q, nil
}

func (c *converter) cached(ctx context.Context, key string) (*rateQuote, bool) {
	if c.cache == nil {
		return nil, false
	}
	var q rateQuote
	found, err := c.cache.Get(ctx, key, &q)
	if err != nil {
		c.logger.Warn("fx cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &q, found
}

func (c *converter) store(ctx context.Context, key string, q *rateQuote, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetWithTTL(ctx, key, q, ttl); err != nil {
		c.logger.Warn("fx cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// fetch asks the provider for the code→USD rate at path ("latest" or a date).
func (c *converter) fetch(ctx context.Context, path, code string) (*rateQuote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "currency: rate limiter")
	}

	u := fmt.Sprintf("%s/%s?from=%s&to=%s", c.baseURL, url.PathEscape(path), url.QueryEscape(code), Target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "currency: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "currency: fetch %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, eris.Wrapf(ErrRateUnavailable, "currency: provider returned %d for %s", resp.StatusCode, path)
	}

	var body providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "currency: decode provider response")
	}
	r, ok := body.Rates[Target]
	if !ok || r <= 0 {
		return nil, eris.Wrapf(ErrRateUnavailable, "currency: no %s rate for %s", Target, code)
	}

	date := body.Date
	if date == "" && path != "latest" {
		date = path
	}
	return &rateQuote{Rate: r, Date: date}, nil
}
