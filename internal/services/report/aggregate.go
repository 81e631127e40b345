// Package report aggregates disputes into grouped metrics and flags
// anomalous months.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"chargeback/internal/models"

	"github.com/shopspring/decimal"
)

// Metrics
const (
	MetricVolume          = "volume"
	MetricAmount          = "amount"
	MetricWinRate         = "win_rate"
	MetricWinRateAmount   = "win_rate_amount"
	MetricWonAmount       = "won_amount"
	MetricRecoveredAmount = "recovered_amount"
)

// Calendar groupings
const (
	GroupMonth   = "month"
	GroupQuarter = "quarter"
	GroupYear    = "year"
)

// Categorical groupings
const (
	GroupProcessor      = "processor"
	GroupCardNetwork    = "card_network"
	GroupCardType       = "card_type"
	GroupReasonCategory = "reason_category"
	GroupBusinessUnit   = "business_unit"
	GroupStatus         = "status"
	GroupCurrency       = "currency"
	GroupMerchant       = "merchant_id"
)

// UnknownKey labels records with an empty categorical field.
const UnknownKey = "Unknown"

var metricNames = []string{
	MetricVolume, MetricAmount, MetricWinRate,
	MetricWinRateAmount, MetricWonAmount, MetricRecoveredAmount,
}

var categorical = map[string]func(*models.Dispute) string{
	GroupProcessor:      func(d *models.Dispute) string { return d.Processor },
	GroupCardNetwork:    func(d *models.Dispute) string { return d.CardNetwork },
	GroupCardType:       func(d *models.Dispute) string { return d.CardType },
	GroupReasonCategory: func(d *models.Dispute) string { return d.ReasonCategory },
	GroupBusinessUnit:   func(d *models.Dispute) string { return d.BusinessUnit },
	GroupStatus:         func(d *models.Dispute) string { return d.Status },
	GroupCurrency:       func(d *models.Dispute) string { return d.Currency },
	GroupMerchant:       func(d *models.Dispute) string { return d.MerchantID },
}

// dateLayouts are tried in order when parsing a chargeback date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// AggregationRow is one group of a report.
type AggregationRow struct {
	GroupKey string  `json:"group_key"`
	Value    float64 `json:"value"`
	Count    int     `json:"count"`
}

func ValidMetric(metric string) bool {
	for _, m := range metricNames {
		if m == metric {
			return true
		}
	}
	return false
}

func ValidGroupBy(groupBy string) bool {
	if isCalendar(groupBy) {
		return true
	}
	_, ok := categorical[groupBy]
	return ok
}

func isCalendar(groupBy string) bool {
	return groupBy == GroupMonth || groupBy == GroupQuarter || groupBy == GroupYear
}

// EffectiveDate returns the chargeback date, or the creation time when the
// dispute has none. ok is false when neither yields a date.
func EffectiveDate(d *models.Dispute) (time.Time, bool) {
	raw := strings.TrimSpace(d.ChargebackDate)
	if raw == "" {
		if d.CreatedAt.IsZero() {
			return time.Time{}, false
		}
		return d.CreatedAt.UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// CalendarKey formats t for a calendar grouping.
func CalendarKey(t time.Time, groupBy string) string {
	switch groupBy {
	case GroupQuarter:
		return fmt.Sprintf("%04d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case GroupYear:
		return fmt.Sprintf("%04d", t.Year())
	default:
		return t.Format("2006-01")
	}
}

// groupKey returns the key of d under groupBy; ok is false when d drops out
// of the grouping.
func groupKey(d *models.Dispute, groupBy string) (string, bool) {
	if isCalendar(groupBy) {
		t, ok := EffectiveDate(d)
		if !ok {
			return "", false
		}
		return CalendarKey(t, groupBy), true
	}
	field, ok := categorical[groupBy]
	if !ok {
		return "", false
	}
	key := strings.TrimSpace(field(d))
	if key == "" {
		key = UnknownKey
	}
	return key, true
}

type bucket struct {
	count     int
	won       int
	lost      int
	amount    decimal.Decimal
	wonAmount decimal.Decimal
	recovered decimal.Decimal
}

func (b *bucket) add(d *models.Dispute) {
	amount := decimal.NewFromFloat(d.EffectiveAmount())
	b.count++
	b.amount = b.amount.Add(amount)
	b.recovered = b.recovered.Add(decimal.NewFromFloat(d.RecoveredAmount))
	switch d.Status {
	case models.DisputeStatusWon:
		b.won++
		b.wonAmount = b.wonAmount.Add(amount)
	case models.DisputeStatusLost:
		b.lost++
	}
}

var hundred = decimal.NewFromInt(100)

func (b *bucket) value(metric string) decimal.Decimal {
	switch metric {
	case MetricVolume:
		return decimal.NewFromInt(int64(b.count))
	case MetricAmount:
		return b.amount.Div(decimal.NewFromInt(1000))
	case MetricWinRate:
		resolved := b.won + b.lost
		if resolved == 0 {
			return decimal.Zero
		}
		return decimal.NewFromInt(int64(b.won)).Mul(hundred).Div(decimal.NewFromInt(int64(resolved)))
	case MetricWinRateAmount:
		if b.amount.IsZero() {
			return decimal.Zero
		}
		return b.wonAmount.Mul(hundred).Div(b.amount)
	case MetricWonAmount:
		return b.wonAmount
	case MetricRecoveredAmount:
		return b.recovered
	}
	return decimal.Zero
}

// groupBuckets accumulates records per group key.
func groupBuckets(records []models.Dispute, groupBy string) map[string]*bucket {
	buckets := make(map[string]*bucket)
	for i := range records {
		key, ok := groupKey(&records[i], groupBy)
		if !ok {
			continue
		}
		b, exists := buckets[key]
		if !exists {
			b = &bucket{}
			buckets[key] = b
		}
		b.add(&records[i])
	}
	return buckets
}

// Aggregate groups records by groupBy and evaluates metric per group.
// Values are rounded to two decimals. Calendar groups are returned in
// chronological order; categorical groups by descending count, then key.
// An unknown metric or grouping yields no rows.
func Aggregate(records []models.Dispute, metric, groupBy string) []AggregationRow {
	rows := []AggregationRow{}
	if !ValidMetric(metric) || !ValidGroupBy(groupBy) {
		return rows
	}

	for key, b := range groupBuckets(records, groupBy) {
		rows = append(rows, AggregationRow{
			GroupKey: key,
			Value:    b.value(metric).Round(2).InexactFloat64(),
			Count:    b.count,
		})
	}

	if isCalendar(groupBy) {
		sort.Slice(rows, func(i, j int) bool { return rows[i].GroupKey < rows[j].GroupKey })
	} else {
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Count != rows[j].Count {
				return rows[i].Count > rows[j].Count
			}
			return rows[i].GroupKey < rows[j].GroupKey
		})
	}
	return rows
}
