package report

import (
	"testing"
	"time"

	"chargeback/internal/models"

	"github.com/stretchr/testify/assert"
)

func usd(v float64) *float64 { return &v }

func sampleDisputes() []models.Dispute {
	created := models.Dispute{CaseID: "CB-5", Processor: "Adyen", Amount: 70, Status: models.DisputeStatusWon}
	created.CreatedAt = time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)

	return []models.Dispute{
		{CaseID: "CB-1", Processor: "Stripe", ChargebackDate: "2024-01-15", Amount: 100, Status: models.DisputeStatusWon, RecoveredAmount: 100},
		{CaseID: "CB-2", Processor: "Stripe", ChargebackDate: "2024-01-20", Amount: 200, Currency: "EUR", AmountUSD: usd(220), Status: models.DisputeStatusLost},
		{CaseID: "CB-3", Processor: "Adyen", ChargebackDate: "2024-04-02", Amount: 50, Status: models.DisputeStatusNew},
		{CaseID: "CB-4", ChargebackDate: "not a date", Amount: 30, Status: models.DisputeStatusWon},
		created,
	}
}

func TestAggregate_Calendar(t *testing.T) {
	records := sampleDisputes()

	assert.Equal(t, []AggregationRow{
		{GroupKey: "2024-01", Value: 2, Count: 2},
		{GroupKey: "2024-02", Value: 1, Count: 1},
		{GroupKey: "2024-04", Value: 1, Count: 1},
	}, Aggregate(records, MetricVolume, GroupMonth))

	assert.Equal(t, []AggregationRow{
		{GroupKey: "2024-Q1", Value: 3, Count: 3},
		{GroupKey: "2024-Q2", Value: 1, Count: 1},
	}, Aggregate(records, MetricVolume, GroupQuarter))

	assert.Equal(t, []AggregationRow{
		{GroupKey: "2024", Value: 4, Count: 4},
	}, Aggregate(records, MetricVolume, GroupYear))

	won := Aggregate(records, MetricWonAmount, GroupMonth)
	assert.Equal(t, 100.0, won[0].Value)
	recovered := Aggregate(records, MetricRecoveredAmount, GroupMonth)
	assert.Equal(t, 100.0, recovered[0].Value)
}

func TestAggregate_Categorical(t *testing.T) {
	records := sampleDisputes()

	volume := Aggregate(records, MetricVolume, GroupProcessor)
	assert.Equal(t, []AggregationRow{
		{GroupKey: "Adyen", Value: 2, Count: 2},
		{GroupKey: "Stripe", Value: 2, Count: 2},
		{GroupKey: UnknownKey, Value: 1, Count: 1},
	}, volume)

	amount := Aggregate(records, MetricAmount, GroupProcessor)
	assert.Equal(t, 0.12, amount[0].Value)
	assert.Equal(t, 0.32, amount[1].Value)
	assert.Equal(t, 0.03, amount[2].Value)

	winRate := Aggregate(records, MetricWinRate, GroupProcessor)
	assert.Equal(t, 100.0, winRate[0].Value)
	assert.Equal(t, 50.0, winRate[1].Value)

	winRateAmount := Aggregate(records, MetricWinRateAmount, GroupProcessor)
	assert.Equal(t, 31.25, winRateAmount[1].Value)
}

func TestAggregate_DivisionByZero(t *testing.T) {
	records := []models.Dispute{
		{CaseID: "CB-1", Processor: "Stripe", Amount: 0, Status: models.DisputeStatusNew},
	}
	assert.Equal(t, 0.0, Aggregate(records, MetricWinRate, GroupProcessor)[0].Value)
	assert.Equal(t, 0.0, Aggregate(records, MetricWinRateAmount, GroupProcessor)[0].Value)
}

func TestAggregate_EmptyAndUnknown(t *testing.T) {
	rows := Aggregate(nil, MetricVolume, GroupMonth)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	assert.Empty(t, Aggregate(sampleDisputes(), "median", GroupMonth))
	assert.Empty(t, Aggregate(sampleDisputes(), MetricVolume, "week"))
}

func TestValidMetricAndGroupBy(t *testing.T) {
	for _, m := range []string{
		MetricVolume, MetricAmount, MetricWinRate,
		MetricWinRateAmount, MetricWonAmount, MetricRecoveredAmount,
	} {
		assert.True(t, ValidMetric(m), m)
		assert.NotEmpty(t, Aggregate(sampleDisputes(), m, GroupProcessor), m)
	}
	assert.False(t, ValidMetric("median"))
	assert.False(t, ValidMetric(""))

	assert.True(t, ValidGroupBy(GroupQuarter))
	assert.True(t, ValidGroupBy(GroupMerchant))
	assert.False(t, ValidGroupBy("week"))
}

func TestAggregate_Idempotent(t *testing.T) {
	records := sampleDisputes()
	for _, groupBy := range []string{GroupMonth, GroupProcessor, GroupStatus} {
		first := Aggregate(records, MetricAmount, groupBy)
		second := Aggregate(records, MetricAmount, groupBy)
		assert.Equal(t, first, second, groupBy)
	}
}

func TestEffectiveDate(t *testing.T) {
	got, ok := EffectiveDate(&models.Dispute{ChargebackDate: "03/15/2024"})
	assert.True(t, ok)
	assert.Equal(t, "2024-03", CalendarKey(got, GroupMonth))

	_, ok = EffectiveDate(&models.Dispute{})
	assert.False(t, ok)
}

func TestCalendarKey(t *testing.T) {
	ts := time.Date(2023, 11, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2023-11", CalendarKey(ts, GroupMonth))
	assert.Equal(t, "2023-Q4", CalendarKey(ts, GroupQuarter))
	assert.Equal(t, "2023", CalendarKey(ts, GroupYear))
}
