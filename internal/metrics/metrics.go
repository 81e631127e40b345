// Package metrics holds the Prometheus instruments exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chargeback"

var (
	reportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_runs_total",
		Help:      "Report aggregations computed, by metric and grouping.",
	}, []string{"metric", "group_by"})

	reportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "report_duration_seconds",
		Help:      "Time spent building reports.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"report"})

	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_import_rows_total",
		Help:      "Bulk status import rows by outcome.",
	}, []string{"outcome"})

	fxLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fx_lookups_total",
		Help:      "Currency rate lookups by source (cache, historical, latest) and result.",
	}, []string{"source", "result"})

	overdueTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workflow_overdue_transitions_total",
		Help:      "Pending workflow tasks moved to overdue.",
	})

	stripePulls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stripe_pulls_total",
		Help:      "Stripe VAMP data pulls by result.",
	}, []string{"result"})
)

func ReportRun(metric, groupBy string) {
	reportRuns.WithLabelValues(metric, groupBy).Inc()
}

// ObserveReport records how long the named report took since start.
func ObserveReport(report string, start time.Time) {
	reportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

func ImportRow(outcome string) {
	importRows.WithLabelValues(outcome).Inc()
}

func FXLookup(source, result string) {
	fxLookups.WithLabelValues(source, result).Inc()
}

func OverdueTransitions(n int64) {
	if n > 0 {
		overdueTransitions.Add(float64(n))
	}
}

func StripePull(result string) {
	stripePulls.WithLabelValues(result).Inc()
}
