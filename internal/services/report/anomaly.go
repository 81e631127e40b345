package report

import (
	"math"
	"time"

	"chargeback/internal/models"
)

// DefaultAnomalyThreshold is the z-score above which a value is flagged.
const DefaultAnomalyThreshold = 1.8

// TrailingMonths is the width of the anomaly window.
const TrailingMonths = 12

const minAnomalySamples = 3

// Anomaly kinds
const (
	KindSpike = "spike"
	KindDrop  = "drop"
)

// Anomaly is one flagged month of one metric.
type Anomaly struct {
	Month  string  `json:"month"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Mean   float64 `json:"mean"`
	ZScore float64 `json:"z_score"`
	Kind   string  `json:"kind"`
}

// meanStd returns the population mean and standard deviation of values.
func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// DetectAnomalies flags each value whose population z-score exceeds
// threshold. Fewer than three values, or a constant series, flag nothing.
func DetectAnomalies(values []float64, threshold float64) []bool {
	flags := make([]bool, len(values))
	if len(values) < minAnomalySamples {
		return flags
	}

	mean, std := meanStd(values)
	if std == 0 {
		return flags
	}
	for i, v := range values {
		flags[i] = math.Abs(v-mean)/std > threshold
	}
	return flags
}

// TrailingWindow returns the TrailingMonths month keys ending at now's month,
// oldest first.
func TrailingWindow(now time.Time) []string {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]string, TrailingMonths)
	for i := 0; i < TrailingMonths; i++ {
		months[i] = first.AddDate(0, i-(TrailingMonths-1), 0).Format("2006-01")
	}
	return months
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AnalyzeTrailing evaluates volume, amount and win rate over the trailing
// window independently. Months without disputes count as zero. Scores are
// computed on unrounded monthly values; only the reported figures are rounded.
func AnalyzeTrailing(records []models.Dispute, now time.Time, threshold float64) []Anomaly {
	months := TrailingWindow(now)
	anomalies := []Anomaly{}
	buckets := groupBuckets(records, GroupMonth)

	for _, metric := range []string{MetricVolume, MetricAmount, MetricWinRate} {
		values := make([]float64, len(months))
		for i, m := range months {
			if b, ok := buckets[m]; ok {
				values[i] = b.value(metric).InexactFloat64()
			}
		}

		flags := DetectAnomalies(values, threshold)
		mean, std := meanStd(values)
		for i, flagged := range flags {
			if !flagged {
				continue
			}
			kind := KindSpike
			if values[i] < mean {
				kind = KindDrop
			}
			anomalies = append(anomalies, Anomaly{
				Month:  months[i],
				Metric: metric,
				Value:  round2(values[i]),
				Mean:   round2(mean),
				ZScore: round2((values[i] - mean) / std),
				Kind:   kind,
			})
		}
	}
	return anomalies
}
