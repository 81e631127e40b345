package vamp

import (
	"strings"

	"chargeback/internal/models"
)

// Risk tiers
const (
	RiskUnknown   = "unknown"
	RiskHealthy   = "healthy"
	RiskStandard  = "standard"
	RiskExcessive = "excessive"
)

// Card networks with built-in thresholds
const (
	NetworkVisa       = "Visa"
	NetworkMastercard = "Mastercard"
)

// Thresholds are the VAMP ratio cut-offs of one card network.
type Thresholds struct {
	Standard  float64 `json:"standard"`
	Excessive float64 `json:"excessive"`
}

// ThresholdTable maps a card network name to its thresholds.
type ThresholdTable map[string]Thresholds

// DefaultThresholds returns the published network thresholds.
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		NetworkVisa:       {Standard: 0.009, Excessive: 0.018},
		NetworkMastercard: {Standard: 0.010, Excessive: 0.015},
	}
}

// For returns the thresholds of network, falling back to Visa when the
// network is not in the table.
func (t ThresholdTable) For(network string) Thresholds {
	if th, ok := t[network]; ok {
		return th
	}
	for name, th := range t {
		if strings.EqualFold(name, strings.TrimSpace(network)) {
			return th
		}
	}
	if th, ok := t[NetworkVisa]; ok {
		return th
	}
	return DefaultThresholds()[NetworkVisa]
}

// Ratios are the derived compliance figures of a VampRecord. A nil ratio
// means the record has no settled transactions.
type Ratios struct {
	VampRatio  *float64 `json:"vamp_ratio"`
	FraudRatio *float64 `json:"fraud_ratio"`
	CBRatio    *float64 `json:"cb_ratio"`
	Risk       string   `json:"risk"`
}

// Compute derives the VAMP, fraud and chargeback ratios of r and classifies
// the VAMP ratio against the thresholds of r's card network.
//
// The numerator is not clamped: a CE3.0 count larger than TC40+TC15 yields a
// negative ratio, which classifies as healthy.
func Compute(r *models.VampRecord, table ThresholdTable) Ratios {
	if r == nil || r.TC05Count <= 0 {
		return Ratios{Risk: RiskUnknown}
	}

	settled := float64(r.TC05Count)
	vamp := float64(r.TC40Count+r.TC15Count-r.CE30Count) / settled
	fraud := float64(r.TC40Count) / settled
	cb := float64(r.TC15Count) / settled

	return Ratios{
		VampRatio:  &vamp,
		FraudRatio: &fraud,
		CBRatio:    &cb,
		Risk:       Classify(&vamp, table.For(r.CardNetwork)),
	}
}

// Classify maps a VAMP ratio to a risk tier.
func Classify(ratio *float64, th Thresholds) string {
	switch {
	case ratio == nil:
		return RiskUnknown
	case *ratio >= th.Excessive:
		return RiskExcessive
	case *ratio >= th.Standard:
		return RiskStandard
	default:
		return RiskHealthy
	}
}
