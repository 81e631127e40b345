package models

import "gorm.io/gorm"

// VAMP record sources
const (
	VampSourceManual    = "manual"
	VampSourceAPIImport = "api_import"
)

// VampRecord holds the raw network counters for one merchant, month and card
// network. Ratios are never stored; they are recomputed on every read.
type VampRecord struct {
	gorm.Model
	ProjectID     *uint   `gorm:"index" json:"project_id,omitempty"`
	MerchantID    string  `gorm:"uniqueIndex:idx_vamp_period;not null" json:"merchant_id"`
	MerchantAlias string  `json:"merchant_alias"`
	PeriodMonth   string  `gorm:"uniqueIndex:idx_vamp_period;size:7;not null" json:"period_month"`
	CardNetwork   string  `gorm:"uniqueIndex:idx_vamp_period;not null" json:"card_network"`
	TC05Count     int64   `json:"tc05_count"`
	TC05Amount    float64 `json:"tc05_amount"`
	TC40Count     int64   `json:"tc40_count"`
	TC40Amount    float64 `json:"tc40_amount"`
	TC15Count     int64   `json:"tc15_count"`
	TC15Amount    float64 `json:"tc15_amount"`
	CE30Count     int64   `json:"ce30_count"`
	Source        string  `gorm:"default:'manual'" json:"source"`
	Notes         string  `gorm:"type:text" json:"notes"`
}

// VampFilter narrows VAMP record listings.
type VampFilter struct {
	MerchantID  string
	CardNetwork string
	PeriodFrom  string // YYYY-MM inclusive
	PeriodTo    string // YYYY-MM inclusive
	ProjectID   *uint
}
