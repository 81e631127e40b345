package models

import (
	"time"

	"gorm.io/gorm"
)

// Dispute lifecycle statuses
const (
	DisputeStatusNew              = "new"
	DisputeStatusInProgress       = "in_progress"
	DisputeStatusSubmitted        = "submitted"
	DisputeStatusAwaitingDecision = "awaiting_decision"
	DisputeStatusWon              = "won"
	DisputeStatusLost             = "lost"
	DisputeStatusNotFought        = "not_fought"
)

// Fight decisions recorded during triage
const (
	FightDecisionFight  = "fight"
	FightDecisionAccept = "accept"
)

// Dispute is a single chargeback case.
type Dispute struct {
	gorm.Model
	CaseID          string   `gorm:"uniqueIndex;not null" json:"case_id"`
	ProjectID       *uint    `gorm:"index" json:"project_id,omitempty"`
	MerchantID      string   `gorm:"index" json:"merchant_id"`
	Amount          float64  `gorm:"not null" json:"amount"`
	Currency        string   `gorm:"default:'USD'" json:"currency"`
	AmountUSD       *float64 `json:"amount_usd,omitempty"`
	RecoveredAmount float64  `gorm:"default:0" json:"recovered_amount"`
	Status          string   `gorm:"index;default:'new'" json:"status"`
	ReasonCode      string   `json:"reason_code"`
	ReasonCategory  string   `json:"reason_category"`
	Processor       string   `gorm:"index" json:"processor"`
	CardNetwork     string   `json:"card_network"`
	CardType        string   `json:"card_type"`
	BusinessUnit    string   `json:"business_unit"`
	// ChargebackDate is kept as text since imported rows carry whatever format
	// the processor export used; reporting parses it on read.
	ChargebackDate string     `json:"chargeback_date"`
	ResolutionDate string     `json:"resolution_date"`
	SLADeadline    *time.Time `json:"sla_deadline,omitempty"`
	FightDecision  string     `json:"fight_decision"`
	CoverLetter    string     `gorm:"type:text" json:"cover_letter"`
	Notes          string     `gorm:"type:text" json:"notes"`
	CustomValues   JSON       `gorm:"type:text" json:"custom_values,omitempty"`
}

// EffectiveAmount returns the USD-normalized amount when known, else the raw amount.
func (d *Dispute) EffectiveAmount() float64 {
	if d.AmountUSD != nil {
		return *d.AmountUSD
	}
	return d.Amount
}

// IsTerminal reports whether the dispute has reached a final outcome.
func (d *Dispute) IsTerminal() bool {
	switch d.Status {
	case DisputeStatusWon, DisputeStatusLost, DisputeStatusNotFought:
		return true
	}
	return false
}

// DisputeFilter narrows dispute listings. Zero values are ignored.
type DisputeFilter struct {
	Status      string
	Processor   string
	CardNetwork string
	MerchantID  string
	ProjectID   *uint
	From        string // YYYY-MM-DD, inclusive, compared against chargeback_date
	To          string // YYYY-MM-DD, inclusive
	Limit       int
	Offset      int
}
