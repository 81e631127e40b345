package validation

import (
	"regexp"

	"chargeback/internal/models"
)

var fieldKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// DisputeStatuses lists every status a dispute may hold.
var DisputeStatuses = []string{
	models.DisputeStatusNew,
	models.DisputeStatusInProgress,
	models.DisputeStatusSubmitted,
	models.DisputeStatusAwaitingDecision,
	models.DisputeStatusWon,
	models.DisputeStatusLost,
	models.DisputeStatusNotFought,
}

// Dispute validates a dispute before it is stored
func (v *Validator) Dispute(d *models.Dispute) {
	v.Required("case_id", d.CaseID)
	v.MaxLength("case_id", d.CaseID, MaxCaseIDLength)
	v.Range("amount", d.Amount, 0, MaxDisputeAmount)
	if d.Currency != "" {
		v.Currency("currency", d.Currency)
	}
	if d.AmountUSD != nil {
		v.NonNegative("amount_usd", *d.AmountUSD)
	}
	v.NonNegative("recovered_amount", d.RecoveredAmount)
	v.OneOf("status", d.Status, DisputeStatuses...)
	v.OneOf("fight_decision", d.FightDecision, models.FightDecisionFight, models.FightDecisionAccept)
	v.Date("chargeback_date", d.ChargebackDate)
	v.Date("resolution_date", d.ResolutionDate)
	v.MaxLength("notes", d.Notes, MaxNotesLength)
	v.MaxLength("cover_letter", d.CoverLetter, MaxCoverLetterLength)
}

// VampRecord validates the raw counters of a VAMP period record
func (v *Validator) VampRecord(r *models.VampRecord) {
	v.Required("merchant_id", r.MerchantID)
	v.Required("card_network", r.CardNetwork)
	v.PeriodMonth("period_month", r.PeriodMonth)
	v.NonNegative("tc05_count", float64(r.TC05Count))
	v.NonNegative("tc05_amount", r.TC05Amount)
	v.NonNegative("tc40_count", float64(r.TC40Count))
	v.NonNegative("tc40_amount", r.TC40Amount)
	v.NonNegative("tc15_count", float64(r.TC15Count))
	v.NonNegative("tc15_amount", r.TC15Amount)
	v.NonNegative("ce30_count", float64(r.CE30Count))
	v.OneOf("source", r.Source, models.VampSourceManual, models.VampSourceAPIImport)
}

// Project validates a merchant project
func (v *Validator) Project(p *models.Project) {
	v.Required("name", p.Name)
	v.Required("merchant_id", p.MerchantID)
}

// CustomField validates a custom field definition
func (v *Validator) CustomField(f *models.CustomField) {
	v.Required("key", f.Key)
	v.MaxLength("key", f.Key, MaxFieldKeyLength)
	v.Check(fieldKeyRegex.MatchString(f.Key), "key", "must be lower snake case")
	v.Required("label", f.Label)
	v.Required("type", f.Type)
	v.OneOf("type", f.Type,
		models.FieldTypeText,
		models.FieldTypeNumber,
		models.FieldTypeDate,
		models.FieldTypeAlphanumeric,
		models.FieldTypeDropdown,
	)
	if f.Type == models.FieldTypeDropdown {
		v.Check(len(f.Options) > 0, "options", "dropdown fields need at least one option")
	}
}
