package vamp

import (
	"encoding/csv"
	"io"
	"strconv"

	"chargeback/internal/models"

	"github.com/rotisserie/eris"
)

// ExportHeader is the fixed column order of the VAMP CSV export.
var ExportHeader = []string{
	"MID",
	"Merchant Alias",
	"Period",
	"Card Network",
	"TC05 Count",
	"TC05 Amount",
	"TC40 Count",
	"TC40 Amount",
	"TC15 Count",
	"TC15 Amount",
	"CE3.0 Count",
	"VAMP Ratio",
	"Fraud Ratio",
	"CB Ratio",
	"Risk Level",
	"Source",
}

// ExportCSV writes records as CSV in ExportHeader order.
func ExportCSV(w io.Writer, records []models.VampRecord, table ThresholdTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return eris.Wrap(err, "vamp: write header")
	}

	for i := range records {
		r := &records[i]
		ratios := Compute(r, table)
		row := []string{
			r.MerchantID,
			r.MerchantAlias,
			r.PeriodMonth,
			r.CardNetwork,
			strconv.FormatInt(r.TC05Count, 10),
			formatAmount(r.TC05Amount),
			strconv.FormatInt(r.TC40Count, 10),
			formatAmount(r.TC40Amount),
			strconv.FormatInt(r.TC15Count, 10),
			formatAmount(r.TC15Amount),
			strconv.FormatInt(r.CE30Count, 10),
			formatPercent(ratios.VampRatio),
			formatPercent(ratios.FraudRatio),
			formatPercent(ratios.CBRatio),
			ratios.Risk,
			r.Source,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "vamp: write row %d", i+1)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "vamp: flush csv")
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatPercent renders a ratio as a percentage with four decimals.
func formatPercent(ratio *float64) string {
	if ratio == nil {
		return ""
	}
	return strconv.FormatFloat(*ratio*100, 'f', 4, 64) + "%"
}
