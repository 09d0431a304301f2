// Package output renders simulation results as CSV, JSON and console
// tables.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/firesim/fire-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// timeSeriesHeader is the stable column order of the percentile export.
var timeSeriesHeader = []string{
	"period", "p5", "p25", "p50", "p75", "p95", "success_rate_to_date", "target",
}

// WriteTimeSeriesCSV exports the per-period percentile bands of the real
// series, one row per period including period 0.
func WriteTimeSeriesCSV(w io.Writer, result *domain.AggregateResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(timeSeriesHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	series := result.Real
	for p := 0; p < len(series.P50); p++ {
		row := []string{
			strconv.Itoa(p),
			series.P5[p].StringFixed(2),
			series.P25[p].StringFixed(2),
			series.P50[p].StringFixed(2),
			series.P75[p].StringFixed(2),
			series.P95[p].StringFixed(2),
			result.SuccessToDate[p].StringFixed(4),
			result.RealTarget.StringFixed(2),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", p, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

var ledgerHeader = []string{
	"year", "age", "phase", "state",
	"opening_balance", "gross_growth", "tax_on_growth", "growth", "contribution",
	"gross_withdrawal", "tax_on_withdrawal", "net_delivered",
	"income_public_pension", "income_private_plan", "income_rental", "income_other",
	"mortgage_payment", "property_sale",
	"closing_balance", "uncovered_shortfall", "mismatch",
}

// WriteLedgerCSV exports the full decumulation ledger.
func WriteLedgerCSV(w io.Writer, ledger *domain.RetirementLedger) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ledgerHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	money := func(d decimal.Decimal) string { return d.StringFixed(2) }
	for _, r := range ledger.Rows {
		row := []string{
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Age),
			r.Phase,
			string(r.State),
			money(r.OpeningBalance), money(r.GrossGrowth), money(r.TaxOnGrowth), money(r.Growth), money(r.Contribution),
			money(r.GrossWithdrawal), money(r.TaxOnWithdrawal), money(r.NetDelivered),
			money(r.IncomePublicPension), money(r.IncomePrivatePlan), money(r.IncomeRental), money(r.IncomeOther),
			money(r.MortgagePayment), money(r.PropertySale),
			money(r.ClosingBalance), money(r.UncoveredShortfall), money(r.Mismatch),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write ledger row %d: %w", r.Year, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
