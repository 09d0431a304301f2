package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/firesim/fire-planner/internal/calculation"
	"github.com/firesim/fire-planner/internal/domain"
	money "github.com/firesim/fire-planner/pkg/decimal"
)

// WriteResultTable prints a human-readable summary of a simulation run.
func WriteResultTable(w io.Writer, result *domain.AggregateResult) error {
	fmt.Fprintf(w, "Simulation: %d trials, %d years (%s model)\n",
		result.NumTrials, result.HorizonYears, result.Model)
	fmt.Fprintf(w, "Target (today's money): %s\n", money.FormatEUR(result.RealTarget))
	fmt.Fprintf(w, "Success rate: %s\n", money.FormatPercent(result.SuccessRate, 1))
	fmt.Fprintf(w, "Sequence risk: %s\n", result.SequenceRiskKPI.StringFixed(3))

	if result.Coverage != nil {
		c := result.Coverage
		fmt.Fprintf(w, "Coverage: %d windows (%d excluded), %s to %s, completeness %s\n",
			c.WindowsEvaluated, c.WindowsExcluded,
			c.SpanStart.Format("2006-01"), c.SpanEnd.Format("2006-01"),
			money.FormatPercent(c.MonthlyCompleteness, 1))
	}
	if result.Critical.StartDate != nil {
		fmt.Fprintf(w, "Critical window starts %s (terminal %s)\n",
			result.Critical.StartDate.Format("2006-01"), money.FormatEUR(result.Critical.TerminalBalance))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Year\tP5\tP25\tP50\tP75\tP95\tSuccess\t")
	for p := 0; p < len(result.Real.P50); p++ {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p,
			money.FormatComma(result.Real.P5[p], 0),
			money.FormatComma(result.Real.P25[p], 0),
			money.FormatComma(result.Real.P50[p], 0),
			money.FormatComma(result.Real.P75[p], 0),
			money.FormatComma(result.Real.P95[p], 0),
			money.FormatPercent(result.SuccessToDate[p], 1))
	}
	return tw.Flush()
}

// WriteLedgerTable prints a decumulation ledger as a console table.
func WriteLedgerTable(w io.Writer, ledger *domain.RetirementLedger) error {
	fmt.Fprintf(w, "Scenario %q (return %s)\n", ledger.ScenarioLabel,
		money.FormatPercent(ledger.ImpliedReturn, 2))
	if ledger.FinalState == domain.StateDepleted {
		fmt.Fprintf(w, "DEPLETED in year %d; total uncovered shortfall %s\n",
			ledger.DepletionYear, money.FormatEUR(ledger.TotalShortfall()))
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Age\tPhase\tOpening\tGrowth\tWithdrawal\tClosing\tShortfall\t")
	for _, r := range ledger.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Age, r.Phase,
			money.FormatComma(r.OpeningBalance, 0),
			money.FormatComma(r.Growth, 0),
			money.FormatComma(r.GrossWithdrawal, 0),
			money.FormatComma(r.ClosingBalance, 0),
			money.FormatComma(r.UncoveredShortfall, 0))
	}
	return tw.Flush()
}

// WriteScenarioTable prints the pessimistic/base/optimistic market sweep.
func WriteScenarioTable(w io.Writer, scenarios []calculation.MarketScenario) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Scenario\tReturn\tFinal portfolio\tYears to target\t")
	for _, s := range scenarios {
		years := "never"
		if s.TargetReached {
			years = strconv.Itoa(s.YearsToTarget)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			s.Name,
			money.FormatPercent(s.ExpectedReturn, 2),
			money.FormatComma(s.FinalPortfolio, 0),
			years)
	}
	return tw.Flush()
}

// WriteNetWorthSummary prints the liquid plus real estate breakdown.
func WriteNetWorthSummary(w io.Writer, nw domain.NetWorthBreakdown) error {
	fmt.Fprintf(w, "Liquid portfolio:   %s\n", money.FormatEUR(nw.LiquidPortfolio))
	fmt.Fprintf(w, "Real estate equity: %s (value %s)\n",
		money.FormatEUR(nw.RealEstateEquity), money.FormatEUR(nw.RealEstateValue))
	fmt.Fprintf(w, "Total liabilities:  %s\n", money.FormatEUR(nw.TotalLiabilities))
	_, err := fmt.Fprintf(w, "Net worth:          %s\n", money.FormatEUR(nw.NetWorth))
	return err
}

// WriteProjectionTable prints the deterministic projection.
func WriteProjectionTable(w io.Writer, rows []domain.YearProjection) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Year\tNominal\tReal\tReturn\tFees\tTaxes\tContribution\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Year,
			money.FormatComma(r.NominalBalance, 0),
			money.FormatComma(r.RealBalance, 0),
			money.FormatComma(r.GrossReturn, 0),
			money.FormatComma(r.FeePaid, 0),
			money.FormatComma(r.TaxPaid, 0),
			money.FormatComma(r.Contribution, 0))
	}
	return tw.Flush()
}
