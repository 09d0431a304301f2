package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioState is the mutable per-path accounting state. The balance is
// clamped at zero on depletion; severity is carried by the shortfall
// columns of the retirement ledger rather than a negative balance.
type PortfolioState struct {
	Balance                 decimal.Decimal `json:"balance"`
	Period                  int             `json:"period"`
	CumulativeContributions decimal.Decimal `json:"cumulative_contributions"`
	CumulativeWithdrawals   decimal.Decimal `json:"cumulative_withdrawals"`
}

// Depleted reports whether the path has exhausted its balance.
func (s *PortfolioState) Depleted() bool {
	return s.Balance.LessThanOrEqual(decimal.Zero)
}

// YearProjection is one year of the deterministic projection.
type YearProjection struct {
	Year            int             `json:"year"`
	NominalBalance  decimal.Decimal `json:"nominal_balance"`
	RealBalance     decimal.Decimal `json:"real_balance"`
	GrossReturn     decimal.Decimal `json:"gross_return"`
	FeePaid         decimal.Decimal `json:"fee_paid"`
	TaxPaid         decimal.Decimal `json:"tax_paid"`
	Contribution    decimal.Decimal `json:"contribution"`
	TaxableShare    decimal.Decimal `json:"taxable_share"`
}

// WindowRef identifies a diagnostic trial kept after aggregation: the
// worst-terminal (critical) and best-terminal (favorable) paths. For
// backtest runs StartDate names the historical window's first month.
type WindowRef struct {
	Trial           int               `json:"trial"`
	StartDate       *time.Time        `json:"start_date,omitempty"`
	TerminalBalance decimal.Decimal   `json:"terminal_balance"`
	Balances        []decimal.Decimal `json:"balances"`
}

// PercentileSeries holds per-period percentile bands across all trials.
// Index 0 is the horizon start.
type PercentileSeries struct {
	P5  []decimal.Decimal `json:"p5"`
	P25 []decimal.Decimal `json:"p25"`
	P50 []decimal.Decimal `json:"p50"`
	P75 []decimal.Decimal `json:"p75"`
	P95 []decimal.Decimal `json:"p95"`
}

// CoverageMetadata describes the fidelity of a historical-mode sample so
// backtest quality can be judged rather than trusted blindly.
type CoverageMetadata struct {
	WindowsEvaluated    int             `json:"windows_evaluated"`
	WindowsExcluded     int             `json:"windows_excluded"`
	SpanStart           time.Time       `json:"span_start"`
	SpanEnd             time.Time       `json:"span_end"`
	MonthlyCompleteness decimal.Decimal `json:"monthly_completeness"`
}

// AggregateResult is the read-only outcome of one simulation run.
type AggregateResult struct {
	Nominal PercentileSeries `json:"nominal"`
	Real    PercentileSeries `json:"real"`

	// SuccessRate is the fraction of trials whose real terminal balance
	// met the real-terms target, in [0, 1].
	SuccessRate   decimal.Decimal   `json:"success_rate"`
	SuccessToDate []decimal.Decimal `json:"success_to_date"`

	Target     decimal.Decimal `json:"target"`
	RealTarget decimal.Decimal `json:"real_target"`

	Critical  WindowRef `json:"critical_window"`
	Favorable WindowRef `json:"favorable_window"`

	// SequenceRiskKPI is (favorable - critical) terminal spread divided by
	// the target; higher means outcomes hinge more on return ordering.
	SequenceRiskKPI decimal.Decimal `json:"sequence_risk_kpi"`

	Coverage *CoverageMetadata `json:"coverage,omitempty"`

	NumTrials    int         `json:"num_trials"`
	HorizonYears int         `json:"horizon_years"`
	Model        MarketModel `json:"model"`
}

// ScenarioState is the decumulation state machine position.
type ScenarioState string

const (
	StateAccumulating ScenarioState = "accumulating"
	StateDecumulating ScenarioState = "decumulating"
	StateDepleted     ScenarioState = "depleted"
	StateHorizonEnd   ScenarioState = "horizon_end"
)

// LedgerRow is one scenario year's accounting. The identity
// opening + growth + contribution + property sale - gross withdrawal
// == closing holds exactly for every row; Mismatch records only
// floating-point drift and UncoveredShortfall records clamped
// depletion, which are distinct. Accumulation rows carry contributions
// and no withdrawal; decumulation rows the reverse.
type LedgerRow struct {
	Year  int           `json:"year"`
	Age   int           `json:"age"`
	Phase string        `json:"phase"`
	State ScenarioState `json:"state"`

	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	GrossGrowth     decimal.Decimal `json:"gross_growth"`
	TaxOnGrowth     decimal.Decimal `json:"tax_on_growth"`
	Growth          decimal.Decimal `json:"growth"` // net of tax
	Contribution    decimal.Decimal `json:"contribution"`
	GrossWithdrawal decimal.Decimal `json:"gross_withdrawal"`
	TaxOnWithdrawal decimal.Decimal `json:"tax_on_withdrawal"`
	NetDelivered    decimal.Decimal `json:"net_delivered"`

	IncomePublicPension decimal.Decimal `json:"income_public_pension"`
	IncomePrivatePlan   decimal.Decimal `json:"income_private_plan"`
	IncomeRental        decimal.Decimal `json:"income_rental"`
	IncomeOther         decimal.Decimal `json:"income_other"`

	MortgagePayment decimal.Decimal `json:"mortgage_payment"`
	PropertySale    decimal.Decimal `json:"property_sale"`

	ClosingBalance     decimal.Decimal `json:"closing_balance"`
	UncoveredShortfall decimal.Decimal `json:"uncovered_shortfall"`
	Mismatch           decimal.Decimal `json:"mismatch"`
}

// RetirementLedger is the full decumulation accounting for one scenario.
type RetirementLedger struct {
	ScenarioLabel string          `json:"scenario_label"`
	ImpliedReturn decimal.Decimal `json:"implied_return"`
	Rows          []LedgerRow     `json:"rows"`
	FinalState    ScenarioState   `json:"final_state"`
	DepletionYear int             `json:"depletion_year"` // 0 when never depleted
}

// TotalShortfall sums the uncovered shortfall across all rows.
func (l *RetirementLedger) TotalShortfall() decimal.Decimal {
	total := decimal.Zero
	for _, r := range l.Rows {
		total = total.Add(r.UncoveredShortfall)
	}
	return total
}

// NetWorthBreakdown summarizes liquid and illiquid wealth.
type NetWorthBreakdown struct {
	LiquidPortfolio  decimal.Decimal `json:"liquid_portfolio"`
	RealEstateValue  decimal.Decimal `json:"real_estate_value"`
	RealEstateEquity decimal.Decimal `json:"real_estate_equity"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	NetWorth         decimal.Decimal `json:"net_worth"`
}
