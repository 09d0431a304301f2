package domain

import (
	"github.com/shopspring/decimal"
)

// MarketModel selects how per-period returns are generated.
type MarketModel string

const (
	// ModelNormal draws independent normal returns with the configured
	// mean and volatility.
	ModelNormal MarketModel = "normal"
	// ModelBootstrap samples historical returns with replacement.
	ModelBootstrap MarketModel = "bootstrap"
	// ModelBacktest enumerates every contiguous historical window of the
	// horizon length in chronological order.
	ModelBacktest MarketModel = "backtest"
)

// Valid reports whether the selector is one of the supported models.
func (m MarketModel) Valid() bool {
	switch m {
	case ModelNormal, ModelBootstrap, ModelBacktest:
		return true
	}
	return false
}

// UsesHistoricalData reports whether the model requires a historical series.
func (m MarketModel) UsesHistoricalData() bool {
	return m == ModelBootstrap || m == ModelBacktest
}

// RegimeMode selects the tax treatment applied each period.
type RegimeMode string

const (
	// RegimeDomesticPack uses bracket tables from a versioned tax pack,
	// including regional overrides and wealth tax.
	RegimeDomesticPack RegimeMode = "domestic_pack"
	// RegimeInternationalFlat uses manual flat effective rates applied to
	// the return portion only.
	RegimeInternationalFlat RegimeMode = "international_flat"
	// RegimeNone applies no tax drag.
	RegimeNone RegimeMode = "none"
)

// Valid reports whether the regime mode is supported.
func (r RegimeMode) Valid() bool {
	switch r {
	case RegimeDomesticPack, RegimeInternationalFlat, RegimeNone:
		return true
	}
	return false
}

// FlatTaxRates are manual effective rates for the international regime.
// Each rate applies only to its income category, never to total assets.
type FlatTaxRates struct {
	Gains     decimal.Decimal `yaml:"gains" json:"gains"`
	Dividends decimal.Decimal `yaml:"dividends" json:"dividends"`
	Interest  decimal.Decimal `yaml:"interest" json:"interest"`
	Wealth    decimal.Decimal `yaml:"wealth" json:"wealth"`
}

// TaxRegimeRef identifies the tax treatment for a simulation. For the
// domestic mode it keys a tax pack by (country, year) plus a region; for
// the international mode it carries the manual flat rates.
type TaxRegimeRef struct {
	Mode      RegimeMode   `yaml:"mode" json:"mode"`
	Country   string       `yaml:"country,omitempty" json:"country,omitempty"`
	Year      int          `yaml:"year,omitempty" json:"year,omitempty"`
	Region    string       `yaml:"region,omitempty" json:"region,omitempty"`
	FlatRates FlatTaxRates `yaml:"flat_rates,omitempty" json:"flat_rates,omitempty"`
}

// PolicyKind selects the withdrawal policy for decumulation.
type PolicyKind string

const (
	// PolicyTwoPhase withdraws a flat net amount before the pension start
	// age and a second (generally lower) net amount after it.
	PolicyTwoPhase PolicyKind = "two_phase"
	// PolicyDetailed decomposes income into public pension, private plan
	// drawdown, rental and other income, netted against required spending.
	PolicyDetailed PolicyKind = "detailed"
)

// Valid reports whether the policy kind is supported.
func (p PolicyKind) Valid() bool {
	return p == PolicyTwoPhase || p == PolicyDetailed
}

// WithdrawalPolicy configures the decumulation phase. Amounts are annual
// and expressed in today's money; the engine inflation-indexes them.
type WithdrawalPolicy struct {
	Kind PolicyKind `yaml:"kind" json:"kind"`

	// Two-phase fields.
	PensionStartAge     int             `yaml:"pension_start_age" json:"pension_start_age"`
	PrePensionNetAnnual decimal.Decimal `yaml:"pre_pension_net_annual,omitempty" json:"pre_pension_net_annual,omitempty"`
	PostPensionNetAnnual decimal.Decimal `yaml:"post_pension_net_annual,omitempty" json:"post_pension_net_annual,omitempty"`

	// Detailed breakdown fields.
	AnnualSpendingBase        decimal.Decimal `yaml:"annual_spending_base,omitempty" json:"annual_spending_base,omitempty"`
	OfficialPensionAge        int             `yaml:"official_pension_age,omitempty" json:"official_pension_age,omitempty"`
	PublicPensionNetAnnual    decimal.Decimal `yaml:"public_pension_net_annual,omitempty" json:"public_pension_net_annual,omitempty"`
	PensionAdjustmentPerYear  decimal.Decimal `yaml:"pension_adjustment_per_year,omitempty" json:"pension_adjustment_per_year,omitempty"`
	PrivatePlanStartAge       int             `yaml:"private_plan_start_age,omitempty" json:"private_plan_start_age,omitempty"`
	PrivatePlanDurationYears  int             `yaml:"private_plan_duration_years,omitempty" json:"private_plan_duration_years,omitempty"`
	PrivatePlanNetAnnual      decimal.Decimal `yaml:"private_plan_net_annual,omitempty" json:"private_plan_net_annual,omitempty"`
	OtherIncomeNetAnnual      decimal.Decimal `yaml:"other_income_net_annual,omitempty" json:"other_income_net_annual,omitempty"`
	RentalIncomeNetAnnual     decimal.Decimal `yaml:"rental_income_net_annual,omitempty" json:"rental_income_net_annual,omitempty"`
	PrePensionExtraCostAnnual decimal.Decimal `yaml:"pre_pension_extra_cost_annual,omitempty" json:"pre_pension_extra_cost_annual,omitempty"`
}

// SimulationConfig is the immutable input bundle for one run. It is
// constructed once and never mutated mid-simulation; every concurrent
// trial reads the same config.
type SimulationConfig struct {
	InitialBalance         decimal.Decimal `yaml:"initial_balance" json:"initial_balance"`
	MonthlyContribution    decimal.Decimal `yaml:"monthly_contribution" json:"monthly_contribution"`
	ContributionGrowthRate decimal.Decimal `yaml:"contribution_growth_rate" json:"contribution_growth_rate"`
	// SocialContributionRate is deducted from gross contributions before
	// they reach the portfolio (self-employment social security).
	SocialContributionRate decimal.Decimal `yaml:"social_contribution_rate,omitempty" json:"social_contribution_rate,omitempty"`
	HorizonYears           int             `yaml:"horizon_years" json:"horizon_years"`

	ExpectedReturn decimal.Decimal `yaml:"expected_return" json:"expected_return"`
	Volatility     decimal.Decimal `yaml:"volatility" json:"volatility"`
	InflationRate  decimal.Decimal `yaml:"inflation_rate" json:"inflation_rate"`
	FeeRate        decimal.Decimal `yaml:"fee_rate" json:"fee_rate"`

	AnnualSpending     decimal.Decimal `yaml:"annual_spending" json:"annual_spending"`
	SafeWithdrawalRate decimal.Decimal `yaml:"safe_withdrawal_rate" json:"safe_withdrawal_rate"`

	MarketModel  MarketModel     `yaml:"market_model" json:"market_model"`
	EquityWeight decimal.Decimal `yaml:"equity_weight" json:"equity_weight"`
	BondWeight   decimal.Decimal `yaml:"bond_weight" json:"bond_weight"`
	BondReturn   decimal.Decimal `yaml:"bond_return" json:"bond_return"`

	NumTrials int   `yaml:"num_trials" json:"num_trials"`
	Seed      int64 `yaml:"seed" json:"seed"`

	TaxRegime TaxRegimeRef `yaml:"tax_regime" json:"tax_regime"`

	// Optional mapping of account types (taxable, tax_deferred, tax_free)
	// to proportions or absolute amounts; normalized by the projector.
	AccountBreakdown map[string]decimal.Decimal `yaml:"account_breakdown,omitempty" json:"account_breakdown,omitempty"`

	Withdrawal WithdrawalPolicy `yaml:"withdrawal" json:"withdrawal"`
}

// AnnualContribution returns the net contribution for a 1-based
// projection year, applying the contribution growth rate and deducting
// the social contribution rate.
func (c *SimulationConfig) AnnualContribution(year int) decimal.Decimal {
	base := c.MonthlyContribution.Mul(decimal.NewFromInt(12))
	if !c.SocialContributionRate.IsZero() {
		base = base.Mul(decimal.NewFromInt(1).Sub(c.SocialContributionRate))
	}
	if c.ContributionGrowthRate.IsZero() || year <= 1 {
		return base
	}
	growth := decimal.NewFromInt(1).Add(c.ContributionGrowthRate).Pow(decimal.NewFromInt(int64(year - 1)))
	return base.Mul(growth)
}
