// Package config loads and validates the planner's input files: the
// YAML scenario profile and the versioned JSON tax packs.
package config

import (
	"fmt"
	"os"

	"github.com/firesim/fire-planner/internal/calculation"
	"github.com/firesim/fire-planner/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// defaultNumTrials is used when the profile leaves the trial count
// unset.
const defaultNumTrials = 10000

// ScenarioSpec names one decumulation scenario and its assumed return.
type ScenarioSpec struct {
	Label        string          `yaml:"label" json:"label"`
	AnnualReturn decimal.Decimal `yaml:"annual_return" json:"annual_return"`
}

// RetirementPlan configures the decumulation runs of a profile.
type RetirementPlan struct {
	// CurrentAge, when set below StartAge, prepends accumulation years
	// fed by the simulation's contribution settings.
	CurrentAge int `yaml:"current_age,omitempty" json:"current_age,omitempty"`

	StartAge int `yaml:"start_age" json:"start_age"`
	EndAge   int `yaml:"end_age" json:"end_age"`

	Scenarios []ScenarioSpec `yaml:"scenarios" json:"scenarios"`

	Mortgages        []calculation.MortgageSchedule `yaml:"mortgages,omitempty" json:"mortgages,omitempty"`
	PropertySales    []calculation.PropertySale     `yaml:"property_sales,omitempty" json:"property_sales,omitempty"`
	ExtraWithdrawals []calculation.ExtraWithdrawal  `yaml:"extra_withdrawals,omitempty" json:"extra_withdrawals,omitempty"`
}

// NetWorthInputs lists non-portfolio wealth for the net worth summary.
type NetWorthInputs struct {
	RealEstateValue    decimal.Decimal `yaml:"real_estate_value" json:"real_estate_value"`
	RealEstateMortgage decimal.Decimal `yaml:"real_estate_mortgage,omitempty" json:"real_estate_mortgage,omitempty"`
	OtherLiabilities   decimal.Decimal `yaml:"other_liabilities,omitempty" json:"other_liabilities,omitempty"`
}

// Profile is the top-level input document. Saving a loaded profile
// reproduces an equivalent document; no fields are dropped or mutated
// on the way through.
type Profile struct {
	Name string `yaml:"name" json:"name"`

	Simulation domain.SimulationConfig `yaml:"simulation" json:"simulation"`

	// GrossAnnualIncome, when set, funds the savings-rate figure on the
	// target summary.
	GrossAnnualIncome decimal.Decimal `yaml:"gross_annual_income,omitempty" json:"gross_annual_income,omitempty"`

	// NetWorth optionally extends the target summary with real estate
	// and liabilities.
	NetWorth *NetWorthInputs `yaml:"net_worth,omitempty" json:"net_worth,omitempty"`

	// HistoricalDataPath points at the monthly returns CSV required by
	// the bootstrap and backtest market models.
	HistoricalDataPath string `yaml:"historical_data_path,omitempty" json:"historical_data_path,omitempty"`

	// TaxPackPath points at the JSON tax pack for the domestic regime.
	TaxPackPath string `yaml:"tax_pack_path,omitempty" json:"tax_pack_path,omitempty"`

	Retirement *RetirementPlan `yaml:"retirement,omitempty" json:"retirement,omitempty"`
}

// LoadProfile reads, parses and validates a profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return ParseProfile(data)
}

// ParseProfile parses and validates profile YAML.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile writes the profile back to disk as YAML.
func SaveProfile(path string, p *Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile %s: %w", path, err)
	}
	return nil
}

// Validate checks the profile for structural and numeric problems,
// naming the offending field. Values are never silently corrected.
func (p *Profile) Validate() error {
	sim := &p.Simulation
	one := decimal.NewFromInt(1)

	if sim.HorizonYears <= 0 {
		return domain.NewInvalidParameterError("simulation.horizon_years", "must be positive, got %d", sim.HorizonYears)
	}
	if sim.InitialBalance.IsNegative() {
		return domain.NewInvalidParameterError("simulation.initial_balance", "cannot be negative, got %s", sim.InitialBalance)
	}
	if sim.MonthlyContribution.IsNegative() {
		return domain.NewInvalidParameterError("simulation.monthly_contribution", "cannot be negative, got %s", sim.MonthlyContribution)
	}
	if sim.Volatility.IsNegative() {
		return domain.NewInvalidParameterError("simulation.volatility", "cannot be negative, got %s", sim.Volatility)
	}
	if sim.SocialContributionRate.IsNegative() || sim.SocialContributionRate.GreaterThanOrEqual(one) {
		return domain.NewInvalidParameterError("simulation.social_contribution_rate", "must be in [0, 1), got %s", sim.SocialContributionRate)
	}
	if sim.FeeRate.IsNegative() || sim.FeeRate.GreaterThanOrEqual(one) {
		return domain.NewInvalidParameterError("simulation.fee_rate", "must be in [0, 1), got %s", sim.FeeRate)
	}
	if sim.InflationRate.LessThanOrEqual(one.Neg()) {
		return domain.NewInvalidParameterError("simulation.inflation_rate", "must be greater than -1, got %s", sim.InflationRate)
	}
	if sim.SafeWithdrawalRate.LessThanOrEqual(decimal.Zero) {
		return domain.NewInvalidParameterError("simulation.safe_withdrawal_rate", "must be positive, got %s", sim.SafeWithdrawalRate)
	}
	if sim.AnnualSpending.IsNegative() {
		return domain.NewInvalidParameterError("simulation.annual_spending", "cannot be negative, got %s", sim.AnnualSpending)
	}

	if sim.MarketModel == "" {
		sim.MarketModel = domain.ModelNormal
	}
	if !sim.MarketModel.Valid() {
		return domain.NewConfigurationError("simulation.market_model", "unknown market model %q", sim.MarketModel)
	}
	if sim.MarketModel.UsesHistoricalData() && p.HistoricalDataPath == "" {
		return domain.NewConfigurationError("historical_data_path",
			"market model %q requires a historical data file", sim.MarketModel)
	}
	if sim.NumTrials == 0 {
		sim.NumTrials = defaultNumTrials
	}
	if sim.MarketModel != domain.ModelBacktest && sim.NumTrials < 0 {
		return domain.NewInvalidParameterError("simulation.num_trials", "must be positive, got %d", sim.NumTrials)
	}

	if sim.TaxRegime.Mode == "" {
		sim.TaxRegime.Mode = domain.RegimeNone
	}
	if !sim.TaxRegime.Mode.Valid() {
		return domain.NewConfigurationError("simulation.tax_regime.mode", "unknown tax regime %q", sim.TaxRegime.Mode)
	}
	if sim.TaxRegime.Mode == domain.RegimeDomesticPack && p.TaxPackPath == "" {
		return domain.NewConfigurationError("tax_pack_path", "domestic tax regime requires a tax pack file")
	}

	for account, amount := range sim.AccountBreakdown {
		if amount.IsNegative() {
			return domain.NewInvalidParameterError("simulation.account_breakdown."+account,
				"cannot be negative, got %s", amount)
		}
	}

	if p.GrossAnnualIncome.IsNegative() {
		return domain.NewInvalidParameterError("gross_annual_income",
			"cannot be negative, got %s", p.GrossAnnualIncome)
	}
	if p.NetWorth != nil {
		for field, amount := range map[string]decimal.Decimal{
			"net_worth.real_estate_value":    p.NetWorth.RealEstateValue,
			"net_worth.real_estate_mortgage": p.NetWorth.RealEstateMortgage,
			"net_worth.other_liabilities":    p.NetWorth.OtherLiabilities,
		} {
			if amount.IsNegative() {
				return domain.NewInvalidParameterError(field, "cannot be negative, got %s", amount)
			}
		}
	}

	if p.Retirement != nil {
		if err := p.Retirement.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *RetirementPlan) validate() error {
	if r.EndAge <= r.StartAge {
		return domain.NewInvalidParameterError("retirement.end_age",
			"must be greater than start_age %d, got %d", r.StartAge, r.EndAge)
	}
	if r.CurrentAge < 0 {
		return domain.NewInvalidParameterError("retirement.current_age",
			"cannot be negative, got %d", r.CurrentAge)
	}
	if r.CurrentAge != 0 && r.CurrentAge >= r.StartAge {
		return domain.NewInvalidParameterError("retirement.current_age",
			"must be below start_age %d, got %d", r.StartAge, r.CurrentAge)
	}
	if len(r.Scenarios) == 0 {
		return domain.NewConfigurationError("retirement.scenarios", "at least one scenario is required")
	}
	seen := make(map[string]bool, len(r.Scenarios))
	for i, s := range r.Scenarios {
		if s.Label == "" {
			return domain.NewConfigurationError("retirement.scenarios",
				"scenario %d has no label", i)
		}
		if seen[s.Label] {
			return domain.NewConfigurationError("retirement.scenarios",
				"duplicate scenario label %q", s.Label)
		}
		seen[s.Label] = true
		if s.AnnualReturn.LessThanOrEqual(decimal.NewFromInt(-1)) {
			return domain.NewInvalidParameterError("retirement.scenarios."+s.Label+".annual_return",
				"must be greater than -1, got %s", s.AnnualReturn)
		}
	}
	return nil
}
