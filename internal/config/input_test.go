package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firesim/fire-planner/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validProfile() *Profile {
	return &Profile{
		Name: "test plan",
		Simulation: domain.SimulationConfig{
			InitialBalance:      dec("250000"),
			MonthlyContribution: dec("1500"),
			HorizonYears:        25,
			ExpectedReturn:      dec("0.07"),
			Volatility:          dec("0.15"),
			InflationRate:       dec("0.025"),
			FeeRate:             dec("0.002"),
			AnnualSpending:      dec("40000"),
			SafeWithdrawalRate:  dec("0.04"),
			MarketModel:         domain.ModelNormal,
			NumTrials:           10000,
			Seed:                42,
			TaxRegime:           domain.TaxRegimeRef{Mode: domain.RegimeNone},
			AccountBreakdown: map[string]decimal.Decimal{
				"taxable":  dec("0.7"),
				"tax_free": dec("0.3"),
			},
			Withdrawal: domain.WithdrawalPolicy{
				Kind:                 domain.PolicyTwoPhase,
				PensionStartAge:      67,
				PrePensionNetAnnual:  dec("32000"),
				PostPensionNetAnnual: dec("15000"),
			},
		},
		GrossAnnualIncome: dec("60000"),
		NetWorth: &NetWorthInputs{
			RealEstateValue:    dec("300000"),
			RealEstateMortgage: dec("120000"),
		},
		Retirement: &RetirementPlan{
			CurrentAge: 45,
			StartAge:   55,
			EndAge:     90,
			Scenarios: []ScenarioSpec{
				{Label: "cautious", AnnualReturn: dec("0.02")},
				{Label: "base", AnnualReturn: dec("0.04")},
			},
		},
	}
}

func TestProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	original := validProfile()

	require.NoError(t, SaveProfile(path, original))
	loaded, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, original.Name, loaded.Name)
	sim, got := original.Simulation, loaded.Simulation
	assert.True(t, sim.InitialBalance.Equal(got.InitialBalance))
	assert.True(t, sim.MonthlyContribution.Equal(got.MonthlyContribution))
	assert.True(t, sim.ExpectedReturn.Equal(got.ExpectedReturn))
	assert.True(t, sim.SafeWithdrawalRate.Equal(got.SafeWithdrawalRate))
	assert.Equal(t, sim.HorizonYears, got.HorizonYears)
	assert.Equal(t, sim.NumTrials, got.NumTrials)
	assert.Equal(t, sim.Seed, got.Seed)
	assert.Equal(t, sim.MarketModel, got.MarketModel)
	assert.Equal(t, sim.TaxRegime.Mode, got.TaxRegime.Mode)
	assert.Equal(t, sim.Withdrawal.Kind, got.Withdrawal.Kind)
	assert.True(t, sim.Withdrawal.PrePensionNetAnnual.Equal(got.Withdrawal.PrePensionNetAnnual))
	require.Len(t, got.AccountBreakdown, 2)
	assert.True(t, got.AccountBreakdown["taxable"].Equal(dec("0.7")))

	assert.True(t, loaded.GrossAnnualIncome.Equal(dec("60000")))
	require.NotNil(t, loaded.NetWorth)
	assert.True(t, loaded.NetWorth.RealEstateValue.Equal(dec("300000")))
	assert.True(t, loaded.NetWorth.RealEstateMortgage.Equal(dec("120000")))

	require.NotNil(t, loaded.Retirement)
	assert.Equal(t, original.Retirement.CurrentAge, loaded.Retirement.CurrentAge)
	assert.Equal(t, original.Retirement.StartAge, loaded.Retirement.StartAge)
	require.Len(t, loaded.Retirement.Scenarios, 2)
	assert.Equal(t, "cautious", loaded.Retirement.Scenarios[0].Label)
	assert.True(t, loaded.Retirement.Scenarios[0].AnnualReturn.Equal(dec("0.02")))

	// A second round trip must be stable.
	path2 := filepath.Join(t.TempDir(), "profile2.yaml")
	require.NoError(t, SaveProfile(path2, loaded))
	again, err := LoadProfile(path2)
	require.NoError(t, err)
	assert.Equal(t, loaded, again)
}

func TestParseProfileYAML(t *testing.T) {
	data := []byte(`
name: minimal
simulation:
  initial_balance: "100000"
  monthly_contribution: "1000"
  horizon_years: 20
  expected_return: "0.06"
  volatility: "0.12"
  inflation_rate: "0.02"
  annual_spending: "30000"
  safe_withdrawal_rate: "0.035"
  num_trials: 1000
  seed: 1
`)
	p, err := ParseProfile(data)
	require.NoError(t, err)
	assert.Equal(t, "minimal", p.Name)
	assert.True(t, p.Simulation.InitialBalance.Equal(dec("100000")))
	// Omitted selectors default rather than fail.
	assert.Equal(t, domain.ModelNormal, p.Simulation.MarketModel)
	assert.Equal(t, domain.RegimeNone, p.Simulation.TaxRegime.Mode)

	// An unset trial count takes the engineering default.
	noTrials, err := ParseProfile([]byte(`
name: defaulted
simulation:
  initial_balance: "1"
  horizon_years: 5
  safe_withdrawal_rate: "0.04"
`))
	require.NoError(t, err)
	assert.Equal(t, 10000, noTrials.Simulation.NumTrials)
}

func TestProfileValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Profile)
		wantParam string
	}{
		{"zero horizon", func(p *Profile) { p.Simulation.HorizonYears = 0 }, "simulation.horizon_years"},
		{"negative balance", func(p *Profile) { p.Simulation.InitialBalance = dec("-1") }, "simulation.initial_balance"},
		{"negative contribution", func(p *Profile) { p.Simulation.MonthlyContribution = dec("-1") }, "simulation.monthly_contribution"},
		{"fee too high", func(p *Profile) { p.Simulation.FeeRate = dec("1") }, "simulation.fee_rate"},
		{"zero withdrawal rate", func(p *Profile) { p.Simulation.SafeWithdrawalRate = decimal.Zero }, "simulation.safe_withdrawal_rate"},
		{"negative trials", func(p *Profile) { p.Simulation.NumTrials = -1 }, "simulation.num_trials"},
		{"social rate too high", func(p *Profile) { p.Simulation.SocialContributionRate = dec("1") }, "simulation.social_contribution_rate"},
		{"negative account share", func(p *Profile) {
			p.Simulation.AccountBreakdown["taxable"] = dec("-0.1")
		}, "simulation.account_breakdown.taxable"},
		{"negative gross income", func(p *Profile) { p.GrossAnnualIncome = dec("-1") }, "gross_annual_income"},
		{"negative real estate value", func(p *Profile) {
			p.NetWorth = &NetWorthInputs{RealEstateValue: dec("-1")}
		}, "net_worth.real_estate_value"},
		{"current age past start age", func(p *Profile) { p.Retirement.CurrentAge = 55 }, "retirement.current_age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProfile()
			tt.mutate(p)
			err := p.Validate()
			var perr *domain.InvalidParameterError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tt.wantParam, perr.Param)
		})
	}
}

func TestProfileValidationConfiguration(t *testing.T) {
	t.Run("unknown market model", func(t *testing.T) {
		p := validProfile()
		p.Simulation.MarketModel = "garch"
		var cerr *domain.ConfigurationError
		require.True(t, errors.As(p.Validate(), &cerr))
	})

	t.Run("bootstrap needs a data file", func(t *testing.T) {
		p := validProfile()
		p.Simulation.MarketModel = domain.ModelBootstrap
		var cerr *domain.ConfigurationError
		err := p.Validate()
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "historical_data_path", cerr.Field)
	})

	t.Run("backtest skips the trial count check", func(t *testing.T) {
		p := validProfile()
		p.Simulation.MarketModel = domain.ModelBacktest
		p.Simulation.NumTrials = 0
		p.HistoricalDataPath = "returns.csv"
		assert.NoError(t, p.Validate())
	})

	t.Run("domestic regime needs a pack file", func(t *testing.T) {
		p := validProfile()
		p.Simulation.TaxRegime = domain.TaxRegimeRef{
			Mode: domain.RegimeDomesticPack, Country: "ES", Year: 2025, Region: "madrid",
		}
		var cerr *domain.ConfigurationError
		err := p.Validate()
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, "tax_pack_path", cerr.Field)
	})

	t.Run("retirement scenarios", func(t *testing.T) {
		p := validProfile()
		p.Retirement.Scenarios = nil
		var cerr *domain.ConfigurationError
		require.True(t, errors.As(p.Validate(), &cerr))

		p = validProfile()
		p.Retirement.Scenarios[1].Label = "cautious"
		require.True(t, errors.As(p.Validate(), &cerr))

		p = validProfile()
		p.Retirement.EndAge = p.Retirement.StartAge
		var perr *domain.InvalidParameterError
		require.True(t, errors.As(p.Validate(), &perr))
	})
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
