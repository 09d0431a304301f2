package calculation

import (
	"github.com/firesim/fire-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// PROJECTION ASSUMPTIONS:
//
// 1. One period is one year. Contributions arrive during the year and do
//    not earn that year's return; growth applies to the opening balance.
//
// 2. The portfolio return decomposes into a fixed 60/30/10 equity, bond
//    and cash mix for tax purposes. 15% of the equity return is treated
//    as dividend yield, the rest as unrealized or realized gains.
//
// 3. Only the taxable share of the portfolio (per account breakdown)
//    produces taxable income each year. Tax-deferred and tax-free
//    accounts compound untaxed during accumulation.
//
// 4. The real pass deflates nominal balances by the configured inflation
//    rate; it never changes the nominal accounting.

var (
	equityMixShare = decimal.NewFromFloat(0.60)
	bondMixShare   = decimal.NewFromFloat(0.30)
	cashMixShare   = decimal.NewFromFloat(0.10)

	dividendYieldFraction = decimal.NewFromFloat(0.15)
)

// accountTaxable is the breakdown key whose share produces annual
// taxable income.
const accountTaxable = "taxable"

// Projector runs the deterministic single-path projection used for
// planning tables and as the expected-value backbone of the simulator.
type Projector struct {
	cfg *domain.SimulationConfig
	tax *TaxCalculator
	log Logger
}

// NewProjector validates the configuration and builds a projector.
func NewProjector(cfg *domain.SimulationConfig, tax *TaxCalculator, log Logger) (*Projector, error) {
	if cfg == nil {
		return nil, domain.NewConfigurationError("config", "simulation config is required")
	}
	if log == nil {
		log = NopLogger{}
	}
	if cfg.HorizonYears <= 0 {
		return nil, domain.NewInvalidParameterError("horizon_years", "must be positive, got %d", cfg.HorizonYears)
	}
	if cfg.InitialBalance.IsNegative() {
		return nil, domain.NewInvalidParameterError("initial_balance", "cannot be negative, got %s", cfg.InitialBalance)
	}
	if cfg.FeeRate.IsNegative() || cfg.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, domain.NewInvalidParameterError("fee_rate", "must be in [0, 1), got %s", cfg.FeeRate)
	}
	if cfg.InflationRate.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return nil, domain.NewInvalidParameterError("inflation_rate", "must be greater than -1, got %s", cfg.InflationRate)
	}
	if tax == nil {
		var err error
		tax, err = NewTaxCalculator(domain.TaxRegimeRef{Mode: domain.RegimeNone}, nil)
		if err != nil {
			return nil, err
		}
	}
	return &Projector{cfg: cfg, tax: tax, log: log}, nil
}

// TaxableShare normalizes the account breakdown into the taxable
// fraction of the portfolio. A missing or empty breakdown means fully
// taxable; when proportions sum below one the residual counts as
// taxable, matching the conservative default.
func TaxableShare(breakdown map[string]decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if len(breakdown) == 0 {
		return one
	}

	total := decimal.Zero
	taxable := decimal.Zero
	for account, amount := range breakdown {
		amount = decimal.Max(amount, decimal.Zero)
		total = total.Add(amount)
		if account == accountTaxable {
			taxable = taxable.Add(amount)
		}
	}
	if total.IsZero() {
		return one
	}
	if total.LessThan(one) {
		taxable = taxable.Add(one.Sub(total))
		total = one
	}
	return decimal.Min(taxable.Div(total), one)
}

// Project runs the nominal projection over the horizon, then the real
// pass. Row y (1-based) is the state at the end of year y.
func (p *Projector) Project() ([]domain.YearProjection, error) {
	one := decimal.NewFromInt(1)
	taxableShare := TaxableShare(p.cfg.AccountBreakdown)
	inflationFactor := one.Add(p.cfg.InflationRate)

	rows := make([]domain.YearProjection, 0, p.cfg.HorizonYears)
	balance := p.cfg.InitialBalance
	deflator := one

	for year := 1; year <= p.cfg.HorizonYears; year++ {
		contribution := p.cfg.AnnualContribution(year)
		grossReturn := balance.Mul(p.cfg.ExpectedReturn)
		fee := balance.Mul(p.cfg.FeeRate)

		tax := p.annualTax(grossReturn, balance.Add(grossReturn).Add(contribution), taxableShare)

		balance = balance.Add(grossReturn).Add(contribution).Sub(fee).Sub(tax)
		balance = decimal.Max(balance, decimal.Zero)

		deflator = deflator.Mul(inflationFactor)
		rows = append(rows, domain.YearProjection{
			Year:           year,
			NominalBalance: balance,
			RealBalance:    balance.Div(deflator),
			GrossReturn:    grossReturn,
			FeePaid:        fee,
			TaxPaid:        tax,
			Contribution:   contribution,
			TaxableShare:   taxableShare,
		})
	}

	p.log.Debugf("projection complete: %d years, terminal nominal %s", p.cfg.HorizonYears,
		rows[len(rows)-1].NominalBalance.StringFixed(2))
	return rows, nil
}

// annualTax computes one accumulation year's drag: category taxes on the
// taxable share of the decomposed return, plus wealth taxes on end-of-
// year investable wealth.
func (p *Projector) annualTax(grossReturn, endOfYearWealth, taxableShare decimal.Decimal) decimal.Decimal {
	if p.tax.Regime().Mode == domain.RegimeNone {
		return decimal.Zero
	}
	gain := decimal.Max(grossReturn, decimal.Zero)

	equityReturn := gain.Mul(equityMixShare)
	dividends := equityReturn.Mul(dividendYieldFraction).Mul(taxableShare)
	equityGains := equityReturn.Sub(equityReturn.Mul(dividendYieldFraction)).Mul(taxableShare)
	interest := gain.Mul(bondMixShare.Add(cashMixShare)).Mul(taxableShare)

	var incomeTax decimal.Decimal
	if p.tax.Regime().Mode == domain.RegimeDomesticPack {
		// Savings income is a single progressive base; taxing the
		// categories separately would understate the marginal rate.
		incomeTax = p.tax.SavingsTax(equityGains.Add(dividends).Add(interest))
	} else {
		_, gainsTax := p.tax.Apply(equityGains, CategoryCapitalGains)
		_, dividendTax := p.tax.Apply(dividends, CategoryDividends)
		_, interestTax := p.tax.Apply(interest, CategoryInterest)
		incomeTax = gainsTax.Add(dividendTax).Add(interestTax)
	}

	return incomeTax.Add(p.tax.WealthTaxes(endOfYearWealth).Total)
}

// TerminalBalances returns the nominal and real end-of-horizon balances.
func (p *Projector) TerminalBalances() (nominal, real decimal.Decimal, err error) {
	rows, err := p.Project()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	last := rows[len(rows)-1]
	return last.NominalBalance, last.RealBalance, nil
}
