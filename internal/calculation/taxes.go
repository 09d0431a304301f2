package calculation

import (
	"github.com/firesim/fire-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// TAX MODEL ASSUMPTIONS:
//
// 1. Domestic regime: savings income (gains, dividends, interest) is taxed
//    on a single progressive base using the pack's bracket tables, with
//    regional (foral) overrides taking precedence over the common table.
//
// 2. Wealth tax is an annual approximation on investable wealth only.
//    The solidarity surcharge applies above its threshold and is net of
//    the regular wealth tax already paid.
//
// 3. International regime: flat effective rates per income category,
//    applied to the return portion only. The gains rate must never be
//    applied to total assets; only the wealth rate is asset-based.

// TaxCategory classifies an amount for tax treatment.
type TaxCategory int

const (
	CategoryCapitalGains TaxCategory = iota
	CategoryDividends
	CategoryInterest
	CategoryWealth
	CategorySurcharge
)

// assumedTaxableReturnBase is the annual taxable return assumed when
// estimating the international regime's effective drag on returns.
var assumedTaxableReturnBase = decimal.NewFromFloat(0.07)

// WealthTaxDetail breaks the annual wealth taxes into components.
type WealthTaxDetail struct {
	WealthTax    decimal.Decimal `json:"wealth_tax"`
	SurchargeTax decimal.Decimal `json:"surcharge_tax"`
	Total        decimal.Decimal `json:"total"`
}

// TaxCalculator applies one jurisdiction's drag to returns and
// withdrawals. It is read-only after construction and safe to share
// across concurrent trials.
type TaxCalculator struct {
	regime domain.TaxRegimeRef
	pack   *domain.TaxPack
}

// NewTaxCalculator builds a calculator for the regime, failing closed
// when a required lookup key is absent.
func NewTaxCalculator(regime domain.TaxRegimeRef, pack *domain.TaxPack) (*TaxCalculator, error) {
	switch regime.Mode {
	case domain.RegimeNone:
		return &TaxCalculator{regime: regime}, nil

	case domain.RegimeInternationalFlat:
		for name, rate := range map[string]decimal.Decimal{
			"gains":     regime.FlatRates.Gains,
			"dividends": regime.FlatRates.Dividends,
			"interest":  regime.FlatRates.Interest,
			"wealth":    regime.FlatRates.Wealth,
		} {
			if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
				return nil, domain.NewInvalidParameterError("tax_regime.flat_rates."+name,
					"rate must be between 0 and 1, got %s", rate)
			}
		}
		return &TaxCalculator{regime: regime}, nil

	case domain.RegimeDomesticPack:
		if pack == nil {
			return nil, domain.NewConfigurationError("tax_regime",
				"domestic regime requires a tax pack for %s-%d", regime.Country, regime.Year)
		}
		if pack.Country != regime.Country || pack.Year != regime.Year {
			return nil, domain.NewConfigurationError("tax_regime",
				"tax pack %s-%d does not match requested %s-%d", pack.Country, pack.Year, regime.Country, regime.Year)
		}
		if regime.Region == "" {
			return nil, domain.NewConfigurationError("tax_regime.region", "region is required for the domestic regime")
		}
		if _, ok := pack.WealthRules(regime.Region); !ok {
			return nil, domain.NewConfigurationError("tax_regime.region",
				"region %q not present in tax pack %s-%d", regime.Region, pack.Country, pack.Year)
		}
		if len(pack.SavingsBrackets(regime.Region)) == 0 {
			return nil, domain.NewConfigurationError("tax_regime.region",
				"no savings bracket table for region %q in tax pack %s-%d", regime.Region, pack.Country, pack.Year)
		}
		return &TaxCalculator{regime: regime, pack: pack}, nil
	}

	return nil, domain.NewConfigurationError("tax_regime.mode", "unknown tax regime %q", regime.Mode)
}

// progressiveTax computes tax over a marginal bracket table. Each bracket
// taxes only the slice within its bounds, never the whole base at the top
// marginal rate.
func progressiveTax(base decimal.Decimal, brackets []domain.TaxBracket) decimal.Decimal {
	taxable := decimal.Max(base, decimal.Zero)
	lower := decimal.Zero
	tax := decimal.Zero
	for _, b := range brackets {
		rate := decimal.Max(b.Rate, decimal.Zero)
		if b.UpTo == nil {
			if taxable.GreaterThan(lower) {
				tax = tax.Add(taxable.Sub(lower).Mul(rate))
			}
			break
		}
		span := decimal.Min(taxable, *b.UpTo).Sub(lower)
		if span.GreaterThan(decimal.Zero) {
			tax = tax.Add(span.Mul(rate))
		}
		lower = *b.UpTo
		if taxable.LessThanOrEqual(lower) {
			break
		}
	}
	return decimal.Max(tax, decimal.Zero)
}

// Apply taxes a single amount under the given category, returning the net
// amount and the tax paid. Negative amounts are treated as zero tax.
func (tc *TaxCalculator) Apply(amount decimal.Decimal, category TaxCategory) (net, tax decimal.Decimal) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return amount, decimal.Zero
	}

	switch category {
	case CategoryWealth:
		tax = tc.WealthTaxes(amount).WealthTax
	case CategorySurcharge:
		tax = tc.WealthTaxes(amount).SurchargeTax
	case CategoryCapitalGains, CategoryDividends, CategoryInterest:
		tax = tc.incomeTax(amount, category)
	}
	return amount.Sub(tax), tax
}

func (tc *TaxCalculator) incomeTax(amount decimal.Decimal, category TaxCategory) decimal.Decimal {
	switch tc.regime.Mode {
	case domain.RegimeDomesticPack:
		return tc.SavingsTax(amount)
	case domain.RegimeInternationalFlat:
		// Flat rates apply to the income itself, never to total assets.
		switch category {
		case CategoryDividends:
			return amount.Mul(tc.regime.FlatRates.Dividends)
		case CategoryInterest:
			return amount.Mul(tc.regime.FlatRates.Interest)
		default:
			return amount.Mul(tc.regime.FlatRates.Gains)
		}
	}
	return decimal.Zero
}

// SavingsTax computes the annual progressive tax on a savings income base
// for the calculator's region, using the foral override when available.
func (tc *TaxCalculator) SavingsTax(base decimal.Decimal) decimal.Decimal {
	base = decimal.Max(base, decimal.Zero)
	if tc.regime.Mode != domain.RegimeDomesticPack {
		return tc.incomeTaxOnBase(base)
	}
	return progressiveTax(base, tc.pack.SavingsBrackets(tc.regime.Region))
}

// WealthTaxes computes the annual wealth tax and solidarity surcharge on
// investable wealth.
func (tc *TaxCalculator) WealthTaxes(wealth decimal.Decimal) WealthTaxDetail {
	wealth = decimal.Max(wealth, decimal.Zero)

	switch tc.regime.Mode {
	case domain.RegimeInternationalFlat:
		tax := wealth.Mul(tc.regime.FlatRates.Wealth)
		return WealthTaxDetail{WealthTax: tax, Total: tax}
	case domain.RegimeNone:
		return WealthTaxDetail{}
	}

	rules, ok := tc.pack.WealthRules(tc.regime.Region)
	if !ok {
		return WealthTaxDetail{}
	}

	base := decimal.Max(wealth.Sub(rules.MinExempt), decimal.Zero)
	wealthTax := progressiveTax(base, rules.Brackets)

	if rules.Bonus != nil && rules.Bonus.Mode == "fixedPct" {
		pct := decimal.Min(decimal.Max(rules.Bonus.Pct, decimal.Zero), decimal.NewFromInt(1))
		wealthTax = wealthTax.Mul(decimal.NewFromInt(1).Sub(pct))
	}

	surcharge := decimal.Zero
	sr := tc.pack.Wealth.Surcharge
	if wealth.GreaterThan(sr.Threshold) && len(sr.Brackets) > 0 {
		surchargeBase := decimal.Max(wealth.Sub(sr.MinExempt), decimal.Zero)
		gross := progressiveTax(surchargeBase, sr.Brackets)
		surcharge = decimal.Max(gross.Sub(wealthTax), decimal.Zero)
	}

	return WealthTaxDetail{
		WealthTax:    wealthTax,
		SurchargeTax: surcharge,
		Total:        wealthTax.Add(surcharge),
	}
}

// AccumulationDrag returns the total annual tax for one accumulation
// period: savings tax on the positive gain portion plus wealth taxes on
// end-of-period investable wealth.
func (tc *TaxCalculator) AccumulationDrag(grossGain, portfolioValue decimal.Decimal) decimal.Decimal {
	gain := decimal.Max(grossGain, decimal.Zero)

	switch tc.regime.Mode {
	case domain.RegimeDomesticPack:
		return tc.SavingsTax(gain).Add(tc.WealthTaxes(portfolioValue).Total)
	case domain.RegimeInternationalFlat:
		return gain.Mul(tc.regime.FlatRates.Gains).Add(portfolioValue.Mul(tc.regime.FlatRates.Wealth))
	}
	return decimal.Zero
}

// EffectiveReturnDrag estimates the international regime's annual drag on
// returns: the category-weighted effective rate applied to an assumed
// taxable return base, plus the wealth rate.
func (tc *TaxCalculator) EffectiveReturnDrag() decimal.Decimal {
	if tc.regime.Mode != domain.RegimeInternationalFlat {
		return decimal.Zero
	}
	r := tc.regime.FlatRates
	weighted := r.Gains.Mul(decimal.NewFromFloat(0.55)).
		Add(r.Dividends.Mul(decimal.NewFromFloat(0.25))).
		Add(r.Interest.Mul(decimal.NewFromFloat(0.20)))
	return assumedTaxableReturnBase.Mul(weighted).Add(r.Wealth)
}

// GrossUpWithdrawal converts a required net withdrawal into the gross
// amount to draw, taxing only the taxable share of the withdrawal. The
// fixed point converges in a handful of iterations for progressive
// tables; flat regimes converge immediately.
func (tc *TaxCalculator) GrossUpWithdrawal(net, taxableRatio decimal.Decimal) (gross, tax decimal.Decimal) {
	if net.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero
	}
	ratio := decimal.Min(decimal.Max(taxableRatio, decimal.Zero), decimal.NewFromInt(1))
	tolerance := decimal.NewFromFloat(0.01)

	gross = net
	for i := 0; i < 30; i++ {
		tax = tc.incomeTaxOnBase(gross.Mul(ratio))
		updated := net.Add(tax)
		if updated.Sub(gross).Abs().LessThanOrEqual(tolerance) {
			return updated, tax
		}
		gross = updated
	}
	return gross, tax
}

// TaxOnWithdrawal is the tax due on a gross withdrawal of which only the
// taxable share is income. Used when a withdrawal has been clamped and
// the gross-up fixed point no longer applies.
func (tc *TaxCalculator) TaxOnWithdrawal(gross, taxableRatio decimal.Decimal) decimal.Decimal {
	ratio := decimal.Min(decimal.Max(taxableRatio, decimal.Zero), decimal.NewFromInt(1))
	return tc.incomeTaxOnBase(gross.Mul(ratio))
}

func (tc *TaxCalculator) incomeTaxOnBase(base decimal.Decimal) decimal.Decimal {
	base = decimal.Max(base, decimal.Zero)
	switch tc.regime.Mode {
	case domain.RegimeDomesticPack:
		return progressiveTax(base, tc.pack.SavingsBrackets(tc.regime.Region))
	case domain.RegimeInternationalFlat:
		return base.Mul(tc.regime.FlatRates.Gains)
	}
	return decimal.Zero
}

// Regime exposes the regime reference this calculator was built for.
func (tc *TaxCalculator) Regime() domain.TaxRegimeRef {
	return tc.regime
}
