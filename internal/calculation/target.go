package calculation

import (
	"github.com/firesim/fire-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// TargetFIRE computes the portfolio value needed to sustain the annual
// spending indefinitely at the safe withdrawal rate. This is the single
// source of truth for the target; every surface showing one calls it.
func TargetFIRE(annualSpending, safeWithdrawalRate decimal.Decimal) (decimal.Decimal, error) {
	if safeWithdrawalRate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.NewInvalidParameterError("safe_withdrawal_rate",
			"must be positive, got %s", safeWithdrawalRate)
	}
	if annualSpending.IsNegative() {
		return decimal.Zero, domain.NewInvalidParameterError("annual_spending",
			"cannot be negative, got %s", annualSpending)
	}
	return annualSpending.Div(safeWithdrawalRate), nil
}

// GrossTarget adjusts the FIRE target for a flat effective tax expected
// at withdrawal: spending / (swr * (1 - rate)).
func GrossTarget(annualSpending, safeWithdrawalRate, effectiveTaxRate decimal.Decimal) (decimal.Decimal, error) {
	if effectiveTaxRate.IsNegative() || effectiveTaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, domain.NewInvalidParameterError("effective_tax_rate",
			"must be in [0, 1), got %s", effectiveTaxRate)
	}
	effectiveSWR := safeWithdrawalRate.Mul(decimal.NewFromInt(1).Sub(effectiveTaxRate))
	return TargetFIRE(annualSpending, effectiveSWR)
}

// FutureValue projects savings plus a level annual contribution at a
// constant return over the given number of years.
func FutureValue(currentSavings, annualContribution decimal.Decimal, years int, expectedReturn decimal.Decimal) decimal.Decimal {
	if years <= 0 {
		return currentSavings
	}
	n := decimal.NewFromInt(int64(years))
	if expectedReturn.IsZero() {
		return currentSavings.Add(annualContribution.Mul(n))
	}
	growth := decimal.NewFromInt(1).Add(expectedReturn).Pow(n)
	return currentSavings.Mul(growth).
		Add(annualContribution.Mul(growth.Sub(decimal.NewFromInt(1))).Div(expectedReturn))
}

// CoastFIRECondition reports whether the current savings path reaches the
// target within the horizon without changing contributions.
func CoastFIRECondition(currentSavings, annualContribution decimal.Decimal, yearsToTarget int, expectedReturn, targetPortfolio decimal.Decimal) (bool, error) {
	if yearsToTarget < 0 {
		return false, domain.NewInvalidParameterError("years_to_target", "must be non-negative, got %d", yearsToTarget)
	}
	fv := FutureValue(currentSavings, annualContribution, yearsToTarget, expectedReturn)
	return fv.GreaterThanOrEqual(targetPortfolio), nil
}

// SavingsRate is the saved fraction of gross income; zero when income is
// not positive.
func SavingsRate(grossIncome, annualSpending decimal.Decimal) decimal.Decimal {
	if grossIncome.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return grossIncome.Sub(annualSpending).Div(grossIncome)
}

// MarketScenario is one entry of the pessimistic/base/optimistic sweep.
type MarketScenario struct {
	Name           string          `json:"name"`
	ExpectedReturn decimal.Decimal `json:"expected_return"`
	FinalPortfolio decimal.Decimal `json:"final_portfolio"`
	YearsToTarget  int             `json:"years_to_target"`
	TargetReached  bool            `json:"target_reached"`
}

// MarketScenarios sweeps the horizon under a -30%/base/+30% return
// assumption, reporting the first year the target is reached.
func MarketScenarios(currentSavings, annualContribution decimal.Decimal, yearsToTarget int, targetPortfolio, baseReturn decimal.Decimal) []MarketScenario {
	variants := []struct {
		name   string
		factor decimal.Decimal
	}{
		{"pessimistic", decimal.NewFromFloat(0.70)},
		{"base", decimal.NewFromInt(1)},
		{"optimistic", decimal.NewFromFloat(1.30)},
	}

	scenarios := make([]MarketScenario, 0, len(variants))
	for _, v := range variants {
		ret := baseReturn.Mul(v.factor)
		final := FutureValue(currentSavings, annualContribution, yearsToTarget, ret)

		yearsNeeded := yearsToTarget
		for y := 1; y <= yearsToTarget; y++ {
			if FutureValue(currentSavings, annualContribution, y, ret).GreaterThanOrEqual(targetPortfolio) {
				yearsNeeded = y
				break
			}
		}

		scenarios = append(scenarios, MarketScenario{
			Name:           v.name,
			ExpectedReturn: ret,
			FinalPortfolio: final,
			YearsToTarget:  yearsNeeded,
			TargetReached:  final.GreaterThanOrEqual(targetPortfolio),
		})
	}
	return scenarios
}

// TaxableWithdrawalRatio estimates the taxable (gains) share of
// withdrawals at retirement by projecting principal against portfolio
// value to the horizon. Result is clamped to [0, 1].
func TaxableWithdrawalRatio(initialWealth, monthlyContribution decimal.Decimal, years int, expectedReturn, contributionGrowthRate decimal.Decimal) decimal.Decimal {
	portfolio := decimal.Max(initialWealth, decimal.Zero)
	principal := portfolio
	annualContribution := decimal.Max(monthlyContribution, decimal.Zero).Mul(decimal.NewFromInt(12))
	one := decimal.NewFromInt(1)

	for year := 1; year <= years; year++ {
		portfolio = portfolio.Mul(one.Add(expectedReturn))
		contribution := annualContribution
		if !contributionGrowthRate.IsZero() && year > 1 {
			contribution = annualContribution.Mul(one.Add(contributionGrowthRate).Pow(decimal.NewFromInt(int64(year - 1))))
		}
		portfolio = portfolio.Add(contribution)
		principal = principal.Add(contribution)
	}

	if portfolio.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	gains := decimal.Max(portfolio.Sub(principal), decimal.Zero)
	return decimal.Min(gains.Div(portfolio), one)
}

// RetirementTaxContext is the pack-aware gross target: the fixed point
// where the portfolio is large enough that its withdrawal covers spending
// plus the wealth tax on the portfolio plus the savings tax on the
// taxable withdrawal share.
type RetirementTaxContext struct {
	BaseTarget           decimal.Decimal `json:"base_target"`
	GrossWithdrawal      decimal.Decimal `json:"gross_withdrawal_required"`
	AnnualSavingsTax     decimal.Decimal `json:"annual_savings_tax"`
	AnnualWealthTax      decimal.Decimal `json:"annual_wealth_tax"`
	TotalAnnualTax       decimal.Decimal `json:"total_annual_tax"`
	TargetPortfolioGross decimal.Decimal `json:"target_portfolio_gross"`
	Converged            bool            `json:"converged"`
	Iterations           int             `json:"iterations"`
}

// EstimateRetirementTaxContext iterates the gross FIRE target under the
// calculator's regime. With no tax drag the base target is returned as is.
func EstimateRetirementTaxContext(netSpending, safeWithdrawalRate, taxableWithdrawalRatio decimal.Decimal, tax *TaxCalculator) (RetirementTaxContext, error) {
	baseTarget, err := TargetFIRE(netSpending, safeWithdrawalRate)
	if err != nil {
		return RetirementTaxContext{}, err
	}
	if tax == nil || tax.Regime().Mode == domain.RegimeNone {
		return RetirementTaxContext{
			BaseTarget:           baseTarget,
			GrossWithdrawal:      netSpending,
			TargetPortfolioGross: baseTarget,
			Converged:            true,
		}, nil
	}

	ratio := decimal.Min(decimal.Max(taxableWithdrawalRatio, decimal.Zero), decimal.NewFromInt(1))
	targetTolerance := decimal.NewFromInt(1)

	ctx := RetirementTaxContext{BaseTarget: baseTarget, TargetPortfolioGross: baseTarget, GrossWithdrawal: netSpending}
	for outer := 1; outer <= 30; outer++ {
		ctx.Iterations = outer
		ctx.AnnualWealthTax = tax.WealthTaxes(ctx.TargetPortfolioGross).Total

		gross, savingsTax := tax.GrossUpWithdrawal(netSpending.Add(ctx.AnnualWealthTax), ratio)
		ctx.AnnualSavingsTax = savingsTax

		newTarget := gross.Div(safeWithdrawalRate)
		ctx.GrossWithdrawal = gross
		if newTarget.Sub(ctx.TargetPortfolioGross).Abs().LessThanOrEqual(targetTolerance) {
			ctx.TargetPortfolioGross = newTarget
			ctx.Converged = true
			break
		}
		ctx.TargetPortfolioGross = newTarget
	}

	ctx.TotalAnnualTax = ctx.AnnualSavingsTax.Add(ctx.AnnualWealthTax)
	return ctx, nil
}

// NetWorth summarizes liquid and real estate wealth net of liabilities.
func NetWorth(liquidPortfolio, realEstateValue, realEstateMortgage, otherLiabilities decimal.Decimal) domain.NetWorthBreakdown {
	equity := realEstateValue.Sub(realEstateMortgage)
	return domain.NetWorthBreakdown{
		LiquidPortfolio:  liquidPortfolio,
		RealEstateValue:  realEstateValue,
		RealEstateEquity: equity,
		TotalLiabilities: realEstateMortgage.Add(otherLiabilities),
		NetWorth:         liquidPortfolio.Add(equity).Sub(otherLiabilities),
	}
}
