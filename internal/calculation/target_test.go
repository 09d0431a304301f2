package calculation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firesim/fire-planner/internal/domain"
)

func TestTargetFIRE(t *testing.T) {
	tests := []struct {
		name     string
		spending string
		swr      string
		want     string
	}{
		{"classic 4 percent rule", "40000", "0.04", "1000000"},
		{"three percent rule", "30000", "0.03", "1000000"},
		{"zero spending", "0", "0.04", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TargetFIRE(dec(tt.spending), dec(tt.swr))
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tt.want)), "got %s, want %s", got, tt.want)
		})
	}

	t.Run("rejects non-positive rate", func(t *testing.T) {
		_, err := TargetFIRE(dec("40000"), decimal.Zero)
		var perr *domain.InvalidParameterError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "safe_withdrawal_rate", perr.Param)
	})

	t.Run("rejects negative spending", func(t *testing.T) {
		_, err := TargetFIRE(dec("-1"), dec("0.04"))
		var perr *domain.InvalidParameterError
		require.True(t, errors.As(err, &perr))
	})
}

func TestGrossTarget(t *testing.T) {
	got, err := GrossTarget(dec("40000"), dec("0.04"), dec("0.20"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("1250000")), "got %s", got)

	_, err = GrossTarget(dec("40000"), dec("0.04"), dec("1"))
	var perr *domain.InvalidParameterError
	require.True(t, errors.As(err, &perr))
}

func TestFutureValue(t *testing.T) {
	t.Run("zero return is linear", func(t *testing.T) {
		got := FutureValue(dec("100"), dec("10"), 5, decimal.Zero)
		assert.True(t, got.Equal(dec("150")))
	})

	t.Run("zero years returns savings", func(t *testing.T) {
		got := FutureValue(dec("100"), dec("10"), 0, dec("0.05"))
		assert.True(t, got.Equal(dec("100")))
	})

	t.Run("annuity formula", func(t *testing.T) {
		// 1000*1.1^2 + 100*((1.1^2-1)/0.1) = 1210 + 210 = 1420
		got := FutureValue(dec("1000"), dec("100"), 2, dec("0.1"))
		f, _ := got.Float64()
		assert.InDelta(t, 1420, f, 0.001)
	})
}

func TestCoastFIRECondition(t *testing.T) {
	t.Run("already at target", func(t *testing.T) {
		ok, err := CoastFIRECondition(dec("1000000"), decimal.Zero, 0, dec("0.05"), dec("1000000"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("just below target", func(t *testing.T) {
		ok, err := CoastFIRECondition(dec("999999"), decimal.Zero, 0, dec("0.05"), dec("1000000"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("growth closes the gap", func(t *testing.T) {
		ok, err := CoastFIRECondition(dec("500000"), decimal.Zero, 15, dec("0.05"), dec("1000000"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("negative horizon rejected", func(t *testing.T) {
		_, err := CoastFIRECondition(dec("1"), decimal.Zero, -1, dec("0.05"), dec("1"))
		var perr *domain.InvalidParameterError
		require.True(t, errors.As(err, &perr))
	})
}

func TestSavingsRate(t *testing.T) {
	assert.True(t, SavingsRate(dec("100000"), dec("40000")).Equal(dec("0.6")))
	assert.True(t, SavingsRate(decimal.Zero, dec("40000")).IsZero())
	// Spending above income yields a negative rate, not a clamp.
	assert.True(t, SavingsRate(dec("40000"), dec("50000")).Equal(dec("-0.25")))
}

func TestMarketScenarios(t *testing.T) {
	scenarios := MarketScenarios(dec("100000"), dec("12000"), 20, dec("1000000"), dec("0.06"))
	require.Len(t, scenarios, 3)
	assert.Equal(t, "pessimistic", scenarios[0].Name)
	assert.Equal(t, "base", scenarios[1].Name)
	assert.Equal(t, "optimistic", scenarios[2].Name)

	assert.True(t, scenarios[0].FinalPortfolio.LessThan(scenarios[1].FinalPortfolio))
	assert.True(t, scenarios[1].FinalPortfolio.LessThan(scenarios[2].FinalPortfolio))
}

func TestTaxableWithdrawalRatio(t *testing.T) {
	t.Run("no growth means no gains", func(t *testing.T) {
		ratio := TaxableWithdrawalRatio(dec("100000"), dec("1000"), 10, decimal.Zero, decimal.Zero)
		assert.True(t, ratio.IsZero())
	})

	t.Run("positive growth stays within bounds", func(t *testing.T) {
		ratio := TaxableWithdrawalRatio(dec("100000"), dec("1000"), 20, dec("0.07"), dec("0.02"))
		assert.True(t, ratio.GreaterThan(decimal.Zero))
		assert.True(t, ratio.LessThan(decimal.NewFromInt(1)))
	})

	t.Run("empty portfolio", func(t *testing.T) {
		ratio := TaxableWithdrawalRatio(decimal.Zero, decimal.Zero, 10, dec("0.07"), decimal.Zero)
		assert.True(t, ratio.IsZero())
	})
}

func TestEstimateRetirementTaxContext(t *testing.T) {
	t.Run("no regime returns the base target", func(t *testing.T) {
		none, err := NewTaxCalculator(domain.TaxRegimeRef{Mode: domain.RegimeNone}, nil)
		require.NoError(t, err)

		ctx, err := EstimateRetirementTaxContext(dec("40000"), dec("0.04"), dec("0.5"), none)
		require.NoError(t, err)
		assert.True(t, ctx.Converged)
		assert.True(t, ctx.TargetPortfolioGross.Equal(dec("1000000")))
		assert.True(t, ctx.TotalAnnualTax.IsZero())
	})

	t.Run("flat regime grosses the target up", func(t *testing.T) {
		flat := flatCalculator(t, "0.20", "0.20", "0.20", "0")

		ctx, err := EstimateRetirementTaxContext(dec("40000"), dec("0.04"), dec("1"), flat)
		require.NoError(t, err)
		assert.True(t, ctx.Converged)
		// Fully taxable at 20%: gross withdrawal tends to 50,000 and the
		// target to 1.25M.
		g, _ := ctx.TargetPortfolioGross.Float64()
		assert.InDelta(t, 1250000, g, 50)
		assert.True(t, ctx.TargetPortfolioGross.GreaterThan(ctx.BaseTarget))
	})

	t.Run("invalid rate propagates", func(t *testing.T) {
		_, err := EstimateRetirementTaxContext(dec("40000"), decimal.Zero, decimal.Zero, nil)
		var perr *domain.InvalidParameterError
		require.True(t, errors.As(err, &perr))
	})
}

func TestNetWorth(t *testing.T) {
	nw := NetWorth(dec("300000"), dec("400000"), dec("150000"), dec("10000"))
	assert.True(t, nw.RealEstateEquity.Equal(dec("250000")))
	assert.True(t, nw.TotalLiabilities.Equal(dec("160000")))
	assert.True(t, nw.NetWorth.Equal(dec("540000")))
}
