package calculation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firesim/fire-planner/internal/domain"
)

func twoPhaseParams() DecumulationParams {
	return DecumulationParams{
		ScenarioLabel:  "base",
		StartAge:       60,
		EndAge:         64,
		InitialBalance: dec("500000"),
		AnnualReturn:   dec("0.03"),
		InflationRate:  decimal.Zero,
		TaxableRatio:   decimal.Zero,
		Policy: domain.WithdrawalPolicy{
			Kind:                 domain.PolicyTwoPhase,
			PensionStartAge:      63,
			PrePensionNetAnnual:  dec("30000"),
			PostPensionNetAnnual: dec("12000"),
		},
	}
}

// assertLedgerIdentity checks the exact accounting identity on every row.
func assertLedgerIdentity(t *testing.T, ledger *domain.RetirementLedger) {
	t.Helper()
	for _, r := range ledger.Rows {
		reconstructed := r.OpeningBalance.Add(r.Growth).Add(r.Contribution).
			Add(r.PropertySale).Sub(r.GrossWithdrawal)
		assert.True(t, r.ClosingBalance.Equal(reconstructed),
			"year %d: closing %s != opening %s + growth %s + contribution %s + sale %s - withdrawal %s",
			r.Year, r.ClosingBalance, r.OpeningBalance, r.Growth, r.Contribution, r.PropertySale, r.GrossWithdrawal)
		assert.True(t, r.Mismatch.IsZero(), "year %d: mismatch %s", r.Year, r.Mismatch)
	}
}

func TestBuildLedgerTwoPhase(t *testing.T) {
	ledger, err := BuildLedger(twoPhaseParams(), nil, nil)
	require.NoError(t, err)
	require.Len(t, ledger.Rows, 5)
	assertLedgerIdentity(t, ledger)

	first := ledger.Rows[0]
	assert.Equal(t, 60, first.Age)
	assert.Equal(t, "pre_pension", first.Phase)
	assert.True(t, first.OpeningBalance.Equal(dec("500000")))
	assert.True(t, first.GrossGrowth.Equal(dec("15000")))
	assert.True(t, first.GrossWithdrawal.Equal(dec("30000")))
	assert.True(t, first.ClosingBalance.Equal(dec("485000")))

	// The withdrawal drops at the pension start age.
	atPension := ledger.Rows[3]
	assert.Equal(t, 63, atPension.Age)
	assert.Equal(t, "pension", atPension.Phase)
	assert.True(t, atPension.GrossWithdrawal.Equal(dec("12000")))

	assert.Equal(t, domain.StateHorizonEnd, ledger.FinalState)
	assert.Equal(t, 0, ledger.DepletionYear)
	assert.True(t, ledger.TotalShortfall().IsZero())
}

func TestBuildLedgerAccumulationBridge(t *testing.T) {
	params := twoPhaseParams()
	params.CurrentAge = 58
	params.AnnualContribution = dec("12000")
	params.InitialBalance = dec("100000")
	params.AnnualReturn = dec("0.1")

	ledger, err := BuildLedger(params, nil, nil)
	require.NoError(t, err)
	// Two accumulation years (58, 59) then five decumulation years.
	require.Len(t, ledger.Rows, 7)
	assertLedgerIdentity(t, ledger)

	age58 := ledger.Rows[0]
	assert.Equal(t, 1, age58.Year)
	assert.Equal(t, 58, age58.Age)
	assert.Equal(t, "accumulation", age58.Phase)
	assert.Equal(t, domain.StateAccumulating, age58.State)
	assert.True(t, age58.Contribution.Equal(dec("12000")))
	assert.True(t, age58.GrossWithdrawal.IsZero())
	// 100,000 + 10,000 growth + 12,000 contribution.
	assert.True(t, age58.ClosingBalance.Equal(dec("122000")))

	age59 := ledger.Rows[1]
	assert.Equal(t, domain.StateAccumulating, age59.State)
	// 122,000 + 12,200 + 12,000.
	assert.True(t, age59.ClosingBalance.Equal(dec("146200")))

	// Withdrawals start at the configured start age with the
	// accumulated balance.
	age60 := ledger.Rows[2]
	assert.Equal(t, 60, age60.Age)
	assert.Equal(t, domain.StateDecumulating, age60.State)
	assert.True(t, age60.OpeningBalance.Equal(dec("146200")))
	assert.True(t, age60.Contribution.IsZero())
	assert.True(t, age60.GrossWithdrawal.Equal(dec("30000")))
}

func TestBuildLedgerDepletionIsAStateNotAnError(t *testing.T) {
	params := twoPhaseParams()
	params.InitialBalance = dec("50000")
	params.AnnualReturn = decimal.Zero
	params.EndAge = 62
	params.Policy.PrePensionNetAnnual = dec("30000")
	params.Policy.PensionStartAge = 99

	ledger, err := BuildLedger(params, nil, nil)
	require.NoError(t, err)
	require.Len(t, ledger.Rows, 3)
	assertLedgerIdentity(t, ledger)

	// Year 1: 50,000 - 30,000 = 20,000.
	assert.True(t, ledger.Rows[0].ClosingBalance.Equal(dec("20000")))
	assert.True(t, ledger.Rows[0].UncoveredShortfall.IsZero())

	// Year 2: only 20,000 available; clamp and record the gap.
	year2 := ledger.Rows[1]
	assert.True(t, year2.GrossWithdrawal.Equal(dec("20000")))
	assert.True(t, year2.ClosingBalance.IsZero())
	assert.True(t, year2.UncoveredShortfall.Equal(dec("10000")))
	assert.Equal(t, domain.StateDepleted, year2.State)

	// Year 3: nothing left, the whole need is uncovered.
	year3 := ledger.Rows[2]
	assert.True(t, year3.GrossWithdrawal.IsZero())
	assert.True(t, year3.UncoveredShortfall.Equal(dec("30000")))

	assert.Equal(t, domain.StateDepleted, ledger.FinalState)
	assert.Equal(t, 2, ledger.DepletionYear)
	assert.True(t, ledger.TotalShortfall().Equal(dec("40000")))
}

func TestBuildLedgerDetailedPolicy(t *testing.T) {
	params := DecumulationParams{
		ScenarioLabel:  "detailed",
		StartAge:       64,
		EndAge:         70,
		InitialBalance: dec("800000"),
		AnnualReturn:   decimal.Zero,
		InflationRate:  decimal.Zero,
		TaxableRatio:   decimal.Zero,
		Policy: domain.WithdrawalPolicy{
			Kind:                      domain.PolicyDetailed,
			AnnualSpendingBase:        dec("36000"),
			OfficialPensionAge:        67,
			PublicPensionNetAnnual:    dec("18000"),
			PrivatePlanStartAge:       65,
			PrivatePlanDurationYears:  2,
			PrivatePlanNetAnnual:      dec("10000"),
			RentalIncomeNetAnnual:     dec("6000"),
			PrePensionExtraCostAnnual: dec("4000"),
		},
	}

	ledger, err := BuildLedger(params, nil, nil)
	require.NoError(t, err)
	require.Len(t, ledger.Rows, 7)
	assertLedgerIdentity(t, ledger)

	// Age 64: no pension, no plan yet; spending 36,000 + 4,000 extra,
	// rental covers 6,000 -> withdraw 34,000.
	age64 := ledger.Rows[0]
	assert.True(t, age64.IncomePublicPension.IsZero())
	assert.True(t, age64.IncomePrivatePlan.IsZero())
	assert.True(t, age64.IncomeRental.Equal(dec("6000")))
	assert.True(t, age64.GrossWithdrawal.Equal(dec("34000")))

	// Ages 65-66: private plan pays out.
	age65 := ledger.Rows[1]
	assert.True(t, age65.IncomePrivatePlan.Equal(dec("10000")))
	assert.True(t, age65.GrossWithdrawal.Equal(dec("24000")))
	age66 := ledger.Rows[2]
	assert.True(t, age66.IncomePrivatePlan.Equal(dec("10000")))

	// Age 67: plan ended, public pension starts, extra cost stops.
	age67 := ledger.Rows[3]
	assert.Equal(t, "pension", age67.Phase)
	assert.True(t, age67.IncomePrivatePlan.IsZero())
	assert.True(t, age67.IncomePublicPension.Equal(dec("18000")))
	assert.True(t, age67.GrossWithdrawal.Equal(dec("12000")))
}

func TestBuildLedgerPensionAdjustment(t *testing.T) {
	params := DecumulationParams{
		ScenarioLabel:  "adjusted",
		StartAge:       67,
		EndAge:         69,
		InitialBalance: dec("100000"),
		AnnualReturn:   decimal.Zero,
		InflationRate:  decimal.Zero,
		Policy: domain.WithdrawalPolicy{
			Kind:                     domain.PolicyDetailed,
			AnnualSpendingBase:       dec("30000"),
			OfficialPensionAge:       67,
			PublicPensionNetAnnual:   dec("20000"),
			PensionAdjustmentPerYear: dec("0.10"),
		},
	}

	ledger, err := BuildLedger(params, nil, nil)
	require.NoError(t, err)
	assertLedgerIdentity(t, ledger)

	assert.True(t, ledger.Rows[0].IncomePublicPension.Equal(dec("20000")))
	assert.True(t, ledger.Rows[1].IncomePublicPension.Equal(dec("22000")))
	assert.True(t, ledger.Rows[2].IncomePublicPension.Equal(dec("24200")))
}

func TestBuildLedgerInflationIndexing(t *testing.T) {
	params := twoPhaseParams()
	params.InflationRate = dec("0.10")
	params.EndAge = 61
	params.AnnualReturn = decimal.Zero

	ledger, err := BuildLedger(params, nil, nil)
	require.NoError(t, err)
	assertLedgerIdentity(t, ledger)

	// The first year is unindexed; the second carries one year of
	// inflation on the configured net amount.
	assert.True(t, ledger.Rows[0].GrossWithdrawal.Equal(dec("30000")))
	assert.True(t, ledger.Rows[1].GrossWithdrawal.Equal(dec("33000")))
}

func TestBuildLedgerMortgageAndSale(t *testing.T) {
	params := twoPhaseParams()
	params.AnnualReturn = decimal.Zero
	params.Mortgages = []MortgageSchedule{
		{Label: "home", AnnualPayment: dec("12000"), EndAge: 61},
	}
	params.PropertySales = []PropertySale{
		{Label: "flat", Age: 62, NetProceeds: dec("150000")},
	}
	params.ExtraWithdrawals = []ExtraWithdrawal{
		{Label: "roof", Age: 60, NetAmount: dec("8000")},
	}

	ledger, err := BuildLedger(params, nil, nil)
	require.NoError(t, err)
	assertLedgerIdentity(t, ledger)

	// Age 60: 30,000 spending + 12,000 mortgage + 8,000 one-off.
	assert.True(t, ledger.Rows[0].MortgagePayment.Equal(dec("12000")))
	assert.True(t, ledger.Rows[0].GrossWithdrawal.Equal(dec("50000")))
	// Age 61: mortgage still runs; one-off gone.
	assert.True(t, ledger.Rows[1].GrossWithdrawal.Equal(dec("42000")))
	// Age 62: mortgage finished, sale proceeds land.
	age62 := ledger.Rows[2]
	assert.True(t, age62.MortgagePayment.IsZero())
	assert.True(t, age62.PropertySale.Equal(dec("150000")))
	expected := ledger.Rows[1].ClosingBalance.Add(dec("150000")).Sub(dec("30000"))
	assert.True(t, age62.ClosingBalance.Equal(expected))
}

func TestBuildLedgerWithdrawalTax(t *testing.T) {
	params := twoPhaseParams()
	params.AnnualReturn = decimal.Zero
	params.EndAge = 60
	params.TaxableRatio = decimal.NewFromInt(1)

	tax := flatCalculator(t, "0.20", "0.20", "0.20", "0")
	ledger, err := BuildLedger(params, tax, nil)
	require.NoError(t, err)
	assertLedgerIdentity(t, ledger)

	row := ledger.Rows[0]
	// Delivering 30,000 net at a flat 20% needs ~37,500 gross.
	gross, _ := row.GrossWithdrawal.Float64()
	assert.InDelta(t, 37500, gross, 0.1)
	net, _ := row.NetDelivered.Float64()
	assert.InDelta(t, 30000, net, 0.1)
	assert.True(t, row.TaxOnWithdrawal.GreaterThan(decimal.Zero))
}

func TestBuildLedgerValidation(t *testing.T) {
	t.Run("end age before start", func(t *testing.T) {
		params := twoPhaseParams()
		params.EndAge = params.StartAge
		_, err := BuildLedger(params, nil, nil)
		assert.Error(t, err)
	})

	t.Run("unknown policy", func(t *testing.T) {
		params := twoPhaseParams()
		params.Policy.Kind = "guardrails"
		_, err := BuildLedger(params, nil, nil)
		assert.Error(t, err)
	})

	t.Run("negative balance", func(t *testing.T) {
		params := twoPhaseParams()
		params.InitialBalance = dec("-1")
		_, err := BuildLedger(params, nil, nil)
		assert.Error(t, err)
	})

	t.Run("current age at or past start age", func(t *testing.T) {
		params := twoPhaseParams()
		params.CurrentAge = params.StartAge
		_, err := BuildLedger(params, nil, nil)
		assert.Error(t, err)
	})

	t.Run("negative contribution", func(t *testing.T) {
		params := twoPhaseParams()
		params.CurrentAge = 55
		params.AnnualContribution = dec("-1")
		_, err := BuildLedger(params, nil, nil)
		assert.Error(t, err)
	})
}
