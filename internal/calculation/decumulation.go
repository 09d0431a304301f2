package calculation

import (
	"github.com/firesim/fire-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// DECUMULATION ASSUMPTIONS:
//
// 1. Every ledger row satisfies the identity
//    opening + growth + contribution + property sale - gross withdrawal
//    == closing exactly. Growth is net of the tax on growth; withdrawal
//    tax is inside the gross withdrawal, not a separate outflow.
//
// 2. Depletion is a state, not an error. When the portfolio cannot cover
//    the grossed-up need, the withdrawal is clamped to what is available,
//    the balance closes at zero and the undelivered net amount is
//    recorded as an uncovered shortfall. The Mismatch column is reserved
//    for accounting drift and stays zero under exact arithmetic.
//
// 3. Spending and income streams are configured in today's money and
//    inflation-indexed by the engine; mortgage payments are contractual
//    nominal amounts and are not indexed.

// MortgageSchedule is a fixed annual payment that runs through EndAge.
type MortgageSchedule struct {
	Label         string          `yaml:"label" json:"label"`
	AnnualPayment decimal.Decimal `yaml:"annual_payment" json:"annual_payment"`
	EndAge        int             `yaml:"end_age" json:"end_age"`
}

// PropertySale injects net proceeds into the portfolio at one age.
type PropertySale struct {
	Label       string          `yaml:"label" json:"label"`
	Age         int             `yaml:"age" json:"age"`
	NetProceeds decimal.Decimal `yaml:"net_proceeds" json:"net_proceeds"`
}

// ExtraWithdrawal is a one-off net outflow at one age, on top of the
// policy's regular spending.
type ExtraWithdrawal struct {
	Label     string          `yaml:"label" json:"label"`
	Age       int             `yaml:"age" json:"age"`
	NetAmount decimal.Decimal `yaml:"net_amount" json:"net_amount"`
}

// DecumulationParams configures one retirement scenario.
type DecumulationParams struct {
	ScenarioLabel string

	// CurrentAge, when set below StartAge, prepends accumulation years
	// that grow the balance with AnnualContribution before withdrawals
	// begin.
	CurrentAge         int
	AnnualContribution decimal.Decimal

	StartAge int
	EndAge   int

	InitialBalance decimal.Decimal
	AnnualReturn   decimal.Decimal
	InflationRate  decimal.Decimal

	// TaxableRatio is the gains share of each withdrawal, in [0, 1].
	TaxableRatio decimal.Decimal

	Policy domain.WithdrawalPolicy

	Mortgages        []MortgageSchedule
	PropertySales    []PropertySale
	ExtraWithdrawals []ExtraWithdrawal
}

func (p *DecumulationParams) validate() error {
	if p.EndAge <= p.StartAge {
		return domain.NewInvalidParameterError("end_age",
			"must be greater than start age %d, got %d", p.StartAge, p.EndAge)
	}
	if p.CurrentAge < 0 {
		return domain.NewInvalidParameterError("current_age", "cannot be negative, got %d", p.CurrentAge)
	}
	if p.CurrentAge != 0 && p.CurrentAge >= p.StartAge {
		return domain.NewInvalidParameterError("current_age",
			"must be below start age %d, got %d", p.StartAge, p.CurrentAge)
	}
	if p.AnnualContribution.IsNegative() {
		return domain.NewInvalidParameterError("annual_contribution",
			"cannot be negative, got %s", p.AnnualContribution)
	}
	if p.InitialBalance.IsNegative() {
		return domain.NewInvalidParameterError("initial_balance", "cannot be negative, got %s", p.InitialBalance)
	}
	if p.AnnualReturn.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return domain.NewInvalidParameterError("annual_return", "must be greater than -1, got %s", p.AnnualReturn)
	}
	if !p.Policy.Kind.Valid() {
		return domain.NewConfigurationError("withdrawal.kind", "unknown withdrawal policy %q", p.Policy.Kind)
	}
	return nil
}

// yearIncome is the resolved income and spending picture for one age.
type yearIncome struct {
	spending      decimal.Decimal
	publicPension decimal.Decimal
	privatePlan   decimal.Decimal
	rental        decimal.Decimal
	other         decimal.Decimal
}

// BuildLedger runs the year-by-year decumulation and returns the full
// accounting ledger for the scenario.
func BuildLedger(params DecumulationParams, tax *TaxCalculator, log Logger) (*domain.RetirementLedger, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = NopLogger{}
	}
	if tax == nil {
		var err error
		tax, err = NewTaxCalculator(domain.TaxRegimeRef{Mode: domain.RegimeNone}, nil)
		if err != nil {
			return nil, err
		}
	}

	one := decimal.NewFromInt(1)
	ledger := &domain.RetirementLedger{
		ScenarioLabel: params.ScenarioLabel,
		ImpliedReturn: params.AnnualReturn,
		FinalState:    domain.StateHorizonEnd,
	}

	balance := params.InitialBalance
	inflationFactor := one
	year := 0

	// Pre-independence bridge: contributions in, nothing out.
	if params.CurrentAge > 0 {
		for age := params.CurrentAge; age < params.StartAge; age++ {
			year++
			opening := balance

			grossGrowth := opening.Mul(params.AnnualReturn)
			taxOnGrowth := tax.AccumulationDrag(grossGrowth, opening.Add(grossGrowth))
			growthNet := grossGrowth.Sub(taxOnGrowth)

			closing := decimal.Max(opening.Add(growthNet).Add(params.AnnualContribution), decimal.Zero)

			ledger.Rows = append(ledger.Rows, domain.LedgerRow{
				Year:  year,
				Age:   age,
				Phase: "accumulation",
				State: domain.StateAccumulating,

				OpeningBalance: opening,
				GrossGrowth:    grossGrowth,
				TaxOnGrowth:    taxOnGrowth,
				Growth:         growthNet,
				Contribution:   params.AnnualContribution,

				ClosingBalance: closing,
				Mismatch:       closing.Sub(opening.Add(growthNet).Add(params.AnnualContribution)),
			})
			balance = closing
		}
	}

	depleted := balance.LessThanOrEqual(decimal.Zero)

	for age := params.StartAge; age <= params.EndAge; age++ {
		year++
		opening := balance

		grossGrowth := opening.Mul(params.AnnualReturn)
		taxOnGrowth := tax.AccumulationDrag(grossGrowth, opening.Add(grossGrowth))
		growthNet := grossGrowth.Sub(taxOnGrowth)

		income := resolveYearIncome(params.Policy, age, inflationFactor)

		netNeed := decimal.Max(income.spending.
			Sub(income.publicPension).Sub(income.privatePlan).
			Sub(income.rental).Sub(income.other), decimal.Zero)
		mortgage := mortgageDue(params.Mortgages, age)
		netNeed = netNeed.Add(mortgage).Add(extraDue(params.ExtraWithdrawals, age))

		sale := saleProceeds(params.PropertySales, age)
		available := decimal.Max(opening.Add(growthNet).Add(sale), decimal.Zero)

		gross, taxOnWithdrawal := tax.GrossUpWithdrawal(netNeed, params.TaxableRatio)
		shortfall := decimal.Zero
		if gross.GreaterThan(available) {
			gross = available
			taxOnWithdrawal = tax.TaxOnWithdrawal(gross, params.TaxableRatio)
			delivered := gross.Sub(taxOnWithdrawal)
			shortfall = decimal.Max(netNeed.Sub(delivered), decimal.Zero)
		}
		netDelivered := gross.Sub(taxOnWithdrawal)

		closing := opening.Add(growthNet).Add(sale).Sub(gross)
		closing = decimal.Max(closing, decimal.Zero)

		state := domain.StateDecumulating
		if depleted || closing.LessThanOrEqual(decimal.Zero) {
			state = domain.StateDepleted
			if !depleted {
				ledger.DepletionYear = year
				log.Warnf("portfolio depleted at age %d (year %d) in scenario %q", age, year, params.ScenarioLabel)
			}
			depleted = true
		}

		mismatch := closing.Sub(opening.Add(growthNet).Add(sale).Sub(gross))

		ledger.Rows = append(ledger.Rows, domain.LedgerRow{
			Year:  year,
			Age:   age,
			Phase: phaseLabel(params.Policy, age),
			State: state,

			OpeningBalance:  opening,
			GrossGrowth:     grossGrowth,
			TaxOnGrowth:     taxOnGrowth,
			Growth:          growthNet,
			GrossWithdrawal: gross,
			TaxOnWithdrawal: taxOnWithdrawal,
			NetDelivered:    netDelivered,

			IncomePublicPension: income.publicPension,
			IncomePrivatePlan:   income.privatePlan,
			IncomeRental:        income.rental,
			IncomeOther:         income.other,

			MortgagePayment: mortgage,
			PropertySale:    sale,

			ClosingBalance:     closing,
			UncoveredShortfall: shortfall,
			Mismatch:           mismatch,
		})

		balance = closing
		inflationFactor = inflationFactor.Mul(one.Add(params.InflationRate))
	}

	if depleted {
		ledger.FinalState = domain.StateDepleted
	}
	return ledger, nil
}

// resolveYearIncome expands the withdrawal policy into the spending and
// income columns for one age. The inflation factor indexes everything
// configured in today's money.
func resolveYearIncome(policy domain.WithdrawalPolicy, age int, inflationFactor decimal.Decimal) yearIncome {
	switch policy.Kind {
	case domain.PolicyTwoPhase:
		spend := policy.PrePensionNetAnnual
		if age >= policy.PensionStartAge {
			spend = policy.PostPensionNetAnnual
		}
		return yearIncome{spending: spend.Mul(inflationFactor)}

	case domain.PolicyDetailed:
		inc := yearIncome{spending: policy.AnnualSpendingBase.Mul(inflationFactor)}
		if age < policy.OfficialPensionAge {
			inc.spending = inc.spending.Add(policy.PrePensionExtraCostAnnual.Mul(inflationFactor))
		} else {
			pension := policy.PublicPensionNetAnnual
			if !policy.PensionAdjustmentPerYear.IsZero() {
				yearsIn := int64(age - policy.OfficialPensionAge)
				adj := decimal.NewFromInt(1).Add(policy.PensionAdjustmentPerYear).Pow(decimal.NewFromInt(yearsIn))
				pension = pension.Mul(adj)
			}
			inc.publicPension = pension.Mul(inflationFactor)
		}
		if policy.PrivatePlanDurationYears > 0 &&
			age >= policy.PrivatePlanStartAge &&
			age < policy.PrivatePlanStartAge+policy.PrivatePlanDurationYears {
			inc.privatePlan = policy.PrivatePlanNetAnnual.Mul(inflationFactor)
		}
		inc.rental = policy.RentalIncomeNetAnnual.Mul(inflationFactor)
		inc.other = policy.OtherIncomeNetAnnual.Mul(inflationFactor)
		return inc
	}
	return yearIncome{}
}

func phaseLabel(policy domain.WithdrawalPolicy, age int) string {
	pensionAge := policy.PensionStartAge
	if policy.Kind == domain.PolicyDetailed {
		pensionAge = policy.OfficialPensionAge
	}
	if age < pensionAge {
		return "pre_pension"
	}
	return "pension"
}

func mortgageDue(schedules []MortgageSchedule, age int) decimal.Decimal {
	total := decimal.Zero
	for _, m := range schedules {
		if age <= m.EndAge {
			total = total.Add(m.AnnualPayment)
		}
	}
	return total
}

func saleProceeds(sales []PropertySale, age int) decimal.Decimal {
	total := decimal.Zero
	for _, s := range sales {
		if s.Age == age {
			total = total.Add(s.NetProceeds)
		}
	}
	return total
}

func extraDue(extras []ExtraWithdrawal, age int) decimal.Decimal {
	total := decimal.Zero
	for _, e := range extras {
		if e.Age == age {
			total = total.Add(e.NetAmount)
		}
	}
	return total
}
