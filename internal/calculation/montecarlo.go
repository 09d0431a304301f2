package calculation

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/firesim/fire-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// SIMULATION ASSUMPTIONS:
//
// 1. Success is judged in real terms: a trial succeeds when its terminal
//    balance, deflated by the configured inflation rate, meets the
//    today's-money target.
//
// 2. Trial t derives its randomness from seed+t, so a run is exactly
//    reproducible for a given seed regardless of goroutine scheduling,
//    and no two trials share a random stream.
//
// 3. Percentiles use linear interpolation between closest ranks.
//
// 4. Depletion clamps the balance at zero. A depleted path stays at zero
//    for the rest of its horizon.

// maxConcurrentTrials bounds the simulation worker pool.
const maxConcurrentTrials = 10

// coverageReporter is implemented by historical-mode generators, which
// know how many candidate windows their series' gaps excluded.
type coverageReporter interface {
	Coverage(evaluated int) *domain.CoverageMetadata
}

// Simulator runs many trials through a path generator and aggregates
// them into percentile bands and success metrics.
type Simulator struct {
	cfg *domain.SimulationConfig
	tax *TaxCalculator
	gen PathGenerator
	log Logger
}

// NewSimulator wires a simulator. The tax calculator may be nil for an
// untaxed run; the logger may be nil.
func NewSimulator(cfg *domain.SimulationConfig, tax *TaxCalculator, gen PathGenerator, log Logger) (*Simulator, error) {
	if cfg == nil {
		return nil, domain.NewConfigurationError("config", "simulation config is required")
	}
	if gen == nil {
		return nil, domain.NewConfigurationError("path_generator", "path generator is required")
	}
	if log == nil {
		log = NopLogger{}
	}
	if cfg.HorizonYears <= 0 {
		return nil, domain.NewInvalidParameterError("horizon_years", "must be positive, got %d", cfg.HorizonYears)
	}
	if cfg.NumTrials <= 0 && cfg.MarketModel != domain.ModelBacktest {
		return nil, domain.NewInvalidParameterError("num_trials", "must be positive, got %d", cfg.NumTrials)
	}
	if tax == nil {
		var err error
		tax, err = NewTaxCalculator(domain.TaxRegimeRef{Mode: domain.RegimeNone}, nil)
		if err != nil {
			return nil, err
		}
	}
	return &Simulator{cfg: cfg, tax: tax, gen: gen, log: log}, nil
}

// Run executes all trials and aggregates the outcome. The context
// cancels in-flight work between trials.
func (s *Simulator) Run(ctx context.Context) (*domain.AggregateResult, error) {
	trials := s.gen.NumTrials(s.cfg.NumTrials)
	if trials <= 0 {
		return nil, domain.NewInvalidParameterError("num_trials", "resolved trial count is %d", trials)
	}
	years := s.cfg.HorizonYears

	target, err := TargetFIRE(s.cfg.AnnualSpending, s.cfg.SafeWithdrawalRate)
	if err != nil {
		return nil, err
	}

	s.log.Infof("running %d trials over %d years (model=%s)", trials, years, s.cfg.MarketModel)

	// One flat arena for all balance rows keeps the hot loop free of
	// per-trial allocations beyond the return slice.
	periods := years + 1
	arena := make([]decimal.Decimal, trials*periods)
	balances := make([][]decimal.Decimal, trials)
	for i := range balances {
		balances[i] = arena[i*periods : (i+1)*periods]
	}

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, maxConcurrentTrials)
		errOnce  sync.Once
		trialErr error
	)

	for trial := 0; trial < trials; trial++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(trial int) {
			defer wg.Done()
			defer func() { <-sem }()

			rng := rand.New(rand.NewSource(s.cfg.Seed + int64(trial)))
			returns, err := s.gen.AnnualReturns(trial, rng)
			if err != nil {
				errOnce.Do(func() { trialErr = err })
				return
			}
			s.runTrial(balances[trial], returns)
		}(trial)
	}
	wg.Wait()

	if trialErr != nil {
		return nil, trialErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.aggregate(balances, target), nil
}

// runTrial fills one balance row. Index 0 is the starting balance.
func (s *Simulator) runTrial(row []decimal.Decimal, returns []decimal.Decimal) {
	balance := s.cfg.InitialBalance
	row[0] = balance

	for year := 1; year < len(row); year++ {
		growth := balance.Mul(returns[year-1])
		fee := balance.Mul(s.cfg.FeeRate)
		preTax := balance.Add(growth).Add(s.cfg.AnnualContribution(year)).Sub(fee)

		tax := s.tax.AccumulationDrag(growth, preTax)
		balance = decimal.Max(preTax.Sub(tax), decimal.Zero)
		row[year] = balance
	}
}

func (s *Simulator) aggregate(balances [][]decimal.Decimal, target decimal.Decimal) *domain.AggregateResult {
	trials := len(balances)
	periods := len(balances[0])
	one := decimal.NewFromInt(1)
	inflationFactor := one.Add(s.cfg.InflationRate)

	result := &domain.AggregateResult{
		Target:        target.Mul(inflationFactor.Pow(decimal.NewFromInt(int64(periods - 1)))),
		RealTarget:    target,
		NumTrials:     trials,
		HorizonYears:  s.cfg.HorizonYears,
		Model:         s.cfg.MarketModel,
		SuccessToDate: make([]decimal.Decimal, periods),
	}
	result.Nominal = newPercentileSeries(periods)
	result.Real = newPercentileSeries(periods)

	column := make([]decimal.Decimal, trials)
	realColumn := make([]decimal.Decimal, trials)
	deflator := one
	total := decimal.NewFromInt(int64(trials))

	for p := 0; p < periods; p++ {
		if p > 0 {
			deflator = deflator.Mul(inflationFactor)
		}

		successes := 0
		for t := 0; t < trials; t++ {
			column[t] = balances[t][p]
			realColumn[t] = balances[t][p].Div(deflator)
			if realColumn[t].GreaterThanOrEqual(target) {
				successes++
			}
		}
		if target.IsZero() {
			result.SuccessToDate[p] = one
		} else {
			result.SuccessToDate[p] = decimal.NewFromInt(int64(successes)).Div(total)
		}

		fillPercentiles(&result.Nominal, p, column)
		fillPercentiles(&result.Real, p, realColumn)
	}
	result.SuccessRate = result.SuccessToDate[periods-1]

	critical, favorable := 0, 0
	for t := 1; t < trials; t++ {
		terminal := balances[t][periods-1]
		if terminal.LessThan(balances[critical][periods-1]) {
			critical = t
		}
		if terminal.GreaterThan(balances[favorable][periods-1]) {
			favorable = t
		}
	}
	result.Critical = s.windowRef(critical, balances[critical])
	result.Favorable = s.windowRef(favorable, balances[favorable])

	if target.GreaterThan(decimal.Zero) {
		spread := result.Favorable.TerminalBalance.Sub(result.Critical.TerminalBalance)
		result.SequenceRiskKPI = spread.Div(target)
	}

	if cr, ok := s.gen.(coverageReporter); ok {
		result.Coverage = cr.Coverage(trials)
	}

	s.log.Infof("aggregation complete: success rate %s, sequence risk %s",
		result.SuccessRate.StringFixed(4), result.SequenceRiskKPI.StringFixed(4))
	return result
}

func (s *Simulator) windowRef(trial int, row []decimal.Decimal) domain.WindowRef {
	kept := make([]decimal.Decimal, len(row))
	copy(kept, row)
	return domain.WindowRef{
		Trial:           trial,
		StartDate:       s.gen.WindowStart(trial),
		TerminalBalance: row[len(row)-1],
		Balances:        kept,
	}
}

func newPercentileSeries(periods int) domain.PercentileSeries {
	return domain.PercentileSeries{
		P5:  make([]decimal.Decimal, periods),
		P25: make([]decimal.Decimal, periods),
		P50: make([]decimal.Decimal, periods),
		P75: make([]decimal.Decimal, periods),
		P95: make([]decimal.Decimal, periods),
	}
}

func fillPercentiles(series *domain.PercentileSeries, period int, column []decimal.Decimal) {
	sorted := make([]decimal.Decimal, len(column))
	copy(sorted, column)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	series.P5[period] = percentile(sorted, 0.05)
	series.P25[period] = percentile(sorted, 0.25)
	series.P50[period] = percentile(sorted, 0.50)
	series.P75[period] = percentile(sorted, 0.75)
	series.P95[period] = percentile(sorted, 0.95)
}

// percentile interpolates linearly between the closest ranks of an
// ascending-sorted slice.
func percentile(sorted []decimal.Decimal, p float64) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := decimal.NewFromFloat(rank - float64(lo))
	return sorted[lo].Add(sorted[hi].Sub(sorted[lo]).Mul(frac))
}
