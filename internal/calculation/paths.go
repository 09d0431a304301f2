package calculation

import (
	"math"
	"math/rand"
	"time"

	"github.com/firesim/fire-planner/internal/domain"
	"github.com/shopspring/decimal"
)

// PATH GENERATION ASSUMPTIONS:
//
// 1. Normal mode draws independent annual returns via Box-Muller; returns
//    compound multiplicatively, they are never summed additively.
//
// 2. Bootstrap mode resamples blocks of 12 consecutive historical months
//    and compounds them into annual returns, preserving within-year
//    autocorrelation and fat tails that independent monthly draws lose.
//    The equity draw is blended with the configured bond return.
//
// 3. Backtest mode is exhaustive and deterministic: every contiguous
//    window of the horizon length, advancing one month at a time, in
//    chronological order. No sampling is involved.
//
// 4. Both historical modes only use windows whose months are calendar
//    consecutive. A window straddling a gap in the series is excluded,
//    and the excluded count is carried into coverage metadata.

// PathGenerator produces one trial's per-year gross return sequence.
// Implementations are stateless with respect to trials; all randomness
// comes from the caller-supplied generator so trials stay reproducible
// and independent across goroutines.
type PathGenerator interface {
	AnnualReturns(trial int, rng *rand.Rand) ([]decimal.Decimal, error)

	// NumTrials resolves the effective trial count. Sampling modes honor
	// the request; the backtest substitutes its exhaustive window count.
	NumTrials(requested int) int

	// WindowStart reports the historical start month of a trial, nil for
	// synthetic modes.
	WindowStart(trial int) *time.Time
}

// NewPathGenerator constructs the generator for the configured market
// model. Historical modes require a series long enough for one horizon.
func NewPathGenerator(cfg *domain.SimulationConfig, series *HistoricalSeries) (PathGenerator, error) {
	if !cfg.MarketModel.Valid() {
		return nil, domain.NewConfigurationError("market_model", "unknown market model %q", cfg.MarketModel)
	}
	if cfg.HorizonYears <= 0 {
		return nil, domain.NewInvalidParameterError("horizon_years", "must be positive, got %d", cfg.HorizonYears)
	}

	if cfg.MarketModel.UsesHistoricalData() {
		if series == nil {
			return nil, domain.NewConfigurationError("historical_series",
				"market model %q requires a historical series", cfg.MarketModel)
		}
		needed := cfg.HorizonYears * monthsPerYear
		if series.Months() < needed {
			return nil, &domain.InsufficientDataError{
				NeededPeriods:    needed,
				AvailablePeriods: series.Months(),
			}
		}
	}

	switch cfg.MarketModel {
	case domain.ModelNormal:
		mean, _ := cfg.ExpectedReturn.Float64()
		vol, _ := cfg.Volatility.Float64()
		return &normalGenerator{mean: mean, vol: vol, years: cfg.HorizonYears}, nil

	case domain.ModelBootstrap:
		eq := decimal.Max(cfg.EquityWeight, decimal.Zero)
		bond := decimal.Max(cfg.BondWeight, decimal.Zero)
		// Unset weights mean an all-equity draw.
		if eq.Add(bond).IsZero() {
			eq = decimal.NewFromInt(1)
		}
		starts, excluded, err := usableWindows(series, monthsPerYear)
		if err != nil {
			return nil, err
		}
		return &bootstrapGenerator{
			series:       series,
			starts:       starts,
			excluded:     excluded,
			years:        cfg.HorizonYears,
			equityWeight: eq,
			bondWeight:   bond,
			bondReturn:   cfg.BondReturn,
		}, nil

	case domain.ModelBacktest:
		starts, excluded, err := usableWindows(series, cfg.HorizonYears*monthsPerYear)
		if err != nil {
			return nil, err
		}
		return &backtestGenerator{series: series, starts: starts, excluded: excluded, years: cfg.HorizonYears}, nil
	}

	return nil, domain.NewConfigurationError("market_model", "unknown market model %q", cfg.MarketModel)
}

// normalGenerator draws i.i.d. annual returns from N(mean, vol).
type normalGenerator struct {
	mean  float64
	vol   float64
	years int
}

func (g *normalGenerator) AnnualReturns(_ int, rng *rand.Rand) ([]decimal.Decimal, error) {
	returns := make([]decimal.Decimal, g.years)
	for i := range returns {
		r := g.mean + g.vol*boxMuller(rng)
		// A single-period return cannot lose more than everything.
		if r < -1 {
			r = -1
		}
		returns[i] = decimal.NewFromFloat(r)
	}
	return returns, nil
}

func (g *normalGenerator) NumTrials(requested int) int { return requested }

func (g *normalGenerator) WindowStart(int) *time.Time { return nil }

// boxMuller draws one standard normal variate.
func boxMuller(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	u2 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// usableWindows resolves the gap-free window starts for a historical
// mode and the count of candidates the gaps exclude.
func usableWindows(series *HistoricalSeries, horizonMonths int) ([]int, int, error) {
	starts := series.ContiguousWindowStarts(horizonMonths)
	if len(starts) == 0 {
		return nil, 0, domain.NewConfigurationError("historical_series",
			"no gap-free %d-month window in the series", horizonMonths)
	}
	return starts, series.WindowCount(horizonMonths) - len(starts), nil
}

// bootstrapGenerator resamples 12-month blocks from the historical
// series and blends the compounded equity return with a fixed bond leg.
// Only gap-free blocks are sampled.
type bootstrapGenerator struct {
	series       *HistoricalSeries
	starts       []int
	excluded     int
	years        int
	equityWeight decimal.Decimal
	bondWeight   decimal.Decimal
	bondReturn   decimal.Decimal
}

func (g *bootstrapGenerator) AnnualReturns(_ int, rng *rand.Rand) ([]decimal.Decimal, error) {
	returns := make([]decimal.Decimal, g.years)
	for i := range returns {
		start := g.starts[rng.Intn(len(g.starts))]
		equity := g.series.CompoundAnnual(start)
		blended := equity.Mul(g.equityWeight).Add(g.bondReturn.Mul(g.bondWeight))
		returns[i] = decimal.Max(blended, decimal.NewFromInt(-1))
	}
	return returns, nil
}

func (g *bootstrapGenerator) NumTrials(requested int) int { return requested }

func (g *bootstrapGenerator) WindowStart(int) *time.Time { return nil }

func (g *bootstrapGenerator) Coverage(evaluated int) *domain.CoverageMetadata {
	return g.series.Coverage(evaluated, g.excluded)
}

// backtestGenerator replays every gap-free historical window of the
// horizon length. Trial t is the t-th usable window in chronological
// order.
type backtestGenerator struct {
	series   *HistoricalSeries
	starts   []int
	excluded int
	years    int
}

func (g *backtestGenerator) AnnualReturns(trial int, _ *rand.Rand) ([]decimal.Decimal, error) {
	if trial < 0 || trial >= len(g.starts) {
		return nil, domain.NewInvalidParameterError("trial",
			"window index %d out of range [0, %d)", trial, len(g.starts))
	}
	base := g.starts[trial]
	returns := make([]decimal.Decimal, g.years)
	for y := 0; y < g.years; y++ {
		returns[y] = g.series.CompoundAnnual(base + y*monthsPerYear)
	}
	return returns, nil
}

// NumTrials is the exhaustive usable window count; the request is
// ignored.
func (g *backtestGenerator) NumTrials(int) int { return len(g.starts) }

func (g *backtestGenerator) Coverage(evaluated int) *domain.CoverageMetadata {
	return g.series.Coverage(evaluated, g.excluded)
}

func (g *backtestGenerator) WindowStart(trial int) *time.Time {
	if trial < 0 || trial >= len(g.starts) {
		return nil
	}
	d := g.series.Point(g.starts[trial]).Date
	return &d
}
