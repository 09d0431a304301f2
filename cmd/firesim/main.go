// firesim is a FIRE planning tool: deterministic projections, Monte
// Carlo and historical backtest simulations, and retirement decumulation
// ledgers, driven by a YAML profile.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/firesim/fire-planner/internal/calculation"
	"github.com/firesim/fire-planner/internal/config"
	"github.com/firesim/fire-planner/internal/domain"
	"github.com/firesim/fire-planner/internal/output"
	money "github.com/firesim/fire-planner/pkg/decimal"
)

var (
	profilePath string
	formatFlag  string
	outputPath  string
	verbose     bool

	log zerolog.Logger

	// resultCache memoizes repeated runs of the same configuration
	// within one process.
	resultCache = calculation.NewResultCache(calculation.DefaultCacheTTL)
)

// zerologAdapter bridges the engine's logging interface onto zerolog.
type zerologAdapter struct{ l zerolog.Logger }

func (a zerologAdapter) Debugf(format string, args ...any) { a.l.Debug().Msgf(format, args...) }
func (a zerologAdapter) Infof(format string, args ...any)  { a.l.Info().Msgf(format, args...) }
func (a zerologAdapter) Warnf(format string, args ...any)  { a.l.Warn().Msgf(format, args...) }
func (a zerologAdapter) Errorf(format string, args ...any) { a.l.Error().Msgf(format, args...) }

func main() {
	root := &cobra.Command{
		Use:   "firesim",
		Short: "FIRE portfolio projection and simulation",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&profilePath, "profile", "p", "profile.yaml", "path to the YAML profile")
	root.PersistentFlags().StringVarP(&formatFlag, "format", "f", "table", "output format: table, json or csv")
	root.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "write output to file instead of stdout")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(targetCmd(), projectCmd(), simulateCmd(), backtestCmd(), retirementCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadInputs loads the profile plus whatever the profile's regime and
// market model require.
func loadInputs() (*config.Profile, *calculation.TaxCalculator, *calculation.HistoricalSeries, error) {
	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		return nil, nil, nil, err
	}

	var pack *domain.TaxPack
	if profile.TaxPackPath != "" {
		pack, err = config.LoadTaxPack(profile.TaxPackPath)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	tax, err := calculation.NewTaxCalculator(profile.Simulation.TaxRegime, pack)
	if err != nil {
		return nil, nil, nil, err
	}

	var series *calculation.HistoricalSeries
	if profile.HistoricalDataPath != "" {
		series, err = calculation.LoadHistoricalCSV(profile.HistoricalDataPath)
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return profile, tax, series, nil
}

func outputWriter() (*os.File, func(), error) {
	if outputPath == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}
	return f, func() { f.Close() }, nil
}

func targetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "target",
		Short: "Show the FIRE target for the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, tax, _, err := loadInputs()
			if err != nil {
				return err
			}
			sim := profile.Simulation

			target, err := calculation.TargetFIRE(sim.AnnualSpending, sim.SafeWithdrawalRate)
			if err != nil {
				return err
			}
			w, done, err := outputWriter()
			if err != nil {
				return err
			}
			defer done()

			fmt.Fprintf(w, "Annual spending: %s\n", money.FormatEUR(sim.AnnualSpending))
			fmt.Fprintf(w, "Withdrawal rate: %s\n", money.FormatPercent(sim.SafeWithdrawalRate, 2))
			fmt.Fprintf(w, "FIRE target:     %s\n", money.FormatEUR(target))
			if profile.GrossAnnualIncome.GreaterThan(decimal.Zero) {
				rate := calculation.SavingsRate(profile.GrossAnnualIncome, sim.AnnualSpending)
				fmt.Fprintf(w, "Savings rate:    %s\n", money.FormatPercent(rate, 1))
			}

			ratio := calculation.TaxableWithdrawalRatio(sim.InitialBalance, sim.MonthlyContribution,
				sim.HorizonYears, sim.ExpectedReturn, sim.ContributionGrowthRate)
			ctx, err := calculation.EstimateRetirementTaxContext(sim.AnnualSpending, sim.SafeWithdrawalRate, ratio, tax)
			if err != nil {
				return err
			}
			if tax.Regime().Mode != domain.RegimeNone {
				fmt.Fprintf(w, "Gross target:    %s (annual tax %s, converged=%t)\n",
					money.FormatEUR(ctx.TargetPortfolioGross), money.FormatEUR(ctx.TotalAnnualTax), ctx.Converged)
			}
			if drag := tax.EffectiveReturnDrag(); drag.GreaterThan(decimal.Zero) {
				fmt.Fprintf(w, "Effective return drag: %s\n", money.FormatPercent(drag, 2))
			}

			reached, err := calculation.CoastFIRECondition(sim.InitialBalance,
				sim.AnnualContribution(1), sim.HorizonYears, sim.ExpectedReturn, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "On track at current contributions: %t\n", reached)

			fmt.Fprintln(w)
			scenarios := calculation.MarketScenarios(sim.InitialBalance,
				sim.AnnualContribution(1), sim.HorizonYears, target, sim.ExpectedReturn)
			if err := output.WriteScenarioTable(w, scenarios); err != nil {
				return err
			}

			if profile.NetWorth != nil {
				nw := calculation.NetWorth(sim.InitialBalance, profile.NetWorth.RealEstateValue,
					profile.NetWorth.RealEstateMortgage, profile.NetWorth.OtherLiabilities)
				fmt.Fprintln(w)
				if err := output.WriteNetWorthSummary(w, nw); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project",
		Short: "Run the deterministic year-by-year projection",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, tax, _, err := loadInputs()
			if err != nil {
				return err
			}
			projector, err := calculation.NewProjector(&profile.Simulation, tax, zerologAdapter{log})
			if err != nil {
				return err
			}
			rows, err := projector.Project()
			if err != nil {
				return err
			}
			w, done, err := outputWriter()
			if err != nil {
				return err
			}
			defer done()
			return output.WriteProjectionTable(w, rows)
		},
	}
}

func runSimulation(model domain.MarketModel) error {
	profile, tax, series, err := loadInputs()
	if err != nil {
		return err
	}
	cfg := profile.Simulation
	if model != "" {
		cfg.MarketModel = model
	}

	gen, err := calculation.NewPathGenerator(&cfg, series)
	if err != nil {
		return err
	}
	sim, err := calculation.NewSimulator(&cfg, tax, gen, zerologAdapter{log})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := time.Now()
	result, err := sim.RunCached(ctx, resultCache)
	if err != nil {
		return err
	}
	log.Debug().Dur("elapsed", time.Since(started)).Msg("simulation finished")

	w, done, err := outputWriter()
	if err != nil {
		return err
	}
	defer done()

	switch formatFlag {
	case "json":
		return output.WriteResultJSON(w, result)
	case "csv":
		return output.WriteTimeSeriesCSV(w, result)
	default:
		return output.WriteResultTable(w, result)
	}
}

func simulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Run the Monte Carlo simulation for the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation("")
		},
	}
}

func backtestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backtest",
		Short: "Replay every historical window of the horizon length",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(domain.ModelBacktest)
		},
	}
}

func retirementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retirement",
		Short: "Build decumulation ledgers for the profile's scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, tax, _, err := loadInputs()
			if err != nil {
				return err
			}
			if profile.Retirement == nil {
				return domain.NewConfigurationError("retirement", "profile has no retirement section")
			}
			plan := profile.Retirement
			sim := profile.Simulation

			ratio := calculation.TaxableWithdrawalRatio(sim.InitialBalance, sim.MonthlyContribution,
				sim.HorizonYears, sim.ExpectedReturn, sim.ContributionGrowthRate)

			w, done, err := outputWriter()
			if err != nil {
				return err
			}
			defer done()

			for _, scenario := range plan.Scenarios {
				ledger, err := calculation.BuildLedger(calculation.DecumulationParams{
					ScenarioLabel:      scenario.Label,
					CurrentAge:         plan.CurrentAge,
					AnnualContribution: sim.AnnualContribution(1),
					StartAge:           plan.StartAge,
					EndAge:             plan.EndAge,
					InitialBalance:     sim.InitialBalance,
					AnnualReturn:       scenario.AnnualReturn,
					InflationRate:      sim.InflationRate,
					TaxableRatio:       ratio,
					Policy:             sim.Withdrawal,
					Mortgages:          plan.Mortgages,
					PropertySales:      plan.PropertySales,
					ExtraWithdrawals:   plan.ExtraWithdrawals,
				}, tax, zerologAdapter{log})
				if err != nil {
					return err
				}

				switch formatFlag {
				case "json":
					if err := output.WriteLedgerJSON(w, ledger); err != nil {
						return err
					}
				case "csv":
					if err := output.WriteLedgerCSV(w, ledger); err != nil {
						return err
					}
				default:
					if err := output.WriteLedgerTable(w, ledger); err != nil {
						return err
					}
					fmt.Fprintln(w)
				}
			}
			return nil
		},
	}
}
