package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"breachtrend/adapters/excel"
	"breachtrend/app"
	"breachtrend/domain/breach"
	"breachtrend/domain/core"
	"breachtrend/domain/trend"
	"breachtrend/internal"
	"breachtrend/internal/analysis/estimation"
	"breachtrend/internal/config"
	"breachtrend/internal/container"
	"breachtrend/internal/migration"
	"breachtrend/internal/testkit"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliState is shared by every subcommand after the persistent pre-run
type cliState struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	logger     *internal.Logger
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	rootCmd := &cobra.Command{
		Use:           "breachtrend",
		Short:         "Quantile regression trends in data breach costs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(state.configPath)
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if state.logLevel != "" {
				level = state.logLevel
			}
			state.cfg = cfg
			state.logger = internal.NewLoggerWithWriter(internal.ParseLogLevel(level), cmd.ErrOrStderr(),
				cfg.Logging.Format == "json")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&state.configPath, "config", "", "Path to a YAML/JSON/TOML config file")
	rootCmd.PersistentFlags().StringVar(&state.logLevel, "log-level", "", "Log level: error|warn|info|debug|trace")

	rootCmd.AddCommand(
		newRunCmd(state),
		newFitCmd(state),
		newGenerateCmd(state),
		newMigrateCmd(state),
		newReportCmd(state),
	)
	return rootCmd
}

// optionFlags are the estimation overrides shared by run and fit
type optionFlags struct {
	quantiles  string
	iterations int
	seed       int64
	reference  string
	workers    int
	minSamples int
	confidence float64
}

func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.quantiles, "quantiles", "0.5,0.95", "Comma separated quantile levels")
	cmd.Flags().IntVar(&f.iterations, "iterations", 1000, "Bootstrap iterations")
	cmd.Flags().Int64Var(&f.seed, "seed", 42, "Random seed for deterministic resampling")
	cmd.Flags().StringVar(&f.reference, "reference", "first", "Reference cause rule: first|alphabetical|explicit:<cause>")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent bootstrap refits (0 = number of CPUs)")
	cmd.Flags().IntVar(&f.minSamples, "min-samples", 2, "Minimum successful refits per cause and quantile")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0.95, "Interval confidence level")
}

// apply overrides config defaults with the flags the user actually set
func (f *optionFlags) apply(cmd *cobra.Command, opts estimation.Options) (estimation.Options, error) {
	flags := cmd.Flags()
	if flags.Changed("quantiles") {
		qs, err := trend.ParseQuantiles(f.quantiles)
		if err != nil {
			return opts, err
		}
		opts.Quantiles = qs
	}
	if flags.Changed("reference") {
		rule, err := breach.ParseReferenceRule(f.reference)
		if err != nil {
			return opts, err
		}
		opts.Reference = rule
	}
	if flags.Changed("iterations") {
		opts.Iterations = f.iterations
	}
	if flags.Changed("seed") {
		opts.Seed = f.seed
	}
	if flags.Changed("workers") {
		opts.Workers = f.workers
	}
	if flags.Changed("min-samples") {
		opts.MinSamples = f.minSamples
	}
	if flags.Changed("confidence") {
		opts.Confidence = f.confidence
	}
	return opts.Normalize()
}

func (s *cliState) container(ctx context.Context, withDatabase bool) (*container.Container, error) {
	c, err := container.New(s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	if withDatabase {
		db, err := container.Connect(ctx, s.cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := c.InitWithDatabase(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return c, nil
}

func newRunCmd(state *cliState) *cobra.Command {
	var flags optionFlags
	var format, out string
	var save bool

	cmd := &cobra.Command{
		Use:   "run [breach-file]",
		Short: "Fit quantile trends and bootstrap intervals for a CSV or XLSX breach file",
		Long: `Fit log(total_amount + 1) ~ time * cause at every requested quantile, refit on
bootstrap resamples and report annualized percent change per cause with
percentile intervals.

Example: breachtrend run breaches.csv --iterations 1000 --seed 42 --reference explicit:Hacking`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := state.container(ctx, save)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			opts, err := flags.apply(cmd, c.Defaults())
			if err != nil {
				return err
			}
			records, err := c.Reader.ReadFile(ctx, args[0])
			if err != nil {
				return err
			}
			report, err := c.TrendService.Run(ctx, app.TrendRequest{Records: records, Options: opts, Save: save})
			if err != nil {
				return err
			}
			if save {
				state.logger.Info("Saved report %s", report.ID)
			}
			return writeOutput(cmd, out, func(w io.Writer) error {
				return writeReport(w, report, format)
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "Store the report in the configured database")
	return cmd
}

func newFitCmd(state *cliState) *cobra.Command {
	var flags optionFlags

	cmd := &cobra.Command{
		Use:   "fit [breach-file]",
		Short: "Fit the full-data quantile models only and print coefficients and point trends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := state.container(ctx, false)
			if err != nil {
				return err
			}
			opts, err := flags.apply(cmd, c.Defaults())
			if err != nil {
				return err
			}
			records, err := c.Reader.ReadFile(ctx, args[0])
			if err != nil {
				return err
			}
			fit, err := c.TrendService.Fit(ctx, records, opts)
			if err != nil {
				return err
			}
			return writeFit(cmd.OutOrStdout(), fit, opts.Quantiles)
		},
	}
	flags.register(cmd)
	return cmd
}

func newGenerateCmd(state *cliState) *cobra.Command {
	var rows int
	var seed int64
	var missingRate float64

	cmd := &cobra.Command{
		Use:   "generate [out-file]",
		Short: "Write a synthetic two-cause breach dataset (.csv or .xlsx)",
		Long: `Generate breach records where cause A's log cost grows by 0.0005 per day and
reference cause B is flat. Useful for checking that intervals recover a known trend.

Example: breachtrend generate synthetic.xlsx --rows 10000 --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultBreachConfig()
			cfg.Rows = rows
			cfg.Seed = seed
			cfg.MissingCauseRate = missingRate
			records, err := testkit.NewBreachDataGenerator(cfg).GenerateRecords()
			if err != nil {
				return err
			}

			path := args[0]
			format, err := excel.FormatFromPath(path)
			if err != nil {
				return err
			}
			err = writeOutput(cmd, path, func(w io.Writer) error {
				if format == excel.FormatXLSX {
					return excel.WriteXLSX(w, records)
				}
				return excel.WriteCSV(w, records)
			})
			if err != nil {
				return err
			}
			state.logger.Info("Wrote %d records to %s", len(records), path)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 10000, "Number of records")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Generator seed")
	cmd.Flags().Float64Var(&missingRate, "missing-cause-rate", 0, "Fraction of rows with a blank cause")
	return cmd
}

func newMigrateCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the report tables in the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := container.Connect(cmd.Context(), state.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema %s applied\n", migration.NewRunner().Version())
			return nil
		},
	}
}

func newReportCmd(state *cliState) *cobra.Command {
	var format string
	var limit int

	cmd := &cobra.Command{
		Use:   "report [report-id]",
		Short: "Show a stored report, or list recent reports when no ID is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := state.container(ctx, true)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if len(args) == 0 {
				reports, err := c.TrendService.ListReports(ctx, limit)
				if err != nil {
					return err
				}
				return writeReportList(cmd.OutOrStdout(), reports)
			}
			id, err := core.ParseReportID(args[0])
			if err != nil {
				return err
			}
			report, err := c.TrendService.GetReport(ctx, id)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|json")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum reports to list")
	return cmd
}

func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeReport(w io.Writer, report *trend.Report, format string) error {
	switch strings.ToLower(format) {
	case "json":
		return estimation.WriteJSON(w, report)
	case "text", "":
		return estimation.WriteText(w, report)
	default:
		return fmt.Errorf("unknown format %q (use text or json)", format)
	}
}

func writeFit(w io.Writer, fit *app.FitResult, taus []trend.Quantile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "reference: %s\n\n", fit.Levels.Reference())
	fmt.Fprintln(tw, "cause\ttau\tslope/day\tannual %")
	for _, tau := range taus {
		for _, c := range fit.Levels.Order {
			slope := fit.Points[c][tau]
			fmt.Fprintf(tw, "%s\t%s\t%.6g\t%.2f\n", c, tau, slope, trend.AnnualizedPct(slope))
		}
	}
	fmt.Fprintln(tw)
	if err := tw.Flush(); err != nil {
		return err
	}
	return estimation.WriteCoefficients(w, estimation.ModelTables(fit.Models))
}

func writeReportList(w io.Writer, reports []*trend.Report) error {
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].CreatedAt.After(reports[j].CreatedAt) })
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tcreated\trecords\tquantiles\treference\titerations")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%v\t%s\t%d/%d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Records, r.Quantiles, r.Reference, r.Succeeded, r.Attempted)
	}
	return tw.Flush()
}
