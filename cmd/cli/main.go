package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dopastat/adapters/chart"
	"dopastat/adapters/excel"
	"dopastat/app"
	"dopastat/domain/dataset"
	"dopastat/internal"
	"dopastat/internal/config"
	"dopastat/internal/report"
	"dopastat/internal/testkit"
	"dopastat/ports"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// diagramDPI is the resolution the pathway schematic is published at
const diagramDPI = 200.0

// cfgFile is the optional YAML file passed with --config
var cfgFile string

func main() {
	// .env is optional
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "dopastat",
		Short:        "Dopaminergic trait and substance use analysis",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (environment variables take precedence)")

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newDiagramCmd(),
		newGenerateCmd(),
		newConfigCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *internal.Logger, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level))
	internal.DefaultLogger = logger
	return cfg, logger, nil
}

func newAnalyzeCmd() *cobra.Command {
	var (
		dataFile   string
		figuresDir string
		noRender   bool
		workers    int
		lambda     float64
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full pipeline and print the report",
		Long: `Load the survey, derive features, describe, fit the baseline linear
probability model, rank substances by the dopamine index coefficient and
render the figures.

Example: dopastat analyze --data data/Drug_Consumption.csv --figures figures`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("data") {
				cfg.Data.File = dataFile
			}
			if cmd.Flags().Changed("figures") {
				cfg.Paths.FiguresDir = figuresDir
			}
			if cmd.Flags().Changed("workers") {
				cfg.Comparator.Workers = workers
			}
			if cmd.Flags().Changed("lambda") {
				cfg.Model.RidgeLambda = lambda
			}
			if noRender {
				cfg.Render.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runAnalyze(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "Survey file (.csv or .xlsx), overrides DATA_FILE")
	cmd.Flags().StringVar(&figuresDir, "figures", "", "Output directory for figures, overrides FIGURES_DIR")
	cmd.Flags().BoolVar(&noRender, "no-render", false, "Skip figure rendering")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent comparator fits")
	cmd.Flags().Float64Var(&lambda, "lambda", 1e-5, "Ridge penalty for the singular-system fallback")

	return cmd
}

func runAnalyze(ctx context.Context, cfg *config.Config, logger *internal.Logger) error {
	var renderer ports.RendererPort
	if cfg.Render.Enabled {
		if err := chart.EnsureOutputDir(cfg.Paths.FiguresDir); err != nil {
			return err
		}
		renderer = chart.NewRenderer(cfg.Paths.FiguresDir, cfg.Render.DPI, logger)
	}

	loader := excel.NewDataReader(excel.DefaultExcelConfig(cfg.Data.File), logger)
	svc := app.NewAnalysisService(loader, renderer, cfg, logger)

	res, err := svc.Run(ctx, app.Request{Render: cfg.Render.Enabled})
	if err != nil {
		return err
	}

	out := os.Stdout
	fmt.Fprintf(out, "Run %s: %d respondents\n", res.RunID, res.Rows)
	report.Prevalence(out, res.Prevalence, res.Rows)
	report.Correlations(out, "Correlations: dopaminergic traits vs substance use", res.Correlation)
	report.Groups(out, "Dopamine index by cannabis use", res.CannabisGroups)
	report.Groups(out, "Dopamine index by gender", res.GenderGroups)
	report.Trends(out, res.Trends)
	report.Baseline(out, res.Baseline)
	report.Ranking(out, dataset.CompositeIndex.String(), res.Comparison.Ranking)
	report.Figures(out, res.Figures)
	report.Warnings(out, res.Warnings)
	return nil
}

func newDiagramCmd() *cobra.Command {
	var figuresDir string

	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Draw the VTA -> NAcC -> PFC pathway schematic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("figures") {
				cfg.Paths.FiguresDir = figuresDir
			}
			if err := chart.EnsureOutputDir(cfg.Paths.FiguresDir); err != nil {
				return err
			}

			var diagram ports.DiagramPort = chart.NewDiagram(
				chart.NewRenderer(cfg.Paths.FiguresDir, diagramDPI, logger),
				chart.DefaultPathwayLayout(),
			)
			paths, err := diagram.DrawPathway(cmd.Context())
			if err != nil {
				return err
			}
			report.Figures(os.Stdout, paths)
			return nil
		},
	}

	cmd.Flags().StringVar(&figuresDir, "figures", "", "Output directory, overrides FIGURES_DIR")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var (
		respondents int
		seed        int64
		output      string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic survey CSV with the expected schema",
		Long: `Generate a seeded synthetic survey for trying the pipeline without the
real dataset.

Example: dopastat generate --respondents 1885 --seed 7 --out data/synthetic.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultSurveyConfig()
			cfg.Respondents = respondents
			cfg.Seed = seed
			if respondents < 1 {
				return fmt.Errorf("respondents must be at least 1")
			}

			data := testkit.NewSurveyGenerator(cfg).Generate()
			if err := testkit.WriteCSV(output, data); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			color.Green("Wrote %d respondents to %s", len(data.Rows), output)
			return nil
		},
	}

	cmd.Flags().IntVar(&respondents, "respondents", 1885, "Number of rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&output, "out", "synthetic_survey.csv", "Output CSV path")
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the YAML configuration file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "dopastat.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			color.Green("Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
