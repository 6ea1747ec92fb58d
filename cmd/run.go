package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/browser/session"
	"github.com/verityqa/verity/internal/config"
	"github.com/verityqa/verity/internal/observability"
	"github.com/verityqa/verity/internal/report"
	"github.com/verityqa/verity/internal/suite"
	_ "github.com/verityqa/verity/internal/suites"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a test suite.",
	Long: `Run executes the named suite (or every registered suite) across a pool
of workers, each driving its own browser session. Results are written to the
report directory in the configured formats.

Exit codes: 0 when every scenario passed, 1 when any scenario failed, 2 on
harness errors such as invalid configuration.`,
	RunE: runSuite,
}

func init() {
	runCmd.Flags().String("suite", "", "suite to run (default: all registered suites)")
	runCmd.Flags().String("browser", "", "browser to drive (chrome, chromium, edge)")
	runCmd.Flags().Bool("headless", true, "run the browser headless")
	runCmd.Flags().String("env", "", "named environment, recorded in the report")
	runCmd.Flags().String("tags", "", "comma-separated tags; scenarios matching any are run")
	runCmd.Flags().Int("workers", 0, "number of parallel workers")
	runCmd.Flags().Int("retries", 0, "times a failed scenario is re-run before it is reported as failed")
	runCmd.Flags().String("report-dir", "", "directory for report files")

	_ = viper.BindPFlag("suite.name", runCmd.Flags().Lookup("suite"))
	_ = viper.BindPFlag("browser.name", runCmd.Flags().Lookup("browser"))
	_ = viper.BindPFlag("browser.headless", runCmd.Flags().Lookup("headless"))
	_ = viper.BindPFlag("suite.env", runCmd.Flags().Lookup("env"))
	_ = viper.BindPFlag("suite.tags", runCmd.Flags().Lookup("tags"))
	_ = viper.BindPFlag("suite.workers", runCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("suite.retries", runCmd.Flags().Lookup("retries"))
	_ = viper.BindPFlag("report.dir", runCmd.Flags().Lookup("report-dir"))

	rootCmd.AddCommand(runCmd)
}

func runSuite(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewFromViper(viper.GetViper())
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	scenarios, err := suite.Lookup(cfg.Suite.Name)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios to run")
	}

	sink, err := buildSink(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := session.NewManager(cfg, logger)
	runner := suite.NewRunner(cfg, manager, sink, logger)

	summary, err := runner.Run(ctx, scenarios)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		logger.Warn("Suite completed with failures",
			zap.Int("failed", summary.Failed),
			zap.Int("total", summary.Total))
		// cobra would print a usage message for a RunE error, so failed
		// scenarios exit directly.
		observability.Sync()
		os.Exit(1)
	}
	return nil
}

// buildSink assembles the configured report formats behind one fan-out sink.
func buildSink(cfg *config.Config, logger *zap.Logger) (report.Sink, error) {
	title := cfg.Suite.Name
	if title == "" {
		title = "Verity Test Report"
	}
	if cfg.Suite.Env != "" {
		title = fmt.Sprintf("%s (%s)", title, cfg.Suite.Env)
	}

	var sinks []report.Sink
	for _, format := range cfg.ReportFormats() {
		switch format {
		case "html":
			sinks = append(sinks, report.NewHTMLSink(cfg.Report.Dir, title, logger))
		case "excel", "xlsx":
			sinks = append(sinks, report.NewExcelSink(cfg.Report.Dir, logger))
		case "none":
			sinks = append(sinks, report.Discard{})
		default:
			return nil, fmt.Errorf("unknown report format %q", format)
		}
	}
	if len(sinks) == 0 {
		return report.Discard{}, nil
	}
	return report.NewMulti(sinks...), nil
}
