package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/ccollicutt/logtriage/internal/logging"
	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/config"
	"github.com/ccollicutt/logtriage/pkg/fetch"
	"github.com/ccollicutt/logtriage/pkg/output"
	"github.com/ccollicutt/logtriage/pkg/parser"
	"github.com/ccollicutt/logtriage/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// EnvPrefix prefixes the environment variables that stand in for flags.
const EnvPrefix = "LOGTRIAGE"

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	ConfigPath string
	Output     string
	ReportPath string
	Chart      bool
	ChartPath  string
	Top        int
	Preview    int
	Threshold  int
	Rules      []string
	Verbose    bool
	Quiet      bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [log-file]",
		Short: "Classify an access log and report problematic requests",
		Long: `Analyze an access log in two passes: count requests per client IP,
then tag every line with the problems it shows.

Tags:
  - High request count (IP above the volume threshold)
  - Bot detected
  - Client error (4xx) and server error (5xx)
  - Slow response and large transfer
  - Suspicious path and authentication failed
  - Malformed entry and invalid numeric value

When no log file is given, the configured input path is used and downloaded
from the configured URL if it does not exist.

Every flag can also be set as LOGTRIAGE_<FLAG>, e.g. LOGTRIAGE_TOP=5.

Exit codes:
  0 - No problematic requests
  1 - Problematic requests detected
  2 - Configuration or runtime error`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "Write the full problem list to this file")
	cmd.Flags().BoolVar(&opts.Chart, "chart", false, "Print the summary chart after the report")
	cmd.Flags().StringVar(&opts.ChartPath, "chart-file", "", "Write the summary chart to this file")
	cmd.Flags().IntVar(&opts.Top, "top", 0, "Number of entries in ranked lists")
	cmd.Flags().IntVar(&opts.Preview, "preview", 0, "Number of problem rows shown on the console")
	cmd.Flags().IntVar(&opts.Threshold, "threshold", 0, "Requests per IP above which an IP is high volume")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "Apply specific rule(s) only (can be repeated)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show thresholds, timing and debug logs")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_issues", "When to fire webhook (on_issues|always|never)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := bindEnv(cmd.Flags()); err != nil {
		return err
	}

	logger := logging.New(opts.Verbose, opts.Quiet, cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadOrDefault(ctx, opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlags(cfg, args, opts)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	fetcher := fetch.New(
		fetch.WithTimeout(cfg.Input.FetchTimeout),
		fetch.WithLogger(logger),
	)
	outcome, err := fetcher.EnsureLocal(ctx, cfg.Input.Path, cfg.Input.URL)
	if err != nil {
		return fmt.Errorf("preparing input: %w", err)
	}

	a := analyzer.New(
		analyzer.WithHighVolumeThreshold(cfg.Thresholds.HighVolumeRequests),
		analyzer.WithThresholds(cfg.RuleThresholds()),
		analyzer.WithRuleFilter(cfg.RuleKinds()),
		analyzer.WithLogger(logger),
	)

	start := time.Now()
	result, err := a.Analyze(ctx, parser.FileOpener(cfg.Input.Path))
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := output.NewReport(result, output.Metadata{
		ConfigFile: opts.ConfigPath,
		Source:     cfg.Input.Path,
		Fetched:    outcome == fetch.OutcomeDownloaded,
		AnalyzedAt: start,
		Duration:   time.Since(start),
	}, cfg.Report.Top)

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
		Preview: cfg.Report.Preview,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := formatter.Format(ctx, report, out); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if opts.Chart && formatter.Name() == "text" && !opts.Quiet {
		chart := output.NewChartRenderer(output.ChartOptions{Color: isTerminal(out)})
		if err := chart.Write(out, report); err != nil {
			return fmt.Errorf("writing chart: %w", err)
		}
	}

	if err := publish(ctx, cfg, opts, report, logger); err != nil {
		return err
	}

	// Set exit code based on results
	if report.HasIssues() {
		ExitCode = 1
	}

	return nil
}

// bindEnv fills every flag not given on the command line from its
// LOGTRIAGE_<FLAG> environment variable.
func bindEnv(flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if err := flags.Set(f.Name, v.GetString(f.Name)); err != nil {
			errs = append(errs, fmt.Errorf("environment %s_%s: %w",
				EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
		}
	})
	return errors.Join(errs...)
}

// applyFlags layers command-line values over the loaded config. A log file
// argument replaces the configured input and disables downloading.
func applyFlags(cfg *config.Config, args []string, opts *AnalyzeOptions) {
	if len(args) == 1 {
		cfg.Input.Path = args[0]
		cfg.Input.URL = ""
	}
	if opts.ReportPath != "" {
		cfg.Report.DetailPath = opts.ReportPath
	}
	if opts.ChartPath != "" {
		cfg.Report.ChartPath = opts.ChartPath
	}
	if opts.Top > 0 {
		cfg.Report.Top = opts.Top
	}
	if opts.Preview > 0 {
		cfg.Report.Preview = opts.Preview
	}
	if opts.Threshold > 0 {
		cfg.Thresholds.HighVolumeRequests = opts.Threshold
	}
	if len(opts.Rules) > 0 {
		cfg.Rules = opts.Rules
	}
}

// publish writes the report files and sends webhooks concurrently. Webhook
// failures are logged and never fail the run.
func publish(ctx context.Context, cfg *config.Config, opts *AnalyzeOptions, report *output.Report, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	if path := cfg.Report.DetailPath; path != "" {
		g.Go(func() error {
			if err := output.WriteDetailFile(path, report.Problems); err != nil {
				return fmt.Errorf("writing detail report: %w", err)
			}
			logger.Info("detail report written",
				zap.String("path", path),
				zap.Int("problems", len(report.Problems)))
			return nil
		})
	}

	if path := cfg.Report.ChartPath; path != "" {
		g.Go(func() error {
			if err := output.WriteChartFile(path, report); err != nil {
				return fmt.Errorf("writing chart file: %w", err)
			}
			logger.Info("chart written", zap.String("path", path))
			return nil
		})
	}

	if hooks := collectWebhooks(cfg, opts); len(hooks) > 0 {
		g.Go(func() error {
			webhook.NewClient().Notify(gctx, report, hooks, logger)
			return nil
		})
	}

	return g.Wait()
}

// collectWebhooks merges config file webhooks with CLI webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)

	// Add config file webhooks
	webhooks = append(webhooks, cfg.Webhooks...)

	// Add CLI webhook if specified
	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnIssues
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
