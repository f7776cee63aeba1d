package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ccollicutt/logtriage/pkg/config"
	"github.com/ccollicutt/logtriage/pkg/parser"
	"github.com/ccollicutt/logtriage/pkg/rules"

	"github.com/spf13/cobra"
)

// DefaultSampleLines is how many log lines diagnose checks against the grammar.
const DefaultSampleLines = 100

const connectivityTimeout = 5 * time.Second

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
	Sample  int
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose [config-file]",
		Short: "Diagnose common configuration and input issues",
		Long: `Diagnose common configuration and input issues.

This command checks for common problems:
- Config file syntax and structure
- Log file existence and accessibility
- How many log lines match the access-log grammar
- Thresholds, rules and webhooks

Without a config file the built-in defaults are checked.

Example:
  logtriage diagnose config.yaml
  logtriage diagnose --sample 500 config.yaml
  logtriage diagnose -v config.yaml  # verbose output`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := ""
			if len(args) == 1 {
				configPath = args[0]
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runDiagnose(ctx, cmd.OutOrStdout(), configPath, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")
	cmd.Flags().IntVar(&opts.Sample, "sample", DefaultSampleLines, "Number of log lines to check against the grammar (0 for all)")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	var cfg *config.Config
	if configPath == "" {
		defaults, err := config.LoadOrDefault(ctx, "")
		if err != nil {
			return fmt.Errorf("loading defaults: %w", err)
		}
		cfg = defaults
		results = append(results, DiagnosticResult{
			Check:   "Config File",
			Status:  "ok",
			Message: "No config file given, using defaults",
		})
	} else {
		// 1. Check config file existence
		result := checkConfigExists(configPath)
		results = append(results, result)
		if result.Status == "error" {
			printDiagnostics(w, results, opts)
			return nil
		}

		// 2. Parse config file
		cfg, result = checkConfigParseable(ctx, configPath)
		results = append(results, result)
		if result.Status == "error" {
			printDiagnostics(w, results, opts)
			return nil
		}
	}

	// 3. Check the log file
	results = append(results, checkInput(cfg))

	// 4. Sample the log against the grammar
	if fileExists(cfg.Input.Path) {
		results = append(results, checkGrammar(ctx, cfg, opts))
	}

	// 5. Thresholds and rules
	results = append(results, checkThresholds(cfg, opts))
	results = append(results, checkRules(cfg))

	// 6. Check webhooks configuration
	webhookResults := checkWebhooks(ctx, cfg, opts)
	results = append(results, webhookResults...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Run 'logtriage diagnose' without arguments to check the defaults",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Add at least an input section, e.g. input:\n  path: access.log",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
				"Validate YAML at https://yamlvalidator.com/",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Input: %s", cfg.Input.Path),
		fmt.Sprintf("Rules: %d", len(cfg.Rules)),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkInput(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Log File: %s", cfg.Input.Path),
	}

	info, err := os.Stat(cfg.Input.Path)
	switch {
	case os.IsNotExist(err) && cfg.Input.URL != "":
		result.Status = "warning"
		result.Message = "File does not exist; it will be downloaded on analyze"
		result.Details = []string{fmt.Sprintf("URL: %s", cfg.Input.URL)}
	case os.IsNotExist(err):
		result.Status = "error"
		result.Message = "File does not exist and no download URL is configured"
		result.Suggests = []string{
			"Check if the log file path is correct",
			"Set input.url to download the log when it is missing",
		}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access file: %v", err)
		result.Suggests = []string{"Check file permissions"}
	case info.IsDir():
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
	case info.Size() == 0:
		result.Status = "warning"
		result.Message = "File is empty (0 bytes)"
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
	}

	return result
}

func checkGrammar(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Log Format",
	}

	src := parser.NewFileSource(cfg.Input.Path)
	defer func() { _ = src.Close() }()

	sample, err := parser.Sample(ctx, src, opts.Sample)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot read file: %v", err)
		return result
	}

	if sample.SampledLines == 0 {
		result.Status = "warning"
		result.Message = "No non-empty lines to check"
		return result
	}

	summary := fmt.Sprintf("%d/%d sample lines match the access-log format", sample.ParsedLines, sample.SampledLines)
	switch {
	case sample.ParsedLines == 0:
		result.Status = "error"
		result.Message = "No sample lines match the access-log format"
		result.Suggests = []string{
			`Expected: IP - AUTH - [dd/mm/yyyy:HH:MM:SS] "METHOD PATH PROTOCOL" STATUS BYTES "REFERER" "USER_AGENT" RESPONSE_TIME`,
		}
	case sample.Confidence < 0.5:
		result.Status = "warning"
		result.Message = summary
	default:
		result.Status = "ok"
		result.Message = summary
	}

	if sample.MalformedLines > 0 {
		result.Details = append(result.Details, fmt.Sprintf("Malformed: %d", sample.MalformedLines))
	}
	if sample.InvalidNumeric > 0 {
		result.Details = append(result.Details, fmt.Sprintf("Invalid numeric values: %d", sample.InvalidNumeric))
	}
	if sample.BadTimestamps > 0 {
		result.Details = append(result.Details, fmt.Sprintf("Timestamps not in dd/mm/yyyy:HH:MM:SS: %d", sample.BadTimestamps))
	}
	if sample.SampleFailure != "" && result.Status != "ok" {
		result.Details = append(result.Details,
			"Sample line that didn't match:",
			truncate(sample.SampleFailure, 80),
		)
	}
	if opts.Verbose && sample.SampleMatch != "" {
		result.Details = append(result.Details,
			"Sample match:",
			truncate(sample.SampleMatch, 80),
		)
	}

	return result
}

func checkThresholds(cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	th := cfg.Thresholds
	result := DiagnosticResult{
		Check:   "Thresholds",
		Status:  "ok",
		Message: fmt.Sprintf("High volume above %d requests per IP", th.HighVolumeRequests),
	}

	if th.HighVolumeRequests < 2 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("High volume threshold %d flags nearly every IP", th.HighVolumeRequests)
	}

	if opts.Verbose {
		result.Details = []string{
			fmt.Sprintf("Slow response: >%dms", th.SlowResponseMs),
			fmt.Sprintf("Large transfer: >%d bytes", th.LargeTransferBytes),
		}
	}

	return result
}

func checkRules(cfg *config.Config) DiagnosticResult {
	active := rules.NewEvaluator(rules.WithRuleFilter(cfg.RuleKinds())).Rules()
	total := len(rules.DefaultRules(rules.DefaultThresholds()))

	result := DiagnosticResult{
		Check:  "Rules",
		Status: "ok",
	}

	if len(cfg.Rules) == 0 {
		result.Message = fmt.Sprintf("All %d rules active", total)
	} else {
		result.Message = fmt.Sprintf("%d of %d rules active", len(active), total)
	}

	for _, k := range active {
		result.Details = append(result.Details, string(k))
	}

	return result
}

var statusLabels = map[string]string{
	"ok":      "PASS",
	"warning": "WARN",
	"error":   "FAIL",
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	_, _ = fmt.Fprintf(w, "=== logtriage Diagnostics ===\n\n")

	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++

		_, _ = fmt.Fprintf(w, "[%s] %s\n    %s\n", statusLabels[r.Status], r.Check, r.Message)
		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				_, _ = fmt.Fprintf(w, "      - %s\n", d)
			}
		}
		for _, s := range r.Suggests {
			_, _ = fmt.Fprintf(w, "      Hint: %s\n", s)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintln(w, "---")
	_, _ = fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n",
		counts["ok"], counts["warning"], counts["error"])

	switch {
	case counts["error"] > 0:
		_, _ = fmt.Fprintln(w, "\nFix the errors above before running analysis.")
	case counts["warning"] > 0:
		_, _ = fmt.Fprintln(w, "\nConfiguration is usable but has warnings.")
	default:
		_, _ = fmt.Fprintln(w, "\nConfiguration looks good!")
	}
}

func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	if len(cfg.Webhooks) == 0 {
		if !opts.Verbose {
			return nil
		}
		return []DiagnosticResult{{
			Check:   "Webhooks",
			Status:  "ok",
			Message: "No webhooks configured (optional)",
		}}
	}

	var results []DiagnosticResult
	var reachable []config.WebhookConfig
	for _, wh := range cfg.Webhooks {
		result := checkWebhook(wh, opts)
		results = append(results, result)
		if result.Status != "error" {
			reachable = append(reachable, wh)
		}
	}

	if opts.Verbose {
		for _, wh := range reachable {
			result := checkWebhookConnectivity(ctx, wh)
			result.Check = "Webhook Connectivity: " + webhookName(wh)
			results = append(results, result)
		}
	}

	return results
}

// checkWebhook validates a copy of wh with the same rules config.Load uses.
func checkWebhook(wh config.WebhookConfig, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{Check: "Webhook: " + webhookName(wh)}

	raw := wh.Token
	if err := config.ValidateWebhook(&wh); err != nil {
		result.Status = "error"
		result.Message = "Invalid webhook configuration"
		result.Details = []string{err.Error()}
		return result
	}

	// A "$" token that expands to nothing names a missing variable.
	if strings.HasPrefix(raw, "$") && wh.Token == "" {
		result.Status = "warning"
		result.Message = "Token is empty"
		result.Details = []string{fmt.Sprintf("Token appears to be an unresolved env var: %s", raw)}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
	if opts.Verbose {
		result.Details = []string{
			fmt.Sprintf("URL: %s", wh.URL),
			fmt.Sprintf("Timeout: %s", wh.Timeout),
		}
		if wh.Token != "" {
			result.Details = append(result.Details, "Token: configured")
		}
	}
	return result
}

// checkWebhookConnectivity sends a HEAD request; any answer below 400
// counts as reachable.
func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	ctx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, wh.URL, nil)
	if err != nil {
		return DiagnosticResult{Status: "warning", Message: fmt.Sprintf("Cannot create request: %v", err)}
	}
	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return DiagnosticResult{
			Status:  "warning",
			Message: fmt.Sprintf("Cannot connect: %v", err),
			Suggests: []string{
				"Check if the webhook URL is correct",
				"Verify network connectivity",
			},
		}
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 400 {
		return DiagnosticResult{Status: "ok", Message: fmt.Sprintf("Reachable (status %d)", resp.StatusCode)}
	}
	return DiagnosticResult{
		Status:  "warning",
		Message: fmt.Sprintf("Reachable but returned status %d", resp.StatusCode),
		Suggests: []string{
			"The endpoint may only accept POST, which analyze uses",
			"Check authentication if using a token",
		},
	}
}

func webhookName(wh config.WebhookConfig) string {
	if wh.Name != "" {
		return wh.Name
	}
	return wh.URL
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
