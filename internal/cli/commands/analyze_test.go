package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/pflag"

	"github.com/ccollicutt/logtriage/pkg/config"
	"github.com/ccollicutt/logtriage/pkg/output"
)

const problemLine = `10.0.0.5 - NO - [01/01/2024:12:00:01] "GET /wp-admin HTTP/1.1" 404 512 "-" "Mozilla/5.0 curl/7.68" 650`

func cleanLine(ip string, n int) string {
	return fmt.Sprintf(`%s - - - [15/06/2024:08:%02d:00] "GET /products/%d HTTP/1.1" 200 1024 "-" "Mozilla/5.0 (X11; Linux x86_64)" 120`, ip, n%60, n)
}

func writeLog(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "access.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}
	return path
}

type analyzeRun struct {
	stdout string
	stderr string
	err    error
}

func runAnalyzeCommand(t *testing.T, args ...string) analyzeRun {
	t.Helper()
	ExitCode = 0
	t.Cleanup(func() { ExitCode = 0 })

	cmd := NewAnalyzeCommand()
	cmd.SetArgs(append([]string{}, args...))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(context.Background())
	return analyzeRun{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestRunAnalyze_TextReport(t *testing.T) {
	dir := t.TempDir()
	logPath := writeLog(t, dir, problemLine, cleanLine("192.168.1.1", 1), cleanLine("192.168.1.2", 2))
	reportPath := filepath.Join(dir, "out", "problems.log")

	run := runAnalyzeCommand(t, "--report", reportPath, logPath)
	if run.err != nil {
		t.Fatalf("analyze failed: %v", run.err)
	}

	for _, want := range []string{
		"=== logtriage Analysis Report ===",
		"Log file: " + logPath,
		"Total lines processed: 3",
		"Problematic lines found: 1",
		"Authentication failed",
	} {
		if !strings.Contains(run.stdout, want) {
			t.Errorf("output missing %q:\n%s", want, run.stdout)
		}
	}

	if ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", ExitCode)
	}

	detail, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("detail report not written: %v", err)
	}
	if !strings.HasPrefix(string(detail), output.DetailHeader) {
		t.Errorf("detail report header missing:\n%s", detail)
	}
	if !strings.Contains(string(detail), "10.0.0.5") {
		t.Errorf("detail report missing problem row:\n%s", detail)
	}
}

func TestRunAnalyze_CleanLogExitsZero(t *testing.T) {
	dir := t.TempDir()
	logPath := writeLog(t, dir, cleanLine("192.168.1.1", 1), cleanLine("192.168.1.2", 2))

	run := runAnalyzeCommand(t, "--report", filepath.Join(dir, "problems.log"), logPath)
	if run.err != nil {
		t.Fatalf("analyze failed: %v", run.err)
	}
	if ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", ExitCode)
	}
	if !strings.Contains(run.stdout, "No problematic requests found") {
		t.Errorf("expected empty preview message:\n%s", run.stdout)
	}
}

func TestRunAnalyze_JSONQuiet(t *testing.T) {
	dir := t.TempDir()
	logPath := writeLog(t, dir, problemLine, cleanLine("192.168.1.1", 1))

	run := runAnalyzeCommand(t, "-o", "json", "-q", "--report", filepath.Join(dir, "problems.log"), logPath)
	if run.err != nil {
		t.Fatalf("analyze failed: %v", run.err)
	}

	var summary output.Summary
	if err := json.Unmarshal([]byte(run.stdout), &summary); err != nil {
		t.Fatalf("quiet JSON is not a summary: %v\n%s", err, run.stdout)
	}
	if summary.TotalLines != 2 || summary.ProblemLines != 1 {
		t.Errorf("summary = %+v, want 2 lines and 1 problem", summary)
	}
}

func TestRunAnalyze_ChartFile(t *testing.T) {
	dir := t.TempDir()
	logPath := writeLog(t, dir, problemLine, cleanLine("192.168.1.1", 1))
	chartPath := filepath.Join(dir, "chart.txt")

	run := runAnalyzeCommand(t, "--chart", "--chart-file", chartPath, "--report", filepath.Join(dir, "problems.log"), logPath)
	if run.err != nil {
		t.Fatalf("analyze failed: %v", run.err)
	}

	if !strings.Contains(run.stdout, "Log Analysis Summary (2 entries)") {
		t.Errorf("console chart missing:\n%s", run.stdout)
	}
	// Not a terminal, so no ANSI escapes.
	if strings.Contains(run.stdout, "\x1b[") {
		t.Error("chart written to a buffer should be uncolored")
	}

	chart, err := os.ReadFile(chartPath)
	if err != nil {
		t.Fatalf("chart file not written: %v", err)
	}
	if !strings.Contains(string(chart), "Traffic Composition") {
		t.Errorf("chart file missing panels:\n%s", chart)
	}
}

func TestRunAnalyze_ThresholdFlag(t *testing.T) {
	dir := t.TempDir()
	lines := []string{}
	for i := 0; i < 4; i++ {
		lines = append(lines, cleanLine("10.1.1.1", i))
	}
	logPath := writeLog(t, dir, lines...)

	run := runAnalyzeCommand(t, "--threshold", "3", "-o", "json", "--report", filepath.Join(dir, "problems.log"), logPath)
	if run.err != nil {
		t.Fatalf("analyze failed: %v", run.err)
	}

	var report struct {
		Summary output.Summary `json:"summary"`
	}
	if err := json.Unmarshal([]byte(run.stdout), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.Summary.HighRequestNonBot != 4 {
		t.Errorf("HighRequestNonBot = %d, want 4", report.Summary.HighRequestNonBot)
	}
	if report.Summary.HighVolumeThreshold != 3 {
		t.Errorf("HighVolumeThreshold = %d, want 3", report.Summary.HighVolumeThreshold)
	}
}

func TestRunAnalyze_Errors(t *testing.T) {
	dir := t.TempDir()
	logPath := writeLog(t, dir, cleanLine("192.168.1.1", 1))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing log file", []string{filepath.Join(dir, "missing.log")}, "preparing input"},
		{"unknown output", []string{"-o", "xml", logPath}, "unknown output format"},
		{"unknown rule", []string{"--rule", "nope", logPath}, "unknown rule"},
		{"missing config", []string{"-c", filepath.Join(dir, "missing.yaml"), logPath}, "loading config"},
		{"too many args", []string{logPath, logPath}, "accepts at most 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := runAnalyzeCommand(t, append([]string{"--report", filepath.Join(dir, "problems.log")}, tt.args...)...)
			if run.err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(run.err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", run.err, tt.wantErr)
			}
		})
	}
}

func TestRunAnalyze_DownloadsConfiguredInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, problemLine)
	}))
	defer server.Close()

	dir := t.TempDir()
	logPath := filepath.Join(dir, "data", "sample.log")
	configPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`input:
  path: %s
  url: %s/sample-log.log
report:
  detail_path: %s
`, logPath, server.URL, filepath.Join(dir, "problems.log"))
	if err := os.WriteFile(configPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	run := runAnalyzeCommand(t, "-c", configPath, "-o", "json")
	if run.err != nil {
		t.Fatalf("analyze failed: %v", run.err)
	}

	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log was not downloaded: %v", err)
	}

	var report struct {
		Metadata output.Metadata `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(run.stdout), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !report.Metadata.Fetched {
		t.Error("Metadata.Fetched = false, want true")
	}
	if report.Metadata.ConfigFile != configPath {
		t.Errorf("Metadata.ConfigFile = %q, want %q", report.Metadata.ConfigFile, configPath)
	}
}

func TestRunAnalyze_SendsWebhook(t *testing.T) {
	var mu sync.Mutex
	var payloads []map[string]any
	var auths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		payloads = append(payloads, payload)
		auths = append(auths, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	logPath := writeLog(t, dir, problemLine)

	run := runAnalyzeCommand(t,
		"--webhook-url", server.URL,
		"--webhook-token", "test-token",
		"--report", filepath.Join(dir, "problems.log"),
		logPath,
	)
	if run.err != nil {
		t.Fatalf("analyze failed: %v", run.err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 1 {
		t.Fatalf("got %d webhook calls, want 1", len(payloads))
	}
	if auths[0] != "Bearer test-token" {
		t.Errorf("Authorization = %q", auths[0])
	}
	if payloads[0]["problem_count"] != float64(1) {
		t.Errorf("problem_count = %v, want 1", payloads[0]["problem_count"])
	}
	if !strings.Contains(run.stderr, "webhook sent") {
		t.Errorf("expected webhook log on stderr, got:\n%s", run.stderr)
	}
}

func TestRunAnalyze_WebhookFailureDoesNotFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	logPath := writeLog(t, dir, problemLine)

	run := runAnalyzeCommand(t, "--webhook-url", server.URL, "--report", filepath.Join(dir, "problems.log"), logPath)
	if run.err != nil {
		t.Fatalf("webhook failure should not fail analysis: %v", run.err)
	}
	if ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", ExitCode)
	}
	if !strings.Contains(run.stderr, "webhook failed") {
		t.Errorf("expected failure log on stderr, got:\n%s", run.stderr)
	}
}

func TestBindEnv(t *testing.T) {
	t.Setenv("LOGTRIAGE_TOP", "3")
	t.Setenv("LOGTRIAGE_CHART_FILE", "chart.txt")
	t.Setenv("LOGTRIAGE_OUTPUT", "json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	top := flags.Int("top", 0, "")
	chartFile := flags.String("chart-file", "", "")
	out := flags.String("output", "text", "")
	preview := flags.Int("preview", 7, "")

	if err := flags.Parse([]string{"--output", "text"}); err != nil {
		t.Fatal(err)
	}
	if err := bindEnv(flags); err != nil {
		t.Fatalf("bindEnv: %v", err)
	}

	if *top != 3 {
		t.Errorf("top = %d, want 3", *top)
	}
	if *chartFile != "chart.txt" {
		t.Errorf("chart-file = %q, want chart.txt", *chartFile)
	}
	if *out != "text" {
		t.Errorf("output = %q, command-line value should win", *out)
	}
	if *preview != 7 {
		t.Errorf("preview = %d, want default 7", *preview)
	}
}

func TestBindEnv_InvalidValue(t *testing.T) {
	t.Setenv("LOGTRIAGE_TOP", "many")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("top", 0, "")

	err := bindEnv(flags)
	if err == nil {
		t.Fatal("expected error for non-numeric env value")
	}
	if !strings.Contains(err.Error(), "LOGTRIAGE_TOP") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := &AnalyzeOptions{
		ReportPath: "r.log",
		ChartPath:  "c.txt",
		Top:        4,
		Preview:    2,
		Threshold:  9,
		Rules:      []string{"bot_detected"},
	}

	applyFlags(cfg, []string{"my.log"}, opts)

	if cfg.Input.Path != "my.log" || cfg.Input.URL != "" {
		t.Errorf("Input = %+v, want my.log without download", cfg.Input)
	}
	if cfg.Report.DetailPath != "r.log" || cfg.Report.ChartPath != "c.txt" {
		t.Errorf("Report paths = %+v", cfg.Report)
	}
	if cfg.Report.Top != 4 || cfg.Report.Preview != 2 {
		t.Errorf("Report limits = %+v", cfg.Report)
	}
	if cfg.Thresholds.HighVolumeRequests != 9 {
		t.Errorf("HighVolumeRequests = %d, want 9", cfg.Thresholds.HighVolumeRequests)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0] != "bot_detected" {
		t.Errorf("Rules = %v", cfg.Rules)
	}
}

func TestApplyFlags_NoOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	applyFlags(cfg, nil, &AnalyzeOptions{})

	want := config.DefaultConfig()
	if cfg.Input != want.Input || cfg.Report != want.Report || cfg.Thresholds != want.Thresholds {
		t.Errorf("config changed without flags: %+v", cfg)
	}
}

func TestCollectWebhooks(t *testing.T) {
	// Test with config webhooks only
	t.Run("config only", func(t *testing.T) {
		cfg := &config.Config{
			Webhooks: []config.WebhookConfig{
				{Name: "slack", URL: "https://slack.com/webhook"},
				{Name: "pagerduty", URL: "https://pagerduty.com/webhook"},
			},
		}
		opts := &AnalyzeOptions{}

		webhooks := collectWebhooks(cfg, opts)

		if len(webhooks) != 2 {
			t.Errorf("got %d webhooks, want 2", len(webhooks))
		}
	})

	// Test with CLI webhook only
	t.Run("cli only", func(t *testing.T) {
		cfg := &config.Config{}
		opts := &AnalyzeOptions{
			WebhookURL:     "https://cli.example.com/webhook",
			WebhookToken:   "secret",
			WebhookTrigger: "always",
		}

		webhooks := collectWebhooks(cfg, opts)

		if len(webhooks) != 1 {
			t.Fatalf("got %d webhooks, want 1", len(webhooks))
		}
		if webhooks[0].Name != "cli" {
			t.Errorf("got name %q, want cli", webhooks[0].Name)
		}
		if webhooks[0].Token != "secret" {
			t.Errorf("got token %q, want secret", webhooks[0].Token)
		}
		if webhooks[0].Trigger != config.WebhookTriggerAlways {
			t.Errorf("got trigger %q, want always", webhooks[0].Trigger)
		}
		if webhooks[0].Timeout != config.DefaultWebhookTimeout {
			t.Errorf("got timeout %s, want %s", webhooks[0].Timeout, config.DefaultWebhookTimeout)
		}
	})

	// Test with empty trigger defaults to on_issues
	t.Run("default trigger", func(t *testing.T) {
		cfg := &config.Config{}
		opts := &AnalyzeOptions{
			WebhookURL: "https://example.com/webhook",
		}

		webhooks := collectWebhooks(cfg, opts)

		if len(webhooks) != 1 {
			t.Fatalf("got %d webhooks, want 1", len(webhooks))
		}
		if webhooks[0].Trigger != config.WebhookTriggerOnIssues {
			t.Errorf("got trigger %q, want on_issues", webhooks[0].Trigger)
		}
	})
}
