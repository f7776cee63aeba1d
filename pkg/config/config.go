package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/logtriage/pkg/rules"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, or returns the validated defaults when path is empty.
func LoadOrDefault(ctx context.Context, path string) (*Config, error) {
	if path != "" {
		return Load(ctx, path)
	}

	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks a configuration for errors and fills defaults.
func Validate(cfg *Config) error {
	if err := validateInput(&cfg.Input); err != nil {
		return fmt.Errorf("input: %w", err)
	}

	if err := validateThresholds(&cfg.Thresholds); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	if err := validateReport(&cfg.Report); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	for i, name := range cfg.Rules {
		if !rules.ValidKind(rules.Kind(name)) {
			return fmt.Errorf("rules[%d]: unknown rule %q", i, name)
		}
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateInput(in *InputConfig) error {
	if in.Path == "" {
		return errors.New("path is required")
	}

	if in.URL != "" {
		if err := validateHTTPURL(in.URL); err != nil {
			return err
		}
	}

	if in.FetchTimeout <= 0 {
		in.FetchTimeout = DefaultFetchTimeout
	}

	return nil
}

func validateThresholds(th *ThresholdConfig) error {
	if th.HighVolumeRequests < 0 {
		return errors.New("high_volume_requests must not be negative")
	}
	if th.SlowResponseMs < 0 {
		return errors.New("slow_response_ms must not be negative")
	}
	if th.LargeTransferBytes < 0 {
		return errors.New("large_transfer_bytes must not be negative")
	}

	d := DefaultConfig().Thresholds
	if th.HighVolumeRequests == 0 {
		th.HighVolumeRequests = d.HighVolumeRequests
	}
	if th.SlowResponseMs == 0 {
		th.SlowResponseMs = d.SlowResponseMs
	}
	if th.LargeTransferBytes == 0 {
		th.LargeTransferBytes = d.LargeTransferBytes
	}

	return nil
}

func validateReport(r *ReportConfig) error {
	if r.Top < 0 {
		return errors.New("top must not be negative")
	}
	if r.Preview < 0 {
		return errors.New("preview must not be negative")
	}
	if r.Top == 0 {
		r.Top = DefaultTop
	}
	if r.Preview == 0 {
		r.Preview = DefaultPreview
	}
	if r.DetailPath != "" && r.DetailPath == r.ChartPath {
		return fmt.Errorf("detail_path and chart_path must differ (both %q)", r.DetailPath)
	}
	return nil
}

// ValidateWebhook checks one webhook entry, expands its token and fills
// the trigger and timeout defaults.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	if err := validateHTTPURL(wh.URL); err != nil {
		return err
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	// Validate trigger if specified
	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnIssues, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_issues, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnIssues
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
