// Package config provides configuration loading and validation for logtriage.
package config

import (
	"time"

	"github.com/ccollicutt/logtriage/pkg/rules"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	Input      InputConfig     `yaml:"input"`
	Thresholds ThresholdConfig `yaml:"thresholds"`
	Report     ReportConfig    `yaml:"report"`

	// Rules limits tagging to the named rule kinds. Empty means all rules.
	Rules []string `yaml:"rules,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// InputConfig locates the access log.
type InputConfig struct {
	// Path is the local log file.
	Path string `yaml:"path"`

	// URL is downloaded to Path when Path does not exist. Empty disables fetching.
	URL string `yaml:"url,omitempty"`

	// FetchTimeout bounds the download.
	// Defaults to 60s if not specified.
	FetchTimeout time.Duration `yaml:"fetch_timeout,omitempty"`
}

// ThresholdConfig holds the numeric limits used by the rules.
type ThresholdConfig struct {
	// HighVolumeRequests is the per-IP request count that must be exceeded.
	HighVolumeRequests int `yaml:"high_volume_requests,omitempty"`

	// SlowResponseMs tags responses slower than this many milliseconds.
	SlowResponseMs int `yaml:"slow_response_ms,omitempty"`

	// LargeTransferBytes tags transfers larger than this many bytes.
	LargeTransferBytes int64 `yaml:"large_transfer_bytes,omitempty"`
}

// ReportConfig controls the file outputs and console truncation.
type ReportConfig struct {
	// DetailPath receives the full problem list. Empty disables the file.
	DetailPath string `yaml:"detail_path"`

	// ChartPath receives the plain-text chart. Empty disables the file.
	ChartPath string `yaml:"chart_path,omitempty"`

	// Top caps each ranked list in the summary.
	Top int `yaml:"top,omitempty"`

	// Preview caps the number of problem rows shown on the console.
	Preview int `yaml:"preview,omitempty"`
}

// RuleKinds converts Rules to rule kinds.
func (c *Config) RuleKinds() []rules.Kind {
	if len(c.Rules) == 0 {
		return nil
	}
	kinds := make([]rules.Kind, len(c.Rules))
	for i, r := range c.Rules {
		kinds[i] = rules.Kind(r)
	}
	return kinds
}

// RuleThresholds returns the rule limits.
func (c *Config) RuleThresholds() rules.Thresholds {
	return rules.Thresholds{
		SlowResponseMs:     c.Thresholds.SlowResponseMs,
		LargeTransferBytes: c.Thresholds.LargeTransferBytes,
	}
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIssues fires only when problems are detected (default).
	WebhookTriggerOnIssues WebhookTrigger = "on_issues"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending analysis results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_issues" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
