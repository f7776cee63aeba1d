package config

import (
	"os"
	"time"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/rules"
)

// Default values for configuration.
const (
	DefaultInputPath      = "sample-log.log"
	DefaultInputURL       = "https://raw.githubusercontent.com/brightnetwork/ieuk-task-2025/main/sample-log.log"
	DefaultDetailPath     = "problematic_requests.log"
	DefaultTop            = 10
	DefaultPreview        = 10
	DefaultFetchTimeout   = 60 * time.Second
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvInputPath = "LOGTRIAGE_INPUT_PATH"
	EnvInputURL  = "LOGTRIAGE_INPUT_URL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Path:         DefaultInputPath,
			URL:          DefaultInputURL,
			FetchTimeout: DefaultFetchTimeout,
		},
		Thresholds: ThresholdConfig{
			HighVolumeRequests: analyzer.DefaultHighVolumeThreshold,
			SlowResponseMs:     rules.DefaultSlowResponseMs,
			LargeTransferBytes: rules.DefaultLargeTransferBytes,
		},
		Report: ReportConfig{
			DetailPath: DefaultDetailPath,
			Top:        DefaultTop,
			Preview:    DefaultPreview,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if path := os.Getenv(EnvInputPath); path != "" {
		c.Input.Path = path
	}
	if u, ok := os.LookupEnv(EnvInputURL); ok {
		// An empty value disables fetching.
		c.Input.URL = u
	}
}
