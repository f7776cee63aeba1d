package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtriage/pkg/config"
	"github.com/ccollicutt/logtriage/pkg/rules"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a logtriage configuration file without running analysis.

Checks:
  - YAML syntax
  - Input path and download URL
  - Threshold and report settings
  - Rule names
  - Webhook settings
  - Log file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(out, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	_, _ = fmt.Fprintf(out, "\nConfiguration valid!\n")
	_, _ = fmt.Fprintf(out, "  Input:       %s\n", cfg.Input.Path)
	if cfg.Input.URL != "" {
		_, _ = fmt.Fprintf(out, "  Download:    %s\n", cfg.Input.URL)
	}
	_, _ = fmt.Fprintf(out, "  Thresholds:  %d requests/IP, %dms, %dB\n",
		cfg.Thresholds.HighVolumeRequests, cfg.Thresholds.SlowResponseMs, cfg.Thresholds.LargeTransferBytes)
	_, _ = fmt.Fprintf(out, "  Webhooks:    %d\n", len(cfg.Webhooks))

	// List rules
	kinds := rules.NewEvaluator(rules.WithRuleFilter(cfg.RuleKinds())).Rules()
	_, _ = fmt.Fprintf(out, "\nRules:\n")
	for i, k := range kinds {
		_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, k)
	}

	// Check if the log file exists (warnings only)
	if _, err := os.Stat(cfg.Input.Path); err != nil {
		if cfg.Input.URL != "" {
			_, _ = fmt.Fprintf(out, "\nWarning: %s does not exist yet; it will be downloaded on analyze\n", cfg.Input.Path)
		} else {
			_, _ = fmt.Fprintf(out, "\nWarning: %s does not exist and no download URL is configured\n", cfg.Input.Path)
		}
	} else {
		_, _ = fmt.Fprintf(out, "\nLog file: %s\n", cfg.Input.Path)
	}

	return nil
}
