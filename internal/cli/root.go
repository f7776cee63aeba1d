// Package cli provides the command-line interface for logtriage.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtriage/internal/cli/commands"
	"github.com/ccollicutt/logtriage/internal/cli/plugins"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCommand()

	// Unknown first words are tried as plugins before cobra sees them
	name, candidate := pluginCandidate(rootCmd, os.Args[1:])
	if candidate {
		if pluginPath, err := plugins.FindPlugin(name); err == nil {
			return plugins.Execute(ctx, pluginPath, os.Args[2:])
		}
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if candidate {
			_, _ = fmt.Fprintln(os.Stderr, plugins.FormatNotFoundError(name))
			return 2
		}
		// SilenceErrors leaves printing to us
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return commands.ExitCode
}

// pluginCandidate returns the first argument when it is neither a flag nor
// a built-in command.
func pluginCandidate(rootCmd *cobra.Command, args []string) (string, bool) {
	if len(args) == 0 || args[0] == "" || strings.HasPrefix(args[0], "-") {
		return "", false
	}
	if isBuiltinCommand(rootCmd, args[0]) {
		return "", false
	}
	return args[0], true
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Also check for special commands like help and completion
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logtriage",
		Short: "Find problematic requests in web access logs",
		Long: `logtriage is a batch access-log analysis tool.

It reads the log twice: once to count requests per client IP, then again to
tag every line with the problems it shows:
  - High request counts and bot traffic
  - Client and server errors
  - Slow responses and large transfers
  - Suspicious paths, failed authentication and bad timestamps

It prints a summary, writes the full problem list to a file and can draw
a bar-chart overview.

PLUGINS:
  logtriage supports plugins for extended functionality. Plugins are standalone
  binaries named logtriage-<command> that are automatically discovered and invoked.

  Plugin locations (searched in order):
    1. $LOGTRIAGE_PLUGIN_DIR
    2. Same directory as the logtriage binary
    3. ~/.logtriage/plugins/
    4. Anywhere in PATH

  Run 'logtriage plugins' to list installed plugins.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())
	rootCmd.AddCommand(newPluginsCommand())

	return rootCmd
}

func newPluginsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			found := plugins.List()
			if len(found) == 0 {
				_, _ = fmt.Fprintln(out, "No plugins installed")
				return
			}
			for _, p := range found {
				_, _ = fmt.Fprintf(out, "%-12s %s\n", p.Name, p.Path)
			}
		},
	}
}
