// Package plugins provides exec-based plugin support for logtriage.
// Plugins are separate binaries named logtriage-<command> that are discovered
// and executed when an unknown command is invoked.
//
// This follows the same pattern used by kubectl and git for plugins.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "logtriage-"

// Environment variables shared with plugins.
const (
	// EnvPluginDir adds a directory searched before all others.
	EnvPluginDir = "LOGTRIAGE_PLUGIN_DIR"

	// EnvBinary is set for the plugin process to the running logtriage
	// binary, so plugins can call back into analyze.
	EnvBinary = "LOGTRIAGE_BIN"
)

// KnownPlugins lists plugins that have official implementations available.
// These get special error messages directing users where to obtain them.
var KnownPlugins = map[string]string{
	"watch": "Continuous access-log monitoring: re-runs the classification as the log grows.",
}

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// Plugin is an installed plugin binary.
type Plugin struct {
	Name string // command name without the prefix
	Path string
}

// searchDirs returns the plugin directories in lookup order:
//  1. $LOGTRIAGE_PLUGIN_DIR
//  2. Same directory as the logtriage binary
//  3. ~/.logtriage/plugins/
func searchDirs() []string {
	var dirs []string
	if dir := os.Getenv(EnvPluginDir); dir != "" {
		dirs = append(dirs, dir)
	}
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".logtriage", "plugins"))
	}
	return dirs
}

// FindPlugin searches for a plugin binary named logtriage-<command>, first
// in the plugin directories and then anywhere in PATH.
//
// Returns the full path to the plugin binary if found.
func FindPlugin(command string) (string, error) {
	pluginName := Prefix + command

	for _, dir := range searchDirs() {
		candidate := filepath.Join(dir, pluginName)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(pluginName); err == nil {
		return path, nil
	}

	return "", ErrPluginNotFound
}

// List returns the plugins installed in the plugin directories and PATH,
// sorted by name. When a name appears more than once the first location in
// lookup order wins, matching FindPlugin.
func List() []Plugin {
	dirs := searchDirs()
	dirs = append(dirs, filepath.SplitList(os.Getenv("PATH"))...)

	seen := make(map[string]bool)
	var found []Plugin
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name, ok := strings.CutPrefix(e.Name(), Prefix)
			if !ok || name == "" || seen[name] {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if !isExecutable(path) {
				continue
			}
			seen[name] = true
			found = append(found, Plugin{Name: name, Path: path})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found
}

// Execute runs a plugin with the given arguments.
// It connects stdin, stdout, and stderr to the plugin process
// and returns the plugin's exit code.
func Execute(ctx context.Context, pluginPath string, args []string) int {
	cmd := exec.CommandContext(ctx, pluginPath, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if self, err := os.Executable(); err == nil {
		cmd.Env = append(cmd.Env, EnvBinary+"="+self)
	}

	err := cmd.Run()
	if err != nil {
		// Extract exit code from error if available
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		// Could not start; treat like a runtime error
		_, _ = fmt.Fprintf(os.Stderr, "Error executing plugin: %v\n", err)
		return 2
	}

	return 0
}

// FormatNotFoundError returns a helpful error message when a plugin is not found.
// If the command is a known plugin, includes information about where to get it.
func FormatNotFoundError(command string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "unknown command %q for \"logtriage\"\n", command)

	// Check if this is a known plugin
	if info, ok := KnownPlugins[command]; ok {
		fmt.Fprintf(&sb, "\n%q is available as a plugin.\n", command)
		sb.WriteString(info)
		sb.WriteString("\n\nInstall the plugin binary as one of:\n")
	} else {
		sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")
	}

	// Show installation locations
	fmt.Fprintf(&sb, "  - $%s/%s%s\n", EnvPluginDir, Prefix, command)
	fmt.Fprintf(&sb, "  - %s%s in the same directory as logtriage\n", Prefix, command)
	fmt.Fprintf(&sb, "  - ~/.logtriage/plugins/%s%s\n", Prefix, command)
	fmt.Fprintf(&sb, "  - %s%s anywhere in your PATH\n", Prefix, command)

	sb.WriteString("\nRun 'logtriage --help' for usage.")

	return sb.String()
}

// isExecutable checks if a path is a regular file with an execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0111 != 0
}
