package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/rules"
)

// DetailHeader is the first line of the detail report file.
const DetailHeader = "Full List of Problematic Requests:"

// ProblemColumns is the column header shared by the console preview and the
// detail report.
const ProblemColumns = "Line | IP Address    | Method | Path                 | Status | Time(ms) | Size   | Issues"

// problemRule separates the column header from the rows.
var problemRule = strings.Repeat("-", 95)

// FormatProblemRow renders one problem as a fixed-width row. The path is
// cut to 20 characters. maxTags limits the tags listed; zero lists all.
func FormatProblemRow(p analyzer.Problem, maxTags int) string {
	tags := p.Tags
	if maxTags > 0 && len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return fmt.Sprintf("%-4d | %-13s | %-6s | %-20s | %-6d | %-8d | %-6d | %s",
		p.Line, p.IP, p.Method, truncate(p.Path, 20), p.Status, p.ResponseTime, p.Bytes,
		strings.Join(rules.Labels(tags), ", "))
}

// WriteDetail writes the full problem list.
func WriteDetail(w io.Writer, problems []analyzer.Problem) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, DetailHeader)
	fmt.Fprintln(bw, ProblemColumns)
	fmt.Fprintln(bw, problemRule)
	for _, p := range problems {
		fmt.Fprintln(bw, FormatProblemRow(p, 0))
	}

	return bw.Flush()
}

// WriteDetailFile writes the full problem list to path, replacing any
// existing file.
func WriteDetailFile(path string, problems []analyzer.Problem) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteDetail(w, problems)
	})
}

// writeFile creates path's directory and writes through fn.
func writeFile(path string, fn func(w io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path) // #nosec G304 -- user-provided output path is expected
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if err := fn(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
