package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	if opts.Preview <= 0 {
		opts.Preview = DefaultPreview
	}
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "logtriage: %d lines, %d problematic (%.2f%%), %d bot requests, %d high-request\n",
		s.TotalLines, s.ProblemLines, s.ProblemPercent, s.BotRequests, s.HighRequestNonBot)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	s := report.Summary
	b := report.Breakdown

	fmt.Fprintln(w, "=== logtriage Analysis Report ===")
	if report.Metadata.Source != "" {
		fmt.Fprintf(w, "Log file: %s\n", report.Metadata.Source)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Analysis Summary:")
	fmt.Fprintf(w, "Total lines processed: %d\n", s.TotalLines)
	fmt.Fprintf(w, "Problematic lines found: %d\n", s.ProblemLines)
	fmt.Fprintf(w, "Known bots detected: %d (%.2f%%)\n", s.BotRequests, s.BotPercent)
	fmt.Fprintf(w, "High-request IPs detected: %d (%.2f%%)\n", s.HighRequestNonBot, s.HighRequestPercent)
	if s.TotalLines > 0 {
		fmt.Fprintf(w, "Percentage problematic: %.2f%%\n", s.ProblemPercent)
	}

	if f.opts.Verbose {
		th := report.Metadata.Thresholds
		fmt.Fprintf(w, "Parsed lines: %d\n", s.ParsedLines)
		fmt.Fprintf(w, "Thresholds: >%d requests/IP, >%dms, >%d bytes\n",
			s.HighVolumeThreshold, th.SlowResponseMs, th.LargeTransferBytes)
		if len(s.HighVolumeIPs) > 0 {
			fmt.Fprintf(w, "High-volume IPs: %s\n", strings.Join(s.HighVolumeIPs, ", "))
		}
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	if len(b.TopIssues) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Top Issues:")
		for _, e := range b.TopIssues {
			fmt.Fprintf(w, "  %s: %d occurrences\n", e.Key, e.Count)
		}
	}

	if len(b.TopIPs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Top Client IP Addresses:")
		for _, e := range b.TopIPs {
			fmt.Fprintf(w, "  %s: %d requests\n", e.Key, e.Count)
		}
	}

	if s.BotRequests > 0 || s.HighRequestNonBot > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Bot Traffic Analysis:")
		fmt.Fprintf(w, "Total known bot requests: %d\n", s.BotRequests)
		fmt.Fprintf(w, "Total high-request IPs: %d\n", s.HighRequestNonBot)
		fmt.Fprintf(w, "Top bot types: %s\n", joinEntries(b.BotTypes))
		fmt.Fprintf(w, "Top bot IPs: %s\n", joinEntries(b.BotIPs))
		fmt.Fprintf(w, "Top paths accessed by bots: %s\n", joinEntries(b.BotPaths))
		fmt.Fprintf(w, "Bot status codes: %s\n", joinEntries(b.BotStatusCodes))
	}

	fmt.Fprintln(w)
	if len(report.Problems) == 0 {
		_, err := fmt.Fprintln(w, "No problematic requests found")
		return err
	}

	preview := report.Problems
	if len(preview) > f.opts.Preview {
		preview = preview[:f.opts.Preview]
	}
	fmt.Fprintf(w, "Problematic HTTP Requests (First %d):\n", f.opts.Preview)
	fmt.Fprintln(w, ProblemColumns)
	fmt.Fprintln(w, problemRule)
	for _, p := range preview {
		fmt.Fprintln(w, FormatProblemRow(p, 2))
	}

	_, err := fmt.Fprintf(w, "\n%d problematic requests in total\n", len(report.Problems))
	return err
}

func joinEntries(entries []analyzer.Entry) string {
	if len(entries) == 0 {
		return "none"
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (%d)", e.Key, e.Count)
	}
	return strings.Join(parts, ", ")
}
