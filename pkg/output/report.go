// Package output provides formatting and output generation for analysis results.
package output

import (
	"time"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/rules"
)

// Breakdown sizes used by the console summary.
const (
	DefaultTopIssues = 10
	DefaultTopIPs    = 8
	DefaultTopBots   = 5
)

// Report is the complete analysis output.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Breakdown holds the ranked counters.
	Breakdown Breakdown `json:"breakdown"`

	// Problems lists every tagged parsed line in file order.
	Problems []analyzer.Problem `json:"problems"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`

	// result backs the chart renderer, which needs raw samples.
	result *analyzer.Result
}

// Summary provides aggregate statistics.
type Summary struct {
	TotalLines   int `json:"total_lines"`
	ParsedLines  int `json:"parsed_lines"`
	ProblemLines int `json:"problem_lines"`

	// ProblemPercent is ProblemLines as a percentage of TotalLines.
	ProblemPercent float64 `json:"problem_percent"`

	BotRequests int     `json:"bot_requests"`
	BotPercent  float64 `json:"bot_percent"`

	// HighRequestNonBot counts high-volume lines that are not bots.
	HighRequestNonBot  int     `json:"high_request_non_bot"`
	HighRequestPercent float64 `json:"high_request_percent"`
	HumanTraffic       int     `json:"human_traffic"`

	HighVolumeIPs       []string `json:"high_volume_ips"`
	HighVolumeThreshold int      `json:"high_volume_threshold"`
	DistinctIPs         int      `json:"distinct_ips"`
}

// Breakdown holds ranked counters, each already truncated.
type Breakdown struct {
	TopIssues       []analyzer.Entry       `json:"top_issues"`
	TopIPs          []analyzer.Entry       `json:"top_ips"`
	StatusGroups    []analyzer.StatusGroup `json:"status_groups"`
	StatusCodes     []analyzer.Entry       `json:"status_codes"`
	Methods         []analyzer.Entry       `json:"methods"`
	SuspiciousPaths []analyzer.Entry       `json:"suspicious_paths"`
	BotTypes        []analyzer.Entry       `json:"bot_types"`
	BotIPs          []analyzer.Entry       `json:"bot_ips"`
	BotPaths        []analyzer.Entry       `json:"bot_paths"`
	BotStatusCodes  []analyzer.Entry       `json:"bot_status_codes"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	// Source is the log file that was analyzed.
	Source string `json:"source"`

	// Fetched is true when the log was downloaded for this run.
	Fetched bool `json:"fetched,omitempty"`

	// Thresholds are the rule limits in effect.
	Thresholds rules.Thresholds `json:"thresholds"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration"`
}

// NewReport creates a Report from analysis results. top caps the issue
// list; zero uses DefaultTopIssues.
func NewReport(result *analyzer.Result, meta Metadata, top int) *Report {
	if top <= 0 {
		top = DefaultTopIssues
	}
	s := result.State
	meta.Thresholds = result.Thresholds

	return &Report{
		Summary: Summary{
			TotalLines:          s.TotalLines,
			ParsedLines:         s.ParsedLines,
			ProblemLines:        s.ProblemLines,
			ProblemPercent:      percent(s.ProblemLines, s.TotalLines),
			BotRequests:         s.Bots.Total,
			BotPercent:          percent(s.Bots.Total, s.TotalLines),
			HighRequestNonBot:   s.Bots.HighRequestNonBot,
			HighRequestPercent:  percent(s.Bots.HighRequestNonBot, s.TotalLines),
			HumanTraffic:        s.HumanTraffic(),
			HighVolumeIPs:       result.HighVolumeIPs,
			HighVolumeThreshold: result.Threshold,
			DistinctIPs:         len(result.PrePass.Counts),
		},
		Breakdown: Breakdown{
			TopIssues:       s.TopIssues(top),
			TopIPs:          result.PrePass.Top(DefaultTopIPs),
			StatusGroups:    s.StatusGroups(),
			StatusCodes:     analyzer.SortedCodes(s.StatusCodes),
			Methods:         analyzer.Ranked(s.Methods),
			SuspiciousPaths: analyzer.TopN(s.SuspiciousPaths, top),
			BotTypes:        analyzer.TopN(s.Bots.Types, DefaultTopBots),
			BotIPs:          analyzer.TopN(s.Bots.IPs, DefaultTopBots),
			BotPaths:        analyzer.TopN(s.Bots.Paths, DefaultTopBots),
			BotStatusCodes:  analyzer.RankedCodes(s.Bots.StatusCodes, DefaultTopBots),
		},
		Problems: s.Problems,
		Metadata: meta,
		result:   result,
	}
}

// HasIssues returns true if any line carried a tag.
func (r *Report) HasIssues() bool {
	return r.Summary.ProblemLines > 0
}

// Result returns the analysis result the report was built from.
func (r *Report) Result() *analyzer.Result {
	return r.result
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
