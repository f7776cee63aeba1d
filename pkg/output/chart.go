package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/rules"
)

const (
	chartHeight   = 8
	chartBarWidth = 3
	chartBarGap   = 1
	chartTopN     = 8
	legendLabel   = 28
)

// ChartOptions controls chart rendering.
type ChartOptions struct {
	// Color enables ANSI styling. Disable when writing to a file or pipe.
	Color bool
}

// ChartRenderer draws the multi-panel summary chart.
type ChartRenderer struct {
	opts ChartOptions
}

// NewChartRenderer creates a chart renderer.
func NewChartRenderer(opts ChartOptions) *ChartRenderer {
	return &ChartRenderer{opts: opts}
}

type chartBar struct {
	label string
	value int
}

type chartPanel struct {
	title string
	empty string
	color string
	bars  []chartBar
}

// Render draws all panels stacked vertically.
func (c *ChartRenderer) Render(report *Report) string {
	result := report.Result()
	if result == nil || result.State == nil {
		return "No analysis data\n"
	}

	title := fmt.Sprintf("Log Analysis Summary (%d entries)", result.State.TotalLines)
	blocks := []string{c.titleStyle().Render(title)}
	for _, p := range panels(result) {
		blocks = append(blocks, c.renderPanel(p))
	}

	return lipgloss.JoinVertical(lipgloss.Left, blocks...) + "\n"
}

// Write renders the chart to w.
func (c *ChartRenderer) Write(w io.Writer, report *Report) error {
	_, err := io.WriteString(w, c.Render(report))
	return err
}

// WriteChartFile renders the chart uncolored to path.
func WriteChartFile(path string, report *Report) error {
	r := NewChartRenderer(ChartOptions{})
	return writeFile(path, func(w io.Writer) error {
		return r.Write(w, report)
	})
}

// panels derives the nine chart panels from a result.
func panels(result *analyzer.Result) []chartPanel {
	s := result.State

	traffic := chartPanel{title: "Traffic Composition", empty: "No bot traffic detected", color: "39"}
	if s.Bots.Total > 0 || s.Bots.HighRequestNonBot > 0 {
		traffic.bars = []chartBar{
			{"Human Traffic", s.HumanTraffic()},
			{"Known Bots", s.Bots.Total},
			{"High-Request IPs", s.Bots.HighRequestNonBot},
		}
	}

	statusGroups := make([]chartBar, 0, 5)
	for _, g := range s.StatusGroups() {
		statusGroups = append(statusGroups, chartBar{g.Name, g.Count})
	}

	return []chartPanel{
		{title: fmt.Sprintf("Top %d Issues Detected", chartTopN), empty: "No issues detected", color: "203", bars: entryBars(s.TopIssues(chartTopN))},
		{title: "Status Code Distribution", empty: "No status data", color: "42", bars: nonZero(statusGroups, len(s.StatusCodes) == 0)},
		{title: fmt.Sprintf("Response Time Distribution (%dms threshold)", result.Thresholds.SlowResponseMs), empty: "No response time data", color: "33", bars: entryBars(ResponseHistogram(s.ResponseTimes, result.Thresholds))},
		{title: "Top Suspicious Paths", empty: "No suspicious paths", color: "202", bars: entryBars(analyzer.TopN(s.SuspiciousPaths, chartTopN))},
		{title: "Top Client IP Addresses", empty: "No IP data", color: "129", bars: entryBars(result.PrePass.Top(chartTopN))},
		{title: "HTTP Method Distribution", empty: "No method data", color: "117", bars: entryBars(analyzer.Ranked(s.Methods))},
		traffic,
		{title: "Top Bot Types", empty: "No bot data", color: "208", bars: entryBars(analyzer.TopN(s.Bots.Types, chartTopN))},
		{title: "Bot Response Status Codes", empty: "No bot status data", color: "71", bars: entryBars(analyzer.SortedCodes(s.Bots.StatusCodes))},
	}
}

// ResponseHistogram buckets response times around the slow-response
// threshold. An empty input yields no buckets.
func ResponseHistogram(times []int, th rules.Thresholds) []analyzer.Entry {
	if len(times) == 0 {
		return nil
	}
	limit := th.SlowResponseMs
	if limit <= 0 {
		limit = rules.DefaultSlowResponseMs
	}

	edges := []int{limit / 5, limit / 2, limit, limit * 2, limit * 4}
	buckets := make([]analyzer.Entry, len(edges)+1)
	lo := 0
	for i, hi := range edges {
		buckets[i].Key = fmt.Sprintf("%d-%dms", lo, hi-1)
		lo = hi
	}
	buckets[len(edges)].Key = fmt.Sprintf(">=%dms", lo)

	for _, t := range times {
		i := 0
		for i < len(edges) && t >= edges[i] {
			i++
		}
		buckets[i].Count++
	}
	return buckets
}

func entryBars(entries []analyzer.Entry) []chartBar {
	bars := make([]chartBar, len(entries))
	for i, e := range entries {
		bars[i] = chartBar{e.Key, e.Count}
	}
	return bars
}

func nonZero(bars []chartBar, empty bool) []chartBar {
	if empty {
		return nil
	}
	return bars
}

func (c *ChartRenderer) renderPanel(p chartPanel) string {
	title := c.titleStyle().Render(p.title)
	if len(p.bars) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, "", title, "  "+p.empty)
	}

	width := len(p.bars) * (chartBarWidth + chartBarGap)
	bc := barchart.New(width, chartHeight,
		barchart.WithBarGap(chartBarGap),
		barchart.WithBarWidth(chartBarWidth),
		barchart.WithNoAxis(),
	)

	style := c.barStyle(p.color)
	for _, b := range p.bars {
		bc.Push(barchart.BarData{
			Label: b.label,
			Values: []barchart.BarValue{
				{Name: b.label, Value: float64(b.value), Style: style},
			},
		})
	}
	bc.Draw()

	legend := make([]string, 0, len(p.bars))
	for i, b := range p.bars {
		legend = append(legend, fmt.Sprintf("%d. %-*s %7d", i+1, legendLabel, truncate(b.label, legendLabel), b.value))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, bc.View(), "  ", strings.Join(legend, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, "", title, body)
}

func (c *ChartRenderer) titleStyle() lipgloss.Style {
	if !c.opts.Color {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
}

func (c *ChartRenderer) barStyle(color string) lipgloss.Style {
	if !c.opts.Color {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Background(lipgloss.Color(color))
}
