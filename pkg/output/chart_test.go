package output

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/rules"
)

func TestChartRenderer_Render(t *testing.T) {
	out := NewChartRenderer(ChartOptions{}).Render(createTestReport(t))

	for _, want := range []string{
		"Log Analysis Summary (15 entries)",
		"Top 8 Issues Detected",
		"Status Code Distribution",
		"Response Time Distribution (500ms threshold)",
		"Top Suspicious Paths",
		"Top Client IP Addresses",
		"HTTP Method Distribution",
		"Traffic Composition",
		"Top Bot Types",
		"Bot Response Status Codes",
		"Human Traffic",
		"Googlebot/2.1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("chart missing %q", want)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("uncolored chart contains ANSI escapes")
	}
}

func TestChartRenderer_EmptyPanels(t *testing.T) {
	report := NewReport(&analyzer.Result{
		State:   analyzer.NewState(),
		PrePass: &analyzer.Tally{Counts: map[string]int{}},
	}, Metadata{}, 0)

	out := NewChartRenderer(ChartOptions{}).Render(report)
	for _, want := range []string{"No issues detected", "No status data", "No bot traffic detected", "No bot status data"} {
		if !strings.Contains(out, want) {
			t.Errorf("chart missing %q", want)
		}
	}

	if got := NewChartRenderer(ChartOptions{}).Render(&Report{}); got != "No analysis data\n" {
		t.Errorf("Render(empty report) = %q", got)
	}
}

func TestResponseHistogram(t *testing.T) {
	got := ResponseHistogram([]int{0, 99, 100, 499, 500, 999, 1000, 5000}, rules.DefaultThresholds())

	want := []analyzer.Entry{
		{Key: "0-99ms", Count: 2},
		{Key: "100-249ms", Count: 1},
		{Key: "250-499ms", Count: 1},
		{Key: "500-999ms", Count: 2},
		{Key: "1000-1999ms", Count: 1},
		{Key: ">=2000ms", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ResponseHistogram() = %v, want %v", got, want)
	}

	if ResponseHistogram(nil, rules.DefaultThresholds()) != nil {
		t.Error("ResponseHistogram(nil) should be nil")
	}
}

func TestWriteChartFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.txt")
	if err := WriteChartFile(path, createTestReport(t)); err != nil {
		t.Fatalf("WriteChartFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Traffic Composition") {
		t.Error("chart file missing panels")
	}
}
