package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/rules"
)

func TestFormatProblemRow(t *testing.T) {
	p := analyzer.Problem{
		Line:         12,
		IP:           "10.0.0.5",
		Method:       "GET",
		Path:         "/a/very/long/path/that/keeps/going",
		Status:       404,
		ResponseTime: 650,
		Bytes:        512,
		Tags: []rules.Tag{
			{Kind: rules.KindBotDetected},
			{Kind: rules.KindClientError, Value: 404},
			{Kind: rules.KindSuspiciousPath},
		},
	}

	want := "12   | 10.0.0.5      | GET    | /a/very/long/path/th | 404    | 650      | 512    | Bot detected, Client error (404), Suspicious path"
	if got := FormatProblemRow(p, 0); got != want {
		t.Errorf("FormatProblemRow() =\n%q\nwant\n%q", got, want)
	}

	if got := FormatProblemRow(p, 2); !strings.HasSuffix(got, "| Bot detected, Client error (404)") {
		t.Errorf("FormatProblemRow(2) = %q", got)
	}
}

func TestWriteDetail(t *testing.T) {
	report := createTestReport(t)

	var buf bytes.Buffer
	if err := WriteDetail(&buf, report.Problems); err != nil {
		t.Fatalf("WriteDetail() error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}
	if lines[0] != DetailHeader || lines[1] != ProblemColumns || lines[2] != strings.Repeat("-", 95) {
		t.Errorf("header lines = %q", lines[:3])
	}
	if !strings.HasSuffix(lines[3], "Bot detected, Client error (404), Slow response (>500ms), Suspicious path, Authentication failed") {
		t.Errorf("first row = %q", lines[3])
	}
	if !strings.HasPrefix(lines[4], "15   | 66.249.66.1") {
		t.Errorf("second row = %q", lines[4])
	}
}

func TestWriteDetailFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "problems.log")

	if err := WriteDetailFile(path, nil); err != nil {
		t.Fatalf("WriteDetailFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), DetailHeader+"\n") {
		t.Errorf("file content = %q", data)
	}
}
