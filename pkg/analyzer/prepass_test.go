package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/ccollicutt/logtriage/pkg/parser"
)

func TestCountIPs(t *testing.T) {
	input := buildLog(
		"1.1.1.1 - whatever",
		"  1.1.1.1 - leading whitespace is trimmed",
		"2.2.2.2 - x",
		"no separator here",
		"",
	)

	tally, err := CountIPs(context.Background(), parser.NewReaderSource(strings.NewReader(input), "t"))
	if err != nil {
		t.Fatalf("CountIPs() error = %v", err)
	}

	if tally.Lines != 5 || tally.Unmatched != 2 {
		t.Errorf("Lines = %d, Unmatched = %d", tally.Lines, tally.Unmatched)
	}
	if tally.Count("1.1.1.1") != 2 || tally.Count("2.2.2.2") != 1 {
		t.Errorf("Counts = %v", tally.Counts)
	}
}

func TestTally_HighVolume(t *testing.T) {
	tally := &Tally{Counts: map[string]int{"a": 31, "b": 30, "c": 100}}

	set := tally.HighVolume(30)
	if len(set) != 2 || !set.Contains("a") || !set.Contains("c") || set.Contains("b") {
		t.Errorf("HighVolume(30) = %v", set.Sorted())
	}

	// Changing one IP's tally leaves the others alone.
	tally.Counts["a"] = 30
	if set := tally.HighVolume(30); set.Contains("a") || !set.Contains("c") {
		t.Errorf("HighVolume(30) after change = %v", set.Sorted())
	}

	top := tally.Top(1)
	if len(top) != 1 || top[0].Key != "c" {
		t.Errorf("Top(1) = %v", top)
	}
}
