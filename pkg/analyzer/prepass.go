package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ccollicutt/logtriage/pkg/parser"
	"github.com/ccollicutt/logtriage/pkg/rules"
)

// Tally is the per-IP request count from the first pass.
type Tally struct {
	// Counts maps each leading IP token to its number of lines.
	Counts map[string]int `json:"counts"`

	// Lines is the number of lines read, including ones without an IP prefix.
	Lines int `json:"lines"`

	// Unmatched is the number of lines with no IP prefix.
	Unmatched int `json:"unmatched"`
}

// CountIPs reads src to EOF and tallies the leading IP of every line. Lines
// need not match the full grammar.
func CountIPs(ctx context.Context, src parser.LineSource) (*Tally, error) {
	t := &Tally{Counts: make(map[string]int)}

	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("counting requests per IP: %w", err)
		}

		t.Lines++
		ip, ok := parser.LeadingIP(line.Content)
		if !ok {
			t.Unmatched++
			continue
		}
		t.Counts[ip]++
	}
}

// Count returns the tally for ip.
func (t *Tally) Count(ip string) int {
	return t.Counts[ip]
}

// HighVolume returns the IPs whose count strictly exceeds threshold.
func (t *Tally) HighVolume(threshold int) rules.IPSet {
	set := make(rules.IPSet)
	for ip, n := range t.Counts {
		if n > threshold {
			set[ip] = struct{}{}
		}
	}
	return set
}

// Top returns the n most frequent IPs.
func (t *Tally) Top(n int) []Entry {
	return TopN(t.Counts, n)
}
