// Package analyzer drives the two-pass classification of an access log and
// folds every line into aggregate counters.
package analyzer

import (
	"github.com/ccollicutt/logtriage/pkg/rules"
)

// DefaultHighVolumeThreshold is the request count an IP must strictly
// exceed to be considered high volume.
const DefaultHighVolumeThreshold = 30

// Problem is the retained detail for one parsed line with at least one tag.
type Problem struct {
	// Line is the 1-based line number in the input.
	Line int `json:"line"`

	IP           string `json:"ip"`
	Method       string `json:"method"`
	Path         string `json:"path"`
	Status       int    `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Bytes        int64  `json:"bytes"`

	// Tags is the deduplicated tag list in evaluation order.
	Tags []rules.Tag `json:"tags"`
}

// BotStats accumulates counters for lines classified as automated.
type BotStats struct {
	// Total is the number of parsed lines whose user agent is a bot.
	Total int `json:"total"`

	IPs         map[string]int `json:"ips"`
	Paths       map[string]int `json:"paths"`
	StatusCodes map[int]int    `json:"status_codes"`

	// Types counts bot names; lines with an empty name are not counted.
	Types map[string]int `json:"types"`

	// HighRequestNonBot counts high-volume lines that are not bots.
	HighRequestNonBot int `json:"high_request_non_bot"`
}

// StatusGroup is a named status-code bucket.
type StatusGroup struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Entry is one key of a ranked counter.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Result is the final output of an analysis run.
type Result struct {
	// State holds every counter from the second pass.
	State *State `json:"state"`

	// PrePass is the per-IP tally from the first pass.
	PrePass *Tally `json:"prepass"`

	// HighVolumeIPs lists the IPs above Threshold, sorted.
	HighVolumeIPs []string `json:"high_volume_ips"`

	// Threshold is the high-volume limit used.
	Threshold int `json:"threshold"`

	// Thresholds are the rule limits used.
	Thresholds rules.Thresholds `json:"thresholds"`
}

// HasProblems reports whether any line carried a tag.
func (r *Result) HasProblems() bool {
	return r.State != nil && r.State.ProblemLines > 0
}
