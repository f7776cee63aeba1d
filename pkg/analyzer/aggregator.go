package analyzer

import (
	"sort"
	"strconv"

	"github.com/ccollicutt/logtriage/pkg/rules"
)

// State accumulates counters over the second pass. It is owned by a single
// driver and must not be folded concurrently.
type State struct {
	// TotalLines counts every line folded, parsed or not.
	TotalLines int `json:"total_lines"`

	// ProblemLines counts lines with at least one tag.
	ProblemLines int `json:"problem_lines"`

	// ParsedLines counts lines that produced a record.
	ParsedLines int `json:"parsed_lines"`

	// TagCounts counts every emitted tag by label.
	TagCounts map[string]int `json:"tag_counts"`

	StatusCodes     map[int]int    `json:"status_codes"`
	ResponseTimes   []int          `json:"response_times_ms"`
	SuspiciousPaths map[string]int `json:"suspicious_paths"`

	// IPCounts counts parsed lines per IP. High-volume decisions and any
	// per-IP request totals use the pre-pass Tally, which also sees lines
	// that failed to parse.
	IPCounts map[string]int `json:"ip_counts"`

	Methods map[string]int `json:"methods"`

	Bots BotStats `json:"bots"`

	// Problems holds one entry per tagged parsed line, in file order.
	Problems []Problem `json:"problems"`
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		TagCounts:       make(map[string]int),
		StatusCodes:     make(map[int]int),
		ResponseTimes:   []int{},
		SuspiciousPaths: make(map[string]int),
		IPCounts:        make(map[string]int),
		Methods:         make(map[string]int),
		Bots: BotStats{
			IPs:         make(map[string]int),
			Paths:       make(map[string]int),
			StatusCodes: make(map[int]int),
			Types:       make(map[string]int),
		},
		Problems: []Problem{},
	}
}

// Fold adds one evaluated line to the state.
func (s *State) Fold(lineNum int, eval rules.Evaluation) {
	s.TotalLines++

	if !eval.Clean() {
		s.ProblemLines++
		for _, tag := range eval.Tags {
			s.TagCounts[tag.String()]++
		}
	}

	rec := eval.Record
	if rec == nil {
		return
	}
	s.ParsedLines++

	s.StatusCodes[rec.Status]++
	s.ResponseTimes = append(s.ResponseTimes, rec.ResponseTime)
	if eval.Has(rules.KindSuspiciousPath) {
		s.SuspiciousPaths[rec.Path]++
	}
	s.IPCounts[rec.IP]++
	s.Methods[rec.Method]++

	if eval.Bot.IsBot {
		s.Bots.Total++
		s.Bots.IPs[rec.IP]++
		s.Bots.Paths[rec.Path]++
		s.Bots.StatusCodes[rec.Status]++
		if eval.Bot.Name != "" {
			s.Bots.Types[eval.Bot.Name]++
		}
	} else if eval.HighRequest {
		s.Bots.HighRequestNonBot++
	}

	if !eval.Clean() {
		s.Problems = append(s.Problems, Problem{
			Line:         lineNum,
			IP:           rec.IP,
			Method:       rec.Method,
			Path:         rec.Path,
			Status:       rec.Status,
			ResponseTime: rec.ResponseTime,
			Bytes:        rec.Bytes,
			Tags:         rules.Dedupe(eval.Tags),
		})
	}
}

// HumanTraffic is the parsed lines that are neither bots nor high-volume.
func (s *State) HumanTraffic() int {
	return s.ParsedLines - s.Bots.Total - s.Bots.HighRequestNonBot
}

// ProblemRatio returns ProblemLines / TotalLines, 0 for an empty input.
func (s *State) ProblemRatio() float64 {
	if s.TotalLines == 0 {
		return 0
	}
	return float64(s.ProblemLines) / float64(s.TotalLines)
}

// StatusGroups buckets status codes by class. All five groups are always
// returned, in order.
func (s *State) StatusGroups() []StatusGroup {
	groups := []StatusGroup{
		{Name: "2xx Success"},
		{Name: "3xx Redirection"},
		{Name: "4xx Client Error"},
		{Name: "5xx Server Error"},
		{Name: "Other"},
	}
	for code, n := range s.StatusCodes {
		switch {
		case code >= 200 && code < 300:
			groups[0].Count += n
		case code >= 300 && code < 400:
			groups[1].Count += n
		case code >= 400 && code < 500:
			groups[2].Count += n
		case code >= 500 && code < 600:
			groups[3].Count += n
		default:
			groups[4].Count += n
		}
	}
	return groups
}

// TopIssues returns the n most frequent tag labels.
func (s *State) TopIssues(n int) []Entry {
	return TopN(s.TagCounts, n)
}

// Ranked returns every entry of counts ordered by count descending, then
// key ascending.
func Ranked(counts map[string]int) []Entry {
	out := make([]Entry, 0, len(counts))
	for k, n := range counts {
		out = append(out, Entry{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// TopN returns at most n entries of Ranked(counts). n <= 0 returns all.
func TopN(counts map[string]int, n int) []Entry {
	out := Ranked(counts)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RankedCodes ranks an int-keyed counter the same way as Ranked, comparing
// keys numerically.
func RankedCodes(counts map[int]int, n int) []Entry {
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if counts[codes[i]] != counts[codes[j]] {
			return counts[codes[i]] > counts[codes[j]]
		}
		return codes[i] < codes[j]
	})
	if n > 0 && len(codes) > n {
		codes = codes[:n]
	}
	out := make([]Entry, len(codes))
	for i, code := range codes {
		out[i] = Entry{Key: strconv.Itoa(code), Count: counts[code]}
	}
	return out
}

// SortedCodes returns an int-keyed counter ordered by key ascending.
func SortedCodes(counts map[int]int) []Entry {
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	out := make([]Entry, len(codes))
	for i, code := range codes {
		out[i] = Entry{Key: strconv.Itoa(code), Count: counts[code]}
	}
	return out
}
