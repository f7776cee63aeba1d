package rules

import (
	"regexp"

	"github.com/ccollicutt/logtriage/pkg/bot"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

// Default thresholds.
const (
	DefaultSlowResponseMs     = 500
	DefaultLargeTransferBytes = 1_000_000
)

// Thresholds holds the numeric limits used by the rules.
type Thresholds struct {
	// SlowResponseMs tags responses strictly slower than this.
	SlowResponseMs int

	// LargeTransferBytes tags transfers strictly larger than this.
	LargeTransferBytes int64
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SlowResponseMs:     DefaultSlowResponseMs,
		LargeTransferBytes: DefaultLargeTransferBytes,
	}
}

// Input is what each rule sees for one parsed line. Bot and HighRequest are
// computed once by the evaluator before any rule runs.
type Input struct {
	Record      *parser.LogRecord
	Bot         bot.Verdict
	HighRequest bool
}

// Rule is one independent check over a parsed record.
type Rule interface {
	// Kind returns the tag kind this rule emits.
	Kind() Kind

	// Check returns the tag and true when the record triggers the rule.
	Check(in *Input) (Tag, bool)
}

// ruleFunc adapts a function into a Rule.
type ruleFunc struct {
	kind  Kind
	check func(in *Input) (Tag, bool)
}

func (r ruleFunc) Kind() Kind                  { return r.kind }
func (r ruleFunc) Check(in *Input) (Tag, bool) { return r.check(in) }

func when(kind Kind, cond func(in *Input) bool) Rule {
	return ruleFunc{kind: kind, check: func(in *Input) (Tag, bool) {
		if cond(in) {
			return Tag{Kind: kind}, true
		}
		return Tag{}, false
	}}
}

var suspiciousPathPattern = regexp.MustCompile(`(?i)(admin|login|wp-admin|\.php|\.env|config|\.\./|/cgi-bin/)`)

// SuspiciousPath reports whether path matches one of the suspicious path patterns.
func SuspiciousPath(path string) bool {
	return suspiciousPathPattern.MatchString(path)
}

// DefaultRules returns the rule set in evaluation order.
func DefaultRules(th Thresholds) []Rule {
	return []Rule{
		when(KindHighRequestCount, func(in *Input) bool {
			return in.HighRequest
		}),
		when(KindBotDetected, func(in *Input) bool {
			return in.Bot.IsBot
		}),
		ruleFunc{kind: KindClientError, check: func(in *Input) (Tag, bool) {
			s := in.Record.Status
			if s >= 400 && s < 500 {
				return Tag{Kind: KindClientError, Value: int64(s)}, true
			}
			return Tag{}, false
		}},
		ruleFunc{kind: KindServerError, check: func(in *Input) (Tag, bool) {
			s := in.Record.Status
			if s >= 500 && s < 600 {
				return Tag{Kind: KindServerError, Value: int64(s)}, true
			}
			return Tag{}, false
		}},
		ruleFunc{kind: KindSlowResponse, check: func(in *Input) (Tag, bool) {
			if in.Record.ResponseTime > th.SlowResponseMs {
				return Tag{Kind: KindSlowResponse, Value: int64(th.SlowResponseMs)}, true
			}
			return Tag{}, false
		}},
		when(KindMissingUserAgent, func(in *Input) bool {
			ua := in.Record.UserAgent
			return ua == "-" || ua == ""
		}),
		when(KindSuspiciousPath, func(in *Input) bool {
			return SuspiciousPath(in.Record.Path)
		}),
		when(KindAuthenticationFailed, func(in *Input) bool {
			return in.Record.AuthFailed()
		}),
		when(KindInvalidTimestamp, func(in *Input) bool {
			return !parser.ValidTimestamp(in.Record.Timestamp)
		}),
		ruleFunc{kind: KindLargeTransfer, check: func(in *Input) (Tag, bool) {
			if in.Record.Bytes > th.LargeTransferBytes {
				return Tag{Kind: KindLargeTransfer, Value: th.LargeTransferBytes}, true
			}
			return Tag{}, false
		}},
	}
}
