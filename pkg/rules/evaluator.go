package rules

import (
	"errors"

	"github.com/ccollicutt/logtriage/pkg/bot"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

// Evaluation is the outcome of classifying one line.
type Evaluation struct {
	// Record is the parsed line, nil when parsing failed.
	Record *parser.LogRecord

	// Tags lists problems in evaluation order.
	Tags []Tag

	// Bot is the user-agent verdict; zero when Record is nil.
	Bot bot.Verdict

	// HighRequest is true when the record's IP is in the high-volume set.
	HighRequest bool

	// Err is the parse failure, if any.
	Err error
}

// Has reports whether the evaluation carries a tag of kind k.
func (e *Evaluation) Has(k Kind) bool {
	for _, t := range e.Tags {
		if t.Kind == k {
			return true
		}
	}
	return false
}

// Clean reports whether no problem was found.
func (e *Evaluation) Clean() bool {
	return len(e.Tags) == 0
}

// Evaluator runs an ordered rule set over parsed records.
type Evaluator struct {
	thresholds Thresholds
	ruleFilter map[Kind]bool // nil means all rules
	rules      []Rule
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithThresholds overrides the slow-response and large-transfer limits.
// Non-positive fields keep their defaults.
func WithThresholds(th Thresholds) Option {
	return func(e *Evaluator) {
		if th.SlowResponseMs > 0 {
			e.thresholds.SlowResponseMs = th.SlowResponseMs
		}
		if th.LargeTransferBytes > 0 {
			e.thresholds.LargeTransferBytes = th.LargeTransferBytes
		}
	}
}

// WithRuleFilter limits evaluation to the given kinds. Parse-failure tags
// are always emitted.
func WithRuleFilter(kinds []Kind) Option {
	return func(e *Evaluator) {
		if len(kinds) > 0 {
			e.ruleFilter = make(map[Kind]bool, len(kinds))
			for _, k := range kinds {
				e.ruleFilter[k] = true
			}
		}
	}
}

// NewEvaluator creates an evaluator with the default rule set.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{thresholds: DefaultThresholds()}
	for _, opt := range opts {
		opt(e)
	}

	for _, r := range DefaultRules(e.thresholds) {
		if e.ruleFilter != nil && !e.ruleFilter[r.Kind()] {
			continue
		}
		e.rules = append(e.rules, r)
	}

	return e
}

// Thresholds returns the limits in effect.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Rules returns the active rule kinds in evaluation order.
func (e *Evaluator) Rules() []Kind {
	kinds := make([]Kind, len(e.rules))
	for i, r := range e.rules {
		kinds[i] = r.Kind()
	}
	return kinds
}

// Evaluate classifies a parsed record. highVolume may be nil.
func (e *Evaluator) Evaluate(rec *parser.LogRecord, highVolume IPSet) Evaluation {
	in := &Input{
		Record:      rec,
		Bot:         bot.Classify(rec.UserAgent),
		HighRequest: highVolume.Contains(rec.IP),
	}

	eval := Evaluation{
		Record:      rec,
		Bot:         in.Bot,
		HighRequest: in.HighRequest,
	}
	for _, r := range e.rules {
		if tag, ok := r.Check(in); ok {
			eval.Tags = append(eval.Tags, tag)
		}
	}

	return eval
}

// EvaluateLine parses line and classifies it. A parse failure yields a
// single failure tag and no further checks.
func (e *Evaluator) EvaluateLine(line string, highVolume IPSet) Evaluation {
	rec, err := parser.Parse(line)
	if err != nil {
		kind := KindMalformedEntry
		if errors.Is(err, parser.ErrInvalidNumericValue) {
			kind = KindInvalidNumericValue
		}
		return Evaluation{Tags: []Tag{{Kind: kind}}, Err: err}
	}
	return e.Evaluate(rec, highVolume)
}
