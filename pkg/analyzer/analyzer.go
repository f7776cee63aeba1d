package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ccollicutt/logtriage/pkg/parser"
	"github.com/ccollicutt/logtriage/pkg/rules"
)

// Analyzer runs the volume pre-pass followed by classification and
// aggregation over a re-openable line source.
type Analyzer struct {
	threshold int
	ruleOpts  []rules.Option
	logger    *zap.Logger

	evaluator *rules.Evaluator
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithHighVolumeThreshold sets the per-IP request count that must be
// exceeded. Non-positive values keep the default.
func WithHighVolumeThreshold(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.threshold = n
		}
	}
}

// WithThresholds overrides the slow-response and large-transfer limits.
func WithThresholds(th rules.Thresholds) AnalyzerOption {
	return func(a *Analyzer) {
		a.ruleOpts = append(a.ruleOpts, rules.WithThresholds(th))
	}
}

// WithRuleFilter limits tagging to the given kinds.
func WithRuleFilter(kinds []rules.Kind) AnalyzerOption {
	return func(a *Analyzer) {
		a.ruleOpts = append(a.ruleOpts, rules.WithRuleFilter(kinds))
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l *zap.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an analyzer.
func New(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		threshold: DefaultHighVolumeThreshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.evaluator = rules.NewEvaluator(a.ruleOpts...)
	return a
}

// Threshold returns the high-volume limit in effect.
func (a *Analyzer) Threshold() int {
	return a.threshold
}

// Evaluator returns the rule evaluator used for the second pass.
func (a *Analyzer) Evaluator() *rules.Evaluator {
	return a.evaluator
}

// Analyze opens the source twice: once to tally IPs and once to classify
// every line. Any open or read error aborts the run with no result.
func (a *Analyzer) Analyze(ctx context.Context, open parser.Opener) (*Result, error) {
	a.logger.Debug("first pass: counting IP requests")

	tally, err := a.prePass(ctx, open)
	if err != nil {
		return nil, err
	}

	highVolume := tally.HighVolume(a.threshold)
	a.logger.Info("pre-pass complete",
		zap.Int("lines", tally.Lines),
		zap.Int("distinct_ips", len(tally.Counts)),
		zap.Int("high_volume_ips", len(highVolume)),
		zap.Int("threshold", a.threshold))

	a.logger.Debug("second pass: analyzing log entries")

	state, err := a.classify(ctx, open, highVolume)
	if err != nil {
		return nil, err
	}

	a.logger.Info("analysis complete",
		zap.Int("total_lines", state.TotalLines),
		zap.Int("problem_lines", state.ProblemLines),
		zap.Int("bot_lines", state.Bots.Total))

	return &Result{
		State:         state,
		PrePass:       tally,
		HighVolumeIPs: highVolume.Sorted(),
		Threshold:     a.threshold,
		Thresholds:    a.evaluator.Thresholds(),
	}, nil
}

func (a *Analyzer) prePass(ctx context.Context, open parser.Opener) (*Tally, error) {
	src, err := open()
	if err != nil {
		return nil, fmt.Errorf("opening log source: %w", err)
	}
	defer src.Close()

	return CountIPs(ctx, src)
}

func (a *Analyzer) classify(ctx context.Context, open parser.Opener, highVolume rules.IPSet) (*State, error) {
	src, err := open()
	if err != nil {
		return nil, fmt.Errorf("reopening log source: %w", err)
	}
	defer src.Close()

	state := NewState()
	for {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return state, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading log source: %w", err)
		}

		var eval rules.Evaluation
		if line.Truncated {
			eval = rules.Evaluation{Tags: []rules.Tag{{Kind: rules.KindMalformedEntry}}, Err: parser.ErrLineTooLong}
		} else {
			eval = a.evaluator.EvaluateLine(line.Content, highVolume)
		}
		if eval.Err != nil {
			a.logger.Debug("unparsable line",
				zap.String("source", line.Source),
				zap.Int("line", line.LineNum),
				zap.Error(eval.Err))
		}
		state.Fold(line.LineNum, eval)
	}
}
