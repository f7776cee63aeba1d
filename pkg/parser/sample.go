package parser

import (
	"context"
	"errors"
	"io"
	"strings"
)

// SampleResult summarizes how well a prefix of a log file fits the grammar.
type SampleResult struct {
	SampledLines   int     // Non-empty lines examined
	ParsedLines    int     // Lines that produced a LogRecord
	MalformedLines int     // Lines that did not match the grammar
	InvalidNumeric int     // Lines that matched but failed numeric conversion
	BadTimestamps  int     // Parsed lines whose timestamp fails the strict layout
	Confidence     float64 // ParsedLines / SampledLines, 0 when nothing was sampled
	SampleMatch    string  // First line that parsed
	SampleFailure  string  // First line that did not parse
}

// Sample reads up to n non-empty lines from src and classifies them against
// the grammar. n <= 0 samples the whole source.
func Sample(ctx context.Context, src LineSource, n int) (*SampleResult, error) {
	result := &SampleResult{}

	for n <= 0 || result.SampledLines < n {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		content := strings.TrimSpace(line.Content)
		if content == "" {
			continue
		}
		result.SampledLines++

		var rec *LogRecord
		if line.Truncated {
			err = ErrLineTooLong
		} else {
			rec, err = Parse(content)
		}
		switch {
		case err == nil:
			result.ParsedLines++
			if result.SampleMatch == "" {
				result.SampleMatch = content
			}
			if !ValidTimestamp(rec.Timestamp) {
				result.BadTimestamps++
			}
			continue
		case errors.Is(err, ErrInvalidNumericValue):
			result.InvalidNumeric++
		default:
			result.MalformedLines++
		}
		if result.SampleFailure == "" {
			result.SampleFailure = content
		}
	}

	if result.SampledLines > 0 {
		result.Confidence = float64(result.ParsedLines) / float64(result.SampledLines)
	}

	return result, nil
}
