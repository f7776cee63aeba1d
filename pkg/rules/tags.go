// Package rules classifies parsed access-log records into problem tags.
package rules

import "fmt"

// Kind enumerates problem tag categories.
type Kind string

const (
	// KindMalformedEntry marks a line that does not match the grammar.
	KindMalformedEntry Kind = "malformed_entry"

	// KindInvalidNumericValue marks a line whose numeric fields failed conversion.
	KindInvalidNumericValue Kind = "invalid_numeric_value"

	KindHighRequestCount     Kind = "high_request_count"
	KindBotDetected          Kind = "bot_detected"
	KindClientError          Kind = "client_error"
	KindServerError          Kind = "server_error"
	KindSlowResponse         Kind = "slow_response"
	KindMissingUserAgent     Kind = "missing_user_agent"
	KindSuspiciousPath       Kind = "suspicious_path"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindInvalidTimestamp     Kind = "invalid_timestamp"
	KindLargeTransfer        Kind = "large_transfer"
)

// Kinds lists every tag kind in evaluation order, parse failures first.
var Kinds = []Kind{
	KindMalformedEntry,
	KindInvalidNumericValue,
	KindHighRequestCount,
	KindBotDetected,
	KindClientError,
	KindServerError,
	KindSlowResponse,
	KindMissingUserAgent,
	KindSuspiciousPath,
	KindAuthenticationFailed,
	KindInvalidTimestamp,
	KindLargeTransfer,
}

// ValidKind reports whether k is one of Kinds.
func ValidKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Tag is one problem attached to a line. Value carries the status code for
// client/server errors and the threshold for slow responses and large
// transfers; it is zero otherwise. Tags are comparable.
type Tag struct {
	Kind  Kind
	Value int64
}

// String returns the display label used in summaries and reports.
func (t Tag) String() string {
	switch t.Kind {
	case KindMalformedEntry:
		return "Malformed log entry"
	case KindInvalidNumericValue:
		return "Invalid numerical values"
	case KindHighRequestCount:
		return "High request count (potential bot)"
	case KindBotDetected:
		return "Bot detected"
	case KindClientError:
		return fmt.Sprintf("Client error (%d)", t.Value)
	case KindServerError:
		return fmt.Sprintf("Server error (%d)", t.Value)
	case KindSlowResponse:
		return fmt.Sprintf("Slow response (>%dms)", t.Value)
	case KindMissingUserAgent:
		return "Missing user agent"
	case KindSuspiciousPath:
		return "Suspicious path"
	case KindAuthenticationFailed:
		return "Authentication failed"
	case KindInvalidTimestamp:
		return "Invalid timestamp"
	case KindLargeTransfer:
		return fmt.Sprintf("Large transfer (>%s)", formatSize(t.Value))
	default:
		return string(t.Kind)
	}
}

// MarshalText encodes a tag as its label.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Dedupe returns tags with repeats removed, keeping first-occurrence order.
func Dedupe(tags []Tag) []Tag {
	seen := make(map[Tag]bool, len(tags))
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Labels converts tags to their display labels.
func Labels(tags []Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

func formatSize(n int64) string {
	switch {
	case n > 0 && n%1_000_000 == 0:
		return fmt.Sprintf("%dMB", n/1_000_000)
	case n > 0 && n%1_000 == 0:
		return fmt.Sprintf("%dKB", n/1_000)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
