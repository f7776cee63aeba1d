// Package parser provides log file reading and access-log line parsing.
package parser

// Line is a raw log line as read from a source.
type Line struct {
	// Content is the line text without the trailing newline.
	Content string

	// Source is the file path (or label) this line came from.
	Source string

	// LineNum is the 1-based line number in the source.
	LineNum int

	// Truncated is set when the line exceeded MaxLineSize; Content then
	// holds only its first MaxLineSize bytes.
	Truncated bool
}

// LogRecord is a successfully parsed access-log line.
type LogRecord struct {
	IP           string `json:"ip"`
	Auth         string `json:"auth"`
	Timestamp    string `json:"timestamp"`
	Method       string `json:"method"`
	Path         string `json:"path"`
	Protocol     string `json:"protocol"`
	Status       int    `json:"status"`
	Bytes        int64  `json:"bytes"`
	Referer      string `json:"referer"`
	UserAgent    string `json:"user_agent"`
	ResponseTime int    `json:"response_time_ms"`
}

// AuthFailedMarker is the auth field value that marks a failed login.
const AuthFailedMarker = "NO"

// AuthFailed reports whether the auth field carries the failure marker.
func (r *LogRecord) AuthFailed() bool {
	return r.Auth == AuthFailedMarker
}
