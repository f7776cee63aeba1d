package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Parse failures. Callers test with errors.Is; the returned error wraps
// one of these with the conversion detail.
var (
	// ErrMalformedEntry means the line does not match the access-log grammar.
	ErrMalformedEntry = errors.New("malformed log entry")

	// ErrInvalidNumericValue means the grammar matched but a numeric field
	// could not be converted to an integer.
	ErrInvalidNumericValue = errors.New("invalid numeric value")

	// ErrLineTooLong means the line exceeded MaxLineSize. It is a kind of
	// malformed entry.
	ErrLineTooLong = fmt.Errorf("%w: line exceeds %d bytes", ErrMalformedEntry, MaxLineSize)
)

// linePattern is the fixed access-log grammar:
//
//	IP - AUTH - [TIMESTAMP] "METHOD PATH PROTOCOL" STATUS BYTES "REFERER" "USER_AGENT" RESPONSE_TIME
var linePattern = regexp.MustCompile(
	`^(\S+) - (\S+) - \[(.*?)\] "(\S+) (\S+) (\S+)" (\d{3}) (\d+) "([^"]*)" "([^"]*)" (\d+)$`,
)

// Capture group indexes in linePattern.
const (
	groupIP = iota + 1
	groupAuth
	groupTimestamp
	groupMethod
	groupPath
	groupProtocol
	groupStatus
	groupBytes
	groupReferer
	groupUserAgent
	groupResponseTime
)

// Matches reports whether the trimmed line matches the grammar, without
// converting numeric fields.
func Matches(line string) bool {
	return linePattern.MatchString(strings.TrimSpace(line))
}

// Parse converts one raw line into a LogRecord. The whole trimmed line must
// match the grammar.
func Parse(line string) (*LogRecord, error) {
	m := linePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return nil, ErrMalformedEntry
	}

	status, err := strconv.Atoi(m[groupStatus])
	if err != nil {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidNumericValue, m[groupStatus])
	}
	responseTime, err := strconv.Atoi(m[groupResponseTime])
	if err != nil {
		return nil, fmt.Errorf("%w: response time %q", ErrInvalidNumericValue, m[groupResponseTime])
	}
	bytesSent, err := strconv.ParseInt(m[groupBytes], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bytes %q", ErrInvalidNumericValue, m[groupBytes])
	}

	return &LogRecord{
		IP:           m[groupIP],
		Auth:         m[groupAuth],
		Timestamp:    m[groupTimestamp],
		Method:       m[groupMethod],
		Path:         m[groupPath],
		Protocol:     m[groupProtocol],
		Status:       status,
		Bytes:        bytesSent,
		Referer:      m[groupReferer],
		UserAgent:    m[groupUserAgent],
		ResponseTime: responseTime,
	}, nil
}

// ipPrefixPattern extracts the leading client token used by the volume pre-pass.
var ipPrefixPattern = regexp.MustCompile(`^(\S+) -`)

// LeadingIP returns the first whitespace-delimited token of the trimmed line
// when it is followed by the " -" separator. It does not require the rest of
// the line to match the grammar.
func LeadingIP(line string) (string, bool) {
	m := ipPrefixPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[1], true
}
