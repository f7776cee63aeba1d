package parser

import (
	"errors"
	"testing"
)

const exampleLine = `10.0.0.5 - NO - [01/01/2024:12:00:01] "GET /wp-admin HTTP/1.1" 404 512 "-" "Mozilla/5.0 curl/7.68" 650`

func TestParse_Fields(t *testing.T) {
	rec, err := Parse(exampleLine)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := LogRecord{
		IP:           "10.0.0.5",
		Auth:         "NO",
		Timestamp:    "01/01/2024:12:00:01",
		Method:       "GET",
		Path:         "/wp-admin",
		Protocol:     "HTTP/1.1",
		Status:       404,
		Bytes:        512,
		Referer:      "-",
		UserAgent:    "Mozilla/5.0 curl/7.68",
		ResponseTime: 650,
	}
	if *rec != want {
		t.Errorf("Parse() = %+v, want %+v", *rec, want)
	}
	if !rec.AuthFailed() {
		t.Error("AuthFailed() = false, want true")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{
			name: "trailing newline and spaces are trimmed",
			line: exampleLine + "  \n",
		},
		{
			name: "empty user agent",
			line: `1.1.1.1 - - - [01/01/2024:12:00:01] "POST /api HTTP/2.0" 201 0 "" "" 3`,
		},
		{
			name: "invalid timestamp still parses",
			line: `1.1.1.1 - - - [32/13/2024:99:99:99] "GET / HTTP/1.1" 200 1 "-" "x" 1`,
		},
		{
			name:    "empty line",
			line:    "",
			wantErr: ErrMalformedEntry,
		},
		{
			name:    "missing response time",
			line:    `1.1.1.1 - - - [01/01/2024:12:00:01] "GET / HTTP/1.1" 200 1 "-" "x"`,
			wantErr: ErrMalformedEntry,
		},
		{
			name:    "four digit status",
			line:    `1.1.1.1 - - - [01/01/2024:12:00:01] "GET / HTTP/1.1" 2000 1 "-" "x" 1`,
			wantErr: ErrMalformedEntry,
		},
		{
			name:    "embedded quote in user agent",
			line:    `1.1.1.1 - - - [01/01/2024:12:00:01] "GET / HTTP/1.1" 200 1 "-" "a "b" c" 1`,
			wantErr: ErrMalformedEntry,
		},
		{
			name:    "request with two tokens",
			line:    `1.1.1.1 - - - [01/01/2024:12:00:01] "GET /" 200 1 "-" "x" 1`,
			wantErr: ErrMalformedEntry,
		},
		{
			name:    "trailing garbage",
			line:    `1.1.1.1 - - - [01/01/2024:12:00:01] "GET / HTTP/1.1" 200 1 "-" "x" 1 extra`,
			wantErr: ErrMalformedEntry,
		},
		{
			name:    "common log format is not accepted",
			line:    `127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /a.gif HTTP/1.0" 200 2326`,
			wantErr: ErrMalformedEntry,
		},
		{
			name:    "bytes overflow",
			line:    `1.1.1.1 - - - [01/01/2024:12:00:01] "GET / HTTP/1.1" 200 99999999999999999999 "-" "x" 1`,
			wantErr: ErrInvalidNumericValue,
		},
		{
			name:    "response time overflow",
			line:    `1.1.1.1 - - - [01/01/2024:12:00:01] "GET / HTTP/1.1" 200 1 "-" "x" 99999999999999999999`,
			wantErr: ErrInvalidNumericValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse(tt.line)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Parse() error = %v", err)
				}
				if rec == nil {
					t.Fatal("Parse() returned nil record")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
			if rec != nil {
				t.Errorf("Parse() record = %+v, want nil", rec)
			}
		})
	}
}

func TestMatches(t *testing.T) {
	if !Matches(exampleLine) {
		t.Error("Matches(example) = false, want true")
	}
	if Matches("garbage") {
		t.Error("Matches(garbage) = true, want false")
	}
}

func TestLeadingIP(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{exampleLine, "10.0.0.5", true},
		{"  192.168.1.9 - anything at all", "192.168.1.9", true},
		{"10.0.0.7 -- odd", "10.0.0.7", true},
		{"10.0.0.8 garbage", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := LeadingIP(tt.line)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LeadingIP(%q) = (%q, %v), want (%q, %v)", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}
