package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/output"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

const exampleLine = `10.0.0.5 - NO - [01/01/2024:12:00:01] "GET /wp-admin HTTP/1.1" 404 512 "-" "Mozilla/5.0 curl/7.68" 650`

func newTestReport(t *testing.T, content string) *output.Report {
	t.Helper()
	res, err := analyzer.New().Analyze(context.Background(), parser.StringOpener(content, "test.log"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return output.NewReport(res, output.Metadata{
		Source:     "test.log",
		AnalyzedAt: time.Now(),
		Duration:   time.Second,
	}, 0)
}

// captured holds what a test server saw.
type captured struct {
	contentType string
	userAgent   string
	auth        string
	body        []byte
}

func recordingServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.contentType = r.Header.Get("Content-Type")
		got.userAgent = r.Header.Get("User-Agent")
		got.auth = r.Header.Get("Authorization")
		got.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server, got
}

func TestClient_Send_Success(t *testing.T) {
	server, got := recordingServer(t, http.StatusOK, `{"status":"ok"}`)

	resp := NewClient().Send(context.Background(), newTestReport(t, exampleLine), SendOptions{URL: server.URL})

	if !resp.Success() {
		t.Fatalf("expected success, got error: %v", resp.Error)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != `{"status":"ok"}` {
		t.Errorf("response = %d %q", resp.StatusCode, resp.Body)
	}
	if resp.Duration <= 0 {
		t.Error("Duration should be recorded")
	}
	if got.contentType != "application/json" {
		t.Errorf("Content-Type = %q", got.contentType)
	}
	if got.userAgent != "logtriage-webhook" {
		t.Errorf("User-Agent = %q", got.userAgent)
	}
	if got.auth != "" {
		t.Errorf("expected no auth header, got %q", got.auth)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(got.body, &payload); err != nil {
		t.Fatalf("failed to parse received payload: %v", err)
	}
	for _, key := range []string{"summary", "breakdown", "metadata", "problem_count"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("payload missing %q", key)
		}
	}
	if string(payload["problem_count"]) != "1" {
		t.Errorf("problem_count = %s, want 1", payload["problem_count"])
	}
	if _, ok := payload["problems"]; ok {
		t.Error("payload should not carry the problem list")
	}
}

func TestClient_Send_WithBearerToken(t *testing.T) {
	server, got := recordingServer(t, http.StatusNoContent, "")

	resp := NewClient().Send(context.Background(), newTestReport(t, exampleLine), SendOptions{
		URL:   server.URL,
		Token: "secret-token-123",
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}
	if got.auth != "Bearer secret-token-123" {
		t.Errorf("Authorization = %q", got.auth)
	}
}

func TestClient_Send_Failures(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	broken, _ := recordingServer(t, http.StatusInternalServerError, `{"error":"internal error"}`)

	tests := []struct {
		name       string
		opts       SendOptions
		wantStatus int
	}{
		{"server error", SendOptions{URL: broken.URL}, http.StatusInternalServerError},
		{"timeout", SendOptions{URL: slow.URL, Timeout: 50 * time.Millisecond}, 0},
		{"invalid url", SendOptions{URL: "://invalid-url"}, 0},
		{"connection refused", SendOptions{URL: "http://127.0.0.1:59999", Timeout: 100 * time.Millisecond}, 0},
	}

	report := newTestReport(t, exampleLine)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewClient().Send(context.Background(), report, tt.opts)
			if resp.Success() {
				t.Fatal("expected failure, got success")
			}
			if resp.Error == nil {
				t.Error("expected error to be set")
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

type countingTransport struct {
	calls int
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return c.next.RoundTrip(r)
}

func TestWithHTTPClient(t *testing.T) {
	server, _ := recordingServer(t, http.StatusOK, "")
	transport := &countingTransport{next: http.DefaultTransport}

	client := NewClient(WithHTTPClient(&http.Client{Transport: transport}))
	resp := client.Send(context.Background(), newTestReport(t, exampleLine), SendOptions{URL: server.URL})

	if !resp.Success() {
		t.Fatalf("expected success, got %v", resp.Error)
	}
	if transport.calls != 1 {
		t.Errorf("custom transport used %d times, want 1", transport.calls)
	}

	// nil keeps the default client
	if NewClient(WithHTTPClient(nil)).httpClient == nil {
		t.Error("WithHTTPClient(nil) cleared the client")
	}
}

func TestNewPayload(t *testing.T) {
	report := newTestReport(t, exampleLine+"\n"+exampleLine)
	p := NewPayload(report)

	if p.ProblemCount != 2 {
		t.Errorf("ProblemCount = %d, want 2", p.ProblemCount)
	}
	if p.Summary.TotalLines != 2 || p.Metadata.Source != "test.log" {
		t.Errorf("payload = %+v", p)
	}
}

func TestResponse_Success(t *testing.T) {
	tests := []struct {
		name        string
		resp        Response
		wantSuccess bool
	}{
		{"200 OK", Response{StatusCode: 200}, true},
		{"204 No Content", Response{StatusCode: 204}, true},
		{"302 Found", Response{StatusCode: 302}, false},
		{"400 Bad Request", Response{StatusCode: 400}, false},
		{"500 Server Error", Response{StatusCode: 500}, false},
		{"With Error", Response{StatusCode: 200, Error: io.EOF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}
