// Package webhook delivers analysis summaries to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ccollicutt/logtriage/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseBody caps how much of a webhook response is kept.
const maxResponseBody = 1024 * 1024

// Client posts reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a webhook client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  "logtriage-webhook",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // sent as a bearer token when set
	Timeout time.Duration // DefaultTimeout when zero
}

// Response is the outcome of one webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success reports a 2xx response with no transport error.
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts the summary, breakdown and metadata of a report. The full
// problem list stays in the detail file.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := c.send(ctx, report, opts)
	resp.Duration = time.Since(start)
	return resp
}

func (c *Client) send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	body, err := json.Marshal(NewPayload(report))
	if err != nil {
		return &Response{Error: fmt.Errorf("encoding payload: %w", err)}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(body))
	if err != nil {
		return &Response{Error: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return &Response{Error: fmt.Errorf("posting to webhook: %w", err)}
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp := &Response{StatusCode: httpResp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		resp.Error = fmt.Errorf("reading response: %w", err)
		return resp
	}
	resp.Body = string(data)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp
}

// Payload is the JSON body posted to webhooks.
type Payload struct {
	Summary   output.Summary   `json:"summary"`
	Breakdown output.Breakdown `json:"breakdown"`
	Metadata  output.Metadata  `json:"metadata"`

	// ProblemCount is the length of the omitted problem list.
	ProblemCount int `json:"problem_count"`
}

// NewPayload builds the webhook body for a report.
func NewPayload(report *output.Report) Payload {
	return Payload{
		Summary:      report.Summary,
		Breakdown:    report.Breakdown,
		Metadata:     report.Metadata,
		ProblemCount: len(report.Problems),
	}
}
