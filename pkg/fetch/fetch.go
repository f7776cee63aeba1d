// Package fetch downloads the access log when it is not present locally.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 60 * time.Second

// ErrNoSource is returned when the file is missing and no URL is configured.
var ErrNoSource = errors.New("log file not found and no download url configured")

// Outcome reports how EnsureLocal satisfied the request.
type Outcome string

const (
	// OutcomeLocal means the file already existed.
	OutcomeLocal Outcome = "local"
	// OutcomeDownloaded means the file was fetched from the URL.
	OutcomeDownloaded Outcome = "downloaded"
)

// Fetcher downloads remote logs to local paths.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithTimeout sets the per-download timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// EnsureLocal returns OutcomeLocal when path exists. Otherwise it downloads
// rawURL to path. The file only appears at path once the download has
// completed.
func (f *Fetcher) EnsureLocal(ctx context.Context, path, rawURL string) (Outcome, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("log path %s is a directory", path)
		}
		f.logger.Debug("using local log file", zap.String("path", path))
		return OutcomeLocal, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("checking log file %s: %w", path, err)
	}

	if rawURL == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoSource)
	}

	f.logger.Info("downloading log file", zap.String("url", rawURL), zap.String("path", path))
	start := time.Now()

	n, err := f.download(ctx, path, rawURL)
	if err != nil {
		return "", err
	}

	f.logger.Info("log file downloaded",
		zap.String("path", path),
		zap.Int64("bytes", n),
		zap.Duration("duration", time.Since(start)))

	return OutcomeDownloaded, nil
}

func (f *Fetcher) download(ctx context.Context, path, rawURL string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", "logtriage-fetch")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("downloading %s: server returned status %d", rawURL, resp.StatusCode)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".logtriage-download-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("moving download into place: %w", err)
	}

	return n, nil
}
