// Package sample provides the bundled sample dataset and the loader that
// fetches it from the application's base URL at startup.
package sample

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/iwvelando/data-dashboard/pkg/constants"
	"go.uber.org/zap"
)

//go:embed sample.csv
var bundled []byte

// Bundled returns a copy of the sample CSV shipped with the binary.
func Bundled() []byte {
	out := make([]byte, len(bundled))
	copy(out, bundled)
	return out
}

// FetchError reports a failed sample download. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("CSV fetch failed: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("CSV fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether trying again could succeed.
func (e *FetchError) Temporary() bool {
	if e.StatusCode != 0 {
		return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) || errors.Is(e.Err, io.ErrUnexpectedEOF)
}

// Options configures a Loader.
type Options struct {
	// BaseURL is the deployed application's base. When empty the bundled
	// sample is returned without any network access.
	BaseURL  string
	Path     string
	Timeout  time.Duration
	Attempts uint
	Delay    time.Duration
	Client   *http.Client
}

// Loader fetches the sample CSV text.
type Loader struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
}

// NewLoader creates a Loader, filling unset options with defaults.
func NewLoader(opts Options, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Path == "" {
		opts.Path = constants.DefaultSamplePath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultSampleTimeoutSeconds * time.Second
	}
	if opts.Attempts == 0 {
		opts.Attempts = constants.DefaultSampleAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = 200 * time.Millisecond
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Loader{opts: opts, client: client, logger: logger}
}

// URL resolves the sample path against the base URL, keeping any base path
// prefix such as "/data-dashboard/".
func (l *Loader) URL() (string, error) {
	return ResolveURL(l.opts.BaseURL, l.opts.Path)
}

// ResolveURL joins base and a relative resource path.
func ResolveURL(base, path string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid sample base URL %q: %w", base, err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return "", fmt.Errorf("invalid sample base URL %q: scheme and host required", base)
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid sample path %q: %w", path, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// Fetch downloads the sample text. Transient failures (network errors and
// 5xx/429 responses) are retried; anything else fails immediately.
func (l *Loader) Fetch(ctx context.Context) ([]byte, error) {
	if l.opts.BaseURL == "" {
		return Bundled(), nil
	}

	target, err := l.URL()
	if err != nil {
		return nil, err
	}

	var body []byte
	attempt := 0
	err = retry.Do(
		func() error {
			attempt++
			b, err := l.get(ctx, target)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.RetryIf(func(err error) bool {
			var fetchErr *FetchError
			if ctx.Err() != nil || !errors.As(err, &fetchErr) || !fetchErr.Temporary() {
				return false
			}
			l.logger.Debug("retrying sample fetch",
				zap.String("op", "sample.Fetch"),
				zap.String("url", target),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return true
		}),
		retry.Attempts(l.opts.Attempts),
		retry.Delay(l.opts.Delay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (l *Loader) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: target, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: target, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return body, nil
}
