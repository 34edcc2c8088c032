package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout      = 15 * time.Second
	DefaultMaxBytes     = 10 << 20
	DefaultRetryBackoff = 500 * time.Millisecond
	DefaultUserAgent    = "speakboard-importer/1.0"
)

var (
	// ErrUnsupportedURL is returned for links that are not absolute http(s) URLs.
	ErrUnsupportedURL = errors.New("unsupported image URL")
	// ErrTooLarge is returned when a body exceeds the configured limit.
	ErrTooLarge = errors.New("image exceeds size limit")
	// ErrNotImage is returned when a body does not sniff as an image.
	ErrNotImage = errors.New("response is not an image")
)

// Fetcher downloads the image behind an icon record's link.
type Fetcher interface {
	Fetch(ctx context.Context, link string) ([]byte, error)
}

// FetchError describes one failed download. StatusCode is zero when no
// response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures an HTTPFetcher. Zero durations, sizes and strings
// select the defaults.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	// Retries is the number of extra attempts after a network error or a
	// 5xx response.
	Retries      int
	RetryBackoff time.Duration
	UserAgent    string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

// HTTPFetcher fetches images over HTTP(S).
type HTTPFetcher struct {
	httpClient *http.Client
	opts       Options
	log        *slog.Logger
}

// New creates an HTTPFetcher with the given options.
func New(opts Options, logger *slog.Logger) *HTTPFetcher {
	opts = opts.withDefaults()
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		log:        logger.With("adapter", "image_fetcher"),
	}
}

// Fetch downloads link and returns the image bytes. Network errors and 5xx
// responses are retried; every other failure is returned immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	target, err := parseLink(link)
	if err != nil {
		return nil, &FetchError{URL: link, Err: err}
	}

	f.log.DebugContext(ctx, "image request", slog.String("url", target))

	resp, err := f.doWithRetry(ctx, target)
	if err != nil {
		return nil, &FetchError{URL: link, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: link, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: link, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return nil, &FetchError{URL: link, StatusCode: resp.StatusCode, Err: ErrTooLarge}
	}
	if !strings.HasPrefix(http.DetectContentType(body), "image/") {
		return nil, &FetchError{URL: link, StatusCode: resp.StatusCode, Err: ErrNotImage}
	}

	return body, nil
}

// doWithRetry issues the GET, retrying on network errors and 5xx responses.
func (f *HTTPFetcher) doWithRetry(ctx context.Context, target string) (*http.Response, error) {
	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; ; attempt++ {
		resp, err = f.do(ctx, target)

		shouldRetry := err != nil || resp.StatusCode >= 500
		if !shouldRetry || attempt >= f.opts.Retries || ctx.Err() != nil {
			return resp, err
		}

		reason := "network error"
		if err == nil {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
			resp.Body.Close()
		}
		f.log.WarnContext(ctx, "image retry", slog.String("url", target), slog.String("reason", reason))

		timer := time.NewTimer(f.opts.RetryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (f *HTTPFetcher) do(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "image/*")
	return f.httpClient.Do(req)
}

// parseLink accepts only absolute http and https URLs.
func parseLink(link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrUnsupportedURL)
	}
	return u.String(), nil
}
