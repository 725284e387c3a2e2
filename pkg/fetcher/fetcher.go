package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dtnitsch/docbundle/pkg/caching"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Failure kinds reported by FetchError.
const (
	KindStatus      = "status"
	KindContentType = "content_type"
	KindTimeout     = "timeout"
	KindTransport   = "transport"
	KindRead        = "read"
)

// defaultMaxBodySize caps how much of a response body is read.
const defaultMaxBodySize = 32 << 20

// FetchError is a non-fatal failure of a single request.
type FetchError struct {
	URL        string
	Kind       string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Classify reports the failure kind and HTTP status for run summaries.
func (e *FetchError) Classify() (string, int) { return e.Kind, e.StatusCode }

// ErrNotHTML is wrapped by content_type failures.
var ErrNotHTML = errors.New("response is not HTML")

// Response is a successfully fetched resource.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	FromCache   bool
}

// Options configures a Fetcher.
type Options struct {
	Concurrency     int
	Timeout         time.Duration
	FollowRedirects bool
	VerifySSL       bool
	Headers         map[string]string
	RateLimit       float64 // requests per second, 0 = unlimited
	Cache           *caching.Cache
	MaxBodySize     int64 // 0 = 32 MiB
	Logger          *slog.Logger
}

// Fetcher issues HTTP GETs bounded by a shared concurrency budget.
type Fetcher struct {
	client  *http.Client
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	cache   *caching.Cache
	headers map[string]string
	maxBody int64
	logger  *slog.Logger
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !opts.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via verify_ssl=false
	}
	transport.MaxIdleConnsPerHost = opts.Concurrency

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
	if !opts.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Fetcher{
		client:  client,
		sem:     semaphore.NewWeighted(int64(opts.Concurrency)),
		limiter: limiter,
		cache:   opts.Cache,
		headers: opts.Headers,
		maxBody: opts.MaxBodySize,
		logger:  logger,
	}
}

// FetchHTML fetches url and requires a 2xx HTML response.
// Successful responses are served from and stored in the cache when one is configured.
func (f *Fetcher) FetchHTML(ctx context.Context, url string) (*Response, error) {
	if f.cache != nil {
		if body, ok := f.cache.Get(url); ok {
			f.logger.Debug("Cache hit", "url", url)
			return &Response{
				URL:         url,
				FinalURL:    url,
				StatusCode:  http.StatusOK,
				ContentType: "text/html",
				Body:        body,
				FromCache:   true,
			}, nil
		}
	}

	resp, err := f.Get(ctx, url, map[string]string{"Accept": "text/html,application/xhtml+xml"})
	if err != nil {
		return nil, err
	}
	if !isHTML(resp.ContentType) {
		return nil, &FetchError{
			URL:        url,
			Kind:       KindContentType,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %q", ErrNotHTML, resp.ContentType),
		}
	}

	if f.cache != nil {
		if err := f.cache.Set(url, resp.Body); err != nil {
			f.logger.Warn("Failed to cache response", "url", url, "error", err)
		}
	}
	return resp, nil
}

// Get performs one GET with the default headers plus extra, requiring a 2xx status.
// It holds one slot of the concurrency budget for the duration of the request.
func (f *Fetcher) Get(ctx context.Context, url string, extra map[string]string) (*Response, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, &FetchError{URL: url, Kind: kindFor(err), Err: err}
	}
	defer f.sem.Release(1)

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: url, Kind: kindFor(err), Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: KindTransport, Err: err}
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: kindFor(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{
			URL:        url,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		kind := KindRead
		if kindFor(err) == KindTimeout {
			kind = KindTimeout
		}
		return nil, &FetchError{URL: url, Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &FetchError{
			URL:        url,
			Kind:       KindRead,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response body exceeds %d bytes", f.maxBody),
		}
	}

	f.logger.Debug("Fetched", "url", url, "status", resp.StatusCode, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())
	return &Response{
		URL:         url,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

func kindFor(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindTransport
}
