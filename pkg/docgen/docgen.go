// Package docgen is the entry point of a documentation run: it classifies the
// locator and dispatches to the web crawler or the repository walker.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/admission"
	"github.com/dtnitsch/docbundle/pkg/caching"
	"github.com/dtnitsch/docbundle/pkg/crawler"
	"github.com/dtnitsch/docbundle/pkg/extractor"
	"github.com/dtnitsch/docbundle/pkg/fetcher"
	"github.com/dtnitsch/docbundle/pkg/manifest"
	"github.com/dtnitsch/docbundle/pkg/repository"
	"github.com/dtnitsch/docbundle/pkg/robots"
)

// ErrInvalidLocator is returned for a root locator that is neither a
// repository reference nor an absolute http(s) URL.
var ErrInvalidLocator = errors.New("invalid locator")

// ErrInvalidConfig wraps configuration problems detected before a run.
var ErrInvalidConfig = errors.New("invalid configuration")

// Locator is a classified root locator.
type Locator struct {
	Kind models.SourceKind
	Raw  string
	URL  string               // normalized root URL (web) or repository URL
	Ref  repository.Reference // set for repositories
}

// ParseLocator classifies raw. Scheme-less web locators get https://.
func ParseLocator(raw, repoHost string) (Locator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Locator{}, fmt.Errorf("%w: empty", ErrInvalidLocator)
	}
	if repoHost != "" {
		if ref, ok := repository.ParseReference(raw, repoHost); ok {
			return Locator{Kind: models.SourceRepository, Raw: raw, URL: ref.URL(), Ref: ref}, nil
		}
	}

	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || strings.ContainsAny(u.Host, " \t") {
		return Locator{}, fmt.Errorf("%w: %q", ErrInvalidLocator, raw)
	}
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return Locator{Kind: models.SourceWeb, Raw: raw, URL: u.String()}, nil
}

// SiteName names the per-source output directory: github_<owner>_<repo> for
// repositories, the host with "." (and ":") replaced by "_" for websites.
func (l Locator) SiteName() string {
	if l.Kind == models.SourceRepository {
		return l.Ref.SiteName()
	}
	u, err := url.Parse(l.URL)
	if err != nil {
		return "site"
	}
	return strings.NewReplacer(".", "_", ":", "_").Replace(u.Host)
}

// OutputDir is <output_dir>/<site name>.
func (l Locator) OutputDir(cfg *models.Config) string {
	return filepath.Join(cfg.OutputDir, l.SiteName())
}

// Result is the outcome of one run.
type Result struct {
	Locator       Locator
	Documentation *models.Documentation
	Summary       *manifest.Summary
}

// NewFetcher builds the shared fetcher for a run from cfg.
func NewFetcher(cfg *models.Config, logger *slog.Logger) (*fetcher.Fetcher, error) {
	var cache *caching.Cache
	if cfg.CacheDir != "" {
		c, err := caching.NewCache(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		cache = c
	}
	return fetcher.NewFetcher(fetcher.Options{
		Concurrency:     cfg.Concurrency,
		Timeout:         cfg.Timeout,
		FollowRedirects: cfg.FollowRedirects,
		VerifySSL:       cfg.VerifySSL,
		Headers:         cfg.Headers,
		RateLimit:       cfg.RateLimit,
		Cache:           cache,
		Logger:          logger,
	}), nil
}

// NewClient builds a repository API client over f.
func NewClient(f *fetcher.Fetcher, cfg *models.Config) *repository.Client {
	return repository.NewClient(f, cfg.RepositoryAPIURL, cfg.RepositoryToken)
}

// Process runs the pipeline matching locator and returns the documentation
// with its run summary. Per-page failures land in the summary; errors are
// returned for invalid input and cancellation.
func Process(ctx context.Context, locator string, cfg *models.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	loc, err := ParseLocator(locator, cfg.RepositoryHost)
	if err != nil {
		return nil, err
	}
	filter, err := admission.NewFilter(cfg.Match, cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	f, err := NewFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	res := &Result{Locator: loc}
	switch loc.Kind {
	case models.SourceRepository:
		walker := repository.NewWalker(NewClient(f, cfg), repository.Options{
			Concurrency:    cfg.Concurrency,
			Extensions:     cfg.Extensions,
			Filter:         filter,
			DetectLanguage: cfg.DetectLanguage,
			Logger:         logger,
		})
		res.Documentation, res.Summary, err = walker.Walk(ctx, loc.Ref)
	default:
		opts := crawler.Options{
			Concurrency:    cfg.Concurrency,
			MaxPages:       cfg.MaxPages,
			MaxDepth:       cfg.MaxDepth,
			Filter:         filter,
			DetectLanguage: cfg.DetectLanguage,
			Logger:         logger,
		}
		if cfg.RespectRobots {
			opts.Robots = robots.NewPolicy(f, userAgent(cfg), 0, logger)
		}
		ext := extractor.New(extractor.Options{Selector: extractor.SelectorFromConfig(cfg), Logger: logger})
		res.Documentation, res.Summary, err = crawler.New(f, ext, opts).Crawl(ctx, loc.URL)
		if errors.Is(err, crawler.ErrInvalidRoot) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
		}
	}
	if res.Documentation != nil {
		res.Documentation.Metadata["site_name"] = loc.SiteName()
	}
	return res, err
}

func userAgent(cfg *models.Config) string {
	for k, v := range cfg.Headers {
		if strings.EqualFold(k, "User-Agent") && v != "" {
			return v
		}
	}
	return models.DefaultUserAgent
}
