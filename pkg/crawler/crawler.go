// Package crawler drives the web pipeline: a breadth-first frontier of
// same-site URLs fetched and extracted by a bounded number of workers.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/admission"
	"github.com/dtnitsch/docbundle/pkg/analytics"
	"github.com/dtnitsch/docbundle/pkg/analyzer"
	"github.com/dtnitsch/docbundle/pkg/extractor"
	"github.com/dtnitsch/docbundle/pkg/fetcher"
	"github.com/dtnitsch/docbundle/pkg/language"
	"github.com/dtnitsch/docbundle/pkg/manifest"
)

// keywordCount is the number of keywords kept in page metadata.
const keywordCount = 5

// ErrInvalidRoot is returned when the root is not an absolute http(s) URL.
var ErrInvalidRoot = errors.New("root must be an absolute http(s) URL")

// Fetcher fetches one HTML page.
type Fetcher interface {
	FetchHTML(ctx context.Context, url string) (*fetcher.Response, error)
}

// Extractor selects the main content of a page.
type Extractor interface {
	Extract(rawHTML, pageURL string) (*extractor.Extraction, error)
}

// RobotsPolicy decides whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) (bool, error)
}

// Options configures a Crawler.
type Options struct {
	Concurrency    int // K, concurrent fetch+extract tasks
	MaxPages       int // 0 = unlimited
	MaxDepth       int // root is depth 0; 0 = unlimited
	Filter         *admission.Filter
	Robots         RobotsPolicy // nil = robots.txt ignored
	DetectLanguage bool
	Logger         *slog.Logger
}

// Crawler is reusable; each Crawl call has its own frontier.
type Crawler struct {
	fetcher   Fetcher
	extractor Extractor
	opts      Options
	logger    *slog.Logger
}

type job struct {
	URL       string
	Depth     int
	ParentURL string
}

type result struct {
	job
	page  *models.Page
	links []string
	kind  string // failure kind overriding err classification
	err   error
}

func New(f Fetcher, e Extractor, opts Options) *Crawler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{fetcher: f, extractor: e, opts: opts, logger: logger}
}

// Crawl visits root and every admitted same-authority page reachable from it.
// Per-page failures are recorded in the summary; the returned error is
// non-nil only for an invalid root or a cancelled context.
func (c *Crawler) Crawl(ctx context.Context, root string) (*models.Documentation, *manifest.Summary, error) {
	rootURL, err := parseRoot(root)
	if err != nil {
		return nil, nil, err
	}
	start := rootURL.String()
	authority := authorityOf(rootURL)

	doc := models.NewDocumentation(start)
	doc.Metadata["source"] = string(models.SourceWeb)
	summary := manifest.NewSummary(start, string(models.SourceWeb))

	queue := []job{{URL: start}}
	visited := map[string]struct{}{start: {}}
	results := make(chan result)
	inFlight := 0

	c.logger.Info("Starting crawl", "root", start, "workers", c.opts.Concurrency, "max_pages", c.opts.MaxPages, "max_depth", c.opts.MaxDepth)

	for {
		for len(queue) > 0 && inFlight < c.opts.Concurrency && c.underCap(len(doc.Pages)+inFlight) && ctx.Err() == nil {
			next := queue[0]
			queue = queue[1:]
			inFlight++
			go func(j job) {
				results <- c.process(ctx, j, authority)
			}(next)
		}
		if inFlight == 0 {
			break
		}

		r := <-results
		inFlight--

		if r.err != nil {
			c.logger.Warn("Page failed", "url", r.URL, "error", r.err)
			if r.kind != "" {
				summary.Record(r.URL, r.kind, 0, r.err.Error())
			} else {
				summary.RecordError(r.URL, r.err)
			}
			continue
		}
		if !doc.AddPage(*r.page) {
			continue
		}
		c.logger.Info("Page added", "url", r.URL, "depth", r.Depth, "pages", len(doc.Pages), "queued", len(queue))

		for _, link := range r.links {
			if _, seen := visited[link]; seen {
				continue
			}
			depth := r.Depth + 1
			if c.opts.MaxDepth > 0 && depth > c.opts.MaxDepth {
				continue
			}
			if !c.opts.Filter.Allow(link) {
				continue
			}
			visited[link] = struct{}{}
			queue = append(queue, job{URL: link, Depth: depth, ParentURL: r.URL})
		}
	}

	summary.Finish(len(doc.Pages))
	c.logger.Info("Crawl finished", "root", start, "pages", len(doc.Pages), "failures", summary.FailureCount())

	if err := ctx.Err(); err != nil {
		return doc, summary, fmt.Errorf("crawl interrupted: %w", err)
	}
	return doc, summary, nil
}

func (c *Crawler) underCap(n int) bool {
	return c.opts.MaxPages <= 0 || n < c.opts.MaxPages
}

// process runs on a worker goroutine. It touches no crawl state.
func (c *Crawler) process(ctx context.Context, j job, authority string) result {
	r := result{job: j}

	if c.opts.Robots != nil {
		allowed, err := c.opts.Robots.Allowed(ctx, j.URL)
		if err == nil && !allowed {
			r.kind = manifest.KindRobotsDisallowed
			r.err = errors.New("disallowed by robots.txt")
			return r
		}
	}

	resp, err := c.fetcher.FetchHTML(ctx, j.URL)
	if err != nil {
		r.err = err
		return r
	}

	ext, err := c.extractor.Extract(string(resp.Body), j.URL)
	if err != nil {
		r.kind = manifest.KindExtract
		r.err = err
		return r
	}

	metadata := map[string]any{
		"source":            string(models.SourceWeb),
		"depth":             j.Depth,
		"extraction_method": ext.Method,
	}
	if resp.FinalURL != "" && resp.FinalURL != j.URL {
		metadata["final_url"] = resp.FinalURL
	}
	if resp.FromCache {
		metadata["from_cache"] = true
	}
	if ext.Byline != "" {
		metadata["author"] = ext.Byline
	}
	if ext.SiteName != "" {
		metadata["site_name"] = ext.SiteName
	}
	text := ext.Content.Text()
	metadata["word_count"] = analytics.WordCount(text)
	if keywords := analytics.Keywords(text, keywordCount); len(keywords) > 0 {
		metadata["keywords"] = keywords
	}
	if c.opts.DetectLanguage {
		if lang := language.Detect(text); lang != "" {
			metadata["language"] = lang
		}
	}

	r.page = &models.Page{
		URL:          j.URL,
		Title:        ext.Title,
		Content:      ext.HTML,
		CodeSnippets: analyzer.CodeSnippets(ext.Content),
		Headings:     analyzer.HeadingsFromSelection(ext.Content),
		Metadata:     metadata,
		LastUpdated:  ext.Published,
		ParentURL:    j.ParentURL,
	}

	base := j.URL
	if resp.FinalURL != "" {
		base = resp.FinalURL
	}
	r.links = analyzer.Links(ext.Content, base, func(u *url.URL) bool {
		normalize(u)
		return authorityOf(u) == authority
	})
	return r
}

func parseRoot(root string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(root))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoot, root)
	}
	normalize(u)
	return u, nil
}

// normalize strips the fragment, lowercases scheme and host, and gives an
// empty path the root path, so equal resources compare equal.
func normalize(u *url.URL) {
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
}

// authorityOf is scheme plus host[:port].
func authorityOf(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
