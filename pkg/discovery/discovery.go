// Package discovery samples a documentation source and groups the paths it
// finds by shape, so include/exclude patterns can be chosen before a full run.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/analyzer"
	"github.com/dtnitsch/docbundle/pkg/docgen"
	"github.com/dtnitsch/docbundle/pkg/fetcher"
	"github.com/dtnitsch/docbundle/pkg/repository"
	"github.com/google/uuid"
)

const (
	defaultMaxDepth = 2
	defaultMaxURLs  = 200
)

// Pattern is one path shape with the number of paths that have it.
type Pattern struct {
	Pattern  string   `json:"pattern" yaml:"pattern"`
	Count    int      `json:"count" yaml:"count"`
	Examples []string `json:"examples" yaml:"examples"`
}

// Options bounds a discovery run. Zero values use 2 levels and 200 URLs.
type Options struct {
	MaxDepth int
	MaxURLs  int
}

// PageFetcher fetches HTML pages.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (*fetcher.Response, error)
}

// TreeLister lists repository file paths.
type TreeLister interface {
	Tree(ctx context.Context, ref repository.Reference, maxDepth int) ([]string, error)
}

type Discoverer struct {
	pages    PageFetcher
	tree     TreeLister
	repoHost string
	logger   *slog.Logger
}

// New creates a Discoverer. tree may be nil when only websites are sampled.
func New(pages PageFetcher, tree TreeLister, repoHost string, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{pages: pages, tree: tree, repoHost: repoHost, logger: logger}
}

// Discover samples locator and returns the inferred patterns.
func (d *Discoverer) Discover(ctx context.Context, locator string, opts Options) ([]Pattern, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = defaultMaxURLs
	}
	loc, err := docgen.ParseLocator(locator, d.repoHost)
	if err != nil {
		return nil, err
	}

	var paths []string
	if loc.Kind == models.SourceRepository {
		if d.tree == nil {
			return nil, fmt.Errorf("no repository lister configured for %s", loc.Ref)
		}
		paths, err = d.tree.Tree(ctx, loc.Ref, opts.MaxDepth)
		if err != nil {
			return nil, err
		}
		if len(paths) > opts.MaxURLs {
			paths = paths[:opts.MaxURLs]
		}
	} else {
		paths, err = d.sampleSite(ctx, loc.URL, opts)
		if err != nil {
			return nil, err
		}
	}
	d.logger.Info("Discovery sampled paths", "locator", loc.URL, "paths", len(paths))
	return Infer(paths), nil
}

// sampleSite runs a breadth-first walk over whole-page links on the root's
// authority and returns the URL paths seen, root first.
func (d *Discoverer) sampleSite(ctx context.Context, root string, opts Options) ([]string, error) {
	rootURL, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", docgen.ErrInvalidLocator, err)
	}
	authority := strings.ToLower(rootURL.Scheme + "://" + rootURL.Host)

	type item struct {
		url   string
		depth int
	}
	seen := map[string]bool{root: true}
	queue := []item{{url: root}}
	paths := []string{rootURL.Path}

	for len(queue) > 0 && len(paths) < opts.MaxURLs {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= opts.MaxDepth {
			continue
		}

		resp, err := d.pages.FetchHTML(ctx, cur.url)
		if err != nil {
			d.logger.Warn("Discovery fetch failed", "url", cur.url, "error", err)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
		if err != nil {
			d.logger.Warn("Discovery parse failed", "url", cur.url, "error", err)
			continue
		}

		links := analyzer.Links(doc.Selection, cur.url, func(u *url.URL) bool {
			u.RawQuery = ""
			return strings.ToLower(u.Scheme+"://"+u.Host) == authority
		})
		for _, link := range links {
			if seen[link] || len(paths) >= opts.MaxURLs {
				continue
			}
			seen[link] = true
			u, _ := url.Parse(link)
			paths = append(paths, u.Path)
			queue = append(queue, item{url: link, depth: cur.depth + 1})
		}
	}
	return paths, nil
}

// Infer groups paths by shape. Numeric and UUID segments become "*".
// Patterns are sorted by count descending, then pattern; each keeps every
// distinct example, sorted.
func Infer(paths []string) []Pattern {
	groups := Reduce(Map(paths))

	patterns := make([]Pattern, 0, len(groups))
	for shape, examples := range groups {
		patterns = append(patterns, Pattern{Pattern: shape, Count: len(examples), Examples: dedupe(examples)})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Pattern < patterns[j].Pattern
	})
	return patterns
}

// Map assigns each path its shape.
func Map(paths []string) map[string][]string {
	out := make(map[string][]string)
	for _, p := range paths {
		shape := Shape(p)
		out[shape] = append(out[shape], normalizePath(p))
	}
	return out
}

// Reduce merges intermediate shape groups.
func Reduce(intermediate ...map[string][]string) map[string][]string {
	final := make(map[string][]string)
	for _, groups := range intermediate {
		for shape, examples := range groups {
			final[shape] = append(final[shape], examples...)
		}
	}
	return final
}

// Shape replaces numeric and UUID segments of p with "*".
func Shape(p string) string {
	p = normalizePath(p)
	if p == "/" {
		return p
	}
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segments {
		if isVariable(s) {
			segments[i] = "*"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isVariable(segment string) bool {
	if segment == "" {
		return false
	}
	if isNumeric(segment) {
		return true
	}
	_, err := uuid.Parse(segment)
	return err == nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
