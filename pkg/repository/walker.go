package repository

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"path"
	"strings"

	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/admission"
	"github.com/dtnitsch/docbundle/pkg/analytics"
	"github.com/dtnitsch/docbundle/pkg/analyzer"
	"github.com/dtnitsch/docbundle/pkg/language"
	"github.com/dtnitsch/docbundle/pkg/manifest"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/errgroup"
)

const defaultBranch = "main"

// keywordCount is the number of keywords kept in markdown page metadata.
const keywordCount = 5

// Options configures a Walker.
type Options struct {
	Concurrency    int
	Extensions     []string // admitted file extensions, e.g. ".md"
	Filter         *admission.Filter
	DetectLanguage bool
	Logger         *slog.Logger
}

// Walker turns a repository tree into Documentation.
type Walker struct {
	client     *Client
	opts       Options
	extensions map[string]struct{}
	markdown   goldmark.Markdown
	logger     *slog.Logger
}

func NewWalker(client *Client, opts Options) *Walker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	return &Walker{
		client:     client,
		opts:       opts,
		extensions: exts,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:     logger,
	}
}

// Walk lists the repository recursively and builds one page per admitted file.
// Pages follow listing order. Listing and download failures are recorded in
// the summary; the returned error is non-nil only when ctx is cancelled.
func (w *Walker) Walk(ctx context.Context, ref Reference) (*models.Documentation, *manifest.Summary, error) {
	ref, branchErr := w.resolveBranch(ctx, ref)

	doc := models.NewDocumentation(ref.URL())
	doc.Metadata["source"] = string(models.SourceRepository)
	doc.Metadata["owner"] = ref.Owner
	doc.Metadata["repo"] = ref.Repo
	doc.Metadata["branch"] = ref.Branch
	summary := manifest.NewSummary(ref.URL(), string(models.SourceRepository))
	if branchErr != nil {
		summary.RecordError(ref.URL(), branchErr)
	}

	w.logger.Info("Walking repository", "repository", ref.String(), "workers", w.opts.Concurrency)
	err := w.walkDir(ctx, ref, "", doc, summary)
	summary.Finish(len(doc.Pages))
	w.logger.Info("Repository walk finished", "repository", ref.String(), "pages", len(doc.Pages), "failures", summary.FailureCount())
	return doc, summary, err
}

// resolveBranch fills in the default branch. On failure it falls back to main
// and returns the lookup error alongside the usable reference.
func (w *Walker) resolveBranch(ctx context.Context, ref Reference) (Reference, error) {
	if ref.Branch != "" {
		return ref, nil
	}
	branch, err := w.client.DefaultBranch(ctx, ref)
	if err != nil {
		w.logger.Warn("Could not resolve default branch, using main", "repository", ref.String(), "error", err)
		branch = defaultBranch
	}
	ref.Branch = branch
	return ref, err
}

func (w *Walker) walkDir(ctx context.Context, ref Reference, dir string, doc *models.Documentation, summary *manifest.Summary) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repository walk interrupted: %w", err)
	}

	entries, err := w.client.ListContents(ctx, ref, dir)
	if err != nil {
		target := dir
		if target == "" {
			target = "/"
		}
		w.logger.Warn("Failed to list directory", "path", target, "error", err)
		summary.RecordError(target, err)
		return nil
	}

	// Files of this directory are fetched concurrently into listing slots.
	pages := make([]*models.Page, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)
	for i, e := range entries {
		if e.Type != "file" || !w.admit(e) {
			continue
		}
		g.Go(func() error {
			body, err := w.client.FetchRaw(gctx, e)
			if err != nil {
				w.logger.Warn("Failed to fetch file", "path", e.Path, "error", err)
				summary.RecordError(e.Path, err)
				return nil
			}
			pages[i] = w.buildPage(e, string(body))
			return nil
		})
	}
	_ = g.Wait()

	for i, e := range entries {
		switch {
		case pages[i] != nil:
			doc.AddPage(*pages[i])
		case e.Type == "dir":
			if err := w.walkDir(ctx, ref, e.Path, doc, summary); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Walker) admit(e Entry) bool {
	if _, ok := w.extensions[strings.ToLower(path.Ext(e.Name))]; !ok {
		return false
	}
	return w.opts.Filter.Allow(e.Path)
}

func (w *Walker) buildPage(e Entry, text string) *models.Page {
	page := &models.Page{
		URL:          e.HTMLURL,
		Title:        e.Path,
		CodeSnippets: []models.CodeSnippet{},
		Headings:     []models.Heading{},
		Metadata: map[string]any{
			"path":   e.Path,
			"sha":    e.SHA,
			"size":   e.Size,
			"source": string(models.SourceRepository),
		},
	}
	if page.URL == "" {
		page.URL = e.DownloadURL
	}

	if isMarkdown(e.Name) {
		page.Headings = analyzer.MarkdownHeadings{}.ExtractHeadings(text)
		var buf bytes.Buffer
		if err := w.markdown.Convert([]byte(text), &buf); err != nil {
			w.logger.Warn("Failed to render markdown, keeping it as text", "path", e.Path, "error", err)
			page.Content = "<pre>" + html.EscapeString(text) + "</pre>"
		} else {
			page.Content = buf.String()
		}
		page.Metadata["word_count"] = analytics.WordCount(text)
		if keywords := analytics.Keywords(text, keywordCount); len(keywords) > 0 {
			page.Metadata["keywords"] = keywords
		}
		if w.opts.DetectLanguage {
			if lang := language.Detect(text); lang != "" {
				page.Metadata["language"] = lang
			}
		}
		return page
	}

	lang := LanguageFor(e.Name)
	page.Content = fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, lang, html.EscapeString(text))
	page.CodeSnippets = []models.CodeSnippet{{
		Language: lang,
		Code:     text,
		Context:  e.Path,
		Type:     models.SnippetSource,
	}}
	return page
}

// Tree returns file paths in listing order, descending at most maxDepth
// levels (the root listing is level 1; 0 = unlimited).
func (w *Walker) Tree(ctx context.Context, ref Reference, maxDepth int) ([]string, error) {
	ref, _ = w.resolveBranch(ctx, ref)
	var paths []string
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		entries, err := w.client.ListContents(ctx, ref, dir)
		if err != nil {
			if dir == "" {
				return fmt.Errorf("error listing %s: %w", ref, err)
			}
			w.logger.Warn("Failed to list directory", "path", dir, "error", err)
			return nil
		}
		for _, e := range entries {
			switch e.Type {
			case "file":
				paths = append(paths, e.Path)
			case "dir":
				if maxDepth > 0 && depth+1 >= maxDepth {
					continue
				}
				if err := walk(e.Path, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk("", 0); err != nil {
		return nil, err
	}
	return paths, nil
}
