// Package extractor selects the primary content region of an HTML page, using
// a configured selector or, failing that, readability and text-density heuristics.
package extractor

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Extraction methods, in the order they are tried.
const (
	MethodSelector    = "selector"
	MethodReadability = "readability"
	MethodDensity     = "density"
	MethodBody        = "body"
)

// defaultMinReadabilityText is the minimum text length readability must yield
// before its result is trusted.
const defaultMinReadabilityText = 200

const nonContentSelector = "script, style, iframe, noscript, svg, img, video, audio, embed, object, canvas, picture, source, template"

// metadataSelector elements carry page metadata for readability but are never content.
const metadataSelector = "meta, link"

// Extraction is the main content region of one page.
type Extraction struct {
	Title   string
	HTML    string             // serialized content region
	Content *goquery.Selection // parsed content region
	Method  string

	// Page metadata read by readability. Empty when a selector matched or
	// readability is disabled.
	Byline    string
	SiteName  string
	Published *time.Time
}

// Options configures an Extractor.
type Options struct {
	Selector           ContentSelector
	MinReadabilityText int
	DisableReadability bool
	Logger             *slog.Logger
}

// Extractor is safe for concurrent use.
type Extractor struct {
	selector       ContentSelector
	minText        int
	useReadability bool
	logger         *slog.Logger
}

func New(opts Options) *Extractor {
	if opts.MinReadabilityText <= 0 {
		opts.MinReadabilityText = defaultMinReadabilityText
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Extractor{
		selector:       opts.Selector,
		minText:        opts.MinReadabilityText,
		useReadability: !opts.DisableReadability,
		logger:         opts.Logger,
	}
}

// Extract parses rawHTML and returns its main content region.
func (e *Extractor) Extract(rawHTML, pageURL string) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := normalizeText(doc.Find("title").First().Text())
	if title == "" {
		title = pageURL
	}
	doc.Find(nonContentSelector).Remove()
	cleaned, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize HTML: %w", err)
	}
	doc.Find(metadataSelector).Remove()

	if e.selector != nil {
		if sel := e.selector.SelectorFor(pageURL); sel != "" {
			if match := doc.Find(sel).First(); match.Length() > 0 {
				return newExtraction(title, match, MethodSelector)
			}
			e.logger.Debug("Content selector matched nothing, using heuristics", "url", pageURL, "selector", sel)
		}
	}

	var article *readability.Article
	if e.useReadability {
		article = e.parseArticle(cleaned, pageURL)
		if ext := e.readable(doc, article, title); ext != nil {
			return ext, nil
		}
	}

	var ext *Extraction
	if best := densityCandidate(doc); best != nil {
		ext, err = newExtraction(title, best, MethodDensity)
	} else {
		ext, err = newExtraction(title, doc.Find("body").First(), MethodBody)
	}
	if err != nil {
		return nil, err
	}
	setMetadata(ext, article)
	return ext, nil
}

// parseArticle runs go-readability over html, which still carries the page's
// meta tags. It returns nil when readability fails.
func (e *Extractor) parseArticle(html, pageURL string) *readability.Article {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		e.logger.Debug("Readability failed", "url", pageURL, "error", err)
		return nil
	}
	return &article
}

// readable turns a readability article into an Extraction. It returns nil when
// the article is missing or yields too little text.
func (e *Extractor) readable(doc *goquery.Document, article *readability.Article, title string) *Extraction {
	if article == nil || len(normalizeText(article.TextContent)) < e.minText || strings.TrimSpace(article.Content) == "" {
		return nil
	}

	articleDoc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil
	}
	restoreCodeClasses(doc.Selection, articleDoc.Selection)

	content := articleDoc.Find("body").First()
	html, err := content.Html()
	if err != nil {
		return nil
	}
	ext := &Extraction{
		Title:   title,
		HTML:    strings.TrimSpace(html),
		Content: content,
		Method:  MethodReadability,
	}
	setMetadata(ext, article)
	return ext
}

func setMetadata(ext *Extraction, article *readability.Article) {
	if article == nil {
		return
	}
	ext.Byline = strings.TrimSpace(article.Byline)
	ext.SiteName = strings.TrimSpace(article.SiteName)
	ext.Published = article.PublishedTime
}

// restoreCodeClasses copies pre/code class attributes from the source document
// onto readability output, which drops classes and with them code languages.
func restoreCodeClasses(source, article *goquery.Selection) {
	type classes struct{ pre, code string }
	byText := make(map[string]classes)
	source.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		text := strings.TrimSpace(pre.Text())
		if _, ok := byText[text]; ok {
			return
		}
		preClass, _ := pre.Attr("class")
		codeClass, _ := pre.Find("code").First().Attr("class")
		byText[text] = classes{pre: preClass, code: codeClass}
	})

	article.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		c, ok := byText[strings.TrimSpace(pre.Text())]
		if !ok {
			return
		}
		if c.pre != "" {
			pre.SetAttr("class", c.pre)
		}
		if code := pre.Find("code").First(); c.code != "" && code.Length() > 0 {
			code.SetAttr("class", c.code)
		}
	})
}

func newExtraction(title string, sel *goquery.Selection, method string) (*Extraction, error) {
	html, err := goquery.OuterHtml(sel)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize content: %w", err)
	}
	return &Extraction{Title: title, HTML: html, Content: sel, Method: method}, nil
}

func normalizeText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
