package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/docbundle/models"
)

const docPage = `<html><head><title> Install Guide </title><script>var x = 1;</script></head>
<body>
<nav class="site-nav"><ul>
  <li><a href="/one">Navigation link number one, quite long text</a></li>
  <li><a href="/two">Navigation link number two, quite long text</a></li>
</ul></nav>
<div class="sidebar-widget"><p><a href="/ad">Sponsored link with plenty of words in it, really</a></p></div>
<div id="main">
  <article class="content">
    <h1>Installing the tool</h1>
    <p>Download the release archive for your platform, unpack it, and put the binary on your PATH.</p>
    <p>Configuration lives in a YAML file, which is optional, and every option has a sensible default.</p>
    <pre><code class="language-sh">docbundle generate https://example.com</code></pre>
    <p>Run the generate command with a root URL, and the bundle is written to the output directory.</p>
  </article>
</div>
<footer><p>Copyright footer text that is long enough to score, with commas, and more.</p></footer>
</body></html>`

func densityOnly(sel ContentSelector) *Extractor {
	return New(Options{Selector: sel, DisableReadability: true})
}

func TestExtractDensityPrefersArticleOverNav(t *testing.T) {
	ext, err := densityOnly(nil).Extract(docPage, "https://example.com/install")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ext.Method != MethodDensity {
		t.Errorf("Method = %q, want %q", ext.Method, MethodDensity)
	}
	if ext.Title != "Install Guide" {
		t.Errorf("Title = %q", ext.Title)
	}
	if !strings.Contains(ext.HTML, "Configuration lives in a YAML file") {
		t.Error("extracted content is missing article prose")
	}
	for _, unwanted := range []string{"Navigation link", "Sponsored link", "Copyright footer", "var x"} {
		if strings.Contains(ext.HTML, unwanted) {
			t.Errorf("extracted content contains boilerplate %q", unwanted)
		}
	}
	if ext.Content.Find("pre code").Length() != 1 {
		t.Error("extracted content lost the code block")
	}
}

func TestExtractSelector(t *testing.T) {
	tests := []struct {
		name       string
		selector   ContentSelector
		wantMethod string
		wantText   string
	}{
		{name: "fixed selector", selector: FixedSelector("#main"), wantMethod: MethodSelector, wantText: "Installing the tool"},
		{
			name: "selector func",
			selector: SelectorFunc(func(u string) string {
				if strings.HasSuffix(u, "/install") {
					return "#main"
				}
				return ""
			}),
			wantMethod: MethodSelector,
			wantText:   "Installing the tool",
		},
		{name: "selector matches nothing", selector: FixedSelector(".missing"), wantMethod: MethodDensity, wantText: "Installing the tool"},
		{
			name: "pattern rules",
			selector: SelectorByPattern([]models.SelectorRule{
				{Match: "/blog/*", Selector: ".missing"},
				{Match: "/install", Selector: "article h1"},
			}, ""),
			wantMethod: MethodSelector,
			wantText:   "Installing the tool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := densityOnly(tt.selector).Extract(docPage, "https://example.com/install")
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if ext.Method != tt.wantMethod {
				t.Errorf("Method = %q, want %q", ext.Method, tt.wantMethod)
			}
			if !strings.Contains(ext.Content.Text(), tt.wantText) {
				t.Errorf("content %q does not contain %q", ext.Content.Text(), tt.wantText)
			}
		})
	}
}

func TestExtractBodyFallback(t *testing.T) {
	ext, err := densityOnly(nil).Extract(`<html><body><span>hi</span></body></html>`, "https://example.com/x")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ext.Method != MethodBody {
		t.Errorf("Method = %q, want %q", ext.Method, MethodBody)
	}
	if ext.Title != "https://example.com/x" {
		t.Errorf("Title should fall back to the URL, got %q", ext.Title)
	}
}

func TestExtractWithReadability(t *testing.T) {
	ext, err := New(Options{}).Extract(docPage, "https://example.com/install")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ext.Method != MethodReadability && ext.Method != MethodDensity {
		t.Errorf("Method = %q, want a heuristic method", ext.Method)
	}
	if !strings.Contains(ext.Content.Text(), "Download the release archive") {
		t.Error("heuristic extraction lost the article prose")
	}
}

func TestExtractReadsPageMetadata(t *testing.T) {
	head := `<head><title> Install Guide </title>
<meta property="og:site_name" content="Example Docs">
<meta property="article:published_time" content="2024-03-01T10:00:00Z">
<meta name="author" content="Jane Writer">
<link rel="stylesheet" href="/site.css">
</head>`
	page := strings.Replace(docPage, `<head><title> Install Guide </title><script>var x = 1;</script></head>`, head, 1)

	ext, err := New(Options{}).Extract(page, "https://example.com/install")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ext.SiteName != "Example Docs" {
		t.Errorf("SiteName = %q, want %q", ext.SiteName, "Example Docs")
	}
	if ext.Byline != "Jane Writer" {
		t.Errorf("Byline = %q, want %q", ext.Byline, "Jane Writer")
	}
	if ext.Published == nil || ext.Published.Year() != 2024 {
		t.Errorf("Published = %v, want a 2024 date", ext.Published)
	}
	for _, tag := range []string{"<meta", "<link"} {
		if strings.Contains(ext.HTML, tag) {
			t.Errorf("extracted content contains %s", tag)
		}
	}
}

func TestExtractSelectorSkipsPageMetadata(t *testing.T) {
	page := strings.Replace(docPage, "<title>", `<meta name="author" content="Jane Writer"><title>`, 1)
	ext, err := New(Options{Selector: FixedSelector("#main")}).Extract(page, "https://example.com/install")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ext.Method != MethodSelector || ext.Byline != "" {
		t.Errorf("Method = %q Byline = %q, want selector without metadata", ext.Method, ext.Byline)
	}
}

func TestSelectorFromConfig(t *testing.T) {
	cfg := models.DefaultConfig()
	if SelectorFromConfig(&cfg) != nil {
		t.Error("expected nil selector for default config")
	}

	cfg.ContentSelector = "main"
	if got := SelectorFromConfig(&cfg).SelectorFor("https://example.com/a"); got != "main" {
		t.Errorf("SelectorFor() = %q, want main", got)
	}

	cfg.ContentSelectors = []models.SelectorRule{{Match: "/api/*", Selector: ".api-body"}}
	sel := SelectorFromConfig(&cfg)
	if got := sel.SelectorFor("https://example.com/api/users"); got != ".api-body" {
		t.Errorf("SelectorFor(api) = %q", got)
	}
	if got := sel.SelectorFor("https://example.com/guide"); got != "main" {
		t.Errorf("SelectorFor(guide) = %q, want fallback", got)
	}
}

func TestRestoreCodeClasses(t *testing.T) {
	src, _ := goquery.NewDocumentFromReader(strings.NewReader(`<pre class="hl"><code class="language-go">x := 1</code></pre>`))
	out, _ := goquery.NewDocumentFromReader(strings.NewReader(`<div><pre><code>x := 1</code></pre></div>`))

	restoreCodeClasses(src.Selection, out.Selection)

	if c, _ := out.Find("code").Attr("class"); c != "language-go" {
		t.Errorf("code class = %q", c)
	}
	if c, _ := out.Find("pre").Attr("class"); c != "hl" {
		t.Errorf("pre class = %q", c)
	}
}
