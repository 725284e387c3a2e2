package analyzer

import (
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/docbundle/models"
)

func parse(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc.Selection
}

func TestSyntheticPage(t *testing.T) {
	sel := parse(t, `<h2>A</h2><p>x</p><pre><code class="language-go">fmt.Println()</code></pre>`)

	headings := HeadingsFromSelection(sel)
	want := []models.Heading{{Level: 2, Text: "A", ID: "a"}}
	if !reflect.DeepEqual(headings, want) {
		t.Errorf("headings = %+v, want %+v", headings, want)
	}

	snippets := CodeSnippets(sel)
	if len(snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(snippets))
	}
	if snippets[0].Language != "go" || snippets[0].Code != "fmt.Println()" {
		t.Errorf("snippet = %+v", snippets[0])
	}
}

func TestHTMLHeadings(t *testing.T) {
	got := HTMLHeadings{}.ExtractHeadings(`<h1> Getting   Started </h1><h3>Install Guide</h3><h6>Notes</h6><h3>Install Guide</h3>`)
	want := []models.Heading{
		{Level: 1, Text: "Getting   Started", ID: "getting---started"},
		{Level: 3, Text: "Install Guide", ID: "install-guide"},
		{Level: 6, Text: "Notes", ID: "notes"},
		{Level: 3, Text: "Install Guide", ID: "install-guide"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractHeadings() = %+v, want %+v", got, want)
	}

	got = HTMLHeadings{}.ExtractHeadings("<h2>\n A\n  B </h2>")
	if len(got) != 1 || got[0].Text != "A\n  B" {
		t.Errorf("ExtractHeadings() kept %+v, want trimmed inner text %q", got, "A\n  B")
	}
}

func TestMarkdownHeadings(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []models.Heading
	}{
		{
			name:   "levels",
			source: "# Title\ntext\n## Usage\n### Flags ###\n",
			want: []models.Heading{
				{Level: 1, Text: "Title", ID: "title"},
				{Level: 2, Text: "Usage", ID: "usage"},
				{Level: 3, Text: "Flags", ID: "flags"},
			},
		},
		{
			name:   "fenced code is ignored",
			source: "# Real\n```sh\n# not a heading\n```\n~~~\n## also not\n~~~\n## After",
			want: []models.Heading{
				{Level: 1, Text: "Real", ID: "real"},
				{Level: 2, Text: "After", ID: "after"},
			},
		},
		{
			name:   "level above six and hashtags",
			source: "####### seven\n#tag\n###### Six",
			want:   []models.Heading{{Level: 6, Text: "Six", ID: "six"}},
		},
		{
			name:   "empty",
			source: "",
			want:   []models.Heading{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkdownHeadings{}.ExtractHeadings(tt.source)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractHeadings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestForSource(t *testing.T) {
	if _, ok := ForSource("markdown").(MarkdownHeadings); !ok {
		t.Error("ForSource(markdown) should return MarkdownHeadings")
	}
	if _, ok := ForSource("html").(HTMLHeadings); !ok {
		t.Error("ForSource(html) should return HTMLHeadings")
	}
}

func TestCodeSnippets(t *testing.T) {
	sel := parse(t, `
<div><p>An example of usage</p><pre><code class="hljs language-Python">print(1)</code></pre></div>
<section>Output
<pre>plain output</pre></section>
<div><pre class="language-rust"><code>fn main() {}</code></pre></div>
<pre><code>   </code></pre>`)

	got := CodeSnippets(sel)
	if len(got) != 3 {
		t.Fatalf("expected 3 snippets, got %d: %+v", len(got), got)
	}

	tests := []struct {
		language, code, context, typ string
	}{
		{"Python", "print(1)", "An example of usageprint(1)", models.SnippetExample},
		{"text", "plain output", "Output", models.SnippetUnknown},
		{"rust", "fn main() {}", "fn main() {}", models.SnippetUnknown},
	}
	for i, tt := range tests {
		s := got[i]
		if s.Language != tt.language || s.Code != tt.code || s.Context != tt.context || s.Type != tt.typ {
			t.Errorf("snippet %d = %+v, want language=%q code=%q context=%q type=%q", i, s, tt.language, tt.code, tt.context, tt.typ)
		}
	}
}

func TestContextLineLimit(t *testing.T) {
	long := strings.Repeat("a", 150)
	if got := contextLine(long); len(got) != maxContextLen {
		t.Errorf("contextLine() length = %d, want %d", len(got), maxContextLen)
	}
	if got := contextLine("  first line  \nsecond"); got != "first line" {
		t.Errorf("contextLine() = %q", got)
	}
}

func TestLinks(t *testing.T) {
	sel := parse(t, `
<a href="/docs/a#section">A</a>
<a href="b">B</a>
<a href="/docs/a">A again</a>
<a href="#top">top</a>
<a href="mailto:x@example.com">mail</a>
<a href="https://other.example.org/x">external</a>
<a href="javascript:void(0)">js</a>`)

	sameHost := func(u *url.URL) bool { return u.Host == "example.com" }
	got := Links(sel, "https://example.com/docs/index.html", sameHost)
	want := []string{"https://example.com/docs/a", "https://example.com/docs/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Links() = %v, want %v", got, want)
	}

	all := Links(sel, "https://example.com/docs/index.html", nil)
	if len(all) != 3 {
		t.Errorf("Links() without filter = %v", all)
	}
}

func TestOutline(t *testing.T) {
	flat := []models.Heading{
		NewHeading(1, "Intro"),
		NewHeading(2, "Install"),
		NewHeading(3, "Linux"),
		NewHeading(2, "Usage"),
		NewHeading(1, "API"),
		NewHeading(3, "Deep"),
	}

	got := Outline(flat)
	if len(got) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(got))
	}
	if len(got[0].Children) != 2 || got[0].Children[0].Children[0].Text != "Linux" {
		t.Errorf("unexpected nesting under Intro: %+v", got[0])
	}
	if len(got[1].Children) != 1 || got[1].Children[0].Text != "Deep" {
		t.Errorf("unexpected nesting under API: %+v", got[1])
	}
	for _, h := range flat {
		if len(h.Children) != 0 {
			t.Fatal("Outline() modified its input")
		}
	}
}
