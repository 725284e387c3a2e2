package extractor

import (
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	unlikelyHint = regexp.MustCompile(`(?i)-ad-|banner|breadcrumb|combx|comment|community|cookie|disqus|extra|footer|gdpr|header|legends|menu|navbar|pager|pagination|popup|related|remark|replies|rss|share|shoutbox|sidebar|skyscraper|social|sponsor|supplemental|toolbar`)
	maybeHint    = regexp.MustCompile(`(?i)and|article|body|column|content|main|shadow|markdown|prose|docs?`)
	positiveHint = regexp.MustCompile(`(?i)article|body|content|entry|hentry|main|page|post|text|blog|story|markdown|prose|documentation|docs`)
	negativeHint = regexp.MustCompile(`(?i)-ad-|hidden|^hid$|\shid$|\shid\s|^hid\s|banner|combx|comment|com-|contact|foot|footer|footnote|gdpr|masthead|media|meta|outbrain|promo|related|scroll|share|shoutbox|sidebar|skyscraper|sponsor|shopping|tags|tool|widget|nav|menu`)
)

const (
	minBlockText      = 25
	maxLengthBonus    = 3
	preBonus          = 3
	classWeight       = 25
	maxStructureBonus = 15
)

// densityCandidate scores block containers by text density and returns the best
// one, or nil when nothing scores. It removes unlikely candidates from doc.
func densityCandidate(doc *goquery.Document) *goquery.Selection {
	removeUnlikely(doc)

	scores := make(map[*html.Node]float64)
	var order []*html.Node
	initialize := func(n *html.Node) {
		if n == nil || n.Type != html.ElementNode {
			return
		}
		if _, ok := scores[n]; ok {
			return
		}
		scores[n] = tagBias(n.Data) + classScore(n)
		order = append(order, n)
	}

	doc.Find("p, pre, td, blockquote, li, dd").Each(func(_ int, s *goquery.Selection) {
		isPre := goquery.NodeName(s) == "pre"
		text := normalizeText(s.Text())
		if len(text) < minBlockText && !(isPre && text != "") {
			return
		}

		score := 1 + float64(strings.Count(text, ",")) + math.Min(float64(len(text)/100), maxLengthBonus)
		if isPre {
			score += preBonus
		}

		parent := s.Nodes[0].Parent
		if parent == nil || parent.Type != html.ElementNode {
			return
		}
		initialize(parent)
		scores[parent] += score

		if grand := parent.Parent; grand != nil && grand.Type == html.ElementNode {
			initialize(grand)
			scores[grand] += score / 2
		}
	})

	var best *html.Node
	bestScore := 0.0
	for _, n := range order {
		if n.Data == "html" {
			continue
		}
		sel := goquery.NewDocumentFromNode(n).Selection
		final := (scores[n] + structureBonus(sel)) * (1 - linkDensity(sel)) * markupFactor(sel)
		if final > bestScore {
			best, bestScore = n, final
		}
	}
	if best == nil {
		return nil
	}
	return doc.FindNodes(best)
}

func removeUnlikely(doc *goquery.Document) {
	doc.Find("nav, header, footer, aside, form").Remove()
	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "article", "main", "body", "a", "pre", "code":
			return
		}
		hint := attr(s, "class") + " " + attr(s, "id")
		if strings.TrimSpace(hint) == "" {
			return
		}
		if unlikelyHint.MatchString(hint) && !maybeHint.MatchString(hint) {
			s.Remove()
		}
	})
}

func tagBias(tag string) float64 {
	switch tag {
	case "article", "main":
		return 10
	case "section", "div":
		return 5
	case "pre", "td", "blockquote":
		return 3
	case "address", "ol", "ul", "dl", "dd", "dt", "li", "form":
		return -3
	case "h1", "h2", "h3", "h4", "h5", "h6", "th":
		return -5
	}
	return 0
}

func classScore(n *html.Node) float64 {
	weight := 0.0
	for _, a := range n.Attr {
		if a.Key != "class" && a.Key != "id" {
			continue
		}
		if negativeHint.MatchString(a.Val) {
			weight -= classWeight
		}
		if positiveHint.MatchString(a.Val) {
			weight += classWeight
		}
	}
	return weight
}

// structureBonus rewards containers holding headings and code blocks.
func structureBonus(sel *goquery.Selection) float64 {
	headings := sel.Find("h1, h2, h3, h4, h5, h6").Length()
	code := sel.Find("pre").Length()
	return math.Min(float64(2*headings+3*code), maxStructureBonus)
}

func linkDensity(sel *goquery.Selection) float64 {
	textLen := len(normalizeText(sel.Text()))
	if textLen == 0 {
		return 1
	}
	linkLen := 0
	sel.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkLen += len(normalizeText(a.Text()))
	})
	return math.Min(float64(linkLen)/float64(textLen), 1)
}

// markupFactor scales from 0.5 to 1.0 with the text-to-markup ratio.
func markupFactor(sel *goquery.Selection) float64 {
	markup, err := goquery.OuterHtml(sel)
	if err != nil || len(markup) == 0 {
		return 0.5
	}
	ratio := float64(len(normalizeText(sel.Text()))) / float64(len(markup))
	return 0.5 + math.Min(ratio, 0.5)
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}
