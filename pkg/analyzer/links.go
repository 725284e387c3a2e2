package analyzer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Links returns the absolute http(s) targets of every a[href] under sel,
// resolved against pageURL, without fragments, de-duplicated in document order.
// accept, when non-nil, filters the result.
func Links(sel *goquery.Selection, pageURL string, accept func(*url.URL) bool) []string {
	links := []string{}
	if sel == nil {
		return links
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return links
	}

	seen := make(map[string]struct{})
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u, ok := Resolve(base, href)
		if !ok {
			return
		}
		if accept != nil && !accept(u) {
			return
		}
		s := u.String()
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		links = append(links, s)
	})
	return links
}

// Resolve turns href into an absolute http(s) URL relative to base, fragment stripped.
func Resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, true
}
