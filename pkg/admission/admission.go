// Package admission decides whether a URL (or repository path) enters a crawl,
// based on include and exclude glob patterns.
package admission

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const rootPath = "/"

// Filter holds the include and exclude pattern sets of one run.
type Filter struct {
	Include []string
	Exclude []string
}

// NewFilter builds a Filter, rejecting malformed glob patterns.
func NewFilter(include, exclude []string) (*Filter, error) {
	if err := ValidatePatterns(include); err != nil {
		return nil, fmt.Errorf("invalid match pattern: %w", err)
	}
	if err := ValidatePatterns(exclude); err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	return &Filter{Include: include, Exclude: exclude}, nil
}

// Allow reports whether target passes the filter. A nil Filter allows everything.
func (f *Filter) Allow(target string) bool {
	if f == nil {
		return true
	}
	return ShouldProcess(target, f.Include, f.Exclude)
}

// ShouldProcess reports whether target is admitted: include is empty or the
// path matches at least one include pattern, and it matches no exclude pattern.
// target may be an absolute URL or a plain slash-separated path.
func ShouldProcess(target string, include, exclude []string) bool {
	p := NormalizePath(pathOf(target))
	if len(include) > 0 && !matchAny(p, include) {
		return false
	}
	return !matchAny(p, exclude)
}

// ValidatePatterns returns the first malformed glob pattern as an error.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := path.Match(normalizePattern(pattern), ""); err != nil {
			return fmt.Errorf("%q: %w", pattern, err)
		}
	}
	return nil
}

// NormalizePath trims leading and trailing slashes; the root becomes "/".
func NormalizePath(p string) string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return rootPath
	}
	return trimmed
}

// MatchPath matches a normalized path against a single pattern.
func MatchPath(p, pattern string) bool {
	if p == rootPath {
		return pattern == "/" || pattern == "" || pattern == "*"
	}

	pattern = normalizePattern(pattern)
	if !hasWildcard(pattern) {
		return p == pattern || strings.HasPrefix(p, pattern+"/")
	}

	return matchGlob(pattern, p) || matchGlob(pattern+"/*", p)
}

// matchGlob matches segment by segment. A "**" segment spans any number of
// segments, including none.
func matchGlob(pattern, p string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(p, "/"))
}

func matchSegments(pattern, segments []string) bool {
	if len(pattern) == 0 {
		return len(segments) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(segments); i++ {
			if matchSegments(pattern[1:], segments[i:]) {
				return true
			}
		}
		return false
	}
	if len(segments) == 0 {
		return false
	}
	if ok, _ := path.Match(pattern[0], segments[0]); !ok {
		return false
	}
	return matchSegments(pattern[1:], segments[1:])
}

func matchAny(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if MatchPath(p, pattern) {
			return true
		}
	}
	return false
}

func normalizePattern(pattern string) string {
	if pattern == "" || pattern == "/" || pattern == "*" {
		return pattern
	}
	return NormalizePath(pattern)
}

func hasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// pathOf extracts the path component of an absolute URL. Anything that does
// not parse as an absolute URL is treated as a path already.
func pathOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return target
	}
	return u.Path
}
