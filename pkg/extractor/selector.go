package extractor

import (
	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/admission"
)

// ContentSelector resolves the CSS selector of the main content region for a page.
// An empty result means "no selector", and extraction falls back to heuristics.
type ContentSelector interface {
	SelectorFor(pageURL string) string
}

// FixedSelector uses the same selector for every page.
type FixedSelector string

func (s FixedSelector) SelectorFor(string) string { return string(s) }

// SelectorFunc resolves a selector per page URL.
type SelectorFunc func(pageURL string) string

func (f SelectorFunc) SelectorFor(pageURL string) string {
	if f == nil {
		return ""
	}
	return f(pageURL)
}

// SelectorByPattern returns a SelectorFunc choosing the selector of the first
// rule whose admission-style pattern matches the page path. fallback is used
// when no rule matches.
func SelectorByPattern(rules []models.SelectorRule, fallback string) SelectorFunc {
	return func(pageURL string) string {
		for _, rule := range rules {
			if admission.ShouldProcess(pageURL, []string{rule.Match}, nil) {
				return rule.Selector
			}
		}
		return fallback
	}
}

// SelectorFromConfig builds the selector configured by content_selector and
// content_selectors. It returns nil when neither is set.
func SelectorFromConfig(cfg *models.Config) ContentSelector {
	if len(cfg.ContentSelectors) > 0 {
		return SelectorByPattern(cfg.ContentSelectors, cfg.ContentSelector)
	}
	if cfg.ContentSelector != "" {
		return FixedSelector(cfg.ContentSelector)
	}
	return nil
}
