// Package robots implements an optional robots.txt policy with a per-host cache.
package robots

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dtnitsch/docbundle/pkg/fetcher"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/temoto/robotstxt"
)

const (
	defaultCacheTTL  = 24 * time.Hour
	defaultCacheSize = 256
	robotsTxtPath    = "/robots.txt"
)

// Getter is the subset of fetcher.Fetcher the policy needs.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) (*fetcher.Response, error)
}

// Policy answers whether a URL may be crawled for a given user agent.
// Hosts whose robots.txt is missing, unreadable or unparsable allow everything.
type Policy struct {
	getter    Getter
	userAgent string
	cache     *expirable.LRU[string, *robotstxt.RobotsData]
	logger    *slog.Logger
}

// NewPolicy creates a Policy. A ttl of 0 uses 24h.
func NewPolicy(getter Getter, userAgent string, ttl time.Duration, logger *slog.Logger) *Policy {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		getter:    getter,
		userAgent: userAgent,
		cache:     expirable.NewLRU[string, *robotstxt.RobotsData](defaultCacheSize, nil, ttl),
		logger:    logger,
	}
}

// Allowed reports whether rawURL may be fetched.
func (p *Policy) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}
	if u.Host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	key := strings.ToLower(u.Scheme + "://" + u.Host)
	data, ok := p.cache.Get(key)
	if !ok {
		data = p.fetch(ctx, key)
		p.cache.Add(key, data)
	}
	if data == nil {
		return true, nil
	}

	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}
	return data.TestAgent(target, p.userAgent), nil
}

// fetch returns nil (allow all) when robots.txt cannot be used.
func (p *Policy) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	resp, err := p.getter.Get(ctx, origin+robotsTxtPath, nil)
	if err != nil {
		p.logger.Debug("robots.txt unavailable, allowing all", "origin", origin, "error", err)
		return nil
	}
	data, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		p.logger.Warn("Failed to parse robots.txt, allowing all", "origin", origin, "error", err)
		return nil
	}
	return data
}
