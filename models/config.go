// Package models defines data structures for configuration and documentation.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Version is the release version, also sent in the default User-Agent.
const Version = "0.1.0"

const DefaultUserAgent = "docbundle/" + Version

// SelectorRule maps an admission-style glob to a content selector.
type SelectorRule struct {
	Match    string `yaml:"match"`
	Selector string `yaml:"selector"`
}

// Config holds runtime configuration for one documentation run.
// Values come from an optional YAML file and are overridden by CLI flags.
type Config struct {
	Concurrency      int               `yaml:"concurrency"`
	Timeout          time.Duration     `yaml:"timeout"`
	Match            []string          `yaml:"match"`
	Exclude          []string          `yaml:"exclude"`
	ContentSelector  string            `yaml:"content_selector"`
	ContentSelectors []SelectorRule    `yaml:"content_selectors"` // per-URL selectors, first match wins
	MaxPages         int               `yaml:"max_pages"`         // 0 = unlimited
	MaxDepth         int               `yaml:"max_depth"`         // 0 = unlimited
	OutputFormat     string            `yaml:"output_format"`
	OutputDir        string            `yaml:"output_dir"`
	SplitPages       bool              `yaml:"split_pages"`
	CreateIndex      bool              `yaml:"create_index"`
	IncludeTOC       bool              `yaml:"include_toc"`
	IncludeSnippets  bool              `yaml:"include_snippets"`
	Headers          map[string]string `yaml:"headers"`
	FollowRedirects  bool              `yaml:"follow_redirects"`
	VerifySSL        bool              `yaml:"verify_ssl"`

	// Repository sources
	Extensions       []string `yaml:"extensions"`
	RepositoryHost   string   `yaml:"repository_host"`
	RepositoryAPIURL string   `yaml:"repository_api_url"`
	RepositoryToken  string   `yaml:"-"` // never read from or written to config files

	// Politeness and caching
	RateLimit     float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	RespectRobots bool          `yaml:"respect_robots"`
	CacheDir      string        `yaml:"cache_dir"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`

	DetectLanguage bool   `yaml:"detect_language"`
	CatalogPath    string `yaml:"catalog_path"`
}

// durationKeys hold time.Duration values. A bare integer there means seconds.
var durationKeys = map[string]bool{"timeout": true, "cache_ttl": true}

type rawConfig Config

// UnmarshalYAML accepts durations as strings ("30s", "1h") or integer seconds.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, val := value.Content[i], value.Content[i+1]
			if durationKeys[key.Value] && val.Kind == yaml.ScalarNode && val.Tag == "!!int" {
				val.Value += "s"
				val.Tag = "!!str"
			}
		}
	}
	return value.Decode((*rawConfig)(c))
}

// DefaultConfig returns the configuration used when no file or flag says otherwise.
func DefaultConfig() Config {
	return Config{
		Concurrency:      3,
		Timeout:          30 * time.Second,
		OutputFormat:     FormatMarkdown,
		OutputDir:        "output",
		CreateIndex:      true,
		IncludeTOC:       true,
		IncludeSnippets:  true,
		Headers:          map[string]string{"User-Agent": DefaultUserAgent},
		FollowRedirects:  true,
		VerifySSL:        true,
		Extensions:       []string{".md", ".py"},
		RepositoryHost:   "github.com",
		RepositoryAPIURL: "https://api.github.com",
		CacheTTL:         24 * time.Hour,
		DetectLanguage:   true,
		CatalogPath:      filepath.Join("output", "catalog.db"),
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks option values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.Timeout < time.Millisecond {
		return fmt.Errorf("timeout must be at least 1ms, got %s", c.Timeout)
	}
	if c.MaxPages < 0 || c.MaxDepth < 0 {
		return errors.New("max_pages and max_depth must not be negative")
	}
	switch c.OutputFormat {
	case FormatMarkdown, FormatJSON:
	default:
		return fmt.Errorf("unknown output_format %q (want markdown or json)", c.OutputFormat)
	}
	if c.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	return nil
}
