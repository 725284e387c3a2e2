package common

import (
	"fmt"
	"os"

	"github.com/dtnitsch/docbundle/models"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// TokenEnv names the environment variable holding the repository API token.
const TokenEnv = "GITHUB_TOKEN"

// ConfigFlags are the run options shared by generate and discover. Flags
// that are set override values from the config file.
func ConfigFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "YAML config file (missing file = defaults)"},
		&cli.IntFlag{Name: "concurrency", Aliases: []string{"k"}, Usage: "maximum concurrent requests"},
		&cli.DurationFlag{Name: "timeout", Usage: "per-request timeout"},
		&cli.StringSliceFlag{Name: "match", Aliases: []string{"m"}, Usage: "include pattern (repeatable)"},
		&cli.StringSliceFlag{Name: "exclude", Aliases: []string{"x"}, Usage: "exclude pattern (repeatable)"},
		&cli.StringFlag{Name: "selector", Usage: "CSS selector for the main content"},
		&cli.IntFlag{Name: "max-pages", Usage: "stop after this many pages (0 = unlimited)"},
		&cli.IntFlag{Name: "max-depth", Usage: "maximum link depth (0 = unlimited)"},
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format: markdown or json"},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "directory that receives <site name>/ bundles"},
		&cli.BoolFlag{Name: "split", Usage: "write one file per page plus an index"},
		&cli.BoolFlag{Name: "no-index", Usage: "do not write an index for split output"},
		&cli.BoolFlag{Name: "no-toc", Usage: "omit tables of contents"},
		&cli.BoolFlag{Name: "no-snippets", Usage: "omit code snippet appendices"},
		&cli.BoolFlag{Name: "no-redirects", Usage: "do not follow redirects"},
		&cli.BoolFlag{Name: "insecure", Usage: "skip TLS certificate verification"},
		&cli.Float64Flag{Name: "rate-limit", Usage: "requests per second (0 = unlimited)"},
		&cli.BoolFlag{Name: "robots", Usage: "honor robots.txt"},
		&cli.StringFlag{Name: "cache-dir", Usage: "cache fetched pages in this directory"},
		&cli.DurationFlag{Name: "cache-ttl", Usage: "maximum age of cached pages"},
		&cli.StringSliceFlag{Name: "ext", Usage: "repository file extension to include (repeatable)"},
		&cli.StringFlag{Name: "catalog", Usage: "bundle catalog database path"},
	}
}

// LoadConfig reads .env (if present), the config file and the set flags.
// The repository token comes from GITHUB_TOKEN.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	ApplyFlags(c, &cfg)
	if token := os.Getenv(TokenEnv); token != "" {
		cfg.RepositoryToken = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ApplyFlags copies every set flag onto cfg.
func ApplyFlags(c *cli.Context, cfg *models.Config) {
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("match") {
		cfg.Match = c.StringSlice("match")
	}
	if c.IsSet("exclude") {
		cfg.Exclude = c.StringSlice("exclude")
	}
	if c.IsSet("selector") {
		cfg.ContentSelector = c.String("selector")
	}
	if c.IsSet("max-pages") {
		cfg.MaxPages = c.Int("max-pages")
	}
	if c.IsSet("max-depth") {
		cfg.MaxDepth = c.Int("max-depth")
	}
	if c.IsSet("format") {
		cfg.OutputFormat = c.String("format")
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("split") {
		cfg.SplitPages = c.Bool("split")
	}
	if c.Bool("no-index") {
		cfg.CreateIndex = false
	}
	if c.Bool("no-toc") {
		cfg.IncludeTOC = false
	}
	if c.Bool("no-snippets") {
		cfg.IncludeSnippets = false
	}
	if c.Bool("no-redirects") {
		cfg.FollowRedirects = false
	}
	if c.Bool("insecure") {
		cfg.VerifySSL = false
	}
	if c.IsSet("rate-limit") {
		cfg.RateLimit = c.Float64("rate-limit")
	}
	if c.IsSet("robots") {
		cfg.RespectRobots = c.Bool("robots")
	}
	if c.IsSet("cache-dir") {
		cfg.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("cache-ttl") {
		cfg.CacheTTL = c.Duration("cache-ttl")
	}
	if c.IsSet("ext") {
		cfg.Extensions = c.StringSlice("ext")
	}
	if c.IsSet("catalog") {
		cfg.CatalogPath = c.String("catalog")
	}
}
