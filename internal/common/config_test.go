package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/docbundle/models"
	"github.com/urfave/cli/v2"
)

// runWithFlags parses args against ConfigFlags and returns the loaded config.
func runWithFlags(t *testing.T, args ...string) *models.Config {
	t.Helper()
	var got *models.Config
	app := &cli.App{
		Flags: ConfigFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := LoadConfig(c)
			if err != nil {
				return err
			}
			got = cfg
			return nil
		},
	}
	if err := app.Run(append([]string{"docbundle"}, args...)); err != nil {
		t.Fatalf("app.Run() error = %v", err)
	}
	return got
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	t.Setenv(TokenEnv, "secret-token")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("concurrency: 5\nmax_pages: 10\nexclude: [\"/blog\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := runWithFlags(t,
		"--config", path,
		"--max-pages", "3",
		"--match", "/docs/*",
		"--match", "/api",
		"--split",
		"--no-toc",
		"--timeout", "5s",
		"--insecure",
	)

	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5 from file", cfg.Concurrency)
	}
	if cfg.MaxPages != 3 {
		t.Errorf("MaxPages = %d, want 3 from flag", cfg.MaxPages)
	}
	if len(cfg.Match) != 2 || cfg.Match[0] != "/docs/*" {
		t.Errorf("Match = %v", cfg.Match)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "/blog" {
		t.Errorf("Exclude = %v, want [/blog] from file", cfg.Exclude)
	}
	if !cfg.SplitPages || cfg.IncludeTOC || cfg.VerifySSL {
		t.Errorf("SplitPages=%v IncludeTOC=%v VerifySSL=%v", cfg.SplitPages, cfg.IncludeTOC, cfg.VerifySSL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", cfg.Timeout)
	}
	if cfg.RepositoryToken != "secret-token" {
		t.Errorf("RepositoryToken = %q, want value from %s", cfg.RepositoryToken, TokenEnv)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(TokenEnv, "")
	cfg := runWithFlags(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	want := models.DefaultConfig()
	if cfg.Concurrency != want.Concurrency || cfg.OutputFormat != want.OutputFormat || !cfg.CreateIndex {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigRejectsInvalidFlags(t *testing.T) {
	app := &cli.App{
		Flags: ConfigFlags(),
		Action: func(c *cli.Context) error {
			_, err := LoadConfig(c)
			return err
		},
	}
	err := app.Run([]string{"docbundle", "--config", filepath.Join(t.TempDir(), "none.yaml"), "--format", "pdf"})
	if err == nil {
		t.Error("expected an error for an unknown format")
	}
}
