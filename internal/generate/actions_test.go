package generate

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/docbundle/internal/common"
	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/catalog"
	"github.com/dtnitsch/docbundle/pkg/docgen"
	"github.com/dtnitsch/docbundle/pkg/manifest"
	"github.com/dtnitsch/docbundle/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func docsSite(t *testing.T, brokenLink bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			links := `<a href="/install">Install</a>`
			if brokenLink {
				links += `<a href="/missing">Missing</a>`
			}
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><title>Welcome</title></head><body><main><h1>Welcome</h1>` + links + `</main></body></html>`))
		case "/install":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><title>Install</title></head><body><main><h1>Install</h1><p>Run it.</p></main></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) *models.Config {
	t.Helper()
	cfg := models.DefaultConfig()
	dir := t.TempDir()
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.CatalogPath = filepath.Join(dir, "catalog.db")
	cfg.Timeout = 5 * time.Second
	cfg.ContentSelector = "main"
	cfg.DetectLanguage = false
	return &cfg
}

func TestRunWritesBundleSummaryAndCatalog(t *testing.T) {
	srv := docsSite(t, false)
	cfg := testConfig(t)
	cfg.SplitPages = true

	out, err := Run(context.Background(), srv.URL, cfg, true, nil)
	require.NoError(t, err)
	assert.Equal(t, common.ExitOK, out.ExitCode)

	loc, err := docgen.ParseLocator(srv.URL, cfg.RepositoryHost)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, loc.SiteName()), out.Dir)

	for _, name := range []string{render.IndexMarkdown, "docs/welcome.md", "docs/install.md", manifest.FileName} {
		_, err := os.Stat(filepath.Join(out.Dir, filepath.FromSlash(name)))
		assert.NoError(t, err, name)
	}

	data, err := os.ReadFile(filepath.Join(out.Dir, manifest.FileName))
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, yaml.Unmarshal(data, &summary))
	assert.Equal(t, 2, summary["pages"])
	assert.Equal(t, 3, summary["files_written"])

	require.NotNil(t, out.Run)
	cat, err := catalog.Open(cfg.CatalogPath)
	require.NoError(t, err)
	defer cat.Close()
	got, err := cat.GetRun(out.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PageCount)
	assert.Equal(t, render.LayoutSplit, got.Layout)
	assert.Equal(t, out.Dir, got.OutputDir)
}

func TestRunPartialFailure(t *testing.T) {
	srv := docsSite(t, true)
	cfg := testConfig(t)

	out, err := Run(context.Background(), srv.URL, cfg, false, nil)
	require.NoError(t, err)
	assert.Equal(t, common.ExitPartial, out.ExitCode)
	assert.Nil(t, out.Run)
	assert.Equal(t, 1, out.Result.Summary.FailureCount())

	_, err = os.Stat(filepath.Join(out.Dir, render.CombinedMarkdown))
	assert.NoError(t, err)

	var buf bytes.Buffer
	PrintOutcome(&buf, out)
	assert.Contains(t, buf.String(), "status=1")
	assert.Contains(t, buf.String(), out.Dir)
}

func TestRunFatal(t *testing.T) {
	cfg := testConfig(t)
	_, err := Run(context.Background(), "ftp://nowhere", cfg, false, nil)
	assert.ErrorIs(t, err, docgen.ErrInvalidLocator)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	srv := docsSite(t, false)
	cfg.OutputDir = blocker
	_, err = Run(context.Background(), srv.URL, cfg, false, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not writable"), err.Error())
}
