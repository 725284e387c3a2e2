package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dtnitsch/docbundle/internal/common"
	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/catalog"
	"github.com/dtnitsch/docbundle/pkg/docgen"
	"github.com/dtnitsch/docbundle/pkg/manifest"
	"github.com/dtnitsch/docbundle/pkg/render"
	"github.com/dtnitsch/docbundle/pkg/storage"
	"github.com/urfave/cli/v2"
)

// Flags are the generate options: the shared run options plus catalog control.
func Flags() []cli.Flag {
	return append(common.ConfigFlags(),
		&cli.BoolFlag{Name: "no-catalog", Usage: "do not record the bundle in the catalog"},
	)
}

// Outcome is what one generate run produced.
type Outcome struct {
	Result   *docgen.Result
	Dir      string
	Files    []string
	Run      *catalog.Run
	ExitCode int
}

func GenerateAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	locator := common.SanitizeLocator(c.Args().First())
	if locator == "" {
		fmt.Fprintln(os.Stderr, "Error: No locator provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  docbundle generate https://docs.example.com/guide`)
		fmt.Fprintln(os.Stderr, `  docbundle generate github.com/owner/repo --ext .md --split`)
		return cli.Exit("", common.ExitFatal)
	}

	cfg, err := common.LoadConfig(c)
	if err != nil {
		return common.Fatal(logger, "failed to load config", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := Run(ctx, locator, cfg, !c.Bool("no-catalog"), logger)
	if err != nil {
		return common.Fatal(logger, "generate failed", err)
	}
	if !c.Bool("quiet") {
		PrintOutcome(os.Stdout, out)
	}
	if out.ExitCode != common.ExitOK {
		return cli.Exit("", out.ExitCode)
	}
	return nil
}

// Run processes locator, writes the bundle and its summary under
// <output_dir>/<site name>, and records it in the catalog when record is set.
// An interrupted run still writes what it collected and reports a partial exit.
func Run(ctx context.Context, locator string, cfg *models.Config, record bool, logger *slog.Logger) (*Outcome, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res, err := docgen.Process(ctx, locator, cfg, logger)
	interrupted := err != nil && res != nil && res.Documentation != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
	if err != nil && !interrupted {
		return nil, err
	}
	if interrupted {
		logger.Warn("Run interrupted, writing partial bundle", "pages", len(res.Documentation.Pages), "error", err)
	}

	bundle, err := render.Render(res.Documentation, render.OptionsFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	dir := res.Locator.OutputDir(cfg)
	store, files, err := storage.WriteBundle(dir, bundle)
	if err != nil {
		return nil, err
	}

	res.Summary.FilesWritten = len(files)
	res.Summary.OutputDir = dir
	if data, err := res.Summary.Marshal(); err != nil {
		logger.Warn("Failed to marshal summary", "error", err)
	} else if err := store.SaveFile(manifest.FileName, data); err != nil {
		logger.Warn("Failed to write summary", "error", err)
	}

	out := &Outcome{Result: res, Dir: dir, Files: files, ExitCode: common.ExitOK}
	if interrupted || res.Summary.HasFailures() {
		out.ExitCode = common.ExitPartial
	}

	if record {
		out.Run = recordRun(cfg, res, dir, logger)
	}
	logger.Info("Bundle written", "dir", dir, "pages", len(res.Documentation.Pages), "files", len(files), "failures", res.Summary.FailureCount())
	return out, nil
}

func recordRun(cfg *models.Config, res *docgen.Result, dir string, logger *slog.Logger) *catalog.Run {
	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		logger.Warn("Failed to open catalog", "path", cfg.CatalogPath, "error", err)
		return nil
	}
	defer cat.Close()

	opts := render.OptionsFromConfig(cfg)
	run := &catalog.Run{
		Source:       res.Locator.URL,
		Kind:         string(res.Locator.Kind),
		SiteName:     res.Locator.SiteName(),
		OutputDir:    dir,
		Format:       opts.Format,
		Layout:       opts.Layout,
		PageCount:    len(res.Documentation.Pages),
		FailureCount: res.Summary.FailureCount(),
	}
	if err := cat.RecordRun(run); err != nil {
		logger.Warn("Failed to record bundle in catalog", "error", err)
		return nil
	}
	return run
}

// PrintOutcome writes a short human summary of out to w.
func PrintOutcome(w io.Writer, out *Outcome) {
	s := out.Result.Summary
	t := common.NewTable(w)
	t.AppendHeader([]interface{}{"Source", "Kind", "Pages", "Files", "Failures", "Duration"})
	t.AppendRow([]interface{}{out.Result.Locator.URL, out.Result.Locator.Kind, s.Pages, len(out.Files), s.FailureCount(), s.Duration})
	t.Render()

	if kinds := s.Kinds(); len(kinds) > 0 {
		parts := make([]string, 0, len(kinds))
		for _, k := range kinds {
			parts = append(parts, fmt.Sprintf("%s=%d", k, s.Count(k)))
		}
		fmt.Fprintf(w, "Failures by kind: %s (details in %s)\n", strings.Join(parts, ", "), manifest.FileName)
	}
	fmt.Fprintf(w, "Bundle: %s\n", out.Dir)
	if out.Run != nil {
		fmt.Fprintf(w, "Catalog id: %s\n", out.Run.ID)
	}
}
