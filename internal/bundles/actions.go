package bundles

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dtnitsch/docbundle/internal/common"
	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/catalog"
	"github.com/dtnitsch/docbundle/pkg/manifest"
	"github.com/dtnitsch/docbundle/pkg/storage"
	"github.com/urfave/cli/v2"
)

// Flags shared by list, show and delete.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "YAML config file (for catalog_path)"},
		&cli.StringFlag{Name: "catalog", Usage: "bundle catalog database path"},
	}
}

func openCatalog(c *cli.Context) (*catalog.Catalog, error) {
	path := c.String("catalog")
	if path == "" {
		cfg, err := models.LoadConfig(c.String("config"))
		if err != nil {
			return nil, err
		}
		path = cfg.CatalogPath
	}
	return catalog.Open(path)
}

func ListAction(c *cli.Context) error {
	cat, err := openCatalog(c)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	runs, err := cat.ListRuns(c.Int("limit"))
	if err != nil {
		return err
	}
	PrintRuns(os.Stdout, runs)
	return nil
}

// PrintRuns renders runs as a table.
func PrintRuns(w io.Writer, runs []catalog.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No bundles found")
		return
	}
	t := common.NewTable(w)
	t.AppendHeader([]interface{}{"ID", "Created", "Site", "Kind", "Format", "Layout", "Pages", "Failures"})
	for _, r := range runs {
		t.AppendRow([]interface{}{
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.SiteName,
			r.Kind,
			r.Format,
			r.Layout,
			r.PageCount,
			r.FailureCount,
		})
	}
	t.Render()
	fmt.Fprintf(w, "\nTotal: %d bundles\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'docbundle show <id>' to see details\n")
}

func ShowAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("Usage: docbundle show <id>", common.ExitFatal)
	}
	cat, err := openCatalog(c)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	run, err := cat.GetRun(id)
	if err != nil {
		return err
	}
	return ShowRun(os.Stdout, run)
}

// ShowRun prints the catalog entry, the bundle's files and its run summary.
func ShowRun(w io.Writer, run *catalog.Run) error {
	fmt.Fprintf(w, "Bundle %s\n", run.ID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Created:     %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Source:      %s (%s)\n", run.Source, run.Kind)
	fmt.Fprintf(w, "Directory:   %s\n", run.OutputDir)
	fmt.Fprintf(w, "Output:      %s, %s\n", run.Format, run.Layout)
	fmt.Fprintf(w, "Pages:       %d (%d failures)\n", run.PageCount, run.FailureCount)

	store, err := storage.Open(run.OutputDir)
	if err != nil {
		fmt.Fprintf(w, "\nBundle directory is missing: %v\n", err)
		return nil
	}
	files, err := store.List()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nFiles (%d):\n", len(files))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, f := range files {
		stats, err := store.GetFileStats(f)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %-40s %8d bytes\n", f, stats.SizeBytes)
	}

	if summary, err := store.ReadFile(manifest.FileName); err == nil {
		fmt.Fprintf(w, "\n%s:\n", manifest.FileName)
		fmt.Fprintln(w, strings.Repeat("-", 60))
		fmt.Fprint(w, string(summary))
	}
	return nil
}

func DeleteAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("Usage: docbundle delete <id>", common.ExitFatal)
	}
	cat, err := openCatalog(c)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	run, err := cat.GetRun(id)
	if err != nil {
		return err
	}
	if err := Delete(cat, run, c.Bool("keep-files")); err != nil {
		return err
	}
	fmt.Printf("Deleted bundle %s (%s)\n", shortID(run.ID), run.OutputDir)
	return nil
}

// Delete removes run's bundle directory (unless keepFiles) and its catalog entry.
// A directory that is already gone is not an error.
func Delete(cat *catalog.Catalog, run *catalog.Run, keepFiles bool) error {
	if !keepFiles {
		if _, err := os.Stat(run.OutputDir); err == nil {
			if err := storage.RemoveDir(run.OutputDir); err != nil {
				return err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error checking %s: %w", run.OutputDir, err)
		}
	}
	return cat.DeleteRun(run.ID)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
