package discover

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dtnitsch/docbundle/internal/common"
	"github.com/dtnitsch/docbundle/models"
	"github.com/dtnitsch/docbundle/pkg/discovery"
	"github.com/dtnitsch/docbundle/pkg/docgen"
	"github.com/dtnitsch/docbundle/pkg/repository"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Flags are the discover options.
func Flags() []cli.Flag {
	return append(common.ConfigFlags(),
		&cli.IntFlag{Name: "max-urls", Value: 200, Usage: "stop sampling after this many paths"},
		&cli.BoolFlag{Name: "yaml", Usage: "print patterns as YAML"},
	)
}

func DiscoverAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	locator := common.SanitizeLocator(c.Args().First())
	if locator == "" {
		fmt.Fprintln(os.Stderr, "Usage: docbundle discover <url | host/owner/repo>")
		return cli.Exit("", common.ExitFatal)
	}
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return common.Fatal(logger, "failed to load config", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	patterns, err := Run(ctx, locator, cfg, discovery.Options{MaxDepth: cfg.MaxDepth, MaxURLs: c.Int("max-urls")}, logger)
	if err != nil {
		return common.Fatal(logger, "discover failed", err)
	}

	if c.Bool("yaml") {
		data, err := yaml.Marshal(patterns)
		if err != nil {
			return common.Fatal(logger, "failed to marshal patterns", err)
		}
		fmt.Print(string(data))
		return nil
	}
	PrintPatterns(os.Stdout, patterns)
	return nil
}

// Run samples locator with the fetch settings of cfg.
func Run(ctx context.Context, locator string, cfg *models.Config, opts discovery.Options, logger *slog.Logger) ([]discovery.Pattern, error) {
	f, err := docgen.NewFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}
	walker := repository.NewWalker(docgen.NewClient(f, cfg), repository.Options{Concurrency: cfg.Concurrency, Logger: logger})
	return discovery.New(f, walker, cfg.RepositoryHost, logger).Discover(ctx, locator, opts)
}

// shownExamples caps the examples printed per pattern.
const shownExamples = 3

// PrintPatterns renders patterns as a table with a suggested match flag.
func PrintPatterns(w io.Writer, patterns []discovery.Pattern) {
	if len(patterns) == 0 {
		fmt.Fprintln(w, "No paths found")
		return
	}
	t := common.NewTable(w)
	t.AppendHeader([]interface{}{"Pattern", "Count", "Examples"})
	for _, p := range patterns {
		t.AppendRow([]interface{}{p.Pattern, p.Count, exampleCell(p.Examples)})
	}
	t.Render()
	fmt.Fprintf(w, "\nTip: pass a pattern to 'docbundle generate --match' or '--exclude'\n")
}

func exampleCell(examples []string) string {
	if len(examples) <= shownExamples {
		return strings.Join(examples, "\n")
	}
	return strings.Join(examples[:shownExamples], "\n") + fmt.Sprintf("\n(+%d more)", len(examples)-shownExamples)
}
