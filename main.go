package main

import (
	"fmt"
	"os"

	"github.com/dtnitsch/docbundle/internal/bundles"
	"github.com/dtnitsch/docbundle/internal/common"
	"github.com/dtnitsch/docbundle/internal/discover"
	"github.com/dtnitsch/docbundle/internal/generate"
	"github.com/dtnitsch/docbundle/models"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(common.ExitFatal)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "docbundle",
		Usage:   "Turn a documentation website or source repository into a portable markdown or JSON bundle",
		Version: models.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors; skip the summary table"},
			&cli.BoolFlag{Name: "verbose", Usage: "log debug details"},
		},
		Commands: []*cli.Command{
			{
				Name:      "generate",
				Aliases:   []string{"gen"},
				Usage:     "Crawl a website or walk a repository and write its documentation bundle",
				ArgsUsage: "<url | host/owner/repo[/tree/branch]>",
				Flags:     generate.Flags(),
				Action:    generate.GenerateAction,
			},
			{
				Name:      "discover",
				Usage:     "Sample a source and group its paths into candidate match patterns",
				ArgsUsage: "<url | host/owner/repo>",
				Flags:     discover.Flags(),
				Action:    discover.DiscoverAction,
			},
			{
				Name:  "list",
				Usage: "List generated bundles",
				Flags: append(bundles.Flags(),
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "number of bundles to show (0 = all)"},
				),
				Action: bundles.ListAction,
			},
			{
				Name:      "show",
				Usage:     "Show a bundle's files and run summary",
				ArgsUsage: "<id>",
				Flags:     bundles.Flags(),
				Action:    bundles.ShowAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a bundle directory and its catalog entry",
				ArgsUsage: "<id>",
				Flags: append(bundles.Flags(),
					&cli.BoolFlag{Name: "keep-files", Usage: "only remove the catalog entry"},
				),
				Action: bundles.DeleteAction,
			},
		},
	}
}
