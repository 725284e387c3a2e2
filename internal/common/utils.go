package common

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
)

// Process exit codes.
const (
	ExitOK      = 0
	ExitPartial = 1
	ExitFatal   = 2
)

var markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\(([^)\s]+)\)$`)

// NewLogger builds the JSON stderr logger for a command from its
// --quiet and --verbose flags.
func NewLogger(c *cli.Context) *slog.Logger {
	return newLogger(os.Stderr, c.Bool("quiet"), c.Bool("verbose"))
}

func newLogger(w io.Writer, quiet, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch {
	case quiet:
		logLevel = slog.LevelError
	case verbose:
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// SanitizeLocator performs basic cleanup on a pasted root locator.
// Removes whitespace, markdown link syntax and surrounding punctuation.
func SanitizeLocator(raw string) string {
	cleaned := strings.TrimSpace(raw)

	// [text](https://example.com) -> https://example.com
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	trailingChars := []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}
	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// NewTable returns a light-styled table writer mirrored to w.
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// Fatal logs err and returns a cli exit error with ExitFatal.
func Fatal(logger *slog.Logger, msg string, err error) error {
	logger.Error(msg, "error", err)
	return cli.Exit("", ExitFatal)
}
