package common

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSanitizeLocator(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  https://example.com/docs  ", "https://example.com/docs"},
		{"https://example.com/docs,", "https://example.com/docs"},
		{"(https://example.com)", "https://example.com"},
		{"<https://example.com/a>", "https://example.com/a"},
		{"[the docs](https://example.com/guide)", "https://example.com/guide"},
		{"\"github.com/o/r\"", "github.com/o/r"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeLocator(tt.in); got != tt.want {
			t.Errorf("SanitizeLocator(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name           string
		quiet, verbose bool
		want           slog.Level
	}{
		{"default", false, false, slog.LevelInfo},
		{"quiet", true, false, slog.LevelError},
		{"verbose", false, true, slog.LevelDebug},
		{"quiet wins", true, true, slog.LevelError},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := newLogger(&buf, tt.quiet, tt.verbose)
		for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
			if got, want := logger.Enabled(context.Background(), lvl), lvl >= tt.want; got != want {
				t.Errorf("%s: Enabled(%v) = %v, want %v", tt.name, lvl, got, want)
			}
		}
	}
}

func TestNewTable(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTable(&buf)
	tw.AppendHeader([]interface{}{"Name", "Count"})
	tw.AppendRow([]interface{}{"pages", 3})
	tw.Render()

	out := buf.String()
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "pages") {
		t.Errorf("table output missing content:\n%s", out)
	}
}
