package repository

import (
	"path"
	"strings"
)

var languagesByExt = map[string]string{
	".py":   "python",
	".go":   "go",
	".js":   "javascript",
	".ts":   "typescript",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".sh":   "bash",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".toml": "toml",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".md":   "markdown",
	".rst":  "rst",
	".txt":  "text",
}

// LanguageFor maps a file name to a code-fence language, "text" when unknown.
func LanguageFor(name string) string {
	if lang, ok := languagesByExt[strings.ToLower(path.Ext(name))]; ok {
		return lang
	}
	return "text"
}

func isMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
