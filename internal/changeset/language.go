package changeset

import (
	"path/filepath"
	"strings"
)

// extLanguages maps file extensions to the language names used for adapter
// lookup and bucket keys. The set intentionally covers only languages we
// have analysis adapters or review experience for; anything else reports
// an empty language and is reviewed without static analysis.
var extLanguages = map[string]string{
	".go":    "go",
	".py":    "python",
	".rs":    "rust",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".rb":    "ruby",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".sh":    "shell",
	".sql":   "sql",
}

// DetectLanguage returns the language for a file path based on its
// extension, or "" when unrecognized.
func DetectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return extLanguages[ext]
}
