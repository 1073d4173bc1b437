// Package envfile parses and emits environment variable files in the
// dotenv, JSON, YAML, plain-text, POSIX shell, and PowerShell formats.
package envfile

import (
	"path/filepath"
	"strings"
)

// Format tags a file format.
type Format string

const (
	FormatDotenv     Format = "dotenv"
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatText       Format = "text"
	FormatShell      Format = "shell"
	FormatPowerShell Format = "powershell"
)

// ParseFormat resolves an explicit format tag.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "dotenv", "env":
		return FormatDotenv, true
	case "json":
		return FormatJSON, true
	case "yaml", "yml":
		return FormatYAML, true
	case "text", "txt":
		return FormatText, true
	case "shell", "sh", "bash":
		return FormatShell, true
	case "powershell", "ps1":
		return FormatPowerShell, true
	}
	return "", false
}

// DetectFormat picks a format from a file path. Dotfiles whose name
// mentions env (.env, .envrc, .env.local) are dotenv; everything
// unrecognized falls back to plain text.
func DetectFormat(path string) Format {
	base := filepath.Base(path)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	switch ext {
	case "env":
		return FormatDotenv
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "txt", "text":
		return FormatText
	case "sh", "bash":
		return FormatShell
	case "ps1", "psm1":
		return FormatPowerShell
	}
	if strings.HasPrefix(base, ".") && strings.Contains(strings.ToLower(base), "env") {
		return FormatDotenv
	}
	return FormatText
}
