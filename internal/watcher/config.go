// Package watcher synchronizes environment variables with .env-style
// files using filesystem notifications.
package watcher

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SyncMode controls which direction changes flow.
type SyncMode string

const (
	// WatchOnly observes and logs changes without applying them.
	WatchOnly SyncMode = "watch"
	// FileToSystem applies file changes to the environment.
	FileToSystem SyncMode = "file-to-system"
	// SystemToFile writes environment changes back to the output file.
	SystemToFile SyncMode = "system-to-file"
	// Bidirectional syncs both ways.
	Bidirectional SyncMode = "bidirectional"
)

// ConflictStrategy resolves simultaneous changes in bidirectional mode.
type ConflictStrategy string

const (
	UseLatest    ConflictStrategy = "latest"
	PreferFile   ConflictStrategy = "file"
	PreferSystem ConflictStrategy = "system"
	AskUser      ConflictStrategy = "ask"
)

// DefaultDebounce coalesces rapid filesystem events.
const DefaultDebounce = 300 * time.Millisecond

// Config describes a watch session. It can be loaded from YAML via
// pkg/config.
type Config struct {
	Paths      []string         `yaml:"paths"`
	Mode       SyncMode         `yaml:"mode"`
	AutoReload bool             `yaml:"auto_reload"`
	DebounceMS int              `yaml:"debounce_ms"`
	Patterns   []string         `yaml:"patterns"`
	Output     string           `yaml:"output"`
	Filter     []string         `yaml:"filter"`
	LogChanges bool             `yaml:"log_changes"`
	Conflict   ConflictStrategy `yaml:"conflict_strategy"`
}

// DefaultConfig returns the documented defaults: watch the current
// directory, apply file changes to the system, debounce 300ms.
func DefaultConfig() Config {
	return Config{
		Paths:      []string{"."},
		Mode:       FileToSystem,
		AutoReload: true,
		DebounceMS: int(DefaultDebounce / time.Millisecond),
		Patterns:   []string{"*.env", ".env.*", "*.yaml", "*.yml", "*.toml"},
		LogChanges: true,
		Conflict:   UseLatest,
	}
}

// Debounce returns the debounce duration, falling back to the default.
func (c *Config) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return DefaultDebounce
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Validate validates the watch configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Paths, validation.Required),
		validation.Field(&c.Mode, validation.Required, validation.In(
			WatchOnly, FileToSystem, SystemToFile, Bidirectional,
		)),
		validation.Field(&c.Conflict, validation.In(
			ConflictStrategy(""), UseLatest, PreferFile, PreferSystem, AskUser,
		)),
	)
}
