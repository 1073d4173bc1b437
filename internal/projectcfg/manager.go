package projectcfg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
	"github.com/mikeleppane/envx-sub000/internal/envstore"
	"github.com/mikeleppane/envx-sub000/internal/profile"
)

const (
	// ConfigDir holds all project-local envx state.
	ConfigDir = ".envx"
	// ConfigFile is the project config document inside ConfigDir.
	ConfigFile = "config.yaml"
)

var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const defaultConfigTemplate = `# envx project configuration
name: %s

# Variables this project requires.
required: []

# Defaults applied only when the variable is not already set.
defaults: {}

# Files loaded automatically on apply.
auto_load:
  - .env

validation:
  warn_unused: false
  strict_names: true

inherit: true
`

const gitignoreContent = "local/\n*.local.yaml\n"

// Store is the subset of the variable store the project layer needs.
type Store interface {
	Set(name, value string, persistent bool) error
	Get(name string) (*envstore.Variable, bool)
	List() []*envstore.Variable
}

// Profiles is the subset of the profile manager the project layer needs.
type Profiles interface {
	Switch(name string) error
	Apply(name string, setter profile.Setter) error
}

// Init scaffolds .envx/config.yaml in dir and returns the config path.
func Init(dir, projectName string) (string, error) {
	cfgDir := filepath.Join(dir, ConfigDir)
	cfgPath := filepath.Join(cfgDir, ConfigFile)
	if _, err := os.Stat(cfgPath); err == nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, cfgPath)
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("projectcfg: create %s: %w", cfgDir, err)
	}
	if projectName == "" {
		projectName = filepath.Base(dir)
	}
	content := fmt.Sprintf(defaultConfigTemplate, projectName)
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("projectcfg: write %s: %w", cfgPath, err)
	}
	ignorePath := filepath.Join(cfgDir, ".gitignore")
	if err := os.WriteFile(ignorePath, []byte(gitignoreContent), 0o644); err != nil {
		return "", fmt.Errorf("projectcfg: write %s: %w", ignorePath, err)
	}
	return cfgPath, nil
}

// Discover walks upward from start looking for .envx/config.yaml and
// returns the directory it was found in together with the parsed config.
func Discover(start string) (string, *Config, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", nil, fmt.Errorf("projectcfg: resolve %s: %w", start, err)
	}
	for {
		cfgPath := filepath.Join(dir, ConfigDir, ConfigFile)
		if _, err := os.Stat(cfgPath); err == nil {
			cfg, err := LoadFile(cfgPath)
			if err != nil {
				return "", nil, err
			}
			return dir, cfg, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, fmt.Errorf("%w: no %s/%s found above %s", apperr.ErrNotFound, ConfigDir, ConfigFile, start)
		}
		dir = parent
	}
}

// Apply activates the project environment: switches to the configured
// profile, loads auto_load files, and fills in defaults for variables
// that are not already set.
func (c *Config) Apply(dir string, store Store, profiles Profiles) error {
	if c.Profile != "" && profiles != nil {
		if err := profiles.Switch(c.Profile); err != nil {
			return err
		}
		if err := profiles.Apply(c.Profile, store); err != nil {
			return err
		}
	}
	for _, rel := range c.AutoLoad {
		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, rel)
		}
		if _, err := os.Stat(path); err != nil {
			slog.Debug("auto_load file missing, skipping", "path", path)
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", apperr.ErrParse, path, err)
		}
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := store.Set(name, values[name], true); err != nil {
				return err
			}
		}
	}
	names := make([]string, 0, len(c.Defaults))
	for name := range c.Defaults {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := store.Get(name); ok {
			continue
		}
		if err := store.Set(name, c.Defaults[name], true); err != nil {
			return err
		}
	}
	return nil
}

// MissingVar describes a required variable that is not set.
type MissingVar struct {
	Name        string
	Description string
	Example     string
}

// ValidationError describes a variable whose value failed a rule.
type ValidationError struct {
	Name    string
	Message string
}

// Report is the outcome of validating the current environment against
// the project config.
type Report struct {
	Found    int
	Missing  []MissingVar
	Errors   []ValidationError
	Warnings []string
}

// Success reports whether the environment satisfies the config.
func (r *Report) Success() bool {
	return len(r.Missing) == 0 && len(r.Errors) == 0
}

// CheckEnvironment validates the store against required variables,
// value patterns, and naming rules.
func (c *Config) CheckEnvironment(store Store) *Report {
	report := &Report{}
	for _, req := range c.Required {
		v, ok := store.Get(req.Name)
		if !ok {
			report.Missing = append(report.Missing, MissingVar{
				Name:        req.Name,
				Description: req.Description,
				Example:     req.Example,
			})
			continue
		}
		report.Found++
		if req.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(req.Pattern)
		if err != nil {
			report.Errors = append(report.Errors, ValidationError{
				Name:    req.Name,
				Message: fmt.Sprintf("invalid pattern %q: %v", req.Pattern, err),
			})
			continue
		}
		if !re.MatchString(v.Value) {
			report.Errors = append(report.Errors, ValidationError{
				Name:    req.Name,
				Message: fmt.Sprintf("value does not match pattern %q", req.Pattern),
			})
		}
	}
	for glob, pattern := range c.Validation.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		for _, req := range c.Required {
			matched, merr := envstore.MatchPattern(glob, req.Name)
			if merr != nil || !matched {
				continue
			}
			if v, ok := store.Get(req.Name); ok && !re.MatchString(v.Value) {
				report.Errors = append(report.Errors, ValidationError{
					Name:    req.Name,
					Message: fmt.Sprintf("value does not match rule %q for %q", pattern, glob),
				})
			}
		}
	}
	if c.Validation.StrictNames {
		for _, v := range store.List() {
			if !nameRe.MatchString(v.Name) {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("%s: name does not follow POSIX conventions", v.Name))
			}
		}
	}
	return report
}

// RunScript executes a named script from the config through the
// platform shell, with the script's env entries set for the child only.
func (c *Config) RunScript(ctx context.Context, dir, name string, stdout, stderr *os.File) error {
	script, ok := c.Scripts[name]
	if !ok {
		available := make([]string, 0, len(c.Scripts))
		for n := range c.Scripts {
			available = append(available, n)
		}
		sort.Strings(available)
		return fmt.Errorf("%w: script %q (available: %s)", apperr.ErrNotFound, name, strings.Join(available, ", "))
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", script.Run)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", script.Run)
	}
	cmd.Dir = dir
	cmd.Env = os.Environ()
	names := make([]string, 0, len(script.Env))
	for n := range script.Env {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		cmd.Env = append(cmd.Env, n+"="+script.Env[n])
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("projectcfg: script %s: %w", name, err)
	}
	return nil
}
