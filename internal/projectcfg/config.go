// Package projectcfg loads, validates, and applies the per-project
// .envx/config.yaml document.
package projectcfg

import (
	"fmt"
	"os"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/mikeleppane/envx-sub000/internal/apperr"
)

// RequiredVar declares one variable the project needs.
type RequiredVar struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Pattern     string `yaml:"pattern,omitempty"`
	Example     string `yaml:"example,omitempty"`
}

// Validate validates the declaration.
func (r *RequiredVar) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
	); err != nil {
		return err
	}
	if r.Pattern != "" {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("%w: required %s: %v", apperr.ErrInvalidPattern, r.Name, err)
		}
	}
	return nil
}

// Script is a named command with extra environment entries.
type Script struct {
	Description string            `yaml:"description,omitempty"`
	Run         string            `yaml:"run"`
	Env         map[string]string `yaml:"env,omitempty"`
}

// Validate validates the script.
func (s *Script) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Run, validation.Required),
	)
}

// Rules configures project validation behavior.
type Rules struct {
	WarnUnused  bool              `yaml:"warn_unused"`
	StrictNames bool              `yaml:"strict_names"`
	Patterns    map[string]string `yaml:"patterns,omitempty"`
}

// Config is the .envx/config.yaml schema.
type Config struct {
	Name        string            `yaml:"name,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Required    []RequiredVar     `yaml:"required,omitempty"`
	Defaults    map[string]string `yaml:"defaults,omitempty"`
	AutoLoad    []string          `yaml:"auto_load"`
	Profile     string            `yaml:"profile,omitempty"`
	Scripts     map[string]Script `yaml:"scripts,omitempty"`
	Validation  Rules             `yaml:"validation"`
	Inherit     bool              `yaml:"inherit"`
}

// NewDefaultConfig returns a config with the documented defaults.
func NewDefaultConfig() *Config {
	return &Config{
		AutoLoad: []string{".env"},
		Inherit:  true,
	}
}

// Validate validates the whole document.
func (c *Config) Validate() error {
	for i := range c.Required {
		if err := c.Required[i].Validate(); err != nil {
			return err
		}
	}
	for name, s := range c.Scripts {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("script %s: %w", name, err)
		}
	}
	for glob, pattern := range c.Validation.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: validation pattern for %s: %v", apperr.ErrInvalidPattern, glob, err)
		}
	}
	return nil
}

// Parse decodes and validates a config document.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: project config: %v", apperr.ErrParse, err)
	}
	if len(cfg.AutoLoad) == 0 {
		cfg.AutoLoad = []string{".env"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses a config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projectcfg: read %s: %w", path, err)
	}
	return Parse(data)
}
