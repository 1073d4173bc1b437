package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Name string `yaml:"name"`
	Home string `yaml:"home"`
}

type validatedConfig struct {
	Count int `yaml:"count"`
}

var errBadCount = errors.New("count must be positive")

func (c *validatedConfig) Validate() error {
	if c.Count <= 0 {
		return errBadCount
	}
	return nil
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("CONFIG_TEST_HOME", "/home/test")
	path := writeYAML(t, "name: app\nhome: ${CONFIG_TEST_HOME}\n")

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "app" || cfg.Home != "/home/test" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	path := writeYAML(t, "count: 0\n")

	var cfg validatedConfig
	err := Load(path, &cfg)
	if !errors.Is(err, errBadCount) {
		t.Errorf("err = %v, want errBadCount", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg testConfig
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "read") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadIfExists(t *testing.T) {
	cfg := testConfig{Name: "default"}
	if err := LoadIfExists(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err != nil {
		t.Fatalf("LoadIfExists: %v", err)
	}
	if cfg.Name != "default" {
		t.Errorf("defaults overwritten: %+v", cfg)
	}

	path := writeYAML(t, "name: loaded\n")
	if err := LoadIfExists(path, &cfg); err != nil {
		t.Fatalf("LoadIfExists: %v", err)
	}
	if cfg.Name != "loaded" {
		t.Errorf("cfg = %+v", cfg)
	}
}
