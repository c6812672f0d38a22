// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package config handles the declarative webqa configuration: the project to
// environment endpoint mapping, runner settings and remote test hosts.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when no configuration file exists at the
// requested or default locations. Callers degrade to fallback-only behaviour.
var ErrConfigNotFound = errors.New("configuration file not found")

// EnvVar names the environment variable that can point at a config file.
const EnvVar = "WEBQA_CONFIG"

const (
	appDirName     = "webqa"
	configFileName = "config.yaml"
)

// For mocking in tests
var (
	osGetwd         = os.Getwd
	osUserConfigDir = os.UserConfigDir
)

// EnvironmentEndpoints holds the base URLs of one deployment tier.
type EnvironmentEndpoints struct {
	// UIURL is the base URL the browser tests open
	UIURL string `yaml:"ui_url" validate:"required,url"`

	// APIURL is the backend base URL used by API-level fixtures (optional)
	APIURL string `yaml:"api_url,omitempty" validate:"omitempty,url"`
}

// ProjectConfig describes one application under test.
type ProjectConfig struct {
	Environments map[string]EnvironmentEndpoints `yaml:"environments" validate:"dive,keys,required,endkeys"`
}

// RunnerSettings controls how the external test runner is invoked.
type RunnerSettings struct {
	// Command is the argv prefix of the runner, e.g. ["python", "-m", "pytest"]
	Command []string `yaml:"command,omitempty" validate:"omitempty,dive,required"`

	// TestDirs are searched for test modules, relative to the run root
	TestDirs []string `yaml:"test_dirs,omitempty"`

	// TestPatterns are glob patterns matched against file names during discovery
	TestPatterns []string `yaml:"test_patterns,omitempty"`

	// ReportsDir receives JUnit XML, HTML reports, screenshots and videos
	ReportsDir string `yaml:"reports_dir,omitempty"`

	DefaultBrowser string `yaml:"default_browser,omitempty" validate:"omitempty,oneof=chromium firefox webkit chrome msedge"`

	// Workers is the pytest-xdist worker count; 0 disables distribution
	Workers int `yaml:"workers,omitempty" validate:"gte=0"`

	// Timeout is the per-test timeout in seconds; 0 disables it
	Timeout int `yaml:"timeout,omitempty" validate:"gte=0"`
}

// Host represents a remote machine that runs the suite over SSH.
type Host struct {
	// Name is the unique identifier for this host configuration
	Name string `yaml:"name" validate:"required"`

	// Hostname is the server address (IP or domain)
	Hostname string `yaml:"hostname" validate:"required"`

	// User is the SSH username for authentication
	User string `yaml:"user" validate:"required"`

	// Port is the SSH port number (optional, defaults to standard SSH port)
	Port int `yaml:"port,omitempty" validate:"gte=0,lte=65535"`

	// KeyPath is the path to the SSH private key file
	KeyPath string `yaml:"key_path,omitempty"`

	// Password is an optional authentication method (plaintext, discouraged)
	Password string `yaml:"password,omitempty"`

	// RemoteRoot is the checkout of the test suite on the remote host
	RemoteRoot string `yaml:"remote_root,omitempty"`

	// Disabled hosts are skipped by discovery and cannot be selected for runs
	Disabled bool `yaml:"disabled,omitempty"`
}

// Config represents the top-level application configuration
type Config struct {
	Projects map[string]ProjectConfig `yaml:"projects" validate:"dive,keys,required,endkeys"`
	Runner   RunnerSettings           `yaml:"runner,omitempty"`
	Hosts    []Host                   `yaml:"hosts,omitempty" validate:"dive"`
}

// DefaultRunnerSettings returns the settings used for every unset runner field.
func DefaultRunnerSettings() RunnerSettings {
	return RunnerSettings{
		Command:        []string{"pytest"},
		TestDirs:       []string{"tests", "pages"},
		TestPatterns:   []string{"test_*.py", "*_test.py"},
		ReportsDir:     "reports",
		DefaultBrowser: "chromium",
	}
}

// Default returns an empty configuration with default runner settings.
func Default() Config {
	return Config{
		Projects: map[string]ProjectConfig{},
		Runner:   DefaultRunnerSettings(),
	}
}

func (r RunnerSettings) withDefaults() RunnerSettings {
	d := DefaultRunnerSettings()
	if len(r.Command) == 0 {
		r.Command = d.Command
	}
	if len(r.TestDirs) == 0 {
		r.TestDirs = d.TestDirs
	}
	if len(r.TestPatterns) == 0 {
		r.TestPatterns = d.TestPatterns
	}
	if r.ReportsDir == "" {
		r.ReportsDir = d.ReportsDir
	}
	if r.DefaultBrowser == "" {
		r.DefaultBrowser = d.DefaultBrowser
	}
	return r
}

// Validate checks the configuration against its struct tags. Every endpoint
// entry needs an absolute ui_url; api_url is optional but must be a URL.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// Struct values of maps are not visited by dive, so endpoints are checked here.
	for _, project := range slices.Sorted(maps.Keys(c.Projects)) {
		envs := c.Projects[project].Environments
		for _, env := range slices.Sorted(maps.Keys(envs)) {
			if err := validate.Struct(envs[env]); err != nil {
				return fmt.Errorf("invalid configuration: project '%s' environment '%s': %w", project, env, err)
			}
		}
	}
	seen := make(map[string]bool, len(c.Hosts))
	for _, h := range c.Hosts {
		if seen[h.Name] {
			return fmt.Errorf("invalid configuration: duplicate host name '%s'", h.Name)
		}
		seen[h.Name] = true
	}
	return nil
}

// FindHost returns the enabled host with the given name.
func (c Config) FindHost(name string) (Host, error) {
	for _, h := range c.Hosts {
		if h.Name != name {
			continue
		}
		if h.Disabled {
			return Host{}, fmt.Errorf("host '%s' is disabled", name)
		}
		return h, nil
	}
	return Host{}, fmt.Errorf("host '%s' not found in configuration", name)
}

// EnabledHosts returns the hosts that are not disabled.
func (c Config) EnabledHosts() []Host {
	return slices.DeleteFunc(slices.Clone(c.Hosts), func(h Host) bool {
		return h.Disabled
	})
}

// UserConfigPath is the per-user config location, used when no project-local
// file exists.
func UserConfigPath() (string, error) {
	configDir, err := osUserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, appDirName, configFileName), nil
}

// ProjectConfigPath is the config file checked into the suite repository.
func ProjectConfigPath() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(wd, "config", configFileName), nil
}

// Locate picks the config file to use. An explicit path wins, then $WEBQA_CONFIG,
// then ./config/config.yaml, then the user config directory. The returned path is
// always usable for messages; the error is ErrConfigNotFound when nothing exists.
func Locate(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(EnvVar)
	}
	if explicit != "" {
		resolved, err := ResolvePath(explicit)
		if err != nil {
			return explicit, err
		}
		if _, err := os.Stat(resolved); err != nil {
			if os.IsNotExist(err) {
				return resolved, fmt.Errorf("%w: %s", ErrConfigNotFound, resolved)
			}
			return resolved, fmt.Errorf("failed to stat config file %s: %w", resolved, err)
		}
		return resolved, nil
	}

	var candidates []string
	if p, err := ProjectConfigPath(); err == nil {
		candidates = append(candidates, p)
	}
	if p, err := UserConfigPath(); err == nil {
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return "", ErrConfigNotFound
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return candidates[0], fmt.Errorf("%w: checked %s", ErrConfigNotFound, strings.Join(candidates, ", "))
}

// Load reads and validates the configuration file at path. Unset runner
// settings are filled with defaults. A missing file yields ErrConfigNotFound
// together with Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.Projects == nil {
		cfg.Projects = map[string]ProjectConfig{}
	}
	cfg.Runner = cfg.Runner.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault combines Locate and Load. The returned path is the file that was
// read, or the first candidate when none exists.
func LoadDefault(explicit string) (Config, string, error) {
	path, err := Locate(explicit)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return Default(), path, err
		}
		return Config{}, path, err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", filepath.Dir(path), err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// Write with permissions rw-r----- (0640); hosts may carry passwords
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ResolvePath expands a leading "~/" to the user's home directory.
func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path, fmt.Errorf("could not get user home directory to resolve path '%s': %w", path, err)
	}

	return filepath.Join(homeDir, path[2:]), nil
}
