// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `projects:
  bookslot:
    environments:
      staging:
        ui_url: https://bookslot.staging.example.test
        api_url: https://api.bookslot.staging.example.test
      production:
        ui_url: https://bookslot.example.test
  callcenter:
    environments:
      staging:
        ui_url: https://callcenter.staging.example.test
runner:
  command: [python, -m, pytest]
  workers: 4
hosts:
  - name: grid-1
    hostname: 10.0.0.5
    user: qa
    remote_root: ~/suite
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://bookslot.staging.example.test", cfg.Projects["bookslot"].Environments["staging"].UIURL)
	assert.Equal(t, "https://api.bookslot.staging.example.test", cfg.Projects["bookslot"].Environments["staging"].APIURL)
	assert.Empty(t, cfg.Projects["bookslot"].Environments["production"].APIURL)
	assert.Len(t, cfg.Projects["callcenter"].Environments, 1)

	assert.Equal(t, []string{"python", "-m", "pytest"}, cfg.Runner.Command)
	assert.Equal(t, 4, cfg.Runner.Workers)
	// unset runner fields come from the defaults
	assert.Equal(t, "reports", cfg.Runner.ReportsDir)
	assert.Equal(t, "chromium", cfg.Runner.DefaultBrowser)
	assert.Equal(t, []string{"tests", "pages"}, cfg.Runner.TestDirs)

	require.Len(t, cfg.Hosts, 1)
	assert.Equal(t, "grid-1", cfg.Hosts[0].Name)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, ErrConfigNotFound)
	assert.Empty(t, cfg.Projects)
	assert.Equal(t, DefaultRunnerSettings(), cfg.Runner)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "projects: [",
			wantErr: "failed to parse",
		},
		{
			name: "missing ui_url",
			content: `projects:
  bookslot:
    environments:
      staging:
        api_url: https://api.example.test
`,
			wantErr: "UIURL",
		},
		{
			name: "api_url not a url",
			content: `projects:
  bookslot:
    environments:
      staging:
        ui_url: https://bookslot.example.test
        api_url: not a url
`,
			wantErr: "APIURL",
		},
		{
			name: "relative ui_url",
			content: `projects:
  callcenter:
    environments:
      production:
        ui_url: callcenter.example.test
`,
			wantErr: "project 'callcenter' environment 'production'",
		},
		{
			name: "negative workers",
			content: `runner:
  workers: -1
`,
			wantErr: "Workers",
		},
		{
			name: "duplicate hosts",
			content: `hosts:
  - {name: a, hostname: h1, user: u}
  - {name: a, hostname: h2, user: u}
`,
			wantErr: "duplicate host name 'a'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrConfigNotFound)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocate(t *testing.T) {
	workDir := t.TempDir()
	userDir := t.TempDir()

	originalGetwd, originalUserConfigDir := osGetwd, osUserConfigDir
	t.Cleanup(func() {
		osGetwd, osUserConfigDir = originalGetwd, originalUserConfigDir
	})
	osGetwd = func() (string, error) { return workDir, nil }
	osUserConfigDir = func() (string, error) { return userDir, nil }
	t.Setenv(EnvVar, "")

	t.Run("nothing exists", func(t *testing.T) {
		path, err := Locate("")
		require.ErrorIs(t, err, ErrConfigNotFound)
		assert.Equal(t, filepath.Join(workDir, "config", "config.yaml"), path)
	})

	t.Run("user config", func(t *testing.T) {
		want := writeFile(t, userDir, filepath.Join("webqa", "config.yaml"), sampleConfig)
		path, err := Locate("")
		require.NoError(t, err)
		assert.Equal(t, want, path)
	})

	t.Run("project config wins over user config", func(t *testing.T) {
		want := writeFile(t, workDir, filepath.Join("config", "config.yaml"), sampleConfig)
		path, err := Locate("")
		require.NoError(t, err)
		assert.Equal(t, want, path)
	})

	t.Run("environment variable", func(t *testing.T) {
		want := writeFile(t, t.TempDir(), "env.yaml", sampleConfig)
		t.Setenv(EnvVar, want)
		path, err := Locate("")
		require.NoError(t, err)
		assert.Equal(t, want, path)
	})

	t.Run("explicit missing path", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope.yaml")
		path, err := Locate(missing)
		require.ErrorIs(t, err, ErrConfigNotFound)
		assert.Equal(t, missing, path)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Projects["bookslot"] = ProjectConfig{Environments: map[string]EnvironmentEndpoints{
		"staging": {UIURL: "https://bookslot.staging.example.test"},
	}}

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestFindHost(t *testing.T) {
	cfg := Config{Hosts: []Host{
		{Name: "grid-1", Hostname: "h1", User: "qa"},
		{Name: "grid-2", Hostname: "h2", User: "qa", Disabled: true},
	}}

	h, err := cfg.FindHost("grid-1")
	require.NoError(t, err)
	assert.Equal(t, "h1", h.Hostname)

	_, err = cfg.FindHost("grid-2")
	assert.ErrorContains(t, err, "disabled")

	_, err = cfg.FindHost("grid-3")
	assert.ErrorContains(t, err, "not found")

	assert.Len(t, cfg.EnabledHosts(), 1)
	assert.Len(t, cfg.Hosts, 2)
}

func TestParseSSHConfig(t *testing.T) {
	content := `Host *
  ServerAliveInterval 30

Host grid-1
  HostName 10.0.0.5
  User qa
  Port 2222
  IdentityFile /keys/grid

Host nouser
  HostName 10.0.0.6

Host grid-2
  User qa
`
	hosts, err := ParseSSHConfig(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	assert.Equal(t, PotentialHost{Alias: "grid-1", Hostname: "10.0.0.5", User: "qa", Port: 2222, KeyPath: "/keys/grid"}, hosts[0])
	assert.Equal(t, "grid-2", hosts[1].Hostname)
	assert.Equal(t, 22, hosts[1].Port)
}

func TestImportHosts(t *testing.T) {
	cfg := Config{Hosts: []Host{{Name: "grid-1", Hostname: "old", User: "qa"}}}
	imported, skipped := cfg.ImportHosts([]PotentialHost{
		{Alias: "grid-1", Hostname: "new", User: "qa", Port: 22},
		{Alias: "grid-2", Hostname: "h2", User: "qa", Port: 22},
	}, "~/suite")

	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)
	require.Len(t, cfg.Hosts, 2)
	assert.Equal(t, "old", cfg.Hosts[0].Hostname)
	assert.Equal(t, Host{Name: "grid-2", Hostname: "h2", User: "qa", Port: 22, RemoteRoot: "~/suite"}, cfg.Hosts[1])
}
