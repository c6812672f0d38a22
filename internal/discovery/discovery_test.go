// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"webqa/internal/config"
	"webqa/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, nil, 0644))
	}
}

func paths(targets []TestTarget) []string {
	out := make([]string, 0, len(targets))
	for _, tt := range targets {
		out = append(out, tt.Path)
	}
	return out
}

func TestFindLocal(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"tests/bookslot/test_booking.py",
		"tests/bookslot/flows/confirm_test.py",
		"tests/bookslot/conftest.py",
		"tests/bookslot/__pycache__/test_booking.cpython-312.pyc",
		"tests/bookslot/.venv/lib/test_vendored.py",
		"tests/callcenter/test_queue.py",
		"pages/bookslot/bookslots_basicinfo.py",
		"pages/bookslot/__init__.py",
		"pages/bookslot/README.md",
		"pages/callcenter/dashboard.py",
	)

	f := NewFinder(nil, config.DefaultRunnerSettings())
	targets, err := f.FindLocal(root, "bookslot")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"pages/bookslot/bookslots_basicinfo.py",
		"tests/bookslot/flows/confirm_test.py",
		"tests/bookslot/test_booking.py",
	}, paths(targets))
	for _, tt := range targets {
		assert.Equal(t, "bookslot", tt.Project)
		assert.Equal(t, "local", tt.ServerName)
		assert.False(t, tt.IsRemote)
	}
	assert.Equal(t, "local:pages/bookslot/bookslots_basicinfo.py", targets[0].Identifier())
}

func TestFindLocal_MissingDirectories(t *testing.T) {
	f := NewFinder(nil, config.DefaultRunnerSettings())
	targets, err := f.FindLocal(t.TempDir(), "patientintake")
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestFindLocal_CustomPatterns(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "suite/callcenter/check_login.py", "suite/callcenter/test_login.py")

	settings := config.DefaultRunnerSettings()
	settings.TestDirs = []string{"suite"}
	settings.TestPatterns = []string{"check_*.py"}

	targets, err := NewFinder(nil, settings).FindLocal(root, "callcenter")
	require.NoError(t, err)
	assert.Equal(t, []string{"suite/callcenter/check_login.py"}, paths(targets))
}

func TestFindLocal_OverlappingDirectories(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "tests/bookslot/test_booking.py", "tests/bookslot/test_slots.py")

	settings := config.DefaultRunnerSettings()
	settings.TestDirs = []string{"tests", "tests/bookslot", "tests"}

	targets, err := NewFinder(nil, settings).FindLocal(root, "bookslot")
	require.NoError(t, err)
	assert.Equal(t, []string{"tests/bookslot/test_booking.py", "tests/bookslot/test_slots.py"}, paths(targets))
}

func TestDefaultPath(t *testing.T) {
	root := t.TempDir()
	f := NewFinder(nil, config.DefaultRunnerSettings())

	assert.Equal(t, "tests/bookslot", f.DefaultPath(root, "bookslot"))

	touch(t, root, "pages/bookslot/bookslots_basicinfo.py")
	assert.Equal(t, "pages/bookslot", f.DefaultPath(root, "bookslot"))

	touch(t, root, "tests/bookslot/test_booking.py")
	assert.Equal(t, "tests/bookslot", f.DefaultPath(root, "bookslot"))
}

func TestParseFindOutput(t *testing.T) {
	f := NewFinder(nil, config.DefaultRunnerSettings())
	out := []byte("tests/bookslot/test_b.py\n./tests/bookslot/test_a.py\n\ntests/bookslot/helpers.py\ntests/callcenter/test_c.py\n")

	targets, err := f.parseFindOutput(out, "grid-1", "bookslot")
	require.NoError(t, err)
	assert.Equal(t, []string{"tests/bookslot/test_a.py", "tests/bookslot/test_b.py"}, paths(targets))
	assert.True(t, targets[0].IsRemote)
	assert.Equal(t, "grid-1:tests/bookslot/test_a.py", targets[0].Identifier())
}

func TestRemoteFindCommand(t *testing.T) {
	got := RemoteFindCommand("~/suite", []string{"tests", "pages"})
	assert.Equal(t, `cd ~/'suite' && find 'tests' 'pages' -type f -name '*.py' -not -path '*/__pycache__/*' 2>/dev/null || true`, got)
}

func TestFindRemote_Errors(t *testing.T) {
	f := NewFinder(nil, config.DefaultRunnerSettings())
	_, err := f.Find("", &config.Host{Name: "grid-1", RemoteRoot: "~/suite"}, "bookslot")
	assert.ErrorContains(t, err, "ssh manager not initialized")
}

func TestCatalog(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "pages/bookslot/bookslots_basicinfo.py", "tests/bookslot/test_booking.py")

	c := Catalog{Finder: NewFinder(nil, config.DefaultRunnerSettings()), Root: root}
	assert.Equal(t, "tests/bookslot", c.DefaultPath("bookslot"))

	tests, err := c.Tests("bookslot")
	require.NoError(t, err)
	assert.Equal(t, []string{"pages/bookslot/bookslots_basicinfo.py", "tests/bookslot/test_booking.py"}, tests)

	remote := Catalog{Finder: c.Finder, Root: root, Host: &config.Host{Name: "grid-1"}}
	assert.Equal(t, "tests/callcenter", remote.DefaultPath("callcenter"))
}
