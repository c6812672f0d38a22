// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package discovery finds the test modules of a project, either in the local
// checkout of the suite or in a test host's remote root.
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"webqa/internal/config"
	"webqa/internal/logger"
	"webqa/internal/ssh"
	"webqa/internal/util"

	"golang.org/x/sync/semaphore"
)

// maxConcurrentWalks limits how many test directories are walked at once
const maxConcurrentWalks = 4

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	"__pycache__":   true,
	"node_modules":  true,
	"venv":          true,
	".venv":         true,
	".git":          true,
	".pytest_cache": true,
}

// TestTarget is a test module that can be handed to the runner.
type TestTarget struct {
	Path       string // Slash-separated, relative to the run root
	Project    string
	ServerName string // "local" or the host name
	IsRemote   bool
}

// Identifier returns "local:<path>" or "<host>:<path>".
func (t TestTarget) Identifier() string {
	return fmt.Sprintf("%s:%s", t.ServerName, t.Path)
}

// Finder discovers tests using the runner settings' directories and patterns.
type Finder struct {
	ssh      *ssh.Manager
	settings config.RunnerSettings
}

// NewFinder creates a finder. manager may be nil for local-only discovery.
func NewFinder(manager *ssh.Manager, settings config.RunnerSettings) *Finder {
	return &Finder{ssh: manager, settings: settings}
}

// Matches reports whether the relative, slash-separated path is a test module
// belonging to project.
func (f *Finder) Matches(rel, project string) bool {
	if !strings.HasSuffix(rel, ".py") {
		return false
	}
	segments := strings.Split(path.Dir(rel), "/")
	if !slices.Contains(segments, project) {
		return false
	}

	base := path.Base(rel)
	for _, pattern := range f.settings.TestPatterns {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	// page modules double as runnable suites: pages/<project>/<screen>.py
	return !strings.HasPrefix(base, "_") && slices.Contains(segments, "pages")
}

// DefaultPath is the path that runs every test of project: the first test
// directory under root that has a sub-directory named after the project.
func (f *Finder) DefaultPath(root, project string) string {
	for _, dir := range f.settings.TestDirs {
		candidate := filepath.Join(root, dir, project)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return path.Join(filepath.ToSlash(dir), project)
		}
	}
	return f.firstDirPath(project)
}

func (f *Finder) firstDirPath(project string) string {
	first := "tests"
	if len(f.settings.TestDirs) > 0 {
		first = filepath.ToSlash(f.settings.TestDirs[0])
	}
	return path.Join(first, project)
}

// FindLocal walks the configured test directories under root concurrently.
// Missing directories are skipped.
func (f *Finder) FindLocal(root, project string) ([]TestTarget, error) {
	logger.Debug("Starting local test discovery", "root", root, "project", project, "dirs", f.settings.TestDirs)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		targets []TestTarget
		errs    []error
	)
	sem := semaphore.NewWeighted(maxConcurrentWalks)
	ctx := context.Background()

	for _, dir := range f.settings.TestDirs {
		wg.Add(1)
		go func(dir string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("failed to acquire semaphore for %s: %w", dir, err))
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			found, err := f.walk(root, dir, project)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			}
			targets = append(targets, found...)
		}(dir)
	}
	wg.Wait()

	targets = sortTargets(targets)
	logger.Info("Local test discovery completed", "project", project, "count", len(targets))
	return targets, errors.Join(errs...)
}

func (f *Finder) walk(root, dir, project string) ([]TestTarget, error) {
	start := filepath.Join(root, dir)
	if info, err := os.Stat(start); err != nil || !info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat test directory %s: %w", start, err)
		}
		return nil, nil
	}

	var found []TestTarget
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != start && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if f.Matches(rel, project) {
			found = append(found, TestTarget{Path: rel, Project: project, ServerName: "local"})
		}
		return nil
	})
	if err != nil {
		return found, fmt.Errorf("failed to walk test directory %s: %w", start, err)
	}
	return found, nil
}

// FindRemote lists the test modules of project under the host's remote root.
func (f *Finder) FindRemote(host config.Host, project string) ([]TestTarget, error) {
	if f.ssh == nil {
		return nil, fmt.Errorf("ssh manager not initialized for discovery on %s", host.Name)
	}
	if host.RemoteRoot == "" {
		return nil, fmt.Errorf("remote_root not configured for host %s", host.Name)
	}

	client, err := f.ssh.GetClient(host)
	if err != nil {
		return nil, err
	}
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create ssh session for discovery on %s: %w", host.Name, err)
	}
	defer session.Close()

	output, err := session.CombinedOutput(RemoteFindCommand(host.RemoteRoot, f.settings.TestDirs))
	if err != nil {
		return nil, fmt.Errorf("remote find command failed for host %s: %w\nOutput: %s", host.Name, err, string(output))
	}

	targets, err := f.parseFindOutput(output, host.Name, project)
	logger.Info("Remote test discovery completed", "host", host.Name, "project", project, "count", len(targets))
	return targets, err
}

// RemoteFindCommand lists every Python file below the test directories,
// relative to root. Missing directories are not an error.
func RemoteFindCommand(root string, dirs []string) string {
	quoted := make([]string, 0, len(dirs))
	for _, d := range dirs {
		quoted = append(quoted, util.QuoteArgForShell(d))
	}
	return fmt.Sprintf(
		`cd %s && find %s -type f -name '*.py' -not -path '*/__pycache__/*' 2>/dev/null || true`,
		util.QuoteArgForShell(root), strings.Join(quoted, " "),
	)
}

func (f *Finder) parseFindOutput(output []byte, hostName, project string) ([]TestTarget, error) {
	var targets []TestTarget
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		rel := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "./")
		if rel == "" || !f.Matches(rel, project) {
			continue
		}
		targets = append(targets, TestTarget{Path: rel, Project: project, ServerName: hostName, IsRemote: true})
	}
	targets = sortTargets(targets)
	if err := scanner.Err(); err != nil {
		return targets, fmt.Errorf("error reading ssh output for host %s: %w", hostName, err)
	}
	return targets, nil
}

// Find dispatches to FindRemote when host is set, FindLocal otherwise.
func (f *Finder) Find(root string, host *config.Host, project string) ([]TestTarget, error) {
	if host != nil {
		return f.FindRemote(*host, project)
	}
	return f.FindLocal(root, project)
}

// sortTargets orders targets by path and drops duplicates found through
// overlapping test directories.
func sortTargets(targets []TestTarget) []TestTarget {
	slices.SortFunc(targets, func(a, b TestTarget) int {
		return strings.Compare(a.Path, b.Path)
	})
	return slices.CompactFunc(targets, func(a, b TestTarget) bool {
		return a.Path == b.Path
	})
}

// Catalog binds a Finder to the run root and optional host of one session.
type Catalog struct {
	Finder *Finder
	Root   string
	Host   *config.Host
}

// DefaultPath is the path that runs the whole project. Remote hosts are not
// probed; the first test directory is assumed.
func (c Catalog) DefaultPath(project string) string {
	if c.Host != nil {
		return c.Finder.firstDirPath(project)
	}
	return c.Finder.DefaultPath(c.Root, project)
}

// Tests returns the discovered test paths of project.
func (c Catalog) Tests(project string) ([]string, error) {
	targets, err := c.Finder.Find(c.Root, c.Host, project)
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.Path)
	}
	return out, err
}
