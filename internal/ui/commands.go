// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui's commands.go file contains Bubble Tea commands that perform
// asynchronous operations in the TUI. These commands handle test discovery,
// runner execution and report collection without blocking the UI.

package ui

import (
	"context"
	"sync"
	"time"

	"webqa/internal/runner"
	"webqa/internal/wizard"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// --- Bubble Tea Commands ---
// These functions create tea.Cmds to perform asynchronous operations.
// Each command runs in its own goroutine and communicates back to the main
// UI loop by returning a message.

// discoveredTests caches discovery results so the wizard's synchronous
// catalog lookup never blocks the UI on SSH.
type discoveredTests struct {
	base wizard.Catalog

	mu      sync.Mutex
	results map[string]testsDiscoveredMsg
}

func newDiscoveredTests(base wizard.Catalog) *discoveredTests {
	return &discoveredTests{base: base, results: map[string]testsDiscoveredMsg{}}
}

func (d *discoveredTests) DefaultPath(project string) string {
	return d.base.DefaultPath(project)
}

func (d *discoveredTests) Tests(project string) ([]string, error) {
	d.mu.Lock()
	res, ok := d.results[project]
	d.mu.Unlock()
	if ok {
		return res.tests, res.err
	}
	return d.base.Tests(project)
}

func (d *discoveredTests) has(project string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.results[project]
	return ok
}

func (d *discoveredTests) store(msg testsDiscoveredMsg) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results[msg.project] = msg
}

// discoverTestsCmd prefetches the test list while the user picks the
// environment and browser.
func discoverTestsCmd(catalog wizard.Catalog, project string) tea.Cmd {
	return func() tea.Msg {
		tests, err := catalog.Tests(project)
		return testsDiscoveredMsg{project: project, tests: tests, err: err}
	}
}

// runPlanCmd starts the runner for a preflighted plan in TUI mode.
func runPlanCmd(ctx context.Context, r *runner.Runner, plan wizard.Plan) tea.Cmd {
	return func() tea.Msg {
		// TUI always uses cliMode: false for channel-based output
		outChan, errChan := r.Run(ctx, plan.Invocation, false)
		return channelsAvailableMsg{outChan: outChan, errChan: errChan}
	}
}

// waitForOutputCmd waits for the next chunk of output from the runner.
func waitForOutputCmd(outChan <-chan runner.OutputLine) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-outChan
		if !ok {
			return outputDoneMsg{}
		}
		return outputLineMsg{line}
	}
}

// waitForErrorCmd waits for the final result of the runner.
func waitForErrorCmd(errChan <-chan error) tea.Cmd {
	return func() tea.Msg {
		err := <-errChan // Blocks until the runner exits; nil on a closed channel
		return runFinishedMsg{err}
	}
}

// collectOutcomeCmd reads the JUnit report and artifacts of a finished run.
func collectOutcomeCmd(plan wizard.Plan, exitCode int, started time.Time) tea.Cmd {
	return func() tea.Msg {
		outcome, err := plan.Collect(exitCode, started)
		return outcomeCollectedMsg{outcome: outcome, err: err}
	}
}

func copyCommandCmd(command string) tea.Cmd {
	return func() tea.Msg {
		return commandCopiedMsg{err: clipboard.WriteAll(command)}
	}
}
