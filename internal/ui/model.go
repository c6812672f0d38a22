// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui is the interactive front end of webqa: a Bubble Tea program that
// walks the run wizard, streams the runner output and shows the run summary.
package ui

import (
	"context"
	"time"

	"webqa/internal/logger"
	"webqa/internal/runner"
	"webqa/internal/wizard"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Options wires the TUI to the rest of the application.
type Options struct {
	Planner  wizard.Planner
	Catalog  wizard.Catalog
	Defaults wizard.Choice
	Runner   *runner.Runner

	// Notice is shown above the prompts, e.g. when no config file was found
	Notice string
}

type model struct {
	ctx    context.Context
	opts   Options
	keymap KeyMap

	machine *wizard.Machine
	tests   *discoveredTests
	cursor  int

	// BrowserSelect waits here until the prefetched test list arrives
	waitingForTests bool
	pendingChoice   int

	editingMarkers bool
	markersInput   textinput.Model

	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	width    int
	height   int

	outputChan    <-chan runner.OutputLine
	errorChan     <-chan error
	outputContent string
	running       bool
	started       time.Time
	cancelRun     context.CancelFunc

	// The run is over once the runner exited and its output is drained
	runResult  *runFinishedMsg
	outputDone bool

	exitCode  int
	lastError error
	infoMsg   string
}

// InitialModel creates the TUI model. ctx bounds every runner started from it.
func InitialModel(ctx context.Context, opts Options) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	tests := newDiscoveredTests(opts.Catalog)
	m := model{
		ctx:     ctx,
		opts:    opts,
		keymap:  DefaultKeyMap,
		tests:   tests,
		spinner: s,
	}
	m.resetMachine()
	return m
}

func (m *model) resetMachine() {
	m.machine = wizard.New(m.opts.Planner, m.tests, m.opts.Defaults)
	_, m.cursor = m.machine.Options()
	m.waitingForTests = false
	m.editingMarkers = false
	m.outputContent = ""
	m.outputChan = nil
	m.errorChan = nil
	m.runResult = nil
	m.outputDone = false
	m.lastError = nil
	m.infoMsg = ""
	m.exitCode = 0
	if m.ready {
		m.viewport.SetContent("")
		m.viewport.GotoTop()
	}
}

// ExitCode is the exit code of the runner, or 2 when preflight halted.
func (m *model) ExitCode() int {
	return m.exitCode
}

func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		cmds = append(cmds, handleWindowSizeMsg(m, msg))

	case tea.KeyMsg:
		if m.editingMarkers {
			cmds = append(cmds, m.handleMarkersKeys(msg))
			break
		}
		switch state := m.machine.State(); {
		case m.machine.Selecting():
			cmds = append(cmds, m.handleSelectKeys(msg)...)
		case state == wizard.Execute:
			cmds = append(cmds, m.handleRunKeys(msg)...)
		default:
			cmds = append(cmds, m.handleFinishedKeys(msg)...)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case testsDiscoveredMsg:
		cmds = append(cmds, handleTestsDiscoveredMsg(m, msg))
	case channelsAvailableMsg:
		cmds = append(cmds, handleChannelsAvailableMsg(m, msg))
	case outputLineMsg:
		cmds = append(cmds, handleOutputLineMsg(m, msg))
	case outputDoneMsg:
		cmds = append(cmds, handleOutputDoneMsg(m))
	case runFinishedMsg:
		cmds = append(cmds, handleRunFinishedMsg(m, msg))
	case outcomeCollectedMsg:
		cmds = append(cmds, handleOutcomeCollectedMsg(m, msg))
	case commandCopiedMsg:
		cmds = append(cmds, handleCommandCopiedMsg(m, msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body, footer string
	switch m.machine.State() {
	case wizard.ProjectSelect, wizard.EnvironmentSelect, wizard.BrowserSelect, wizard.TestSelect:
		body, footer = m.renderSelectView()
	case wizard.Execute:
		body, footer = m.renderRunningView()
	case wizard.ReportSummary:
		body, footer = m.renderSummaryView()
	case wizard.Halted:
		body, footer = m.renderHaltedView()
	default:
		body = statusStyle.Render("Checking endpoints...")
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, footer)
}

// quit cancels a running runner before leaving the program.
func (m *model) quit() tea.Cmd {
	if m.running && m.cancelRun != nil {
		logger.Info("Cancelling runner on quit")
		m.cancelRun()
		m.exitCode = 130
	}
	return tea.Quit
}
