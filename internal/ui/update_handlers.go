// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"context"
	"fmt"
	"time"

	"webqa/internal/logger"
	"webqa/internal/wizard"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// --- Update Handlers ---
// These methods handle key presses and logic for specific wizard states.

func (m *model) handleSelectKeys(msg tea.KeyMsg) []tea.Cmd {
	if m.waitingForTests {
		if key.Matches(msg, m.keymap.Quit) {
			return []tea.Cmd{m.quit()}
		}
		return nil
	}

	opts, _ := m.machine.Options()
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return []tea.Cmd{m.quit()}
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(opts)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keymap.Home):
		m.cursor = 0
	case key.Matches(msg, m.keymap.End):
		m.cursor = max(len(opts)-1, 0)
	case key.Matches(msg, m.keymap.Enter):
		return m.choose(m.cursor)
	case key.Matches(msg, m.keymap.Headed):
		if err := m.machine.SetHeaded(!m.machine.Choice().Headed); err != nil {
			m.lastError = err
		}
	case key.Matches(msg, m.keymap.Markers):
		if m.machine.State() == wizard.TestSelect {
			m.editingMarkers = true
			m.markersInput = createMarkersInput(m.machine.Choice().Markers)
			return []tea.Cmd{m.markersInput.Focus()}
		}
	default:
		// Number keys pick an option directly
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '0'+maxDigitOptions {
			if i := int(s[0] - '1'); i < len(opts) {
				return m.choose(i)
			}
		}
	}
	return nil
}

// choose records option i and reacts to the state the machine moved to.
func (m *model) choose(i int) []tea.Cmd {
	m.lastError = nil
	state := m.machine.State()

	if state == wizard.BrowserSelect && !m.tests.has(m.machine.Choice().Project) {
		m.waitingForTests = true
		m.pendingChoice = i
		return []tea.Cmd{m.spinner.Tick}
	}

	if err := m.machine.Choose(i); err != nil {
		m.lastError = err
		return nil
	}
	_, m.cursor = m.machine.Options()

	switch m.machine.State() {
	case wizard.EnvironmentSelect:
		project := m.machine.Choice().Project
		if !m.tests.has(project) {
			return []tea.Cmd{discoverTestsCmd(m.tests.base, project)}
		}
	case wizard.PreflightCheck:
		return m.preflight()
	}
	return nil
}

// preflight resolves endpoints and starts the runner, or halts.
func (m *model) preflight() []tea.Cmd {
	plan, err := m.machine.Preflight()
	if err != nil {
		m.lastError = err
		m.exitCode = 2
		return nil
	}

	runCtx, cancel := context.WithCancel(m.ctx)
	m.cancelRun = cancel
	m.running = true
	m.started = time.Now()
	m.outputContent = stepStyle.Render("$ "+plan.Command) + "\n\n"
	m.viewport.SetContent(m.outputContent)
	m.viewport.GotoTop()

	logger.Info("Starting run from TUI", "command", plan.Command, "target", plan.Invocation.Describe())
	return []tea.Cmd{runPlanCmd(runCtx, m.opts.Runner, plan), m.spinner.Tick}
}

func (m *model) handleMarkersKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Esc):
		m.editingMarkers = false
		return nil
	case key.Matches(msg, m.keymap.Enter):
		if m.markersInput.Err != nil {
			return nil
		}
		if err := m.machine.SetMarkers(m.markersInput.Value()); err != nil {
			m.lastError = err
		}
		m.editingMarkers = false
		return nil
	case msg.Type == tea.KeyCtrlC:
		return m.quit()
	}

	var cmd tea.Cmd
	m.markersInput, cmd = m.markersInput.Update(msg)
	return cmd
}

func (m *model) handleRunKeys(msg tea.KeyMsg) []tea.Cmd {
	var cmds []tea.Cmd
	switch {
	case key.Matches(msg, m.keymap.Quit):
		cmds = append(cmds, m.quit())
	case key.Matches(msg, m.keymap.Copy):
		cmds = append(cmds, m.copyCommand())
	default:
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
	}
	return cmds
}

// handleFinishedKeys serves ReportSummary and Halted.
func (m *model) handleFinishedKeys(msg tea.KeyMsg) []tea.Cmd {
	var cmds []tea.Cmd
	switch {
	case key.Matches(msg, m.keymap.Quit), key.Matches(msg, m.keymap.Enter):
		cmds = append(cmds, m.quit())
	case key.Matches(msg, m.keymap.Restart):
		m.resetMachine()
	case key.Matches(msg, m.keymap.Copy):
		cmds = append(cmds, m.copyCommand())
	default:
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
	}
	return cmds
}

func (m *model) copyCommand() tea.Cmd {
	plan, ok := m.machine.Plan()
	if !ok {
		m.infoMsg = fmt.Sprintf("Nothing to copy in %s", m.machine.State())
		return nil
	}
	return copyCommandCmd(plan.Command)
}
