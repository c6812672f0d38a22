// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"errors"
	"fmt"

	"webqa/internal/logger"
	"webqa/internal/runner"
	"webqa/internal/wizard"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// --- Message Handlers ---
// These functions handle specific message types received by the model's Update function.

func handleWindowSizeMsg(m *model, msg tea.WindowSizeMsg) tea.Cmd {
	m.width = msg.Width
	m.height = msg.Height

	vpHeight := max(m.height-headerHeight-footerHeight, 1)
	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.viewport.SetContent(m.outputContent)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	return nil
}

func handleTestsDiscoveredMsg(m *model, msg testsDiscoveredMsg) tea.Cmd {
	m.tests.store(msg)
	if msg.err != nil {
		logger.Warn("Test discovery failed in TUI", "project", msg.project, "error", msg.err)
	}

	if m.waitingForTests && msg.project == m.machine.Choice().Project {
		m.waitingForTests = false
		return tea.Batch(m.choose(m.pendingChoice)...)
	}
	return nil
}

func handleChannelsAvailableMsg(m *model, msg channelsAvailableMsg) tea.Cmd {
	if m.machine.State() != wizard.Execute {
		return nil
	}
	m.outputChan = msg.outChan
	m.errorChan = msg.errChan
	return tea.Batch(
		waitForOutputCmd(m.outputChan),
		waitForErrorCmd(m.errorChan),
	)
}

func handleOutputLineMsg(m *model, msg outputLineMsg) tea.Cmd {
	if m.machine.State() != wizard.Execute || m.outputChan == nil {
		return nil
	}
	// Append the raw chunk. Lipgloss/terminal handles ANSI.
	m.appendOutput(msg.line.Line)
	return waitForOutputCmd(m.outputChan)
}

func handleOutputDoneMsg(m *model) tea.Cmd {
	m.outputDone = true
	return m.finishRun()
}

func handleRunFinishedMsg(m *model, msg runFinishedMsg) tea.Cmd {
	m.runResult = &msg
	return m.finishRun()
}

// finishRun records the exit code and starts report collection once both the
// runner result and the end of its output have arrived.
func (m *model) finishRun() tea.Cmd {
	if m.runResult == nil || !m.outputDone || m.machine.State() != wizard.Execute {
		return nil
	}
	runErr := m.runResult.err
	m.runResult = nil

	m.running = false
	m.outputChan = nil
	m.errorChan = nil
	if m.cancelRun != nil {
		m.cancelRun()
		m.cancelRun = nil
	}

	m.exitCode = runner.ExitCode(runErr)
	var exitErr *runner.ExitError
	switch {
	case runErr == nil:
		m.appendOutput(successStyle.Render("\n--- Runner passed ---") + "\n")
	case errors.As(runErr, &exitErr):
		m.appendOutput(errorStyle.Render(fmt.Sprintf("\n--- Runner exited with status %d ---", exitErr.Code)) + "\n")
	default:
		m.lastError = runErr
		m.appendOutput(errorStyle.Render(fmt.Sprintf("\n--- RUN FAILED: %v ---", runErr)) + "\n")
	}

	plan, _ := m.machine.Plan()
	return collectOutcomeCmd(plan, m.exitCode, m.started)
}

func handleOutcomeCollectedMsg(m *model, msg outcomeCollectedMsg) tea.Cmd {
	if err := m.machine.Finish(msg.outcome); err != nil {
		m.lastError = err
		return nil
	}
	if msg.err != nil {
		m.lastError = fmt.Errorf("failed to read reports: %w", msg.err)
	}
	plan, _ := m.machine.Plan()
	m.appendOutput("\n" + renderOutcome(plan, msg.outcome))
	return nil
}

func handleCommandCopiedMsg(m *model, msg commandCopiedMsg) tea.Cmd {
	if msg.err != nil {
		m.lastError = fmt.Errorf("failed to copy command: %w", msg.err)
		return nil
	}
	m.infoMsg = "Command copied to clipboard"
	return nil
}

// appendOutput adds to the output viewport, dropping the oldest bytes past the cap.
func (m *model) appendOutput(s string) {
	m.outputContent += s
	if over := len(m.outputContent) - maxOutputBytes; over > 0 {
		m.outputContent = m.outputContent[over:]
	}
	m.viewport.SetContent(m.outputContent)
	m.viewport.GotoBottom()
}
