// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"fmt"
	"strings"

	"webqa/internal/endpoints"
	"webqa/internal/report"
	"webqa/internal/wizard"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// --- View Helpers ---

var stepTitles = map[wizard.State]string{
	wizard.ProjectSelect:     "Select a project:",
	wizard.EnvironmentSelect: "Select an environment:",
	wizard.BrowserSelect:     "Select a browser:",
	wizard.TestSelect:        "Select the tests to run:",
}

// renderHeader shows the title and the choices made so far.
func (m *model) renderHeader() string {
	c := m.machine.Choice()
	var crumbs []string
	state := m.machine.State()
	if state > wizard.ProjectSelect && c.Project != "" {
		crumbs = append(crumbs, c.Project)
	}
	if state > wizard.EnvironmentSelect && c.Environment != "" {
		crumbs = append(crumbs, c.Environment)
	}
	if state > wizard.BrowserSelect && c.Browser != "" {
		crumbs = append(crumbs, c.Browser)
	}
	if state > wizard.TestSelect && c.TestPath != "" {
		crumbs = append(crumbs, c.TestPath)
	}

	mode := "headless"
	if c.Headed {
		mode = "headed"
	}
	flags := []string{mode}
	if c.Markers != "" {
		flags = append(flags, "-m "+c.Markers)
	}
	if c.Host != nil {
		flags = append(flags, "on "+c.Host.Name)
	}

	title := titleStyle.Render("webqa")
	if len(crumbs) > 0 {
		title += " " + identifierColor.Render(strings.Join(crumbs, " › "))
	}
	return title + "\n" + dimStyle.Render("["+strings.Join(flags, ", ")+"]")
}

// renderHelp formats key bindings as "key: desc | key: desc".
func (m *model) renderHelp(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, footerKeyStyle.Render(h.Key)+footerDescStyle.Render(": "+h.Desc))
	}
	sep := footerSeparatorStyle.Render(" | ")
	return lipgloss.NewStyle().Width(m.width).Render(strings.Join(parts, sep))
}

// renderStatusLine shows the last error or info message.
func (m *model) renderStatusLine() string {
	switch {
	case m.lastError != nil:
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.lastError))
	case m.infoMsg != "":
		return successStyle.Render(m.infoMsg)
	default:
		return ""
	}
}

// --- State-Specific View Renderers ---
// These functions generate the body and footer content for specific wizard states.

func (m *model) renderSelectView() (string, string) {
	body := strings.Builder{}
	if m.opts.Notice != "" {
		body.WriteString(stepStyle.Render(m.opts.Notice) + "\n\n")
	}

	state := m.machine.State()
	body.WriteString(stepTitles[state] + "\n")

	opts, def := m.machine.Options()
	first, last := visibleRange(len(opts), m.cursor, m.height-headerHeight-footerHeight-4)
	if first > 0 {
		body.WriteString(dimStyle.Render("  ...") + "\n")
	}
	for i := first; i < last; i++ {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		num := "   "
		if i < maxDigitOptions {
			num = fmt.Sprintf("%d. ", i+1)
		}
		label := opts[i].Label
		if i == def {
			label += dimStyle.Render(" (default)")
		}
		body.WriteString(cursor + num + label + "\n")
	}
	if last < len(opts) {
		body.WriteString(dimStyle.Render("  ...") + "\n")
	}

	if state == wizard.TestSelect && m.machine.TestsErr() != nil {
		body.WriteString("\n" + errorStyle.Render(fmt.Sprintf("Test discovery failed: %v", m.machine.TestsErr())) + "\n")
	}
	if m.editingMarkers {
		body.WriteString("\n" + m.markersInput.View() + "\n")
		if m.markersInput.Err != nil {
			body.WriteString(errorStyle.Render(m.markersInput.Err.Error()) + "\n")
		}
	}

	footer := strings.Builder{}
	footer.WriteString("\n")
	switch {
	case m.waitingForTests:
		footer.WriteString(m.spinner.View() + statusStyle.Render(" Discovering tests...") + "\n")
	case m.editingMarkers:
		footer.WriteString(m.renderHelp(m.keymap.Enter, m.keymap.Esc) + "\n")
		return body.String(), footer.String()
	default:
		footer.WriteString(m.renderStatusLine() + "\n")
	}

	bindings := []key.Binding{m.keymap.Up, m.keymap.Down, m.keymap.Enter, m.keymap.Headed}
	if state == wizard.TestSelect {
		bindings = append(bindings, m.keymap.Markers)
	}
	bindings = append(bindings, m.keymap.Quit)
	footer.WriteString(dimStyle.Render(fmt.Sprintf("1-%d: pick ", min(len(opts), maxDigitOptions))) + m.renderHelp(bindings...))
	return body.String(), footer.String()
}

// visibleRange returns the window of options around the cursor that fits in height lines.
func visibleRange(n, cursor, height int) (int, int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	first := max(cursor-height/2, 0)
	last := first + height
	if last > n {
		last = n
		first = n - height
	}
	return first, last
}

func (m *model) renderRunningView() (string, string) {
	footer := strings.Builder{}
	footer.WriteString("\n")

	plan, _ := m.machine.Plan()
	if m.running {
		footer.WriteString(m.spinner.View() + statusStyle.Render(" Running "+plan.Invocation.Describe()+"..."))
	} else {
		footer.WriteString(statusStyle.Render("Collecting reports..."))
	}
	if line := m.renderStatusLine(); line != "" {
		footer.WriteString("  " + line)
	}
	footer.WriteString("\n" + m.renderHelp(m.keymap.Up, m.keymap.Down, m.keymap.PgUp, m.keymap.PgDown, m.keymap.Copy, m.keymap.Quit))

	return m.viewport.View(), footer.String()
}

func (m *model) renderSummaryView() (string, string) {
	footer := strings.Builder{}
	footer.WriteString("\n")

	outcome := m.machine.Outcome()
	if outcome.ExitCode == 0 {
		footer.WriteString(successStyle.Render("Run passed."))
	} else {
		footer.WriteString(errorStyle.Render(fmt.Sprintf("Run failed with exit code %d.", outcome.ExitCode)))
	}
	if line := m.renderStatusLine(); line != "" {
		footer.WriteString("  " + line)
	}
	footer.WriteString("\n" + m.renderHelp(m.keymap.Up, m.keymap.Down, m.keymap.Copy, m.keymap.Restart, m.keymap.Quit))

	return m.viewport.View(), footer.String()
}

func (m *model) renderHaltedView() (string, string) {
	body := strings.Builder{}
	c := m.machine.Choice()
	body.WriteString(errorStyle.Render("Preflight check failed; nothing was run.") + "\n\n")
	body.WriteString(fmt.Sprintf("  %v\n", m.machine.Err()))
	body.WriteString("\n" + dimStyle.Render(fmt.Sprintf(
		"Add the endpoint to the configuration file, or pick another environment for %s.", c.Project)) + "\n")

	footer := "\n" + m.renderHelp(m.keymap.Restart, m.keymap.Quit)
	return body.String(), footer
}

// renderOutcome formats the result of a run for the output viewport.
func renderOutcome(plan wizard.Plan, o wizard.Outcome) string {
	b := strings.Builder{}
	b.WriteString(titleStyle.Render("Summary") + "\n")

	sel := plan.Selection
	b.WriteString(fmt.Sprintf("  %s / %s  %s %s\n",
		sel.Project(), sel.Environment(), sel.Endpoints().UIURL, originStyle.Render("("+string(sel.Origin())+")")))
	if sel.Origin() == endpoints.OriginFallback {
		b.WriteString(dimStyle.Render("  endpoints came from the built-in fallback table") + "\n")
	}
	b.WriteString(commandStyle.Render(plan.Command) + "\n")

	if o.Summary == nil {
		if plan.JUnitPath == "" {
			b.WriteString(dimStyle.Render("  Reports stay on the test host.") + "\n")
		} else {
			b.WriteString(dimStyle.Render("  No JUnit report was written.") + "\n")
		}
	} else {
		line := o.Summary.Line()
		if o.Summary.OK() {
			b.WriteString("  " + successStyle.Render(line) + "\n")
		} else {
			b.WriteString("  " + errorStyle.Render(line) + "\n")
		}
		for _, f := range o.Summary.Failed {
			b.WriteString(fmt.Sprintf("  %s %s\n", errorStyle.Render(strings.ToUpper(f.Kind)), f.ID()))
			if f.Message != "" {
				b.WriteString(dimStyle.Render("      "+f.Message) + "\n")
			}
		}
	}

	writeArtifacts(&b, "Screenshots", o.Artifacts.Screenshots)
	writeArtifacts(&b, "Videos", o.Artifacts.Videos)
	writeArtifacts(&b, "HTML reports", o.Artifacts.Reports)
	writeArtifacts(&b, "Allure results", o.Artifacts.AllureDirs)
	return b.String()
}

func writeArtifacts(b *strings.Builder, title string, paths []string) {
	if len(paths) == 0 {
		return
	}
	b.WriteString("\n" + stepStyle.Render(title) + "\n")
	for _, p := range paths {
		b.WriteString("  " + report.FileURL(p) + "\n")
	}
}
