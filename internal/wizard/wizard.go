// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package wizard is the interactive run flow without any terminal I/O:
// project, environment, browser and test selection, then a preflight check
// that either produces a runnable Plan or halts.
package wizard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"webqa/internal/endpoints"
	"webqa/internal/logger"
)

// State is a step of the flow.
type State int

const (
	ProjectSelect State = iota
	EnvironmentSelect
	BrowserSelect
	TestSelect
	PreflightCheck
	Execute
	ReportSummary
	Halted
)

func (s State) String() string {
	switch s {
	case ProjectSelect:
		return "ProjectSelect"
	case EnvironmentSelect:
		return "EnvironmentSelect"
	case BrowserSelect:
		return "BrowserSelect"
	case TestSelect:
		return "TestSelect"
	case PreflightCheck:
		return "PreflightCheck"
	case Execute:
		return "Execute"
	case ReportSummary:
		return "ReportSummary"
	case Halted:
		return "Halted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidChoice     = errors.New("choice out of range")
)

// Browsers are the engines offered by BrowserSelect.
var Browsers = []string{"chromium", "firefox", "webkit", "chrome", "msedge"}

// Option is one selectable entry of a select state.
type Option struct {
	Label string
	Value string
}

// Catalog provides the entries of TestSelect.
type Catalog interface {
	// DefaultPath runs every test of the project
	DefaultPath(project string) string
	Tests(project string) ([]string, error)
}

// Machine walks one run from ProjectSelect to ReportSummary or Halted.
// Transitions only go forward; start over with a new Machine.
type Machine struct {
	planner  Planner
	catalog  Catalog
	defaults Choice

	state    State
	choice   Choice
	tests    []Option
	testsErr error
	plan     Plan
	outcome  Outcome
	err      error
}

// New creates a machine in ProjectSelect. defaults preselect options and carry
// the settings that have no prompt (verbosity, workers, reports, host).
func New(planner Planner, catalog Catalog, defaults Choice) *Machine {
	choice := defaults
	if choice.Browser == "" {
		choice.Browser = planner.Settings.DefaultBrowser
	}
	return &Machine{
		planner:  planner,
		catalog:  catalog,
		defaults: defaults,
		choice:   choice,
	}
}

func (m *Machine) State() State   { return m.state }
func (m *Machine) Choice() Choice { return m.choice }

// Err is the reason the machine halted.
func (m *Machine) Err() error { return m.err }

// TestsErr is the discovery error of TestSelect, if any. The default path is
// still offered when discovery fails.
func (m *Machine) TestsErr() error { return m.testsErr }

// Plan returns the preflighted plan once the machine reached Execute.
func (m *Machine) Plan() (Plan, bool) {
	return m.plan, m.state == Execute || m.state == ReportSummary
}

// Outcome returns the result recorded by Finish.
func (m *Machine) Outcome() Outcome { return m.outcome }

// Selecting reports whether the current state expects Choose.
func (m *Machine) Selecting() bool {
	return m.state <= TestSelect
}

// Options returns the entries of the current select state and the index of the
// preselected one.
func (m *Machine) Options() ([]Option, int) {
	switch m.state {
	case ProjectSelect:
		opts := make([]Option, 0, len(endpoints.KnownProjects))
		for _, p := range endpoints.KnownProjects {
			label := p
			if desc := endpoints.ProjectDescriptions[p]; desc != "" {
				label = fmt.Sprintf("%s (%s)", p, desc)
			}
			opts = append(opts, Option{Label: label, Value: p})
		}
		return opts, indexOf(opts, m.choice.Project)
	case EnvironmentSelect:
		opts := plainOptions(endpoints.KnownEnvironments)
		return opts, indexOf(opts, m.choice.Environment)
	case BrowserSelect:
		opts := plainOptions(Browsers)
		return opts, indexOf(opts, m.choice.Browser)
	case TestSelect:
		return m.tests, indexOf(m.tests, m.choice.TestPath)
	default:
		return nil, 0
	}
}

// Choose records option i of the current select state and advances.
func (m *Machine) Choose(i int) error {
	if !m.Selecting() {
		return fmt.Errorf("%w: choose in %s", ErrInvalidTransition, m.state)
	}
	opts, _ := m.Options()
	if i < 0 || i >= len(opts) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidChoice, i+1, len(opts))
	}
	value := opts[i].Value

	switch m.state {
	case ProjectSelect:
		m.choice.Project = value
		m.state = EnvironmentSelect
	case EnvironmentSelect:
		m.choice.Environment = value
		m.state = BrowserSelect
	case BrowserSelect:
		m.choice.Browser = value
		m.loadTests()
		m.state = TestSelect
	case TestSelect:
		m.choice.TestPath = value
		m.state = PreflightCheck
	}
	logger.Debug("Wizard advanced", "state", m.state.String(), "value", value)
	return nil
}

// SetHeaded toggles a visible browser window. It is accepted until preflight.
func (m *Machine) SetHeaded(on bool) error {
	if !m.Selecting() {
		return fmt.Errorf("%w: headed toggle in %s", ErrInvalidTransition, m.state)
	}
	m.choice.Headed = on
	return nil
}

// SetMarkers sets the marker expression. It is accepted until preflight.
func (m *Machine) SetMarkers(expr string) error {
	if !m.Selecting() {
		return fmt.Errorf("%w: markers in %s", ErrInvalidTransition, m.state)
	}
	m.choice.Markers = strings.TrimSpace(expr)
	return nil
}

func (m *Machine) loadTests() {
	project := m.choice.Project
	all := "tests/" + project
	if m.catalog != nil {
		all = m.catalog.DefaultPath(project)
	}
	m.tests = []Option{{Label: fmt.Sprintf("All %s tests (%s)", project, all), Value: all}}

	var found []string
	if m.catalog != nil {
		found, m.testsErr = m.catalog.Tests(project)
		if m.testsErr != nil {
			logger.Warn("Test discovery failed", "project", project, "error", m.testsErr)
		}
	}
	for _, p := range found {
		if p != all {
			m.tests = append(m.tests, Option{Label: p, Value: p})
		}
	}

	// A path passed on the command line stays selectable even if discovery missed it
	if given := m.defaults.TestPath; given != "" && indexOf(m.tests, given) == 0 && given != all {
		m.tests = slices.Insert(m.tests, 1, Option{Label: given, Value: given})
	}
}

// Preflight resolves the endpoints of the selection. On success the machine
// moves to Execute and returns the plan; otherwise it halts and nothing runs.
func (m *Machine) Preflight() (Plan, error) {
	if m.state != PreflightCheck {
		return Plan{}, fmt.Errorf("%w: preflight in %s", ErrInvalidTransition, m.state)
	}
	plan, err := m.planner.Plan(m.choice)
	if err != nil {
		m.err = err
		m.state = Halted
		return Plan{}, err
	}
	m.plan = plan
	m.state = Execute
	return plan, nil
}

// Finish records the result of the run and moves to ReportSummary.
func (m *Machine) Finish(outcome Outcome) error {
	if m.state != Execute {
		return fmt.Errorf("%w: finish in %s", ErrInvalidTransition, m.state)
	}
	m.outcome = outcome
	m.state = ReportSummary
	return nil
}

func plainOptions(values []string) []Option {
	opts := make([]Option, 0, len(values))
	for _, v := range values {
		opts = append(opts, Option{Label: v, Value: v})
	}
	return opts
}

func indexOf(opts []Option, value string) int {
	for i, o := range opts {
		if o.Value == value {
			return i
		}
	}
	return 0
}
