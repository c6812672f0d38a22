// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package wizard

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"time"

	"webqa/internal/command"
	"webqa/internal/config"
	"webqa/internal/endpoints"
	"webqa/internal/logger"
	"webqa/internal/report"
	"webqa/internal/runner"
)

// ErrEndpointNotConfigured halts a run whose project environment has no UI URL.
var ErrEndpointNotConfigured = errors.New("endpoint not configured")

// Environment variables handed to the runner process.
const (
	EnvProject = "WEBQA_PROJECT"
	EnvEnv     = "WEBQA_ENV"
	EnvUIURL   = "WEBQA_UI_URL"
	EnvAPIURL  = "WEBQA_API_URL"
)

const (
	junitFile = "junit.xml"
	htmlFile  = "report.html"
	allureDir = "allure-results"
)

// Choice is everything a user selects for one run.
type Choice struct {
	Project     string
	Environment string
	Browser     string
	TestPath    string
	Headed      bool
	Verbose     bool
	Workers     int
	Timeout     time.Duration
	Markers     string
	HTMLReport  bool
	Allure      bool
	Extra       []string

	// Host selects remote execution; nil runs in the local checkout
	Host *config.Host
}

// Plan is a preflighted run, ready to hand to the runner.
type Plan struct {
	Selection  endpoints.ResolvedSelection
	Choice     Choice
	Args       []string
	Command    string
	Invocation runner.Invocation

	// ReportsDir is where the run writes its reports, relative to the run dir
	ReportsDir string
	// JUnitPath is the local path of the JUnit report; empty for remote runs
	JUnitPath string
}

// Planner turns choices into plans. Both the prompts and the flag-driven
// commands go through it so they apply the same preflight.
type Planner struct {
	Resolver *endpoints.Resolver
	Settings config.RunnerSettings

	// Root is the local checkout of the suite
	Root string
}

// Plan resolves the endpoints of the choice and assembles the runner
// invocation. An unconfigured endpoint yields ErrEndpointNotConfigured and
// the selection that was resolved.
func (p Planner) Plan(c Choice) (Plan, error) {
	if err := endpoints.ValidateProject(c.Project); err != nil {
		return Plan{}, err
	}
	if err := endpoints.ValidateEnvironment(c.Environment); err != nil {
		return Plan{}, err
	}

	sel := p.Resolver.Select(c.Project, c.Environment)
	if !sel.Configured() {
		logger.Warn("Preflight failed: endpoint not configured", "project", c.Project, "environment", c.Environment)
		return Plan{Selection: sel, Choice: c}, fmt.Errorf(
			"%w for %s/%s: set projects.%s.environments.%s.ui_url in the configuration",
			ErrEndpointNotConfigured, c.Project, c.Environment, c.Project, c.Environment,
		)
	}
	if c.Host != nil && c.Host.Disabled {
		return Plan{Selection: sel, Choice: c}, fmt.Errorf("host '%s' is disabled", c.Host.Name)
	}

	reportsDir := filepath.ToSlash(p.Settings.ReportsDir)
	if reportsDir == "" {
		reportsDir = config.DefaultRunnerSettings().ReportsDir
	}

	b := command.New(p.Settings.Command...).
		SetTestPath(c.TestPath).
		Env(c.Environment).
		Browser(c.Browser).
		Workers(c.Workers).
		Timeout(c.Timeout).
		Markers(c.Markers).
		JUnitXML(path.Join(reportsDir, junitFile)).
		Extra(c.Extra...)
	if c.Headed {
		b.Headed()
	}
	if c.Verbose {
		b.Verbose()
	}
	if c.HTMLReport {
		b.HTMLReport(path.Join(reportsDir, htmlFile))
	}
	if c.Allure {
		b.AllureDir(path.Join(reportsDir, allureDir))
	}

	args, err := b.Args()
	if err != nil {
		return Plan{Selection: sel, Choice: c}, err
	}
	line, err := b.Build()
	if err != nil {
		return Plan{Selection: sel, Choice: c}, err
	}

	e := sel.Endpoints()
	env := map[string]string{
		EnvProject: c.Project,
		EnvEnv:     c.Environment,
		EnvUIURL:   e.UIURL,
	}
	if e.APIURL != "" {
		env[EnvAPIURL] = e.APIURL
	}

	plan := Plan{
		Selection:  sel,
		Choice:     c,
		Args:       args,
		Command:    line,
		ReportsDir: reportsDir,
		Invocation: runner.Invocation{
			Name: path.Base(args[0]),
			Args: args,
			Dir:  p.Root,
			Env:  env,
			Host: c.Host,
		},
	}
	if c.Host != nil {
		plan.Invocation.Dir = c.Host.RemoteRoot
	} else {
		plan.JUnitPath = localPath(p.Root, path.Join(reportsDir, junitFile))
	}

	logger.Info("Preflight passed", "project", c.Project, "environment", c.Environment,
		"origin", sel.Origin(), "command", line)
	return plan, nil
}

func localPath(root, rel string) string {
	p := filepath.FromSlash(rel)
	if filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}

// Outcome is what a finished run left behind.
type Outcome struct {
	ExitCode  int
	Summary   *report.Summary // nil when no JUnit report was written
	Artifacts report.Artifacts
}

// Collect reads the reports a local run wrote since it started. Remote runs
// leave their reports on the host and yield only the exit code.
func (p Plan) Collect(exitCode int, since time.Time) (Outcome, error) {
	out := Outcome{ExitCode: exitCode}
	if p.JUnitPath == "" {
		return out, nil
	}

	var errs []error
	summary, err := report.ParseJUnitFile(p.JUnitPath)
	switch {
	case err == nil:
		out.Summary = &summary
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("Runner wrote no JUnit report", "path", p.JUnitPath)
	default:
		errs = append(errs, err)
	}

	artifacts, err := report.CollectArtifacts(filepath.Dir(p.JUnitPath), since)
	if err != nil {
		errs = append(errs, err)
	}
	out.Artifacts = artifacts
	return out, errors.Join(errs...)
}
