// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package command assembles test runner invocations from individual flags.
package command

import (
	"errors"
	"strconv"
	"time"

	"webqa/internal/util"
)

// ErrNoTestPath is returned by Build and Args when no test path was set.
var ErrNoTestPath = errors.New("no test path set")

// DefaultRunner is the argv prefix used when New is called without one.
var DefaultRunner = []string{"pytest"}

// Builder accumulates runner flags. The zero value is not usable; call New.
// Flags are rendered in a fixed order regardless of the order they were set in.
type Builder struct {
	prefix     []string
	testPath   string
	env        string
	browser    string
	headed     bool
	verbose    bool
	workers    int
	timeout    time.Duration
	markers    string
	junitXML   string
	htmlReport string
	allureDir  string
	extra      []string
}

// New creates a builder for the given runner argv prefix.
func New(prefix ...string) *Builder {
	if len(prefix) == 0 {
		prefix = DefaultRunner
	}
	return &Builder{prefix: append([]string(nil), prefix...)}
}

// SetTestPath sets the test module or directory, replacing any earlier value.
func (b *Builder) SetTestPath(path string) *Builder {
	b.testPath = path
	return b
}

// Verbose adds -v. Calling it more than once has no further effect.
func (b *Builder) Verbose() *Builder {
	b.verbose = true
	return b
}

// Headed runs browsers with a visible window.
func (b *Builder) Headed() *Builder {
	b.headed = true
	return b
}

// Env selects the deployment tier, rendered as --env=<name>.
func (b *Builder) Env(name string) *Builder {
	b.env = name
	return b
}

// Browser selects the browser engine, rendered as --browser=<name>.
func (b *Builder) Browser(name string) *Builder {
	b.browser = name
	return b
}

// Workers requests pytest-xdist distribution over n processes. n <= 0 clears it.
func (b *Builder) Workers(n int) *Builder {
	b.workers = max(n, 0)
	return b
}

// Timeout sets the per-test timeout, rounded up to whole seconds.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.timeout = max(d, 0)
	return b
}

// Markers sets the marker expression passed with -m.
func (b *Builder) Markers(expr string) *Builder {
	b.markers = expr
	return b
}

// JUnitXML writes a JUnit XML report to path.
func (b *Builder) JUnitXML(path string) *Builder {
	b.junitXML = path
	return b
}

// HTMLReport writes a self-contained pytest-html report to path.
func (b *Builder) HTMLReport(path string) *Builder {
	b.htmlReport = path
	return b
}

// AllureDir writes Allure results into dir.
func (b *Builder) AllureDir(dir string) *Builder {
	b.allureDir = dir
	return b
}

// Extra appends raw arguments ahead of the test path.
func (b *Builder) Extra(args ...string) *Builder {
	b.extra = append(b.extra, args...)
	return b
}

// Args returns the full argv of the invocation.
func (b *Builder) Args() ([]string, error) {
	if b.testPath == "" {
		return nil, ErrNoTestPath
	}

	args := append([]string(nil), b.prefix...)
	if b.env != "" {
		args = append(args, "--env="+b.env)
	}
	if b.browser != "" {
		args = append(args, "--browser="+b.browser)
	}
	if b.headed {
		args = append(args, "--headed")
	}
	if b.verbose {
		args = append(args, "-v")
	}
	if b.workers > 0 {
		args = append(args, "-n="+strconv.Itoa(b.workers))
	}
	if b.timeout > 0 {
		secs := int64((b.timeout + time.Second - 1) / time.Second)
		args = append(args, "--timeout="+strconv.FormatInt(secs, 10))
	}
	if b.markers != "" {
		args = append(args, "-m", b.markers)
	}
	if b.junitXML != "" {
		args = append(args, "--junitxml="+b.junitXML)
	}
	if b.htmlReport != "" {
		args = append(args, "--html="+b.htmlReport, "--self-contained-html")
	}
	if b.allureDir != "" {
		args = append(args, "--alluredir="+b.allureDir)
	}
	args = append(args, b.extra...)
	args = append(args, b.testPath)
	return args, nil
}

// Build returns the invocation as one shell command line.
func (b *Builder) Build() (string, error) {
	args, err := b.Args()
	if err != nil {
		return "", err
	}
	return util.JoinForShell(args), nil
}
