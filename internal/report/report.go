// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package report summarises a finished run from the JUnit XML written by the
// runner and the screenshots, videos and reports left in the reports directory.
package report

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// CaseResult is a test case that did not pass.
type CaseResult struct {
	Class   string
	Name    string
	Kind    string // "failure" or "error"
	Message string
}

// ID returns the pytest-style identifier of the case.
func (c CaseResult) ID() string {
	if c.Class == "" {
		return c.Name
	}
	return c.Class + "::" + c.Name
}

// Summary is the outcome of one runner invocation.
type Summary struct {
	Tests    int
	Failures int
	Errors   int
	Skipped  int
	Duration time.Duration
	Failed   []CaseResult
}

// Passed is the number of cases that neither failed, errored nor were skipped.
func (s Summary) Passed() int {
	return s.Tests - s.Failures - s.Errors - s.Skipped
}

// OK reports whether no case failed or errored.
func (s Summary) OK() bool {
	return s.Failures == 0 && s.Errors == 0
}

// Line renders the summary the way pytest prints its final line.
func (s Summary) Line() string {
	return fmt.Sprintf("%d passed, %d failed, %d errors, %d skipped in %.2fs",
		s.Passed(), s.Failures, s.Errors, s.Skipped, s.Duration.Seconds())
}

type junitMessage struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

type junitCase struct {
	Class   string        `xml:"classname,attr"`
	Name    string        `xml:"name,attr"`
	Failure *junitMessage `xml:"failure"`
	Error   *junitMessage `xml:"error"`
	Skipped *junitMessage `xml:"skipped"`
}

type junitSuite struct {
	Time  float64     `xml:"time,attr"`
	Cases []junitCase `xml:"testcase"`
}

// junitDocument accepts both a <testsuites> root and a bare <testsuite>.
type junitDocument struct {
	XMLName xml.Name
	Suites  []junitSuite `xml:"testsuite"`
	junitSuite
}

// ParseJUnit reads a JUnit XML report.
func ParseJUnit(r io.Reader) (Summary, error) {
	var doc junitDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Summary{}, fmt.Errorf("failed to decode junit xml: %w", err)
	}

	var suites []junitSuite
	switch doc.XMLName.Local {
	case "testsuites":
		suites = doc.Suites
	case "testsuite":
		suites = []junitSuite{doc.junitSuite}
	default:
		return Summary{}, fmt.Errorf("unexpected junit root element <%s>", doc.XMLName.Local)
	}

	var s Summary
	var seconds float64
	for _, suite := range suites {
		seconds += suite.Time
		for _, c := range suite.Cases {
			s.Tests++
			switch {
			case c.Failure != nil:
				s.Failures++
				s.Failed = append(s.Failed, CaseResult{Class: c.Class, Name: c.Name, Kind: "failure", Message: firstLine(c.Failure)})
			case c.Error != nil:
				s.Errors++
				s.Failed = append(s.Failed, CaseResult{Class: c.Class, Name: c.Name, Kind: "error", Message: firstLine(c.Error)})
			case c.Skipped != nil:
				s.Skipped++
			}
		}
	}
	s.Duration = time.Duration(seconds * float64(time.Second))
	return s, nil
}

// ParseJUnitFile is ParseJUnit on a file path.
func ParseJUnitFile(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open junit report %s: %w", path, err)
	}
	defer f.Close()
	return ParseJUnit(f)
}

func firstLine(m *junitMessage) string {
	msg := strings.TrimSpace(m.Message)
	if msg == "" {
		msg = strings.TrimSpace(m.Text)
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

// Artifacts are files a run left behind in the reports directory.
type Artifacts struct {
	Screenshots []string
	Videos      []string
	Reports     []string // HTML reports
	AllureDirs  []string
}

// Empty reports whether nothing was collected.
func (a Artifacts) Empty() bool {
	return len(a.Screenshots)+len(a.Videos)+len(a.Reports)+len(a.AllureDirs) == 0
}

var (
	screenshotExts = []string{".png", ".jpg", ".jpeg"}
	videoExts      = []string{".webm", ".mp4"}
)

// CollectArtifacts walks dir for files modified at or after since. A missing
// directory yields no artifacts.
func CollectArtifacts(dir string, since time.Time) (Artifacts, error) {
	var a Artifacts
	allure := map[string]bool{}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(since) {
			return nil
		}

		if parent := filepath.Dir(p); strings.Contains(strings.ToLower(filepath.Base(parent)), "allure") {
			allure[parent] = true
			return nil
		}

		ext := strings.ToLower(filepath.Ext(p))
		switch {
		case slices.Contains(screenshotExts, ext):
			a.Screenshots = append(a.Screenshots, p)
		case slices.Contains(videoExts, ext):
			a.Videos = append(a.Videos, p)
		case ext == ".html":
			a.Reports = append(a.Reports, p)
		}
		return nil
	})
	if err != nil {
		return a, fmt.Errorf("failed to collect artifacts from %s: %w", dir, err)
	}

	for d := range allure {
		a.AllureDirs = append(a.AllureDirs, d)
	}
	slices.Sort(a.Screenshots)
	slices.Sort(a.Videos)
	slices.Sort(a.Reports)
	slices.Sort(a.AllureDirs)
	return a, nil
}

// FileURL turns a path into a file:// link that terminals make clickable.
func FileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}
