// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pytestJUnit = `<?xml version="1.0" encoding="utf-8"?>
<testsuites>
  <testsuite name="pytest" errors="1" failures="1" skipped="1" tests="5" time="12.5">
    <testcase classname="tests.bookslot.test_booking" name="test_book_slot" time="3.1"/>
    <testcase classname="tests.bookslot.test_booking" name="test_cancel" time="2.0">
      <failure message="AssertionError: slot still listed&#10;assert 1 == 0">trace</failure>
    </testcase>
    <testcase classname="tests.bookslot.test_booking" name="test_reschedule" time="0.1">
      <error message="">fixture 'page' not found
more detail</error>
    </testcase>
    <testcase classname="tests.bookslot.test_booking" name="test_waitlist" time="0.0">
      <skipped message="waitlist disabled on staging"/>
    </testcase>
    <testcase classname="tests.bookslot.test_basicinfo" name="test_fill_form" time="7.3"/>
  </testsuite>
</testsuites>`

func TestParseJUnit(t *testing.T) {
	s, err := ParseJUnit(strings.NewReader(pytestJUnit))
	require.NoError(t, err)

	assert.Equal(t, 5, s.Tests)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 2, s.Passed())
	assert.False(t, s.OK())
	assert.Equal(t, 12500*time.Millisecond, s.Duration)
	assert.Equal(t, "2 passed, 1 failed, 1 errors, 1 skipped in 12.50s", s.Line())

	require.Len(t, s.Failed, 2)
	assert.Equal(t, CaseResult{
		Class:   "tests.bookslot.test_booking",
		Name:    "test_cancel",
		Kind:    "failure",
		Message: "AssertionError: slot still listed",
	}, s.Failed[0])
	assert.Equal(t, "tests.bookslot.test_booking::test_reschedule", s.Failed[1].ID())
	assert.Equal(t, "fixture 'page' not found", s.Failed[1].Message)
}

func TestParseJUnit_BareTestsuite(t *testing.T) {
	doc := `<testsuite name="pytest" tests="1" time="0.25"><testcase classname="c" name="test_ok"/></testsuite>`
	s, err := ParseJUnit(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Tests)
	assert.True(t, s.OK())
	assert.Equal(t, 250*time.Millisecond, s.Duration)
}

func TestParseJUnit_Invalid(t *testing.T) {
	_, err := ParseJUnit(strings.NewReader("<html></html>"))
	assert.ErrorContains(t, err, "unexpected junit root element <html>")

	_, err = ParseJUnit(strings.NewReader("not xml"))
	assert.Error(t, err)

	_, err = ParseJUnitFile(filepath.Join(t.TempDir(), "missing.xml"))
	assert.ErrorContains(t, err, "failed to open junit report")
}

func TestCollectArtifacts(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string, mod time.Time) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
		require.NoError(t, os.Chtimes(p, mod, mod))
	}

	start := time.Now().Add(-time.Minute)
	old := start.Add(-time.Hour)

	write("screenshots/test_cancel.png", start.Add(time.Second))
	write("videos/test_cancel.webm", start.Add(time.Second))
	write("report.html", start.Add(2*time.Second))
	write("allure-results/abc-result.json", start.Add(time.Second))
	write("allure-results/def-attachment.png", start.Add(time.Second))
	write("screenshots/previous_run.png", old)
	write("junit.xml", start.Add(time.Second))

	a, err := CollectArtifacts(dir, start)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "screenshots", "test_cancel.png")}, a.Screenshots)
	assert.Equal(t, []string{filepath.Join(dir, "videos", "test_cancel.webm")}, a.Videos)
	assert.Equal(t, []string{filepath.Join(dir, "report.html")}, a.Reports)
	assert.Equal(t, []string{filepath.Join(dir, "allure-results")}, a.AllureDirs)
	assert.False(t, a.Empty())
}

func TestCollectArtifacts_MissingDir(t *testing.T) {
	a, err := CollectArtifacts(filepath.Join(t.TempDir(), "reports"), time.Time{})
	require.NoError(t, err)
	assert.True(t, a.Empty())
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "file:///tmp/reports/video%20one.webm", FileURL("/tmp/reports/video one.webm"))
}
