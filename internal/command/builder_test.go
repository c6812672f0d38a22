// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package command

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_ProductionHeadedVerbose(t *testing.T) {
	b := New().
		SetTestPath("pages/bookslot/bookslots_basicinfo.py").
		Verbose().
		Headed().
		Env("production")

	for i := 0; i < 3; i++ {
		got, err := b.Build()
		require.NoError(t, err)
		assert.Contains(t, got, "--env=production")
		assert.Contains(t, got, "--headed")
		assert.Contains(t, got, "pages/bookslot/bookslots_basicinfo.py")
		assert.Equal(t, "pytest --env=production --headed -v pages/bookslot/bookslots_basicinfo.py", got)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	b := New("python", "-m", "pytest").
		Env("staging").
		Browser("firefox").
		Markers("smoke and not slow").
		SetTestPath("tests/bookslot")

	first, err := b.Build()
	require.NoError(t, err)
	second, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuild_OrderIsIndependentOfCallOrder(t *testing.T) {
	a := New().SetTestPath("tests").Verbose().Headed().Env("staging").Browser("webkit")
	b := New().Browser("webkit").Env("staging").Headed().Verbose().SetTestPath("tests")

	ga, err := a.Build()
	require.NoError(t, err)
	gb, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, ga, gb)
}

func TestBuild_VerboseIsIdempotent(t *testing.T) {
	once, err := New().Verbose().SetTestPath("tests").Build()
	require.NoError(t, err)
	twice, err := New().Verbose().Verbose().SetTestPath("tests").Build()
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, strings.Count(twice, "-v"))
}

func TestBuild_SetTestPathOverwrites(t *testing.T) {
	got, err := New().SetTestPath("tests/a.py").SetTestPath("tests/b.py").Build()
	require.NoError(t, err)
	assert.Equal(t, "pytest tests/b.py", got)
}

func TestBuild_NoTestPath(t *testing.T) {
	_, err := New().Env("staging").Verbose().Build()
	assert.ErrorIs(t, err, ErrNoTestPath)

	_, err = New().Args()
	assert.ErrorIs(t, err, ErrNoTestPath)
}

func TestArgs_AllFlags(t *testing.T) {
	args, err := New("pytest").
		SetTestPath("tests/callcenter").
		Extra("--reruns=1").
		AllureDir("reports/allure").
		HTMLReport("reports/report.html").
		JUnitXML("reports/junit.xml").
		Markers("smoke").
		Timeout(1500 * time.Millisecond).
		Workers(4).
		Verbose().
		Headed().
		Browser("chromium").
		Env("staging").
		Args()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"pytest",
		"--env=staging",
		"--browser=chromium",
		"--headed",
		"-v",
		"-n=4",
		"--timeout=2",
		"-m", "smoke",
		"--junitxml=reports/junit.xml",
		"--html=reports/report.html", "--self-contained-html",
		"--alluredir=reports/allure",
		"--reruns=1",
		"tests/callcenter",
	}, args)
}

func TestArgs_NonPositiveValuesAreOmitted(t *testing.T) {
	args, err := New().Workers(-2).Timeout(-time.Second).SetTestPath("tests").Args()
	require.NoError(t, err)
	assert.Equal(t, []string{"pytest", "tests"}, args)
}

func TestBuild_QuotesWhereNeeded(t *testing.T) {
	got, err := New().Markers("smoke and not slow").SetTestPath("tests/it's here.py").Build()
	require.NoError(t, err)
	assert.Equal(t, `pytest -m 'smoke and not slow' 'tests/it'\''s here.py'`, got)
}

func TestNew_CopiesPrefix(t *testing.T) {
	prefix := []string{"python", "-m", "pytest"}
	b := New(prefix...)
	prefix[0] = "ruby"

	got, err := b.SetTestPath("tests").Build()
	require.NoError(t, err)
	assert.Equal(t, "python -m pytest tests", got)
}
