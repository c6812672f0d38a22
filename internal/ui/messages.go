// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui's messages.go file defines the message types used in the Bubble Tea
// Model-View-Update architecture. These messages are sent between components
// to communicate state changes and trigger UI updates.

package ui

import (
	"webqa/internal/runner"
	"webqa/internal/wizard"
)

// Test discovery messages
type testsDiscoveredMsg struct {
	project string
	tests   []string
	err     error
}

// Runner messages
type channelsAvailableMsg struct {
	outChan <-chan runner.OutputLine // Channel for receiving runner output
	errChan <-chan error             // Channel for receiving the runner result
}
type outputLineMsg struct{ line runner.OutputLine } // One chunk of runner output
type outputDoneMsg struct{}                         // The output channel closed
type runFinishedMsg struct{ err error }             // The runner exited
type outcomeCollectedMsg struct {
	outcome wizard.Outcome
	err     error // Reports could not be read; the exit code is still valid
}

// Clipboard messages
type commandCopiedMsg struct{ err error }
