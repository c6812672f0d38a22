// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// This file defines the keyboard bindings for the TUI application.
// It maps keys to actions and provides descriptions for the footer help.

package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	// Navigation keys
	Up     key.Binding // Move cursor up / scroll output
	Down   key.Binding // Move cursor down / scroll output
	PgUp   key.Binding // Page up in output
	PgDown key.Binding // Page down in output
	Home   key.Binding // Jump to first option
	End    key.Binding // Jump to last option

	// General UI control
	Quit  key.Binding // Exit the application
	Enter key.Binding // Confirm selection
	Esc   key.Binding // Cancel the markers input

	// Wizard actions
	Headed  key.Binding // Toggle headed browser mode
	Markers key.Binding // Edit the marker expression
	Copy    key.Binding // Copy the runner command to the clipboard
	Restart key.Binding // Start a new selection
}

// DefaultKeyMap provides the default keybindings.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("home", "first"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("end", "last"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Esc: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),

	Headed: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "toggle headed"),
	),
	Markers: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "marker expression"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy command"),
	),
	Restart: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "new run"),
	),
}
