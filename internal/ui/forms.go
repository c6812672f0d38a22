// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
)

// --- Form Creation ---

func createMarkersInput(current string) textinput.Model {
	t := textinput.New()
	t.Placeholder = "Marker expression (e.g., smoke and not slow)"
	t.SetValue(current)
	t.Focus()
	t.CharLimit = 200
	t.Width = 60
	t.Validate = validateMarkers
	return t
}

// validateMarkers catches the mistakes pytest would only report after
// collecting the whole suite.
func validateMarkers(s string) error {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced ')'")
			}
		case '"', '\'':
			return fmt.Errorf("quotes are not allowed in marker expressions")
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced '('")
	}

	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	switch fields[len(fields)-1] {
	case "and", "or", "not":
		return fmt.Errorf("expression ends with '%s'", fields[len(fields)-1])
	}
	return nil
}
