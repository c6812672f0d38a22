// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

const (
	headerHeight    = 2 // Title line plus the breadcrumb of choices made so far.
	footerHeight    = 3 // Status line, help line and spacing.
	maxOutputBytes  = 1 << 20
	maxDigitOptions = 9 // Options beyond nine are reachable with the arrows only.
)
