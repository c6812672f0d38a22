// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package util

import "strings"

// shellSafe lists the bytes that never need quoting in a POSIX shell word.
const shellSafe = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./=:,+@%"

// QuoteArgForShell quotes an argument for safe use in a POSIX shell command.
// It uses single quotes and escapes any internal single quotes.
// Special handling for "~/" prefix allows shell tilde expansion (relies on remote shell behavior).
func QuoteArgForShell(arg string) string {
	if strings.HasPrefix(arg, "~/") {
		quotedPart := strings.ReplaceAll(arg[2:], "'", `'\''`)
		return `~/'` + quotedPart + `'`
	}

	quotedArg := strings.ReplaceAll(arg, "'", `'\''`)
	return `'` + quotedArg + `'`
}

// NeedsQuoting reports whether arg contains anything a shell would interpret.
func NeedsQuoting(arg string) bool {
	if arg == "" {
		return true
	}
	for i := 0; i < len(arg); i++ {
		if !strings.ContainsRune(shellSafe, rune(arg[i])) {
			return true
		}
	}
	return false
}

// JoinForShell renders argv as a single shell command line, quoting only
// the arguments that need it.
func JoinForShell(args []string) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if NeedsQuoting(a) {
			parts = append(parts, QuoteArgForShell(a))
		} else {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}
