// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package tui starts the interactive run wizard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webqa/internal/config"
	"webqa/internal/discovery"
	"webqa/internal/endpoints"
	"webqa/internal/logger"
	"webqa/internal/runner"
	"webqa/internal/ssh"
	"webqa/internal/ui"
	"webqa/internal/wizard"

	tea "github.com/charmbracelet/bubbletea"
)

// RunTUI runs the Bubble Tea wizard and exits with the code of the last run.
func RunTUI() {
	os.Exit(run())
}

func run() int {
	logger.InitLogger(true)

	cfg, path, err := config.LoadDefault("")
	notice := ""
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		logger.Warn("No configuration file found, using fallback endpoints", "path", path)
		notice = fmt.Sprintf("No configuration file at %s; only built-in endpoints are available.", path)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	root, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to get working directory: %v\n", err)
		return 1
	}

	manager := ssh.NewManager()
	defer manager.CloseAll()

	opts := ui.Options{
		Planner: wizard.Planner{
			Resolver: endpoints.NewResolver(endpoints.FromConfig(cfg), endpoints.Fallback()),
			Settings: cfg.Runner,
			Root:     root,
		},
		Catalog: discovery.Catalog{Finder: discovery.NewFinder(manager, cfg.Runner), Root: root},
		Defaults: wizard.Choice{
			Verbose: true,
			Workers: cfg.Runner.Workers,
			Timeout: time.Duration(cfg.Runner.Timeout) * time.Second,
		},
		Runner: runner.New(manager),
		Notice: notice,
	}

	// Ctrl+C arrives as a key press in raw mode; SIGTERM ends the program
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	m := ui.InitialModel(ctx, opts)
	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return 130
		}
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %v\n", err)
		return 1
	}

	if fm, ok := final.(interface{ ExitCode() int }); ok {
		return fm.ExitCode()
	}
	return 0
}
