// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package cli implements the flag-driven webqa commands on top of cobra. The
// same planner and runner back the interactive front end in cmd/tui.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"webqa/internal/command"
	"webqa/internal/config"
	"webqa/internal/endpoints"
	"webqa/internal/logger"
	"webqa/internal/runner"
	"webqa/internal/ssh"
	"webqa/internal/wizard"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	sshManager *ssh.Manager

	// Loaded by the root command before any subcommand runs
	cfg           config.Config
	cfgPath       string
	configMissing bool

	configFlag string
	rootFlag   string

	statusColor     = color.New(color.FgCyan)
	errorColor      = color.New(color.FgRed)
	stepColor       = color.New(color.FgYellow)
	successColor    = color.New(color.FgGreen)
	identifierColor = color.New(color.FgBlue)
	dimColor        = color.New(color.Faint)
)

// usageError marks bad arguments or configuration. It exits with code 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, a ...any) error {
	return &usageError{err: fmt.Errorf(format, a...)}
}

// usageArgs wraps a positional argument validator so its failures exit with code 2.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

var rootCmd = &cobra.Command{
	Use:   "webqa",
	Short: "Browser test runner for the booking, call center and intake apps",
	Long: `webqa resolves the endpoints of a project environment, builds the pytest
command for the browser suite and runs it locally or on an SSH test host.

Run without arguments for the interactive wizard. Endpoints come from
config/config.yaml (or --config, $WEBQA_CONFIG, ~/.config/webqa/config.yaml);
bookslot has built-in staging and production endpoints when no file exists.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return err
		}
		sshManager = ssh.NewManager()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if sshManager != nil {
			sshManager.CloseAll()
		}
		return nil
	},
}

// loadConfiguration reads the config file into cfg. A missing default file is
// not an error; resolution then uses only the built-in fallback table.
func loadConfiguration() error {
	loaded, path, err := config.LoadDefault(configFlag)
	cfgPath = path
	configMissing = false
	switch {
	case errors.Is(err, config.ErrConfigNotFound) && configFlag == "":
		logger.Debug("No configuration file found, using fallback endpoints", "path", path)
		configMissing = true
	case err != nil:
		return &usageError{err: err}
	}
	cfg = loaded
	return nil
}

func newResolver() *endpoints.Resolver {
	return endpoints.NewResolver(endpoints.FromConfig(cfg), endpoints.Fallback())
}

// runRoot is the local checkout the suite runs in.
func runRoot() (string, error) {
	resolved, err := config.ResolvePath(rootFlag)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to resolve run root %s: %w", resolved, err)
	}
	return abs, nil
}

func newPlanner() (wizard.Planner, error) {
	root, err := runRoot()
	if err != nil {
		return wizard.Planner{}, err
	}
	return wizard.Planner{Resolver: newResolver(), Settings: cfg.Runner, Root: root}, nil
}

// warnMissingConfig tells the user that only fallback endpoints are available.
func warnMissingConfig(w io.Writer) {
	if configMissing {
		stepColor.Fprintf(w, "No configuration file found (looked for %s); using built-in endpoints.\n", cfgPath)
	}
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	var exitErr *runner.ExitError
	var usageErr *usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.As(err, &usageErr),
		errors.Is(err, wizard.ErrEndpointNotConfigured),
		errors.Is(err, command.ErrNoTestPath):
		return 2
	default:
		return 1
	}
}

// Execute runs the command line in args and returns the exit code.
func Execute(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if sshManager != nil {
		sshManager.CloseAll()
	}

	// A failing runner already printed its own output and summary
	var exitErr *runner.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return ExitCode(err)
}

// RunCLI executes the CLI with the process arguments and exits.
func RunCLI() {
	logger.InitLogger(false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".", "local checkout of the test suite")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	_ = rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	_ = rootCmd.MarkPersistentFlagDirname("root")
}
