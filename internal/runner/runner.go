// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package runner executes test runner invocations locally or on a remote test
// host and reports the runner's exit code.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"webqa/internal/config"
	"webqa/internal/ssh"
)

// Invocation describes one run of the external test runner.
type Invocation struct {
	// Name is a short description used in messages
	Name string

	// Args is the full argv, runner first
	Args []string

	// Dir is the working directory: local checkout, or remote root on a host
	Dir string

	// Env is added to the runner's environment
	Env map[string]string

	// Host selects remote execution; nil runs locally
	Host *config.Host
}

// Describe returns the invocation name with its target for messages.
func (inv Invocation) Describe() string {
	target := "local"
	if inv.Host != nil {
		target = inv.Host.Name
	}
	if inv.Name == "" {
		return fmt.Sprintf("runner on %s", target)
	}
	return fmt.Sprintf("%s on %s", inv.Name, target)
}

// envList renders Env as sorted KEY=value pairs.
func (inv Invocation) envList() []string {
	keys := make([]string, 0, len(inv.Env))
	for k := range inv.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+inv.Env[k])
	}
	return pairs
}

type OutputLine struct {
	Line    string
	IsError bool // True if the chunk came from stderr
}

// ExitError reports a runner that finished with a non-zero exit code.
type ExitError struct {
	Desc string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Desc, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a Run error to a process exit code: 0 for nil, the runner's
// own code for an ExitError, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Runner starts invocations. The zero value is not usable; call New.
type Runner struct {
	ssh *ssh.Manager

	// Stdout and Stderr receive output in CLI mode.
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a runner. manager may be nil when no remote hosts are used.
func New(manager *ssh.Manager) *Runner {
	return &Runner{ssh: manager, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts the invocation and returns its output and error channels.
// If cliMode is true, output goes directly to Stdout/Stderr and outChan only
// closes. If cliMode is false, output chunks are sent over outChan.
// errChan yields at most one error and is closed when the runner has exited;
// a closed channel without error means the runner passed.
func (r *Runner) Run(ctx context.Context, inv Invocation, cliMode bool) (<-chan OutputLine, <-chan error) {
	// Buffer channel slightly for TUI mode to prevent blocking on rapid output
	outChan := make(chan OutputLine, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(outChan)
		defer close(errChan)

		if len(inv.Args) == 0 {
			errChan <- fmt.Errorf("empty command for %s", inv.Describe())
			return
		}

		if inv.Host != nil {
			r.runSSHCommand(ctx, inv, cliMode, outChan, errChan)
		} else {
			r.runLocalCommand(ctx, inv, cliMode, outChan, errChan)
		}
	}()

	return outChan, errChan
}

// Wait runs the invocation in CLI mode and blocks until it exits.
func (r *Runner) Wait(ctx context.Context, inv Invocation) error {
	outChan, errChan := r.Run(ctx, inv, true)
	for range outChan {
	}
	return <-errChan
}

// streamPipe reads raw chunks from the pipe and sends them over the outChan.
// Raw chunks keep carriage returns and colour codes intact for the TUI.
func streamPipe(pipe io.Reader, outChan chan<- OutputLine, doneChan chan<- struct{}, isError bool) {
	defer func() { doneChan <- struct{}{} }()
	buf := make([]byte, 1024)
	for {
		n, err := pipe.Read(buf)
		if n > 0 {
			outChan <- OutputLine{Line: string(buf[:n]), IsError: isError}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, os.ErrClosed) {
				outChan <- OutputLine{Line: fmt.Sprintf("pipe read error: %v\n", err), IsError: true}
			}
			return
		}
	}
}

// RemoteCommand renders the shell line executed on a test host.
func RemoteCommand(inv Invocation, quote func(string) string) string {
	var parts []string
	if inv.Dir != "" {
		parts = append(parts, "cd", quote(inv.Dir), "&&")
	}
	if env := inv.envList(); len(env) > 0 {
		parts = append(parts, "env")
		for _, kv := range env {
			parts = append(parts, quote(kv))
		}
	}
	for _, a := range inv.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}
