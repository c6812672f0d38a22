// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"webqa/internal/logger"
	"webqa/internal/util"

	gossh "golang.org/x/crypto/ssh"
)

// runSSHCommand executes the invocation on its test host.
func (r *Runner) runSSHCommand(ctx context.Context, inv Invocation, cliMode bool, outChan chan<- OutputLine, errChan chan<- error) {
	cmdDesc := inv.Describe()

	if r.ssh == nil {
		errChan <- fmt.Errorf("ssh manager not initialized for %s", cmdDesc)
		return
	}

	client, err := r.ssh.GetClient(*inv.Host)
	if err != nil {
		errChan <- fmt.Errorf("failed to get ssh client for %s: %w", cmdDesc, err)
		return
	}

	session, err := client.NewSession()
	if err != nil {
		errChan <- fmt.Errorf("failed to create ssh session for %s: %w", cmdDesc, err)
		return
	}
	defer session.Close()

	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		errChan <- fmt.Errorf("failed to get ssh stdout pipe for %s: %w", cmdDesc, err)
		return
	}
	stderrPipe, err := session.StderrPipe()
	if err != nil {
		errChan <- fmt.Errorf("failed to get ssh stderr pipe for %s: %w", cmdDesc, err)
		return
	}

	// A PTY keeps pytest's coloured progress output
	modes := gossh.TerminalModes{
		gossh.ECHO:          0,
		gossh.TTY_OP_ISPEED: 14400,
		gossh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-256color", 40, 120, modes); err != nil {
		logger.Warn("Failed to request pty, continuing without one", "host", inv.Host.Name, "error", err)
	}

	remoteCmd := RemoteCommand(inv, util.QuoteArgForShell)
	logger.Info("Starting runner", "target", inv.Host.Name, "command", remoteCmd)

	if err := session.Start(remoteCmd); err != nil {
		errChan <- fmt.Errorf("failed to start remote command for %s: %w", cmdDesc, err)
		return
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Signal(gossh.SIGINT)
			_ = session.Close()
		case <-stop:
		}
	}()

	var cmdErr error
	if cliMode {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = io.Copy(r.Stdout, stdoutPipe)
		}()
		go func() {
			defer wg.Done()
			_, _ = io.Copy(r.Stderr, stderrPipe)
		}()
		wg.Wait()
		cmdErr = session.Wait()
	} else {
		outputDone := make(chan struct{}, 2)
		go streamPipe(stdoutPipe, outChan, outputDone, false)
		go streamPipe(stderrPipe, outChan, outputDone, true)
		<-outputDone
		<-outputDone
		cmdErr = session.Wait()
	}

	if cmdErr != nil {
		var exitErr *gossh.ExitError
		if errors.As(cmdErr, &exitErr) {
			logger.Info("Runner finished", "target", inv.Host.Name, "exit_code", exitErr.ExitStatus())
			errChan <- &ExitError{Desc: cmdDesc, Code: exitErr.ExitStatus(), Err: cmdErr}
			return
		}
		errChan <- fmt.Errorf("%s failed: %w", cmdDesc, cmdErr)
		return
	}
	logger.Info("Runner finished", "target", inv.Host.Name, "exit_code", 0)
}
