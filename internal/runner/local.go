// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"webqa/internal/logger"
)

// runLocalCommand executes the invocation on this machine.
func (r *Runner) runLocalCommand(ctx context.Context, inv Invocation, cliMode bool, outChan chan<- OutputLine, errChan chan<- error) {
	cmdDesc := inv.Describe()

	cmd := exec.CommandContext(ctx, inv.Args[0], inv.Args[1:]...)
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(), inv.envList()...)

	logger.Info("Starting runner", "target", "local", "args", inv.Args, "dir", inv.Dir)

	var cmdErr error
	if cliMode {
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr

		if err := cmd.Start(); err != nil {
			errChan <- fmt.Errorf("failed to start %s: %w", cmdDesc, err)
			return
		}
		cmdErr = cmd.Wait()
	} else {
		stdoutPipe, err := cmd.StdoutPipe()
		if err != nil {
			errChan <- fmt.Errorf("failed to get stdout pipe for %s: %w", cmdDesc, err)
			return
		}
		stderrPipe, err := cmd.StderrPipe()
		if err != nil {
			errChan <- fmt.Errorf("failed to get stderr pipe for %s: %w", cmdDesc, err)
			return
		}

		if err := cmd.Start(); err != nil {
			errChan <- fmt.Errorf("failed to start %s: %w", cmdDesc, err)
			return
		}

		outputDone := make(chan struct{}, 2)
		go streamPipe(stdoutPipe, outChan, outputDone, false)
		go streamPipe(stderrPipe, outChan, outputDone, true)

		// Pipes must be drained before Wait closes them
		<-outputDone
		<-outputDone
		cmdErr = cmd.Wait()
	}

	if cmdErr != nil {
		var exitErr *exec.ExitError
		if errors.As(cmdErr, &exitErr) && exitErr.ExitCode() >= 0 {
			logger.Info("Runner finished", "target", "local", "exit_code", exitErr.ExitCode())
			errChan <- &ExitError{Desc: cmdDesc, Code: exitErr.ExitCode(), Err: cmdErr}
			return
		}
		errChan <- fmt.Errorf("%s failed: %w", cmdDesc, cmdErr)
		return
	}
	logger.Info("Runner finished", "target", "local", "exit_code", 0)
}
