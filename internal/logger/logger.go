// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package logger wraps a process-wide slog logger that writes JSON records to
// the webqa state directory and, in CLI mode, to stderr.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// TODO: Consider log rotation once suites start producing long runner transcripts.

const levelEnvVar = "WEBQA_LOG_LEVEL"

var defaultLogger *slog.Logger

// getLogFilePath determines the path for the application log file under XDG_STATE_HOME.
func getLogFilePath() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}

	return filepath.Join(stateDir, "webqa", "app.log"), nil
}

// ParseLevel maps a level name to a slog level. Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLogging configures the default logger based on whether to log to file and/or stderr.
func setupLogging(logToFile bool, logToStderr bool) (string, error) {
	if !logToFile && !logToStderr {
		logToStderr = true
	}

	var writers []io.Writer
	logFilePath := ""

	if logToFile {
		path, err := getLogFilePath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error determining log file path: %v. File logging disabled.\n", err)
		} else if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating log directory %s: %v. File logging disabled.\n", filepath.Dir(path), err)
		} else {
			// The handle stays open for the life of the process.
			file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening log file %s: %v. File logging disabled.\n", path, err)
			} else {
				writers = append(writers, file)
				logFilePath = path
			}
		}
	}

	if logToStderr {
		writers = append(writers, os.Stderr)
	}

	var finalWriter io.Writer
	switch len(writers) {
	case 0:
		finalWriter = os.Stderr
	case 1:
		finalWriter = writers[0]
	default:
		finalWriter = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(os.Getenv(levelEnvVar))}
	defaultLogger = slog.New(slog.NewJSONHandler(finalWriter, opts))
	return logFilePath, nil
}

// InitLogger initializes the logger based on the execution mode (TUI or CLI).
// It must be called once at the beginning of the application.
func InitLogger(isTUI bool) {
	logToStderr := !isTUI

	logFilePath, err := setupLogging(true, logToStderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger initialization failed: %v. Falling back to basic stderr logging.\n", err)
		defaultLogger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		return
	}
	if logFilePath != "" {
		Debug("Logging configured", "file", logFilePath, "stderr", logToStderr)
	}
}

// SetLogger replaces the default logger instance. Tests use it to silence output.
func SetLogger(l *slog.Logger) {
	defaultLogger = l
}

// Discard installs a logger that drops every record.
func Discard() {
	defaultLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// checkLogger ensures the logger is initialized before use, preventing nil panics.
func checkLogger() {
	if defaultLogger == nil {
		InitLogger(false)
	}
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	checkLogger()
	defaultLogger.Info(msg, args...)
}

// Infof logs a formatted informational message.
func Infof(format string, v ...interface{}) {
	checkLogger()
	defaultLogger.Info(fmt.Sprintf(format, v...))
}

// Error logs an error message.
func Error(msg string, args ...any) {
	checkLogger()
	defaultLogger.Error(msg, args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...interface{}) {
	checkLogger()
	defaultLogger.Error(fmt.Sprintf(format, v...))
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	checkLogger()
	defaultLogger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	checkLogger()
	defaultLogger.Warn(msg, args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...interface{}) {
	checkLogger()
	defaultLogger.Warn(fmt.Sprintf(format, v...))
}
