// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the zerolog logger used by the setup tool.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
)

// logFileRelPath is resolved against the XDG state directory.
const logFileRelPath = "retrohub/setup.log"

// Options controls logger construction.
type Options struct {
	// Level is a zerolog level name ("debug", "info", "warn", ...). Empty means "warn".
	Level string
	// File is the log file path. Empty uses the XDG state dir; "-" disables file output.
	File string
	// Console receives human-readable output. Nil means os.Stderr.
	Console io.Writer
	// NoColor disables ANSI colours on the console writer.
	NoColor bool
}

// Setup builds a logger writing to the console and, when possible, a log file.
// The returned closer releases the log file; it is never nil.
func Setup(opts Options) (zerolog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), noopClose, err
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.Kitchen,
		NoColor:    opts.NoColor,
	}}

	closer := noopClose
	var fileErr error
	path := opts.File
	if path != "-" {
		if path == "" {
			path, fileErr = xdg.StateFile(logFileRelPath)
		}
		if fileErr == nil {
			var f *os.File
			f, fileErr = openLogFile(path)
			if fileErr == nil {
				writers = append(writers, f)
				closer = f.Close
			}
		}
	}

	logger := zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()

	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}

	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("path", path).Msg("Failed to open log file, logging to console only")
	}

	logger.Debug().Str("level", level.String()).Str("logFile", path).Msg("Logger initialized")
	return logger, closer, nil
}

// ParseLevel parses a level name; the empty string maps to warn.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// LogOperationStart logs the start of an operation and returns a function that logs its completion.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func noopClose() error { return nil }
