// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Command retrohub-setup is the RetroHub installer and package builder.

# Overview

The installer profiles the machine, lets the user pick optional components
and installs the selection through the installation scheduler. On a
terminal it runs an interactive Bubble Tea installer; --text (or a
non-interactive stdin) switches to a line-based installer that is easy to
copy and paste from.

# Commands

	detect [--json] [--simulate]      Profile this machine
	catalog [--deps NAME]             List components or show dependencies
	validate NAME...                  Check a selection covers every required component
	install [--target DIR] [--with NAME,...] [--text] [--simulate] [--yes]
	assemble [--out FILE] [--quiet]   Build the offline distribution package
	config show | init                Print or write the configuration

Global flags: --config, --catalog, --log-level, --log-file, --no-color.

# Exit Codes

	0    success
	1    general error
	2    invalid arguments or catalog
	3    configuration error
	4    hardware does not meet the minimum
	5    selection is missing required components
	6    a component failed to install
	7    package assembly failed
	130  cancelled

# Building

	go build -o retrohub-setup ./cmd/installer

Or with version information:

	go build -ldflags "-X main.version=1.0.0" -o retrohub-setup ./cmd/installer

# Architecture

  - main.go: entry point and exit status
  - commands.go: cobra command tree
  - wire.go: builds the profiler, scheduler and assembler from configuration
  - tui.go: interactive installer model (welcome, select, installing, complete)
  - text.go: line-based installer using liner prompts
  - terminal.go: styles, TTY detection, Markdown rendering, tables
*/
package main
