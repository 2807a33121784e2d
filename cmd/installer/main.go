// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main provides retrohub-setup, the RetroHub installer.
package main

import (
	"fmt"
	"os"
)

var version = "1.0.0"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+describeError(err))
		os.Exit(exitCode(err))
	}
}
