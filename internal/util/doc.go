// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the setup tool.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - AtomicWriteStream: Same, for content produced by a writer callback
//
// Display:
//   - TruncateRunes, TruncateWidth: UTF-8 safe truncation with ellipsis
//   - StringWidth, PadRight: Column alignment for terminal tables
//   - FormatBytes: Human-readable sizes
//
// # Usage
//
//	// Write an archive atomically; a failed build leaves nothing behind
//	err := util.AtomicWriteStream(path, 0644, func(w io.Writer) error {
//		return build(w)
//	})
package util
