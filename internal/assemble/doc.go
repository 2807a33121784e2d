// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assemble builds the synthetic RetroHub package: a zip archive that
// mirrors an installed tree with placeholder payloads.
//
// Every package carries the Scaffold folders. Each catalog component is
// placed by the first matching Rule (bios, per-system, graphics, audio,
// generic library, executable, data) and padded to its declared size with
// Filler bytes behind a short text header. Every directory, the root
// included, gets a description file listing its contents, and the root gets
// manifest.json indexing every entry with its blake2b-256 digest.
//
// Plan is pure and returns the same paths for the same catalog. Assemble and
// AssembleFile plan first and write nothing when planning fails; AssembleFile
// renames into place only after the archive is complete.
//
// # Usage
//
//	a := assemble.New(assemble.WithRequired("retrohub.exe"))
//	m, err := a.AssembleFile(ctx, cat, "retrohub-package.zip")
package assemble
