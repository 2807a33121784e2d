// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package install

import (
	"os"
	"path/filepath"
)

// SpaceChecker reports the bytes available to the current user at path.
type SpaceChecker interface {
	FreeSpace(path string) (uint64, error)
}

// SpaceFunc adapts a function to SpaceChecker.
type SpaceFunc func(path string) (uint64, error)

// FreeSpace calls f.
func (f SpaceFunc) FreeSpace(path string) (uint64, error) { return f(path) }

// DiskSpace queries the filesystem holding path. The target usually does not
// exist yet, so the nearest existing ancestor is measured.
type DiskSpace struct{}

// FreeSpace implements SpaceChecker.
func (DiskSpace) FreeSpace(path string) (uint64, error) {
	return getFreeDiskSpace(existingAncestor(path))
}

func existingAncestor(path string) string {
	p := filepath.Clean(path)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
