// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !unix && !windows

package install

import (
	"errors"
	"runtime"
)

func getFreeDiskSpace(string) (uint64, error) {
	return 0, errors.New("free space query not supported on " + runtime.GOOS)
}
