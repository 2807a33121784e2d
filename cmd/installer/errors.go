// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"errors"
	"strings"

	"github.com/jeranaias/retrohub-setup/internal/config"
	"github.com/jeranaias/retrohub-setup/internal/errs"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid arguments or catalog input
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitHardwareError indicates the machine does not meet the minimum
	ExitHardwareError = 4
	// ExitMissingError indicates the selection lacks required components
	ExitMissingError = 5
	// ExitInstallError indicates a component failed to install
	ExitInstallError = 6
	// ExitAssemblyError indicates the package could not be assembled
	ExitAssemblyError = 7
	// ExitCancelled indicates the user cancelled
	ExitCancelled = 130
)

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var verr config.ValidateErrors
	if errors.As(err, &verr) {
		return ExitConfigError
	}

	switch errs.KindOf(err) {
	case errs.KindInvalid:
		return ExitUsageError
	case errs.KindHardwareIncompatible:
		return ExitHardwareError
	case errs.KindMissingDependency:
		return ExitMissingError
	case errs.KindComponentInstallFailed:
		return ExitInstallError
	case errs.KindArchiveAssemblyFailed:
		return ExitAssemblyError
	case errs.KindCancelled:
		return ExitCancelled
	case errs.KindSessionActive:
		return ExitGeneralError
	}

	if strings.Contains(strings.ToLower(err.Error()), "config") {
		return ExitConfigError
	}
	return ExitGeneralError
}

// describeError renders err for the terminal, listing missing components.
func describeError(err error) string {
	msg := err.Error()
	if missing := errs.MissingOf(err); len(missing) > 0 && !strings.Contains(msg, missing[0]) {
		msg += "\n  missing: " + strings.Join(missing, ", ")
	}
	return msg
}
