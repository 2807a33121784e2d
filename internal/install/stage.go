// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package install

import "fmt"

// =============================================================================
// STAGES
// =============================================================================

// Stage is a step of the installation pipeline.
type Stage int

const (
	// StageIdle is the state of a session that has not started.
	StageIdle Stage = iota
	// StagePreparing checks the target location.
	StagePreparing
	// StageCreatingDirectories lays out the target tree.
	StageCreatingDirectories
	// StageInstallingComponents installs each selected component in turn.
	StageInstallingComponents
	// StageRegistering registers the installation with the host.
	StageRegistering
	// StageCreatingShortcuts creates launcher shortcuts.
	StageCreatingShortcuts
	// StageOptimizing runs post-install optimization.
	StageOptimizing
	// StageCompleted is terminal.
	StageCompleted
	// StageCancelled is terminal.
	StageCancelled
	// StageError is terminal.
	StageError
)

// pipeline lists the working stages in execution order.
var pipeline = []Stage{
	StagePreparing,
	StageCreatingDirectories,
	StageInstallingComponents,
	StageRegistering,
	StageCreatingShortcuts,
	StageOptimizing,
}

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StagePreparing:
		return "Preparing"
	case StageCreatingDirectories:
		return "CreatingDirectories"
	case StageInstallingComponents:
		return "InstallingComponents"
	case StageRegistering:
		return "Registering"
	case StageCreatingShortcuts:
		return "CreatingShortcuts"
	case StageOptimizing:
		return "Optimizing"
	case StageCompleted:
		return "Completed"
	case StageCancelled:
		return "Cancelled"
	case StageError:
		return "Error"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Label returns the user-facing label emitted with progress events.
func (s Stage) Label() string {
	switch s {
	case StageIdle:
		return "Waiting to start"
	case StagePreparing:
		return "Preparing installation"
	case StageCreatingDirectories:
		return "Creating directories"
	case StageInstallingComponents:
		return "Installing components"
	case StageRegistering:
		return "Registering RetroHub"
	case StageCreatingShortcuts:
		return "Creating shortcuts"
	case StageOptimizing:
		return "Optimizing"
	case StageCompleted:
		return "Installation complete"
	case StageCancelled:
		return "Installation cancelled"
	case StageError:
		return "Installation failed"
	default:
		return s.String()
	}
}

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageCancelled || s == StageError
}

// next returns the stage that follows s in the pipeline.
func (s Stage) next() Stage {
	if s >= StageIdle && s < StageOptimizing {
		return s + 1
	}
	if s == StageOptimizing {
		return StageCompleted
	}
	return s
}

// isValidTransition checks a stage change.
// Valid transitions: each stage to its successor, any non-terminal stage to
// Cancelled or Error. Terminal stages accept nothing.
func isValidTransition(from, to Stage) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	switch to {
	case StageCancelled, StageError:
		return true
	default:
		return to == from.next()
	}
}
