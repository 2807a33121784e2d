// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package install

import (
	"fmt"

	"github.com/jeranaias/retrohub-setup/internal/errs"
)

// Weights assigns each working stage its share of the 0-100 overall range.
type Weights struct {
	Preparing            int
	CreatingDirectories  int
	InstallingComponents int
	Registering          int
	CreatingShortcuts    int
	Optimizing           int
}

// DefaultWeights returns 5/10/70/5/5/5.
func DefaultWeights() Weights {
	return Weights{
		Preparing:            5,
		CreatingDirectories:  10,
		InstallingComponents: 70,
		Registering:          5,
		CreatingShortcuts:    5,
		Optimizing:           5,
	}
}

// Of returns the weight of stage, or 0 for stages without one.
func (w Weights) Of(stage Stage) int {
	switch stage {
	case StagePreparing:
		return w.Preparing
	case StageCreatingDirectories:
		return w.CreatingDirectories
	case StageInstallingComponents:
		return w.InstallingComponents
	case StageRegistering:
		return w.Registering
	case StageCreatingShortcuts:
		return w.CreatingShortcuts
	case StageOptimizing:
		return w.Optimizing
	}
	return 0
}

// Sum returns the total of all weights.
func (w Weights) Sum() int {
	total := 0
	for _, s := range pipeline {
		total += w.Of(s)
	}
	return total
}

// Validate checks that every weight is non-negative and the total is 100.
func (w Weights) Validate() error {
	for _, s := range pipeline {
		if w.Of(s) < 0 {
			return errs.Newf(errs.KindInvalid, "stage weight for %s is negative", s)
		}
	}
	if sum := w.Sum(); sum != 100 {
		return errs.New(errs.KindInvalid, fmt.Sprintf("stage weights sum to %d, want 100", sum))
	}
	return nil
}

// Start returns the overall progress at the beginning of stage.
func (w Weights) Start(stage Stage) int {
	if stage == StageCompleted {
		return 100
	}
	total := 0
	for _, s := range pipeline {
		if s == stage {
			break
		}
		total += w.Of(s)
	}
	return total
}

// Overall returns the overall progress for being fraction (0..1) through stage:
// the sum of prior stage weights plus fraction of the stage's own weight.
func (w Weights) Overall(stage Stage, fraction float64) int {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	// The epsilon keeps exact shares such as 70*0.3 from truncating to 20.
	v := w.Start(stage) + int(float64(w.Of(stage))*fraction+1e-9)
	if v > 100 {
		v = 100
	}
	return v
}
