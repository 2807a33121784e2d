// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package install

import (
	"context"

	"github.com/jeranaias/retrohub-setup/internal/catalog"
)

// Worker performs the work behind one progress increment of a component.
// It is called with strictly increasing progress values ending at 100.
// Returning an error marks the component failed.
type Worker interface {
	Install(ctx context.Context, artifact catalog.Artifact, progress int) error
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, artifact catalog.Artifact, progress int) error

// Install calls f.
func (f WorkerFunc) Install(ctx context.Context, artifact catalog.Artifact, progress int) error {
	return f(ctx, artifact, progress)
}

// PlaceholderWorker has no side effects. Components carry no runtime payload,
// so installation is progress accounting only.
type PlaceholderWorker struct{}

// Install always succeeds.
func (PlaceholderWorker) Install(context.Context, catalog.Artifact, int) error { return nil }
