// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/retrohub-setup/internal/assemble"
	"github.com/jeranaias/retrohub-setup/internal/catalog"
	"github.com/jeranaias/retrohub-setup/internal/config"
	"github.com/jeranaias/retrohub-setup/internal/detect"
	"github.com/jeranaias/retrohub-setup/internal/install"
	"github.com/jeranaias/retrohub-setup/internal/logging"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// simulatedHardware is reported by --simulate: a machine that passes every
// gate with room to spare.
var simulatedHardware = detect.StaticProbe{
	CPUModel:    "AMD Ryzen 7 5800X 8-Core Processor",
	GPUModel:    "NVIDIA GeForce RTX 3070",
	MemoryBytes: 32 << 30,
	OS:          "Windows 11 Pro",
	GraphicsAPI: "1.3.250",
}

// app holds what every subcommand needs after the root command has
// loaded configuration and logging.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	closeLog func() error
	catalog  *catalog.Catalog
}

// newApp loads the catalog named by cfg.
func newApp(cfg *config.Config, logger zerolog.Logger, closeLog func() error) (*app, error) {
	cat, err := catalog.LoadOrDefault(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("components", cat.Len()).Str("path", cfg.Catalog.Path).Msg("Catalog loaded")
	return &app{cfg: cfg, logger: logger, closeLog: closeLog, catalog: cat}, nil
}

func (a *app) close() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// profiler builds the hardware profiler. simulate swaps the system probe for
// simulatedHardware.
func (a *app) profiler(simulate bool) *detect.Profiler {
	var probe detect.Probe = detect.SystemProbe{}
	if simulate {
		probe = simulatedHardware
	}
	return detect.NewProfiler(probe,
		detect.WithThresholds(a.cfg.Thresholds()),
		detect.WithFallbackScore(a.cfg.Profiler.FallbackScore),
		detect.WithTimeout(time.Duration(a.cfg.Profiler.ProbeTimeoutSecs)*time.Second),
		detect.WithLogger(logging.Component(a.logger, "detect")),
	)
}

// schedulerOptions converts the install section of the config.
func (a *app) schedulerOptions() []install.Option {
	ic := a.cfg.Install
	opts := []install.Option{
		install.WithGate(a.cfg.GateAttributes()...),
		install.WithWeights(install.Weights{
			Preparing:            ic.Weights.Preparing,
			CreatingDirectories:  ic.Weights.CreatingDirectories,
			InstallingComponents: ic.Weights.InstallingComponents,
			Registering:          ic.Weights.Registering,
			CreatingShortcuts:    ic.Weights.CreatingShortcuts,
			Optimizing:           ic.Weights.Optimizing,
		}),
		install.WithProgress(install.RandomIncrements{Min: ic.MinIncrement, Max: ic.MaxIncrement}),
		install.WithPacer(install.NewRatePacer(time.Duration(ic.StepIntervalMs) * time.Millisecond)),
		install.WithLogger(logging.Component(a.logger, "install")),
	}
	if !ic.CheckDiskSpace {
		opts = append(opts, install.WithSpaceChecker(nil))
	}
	return opts
}

func (a *app) scheduler(p *detect.Profiler) (*install.Scheduler, error) {
	return install.NewScheduler(a.catalog, p, a.schedulerOptions()...)
}

func (a *app) assembler() *assemble.Assembler {
	pc := a.cfg.Package
	opts := []assemble.Option{
		assemble.WithDescriptionFile(pc.DescriptionFile),
		assemble.WithLogger(logging.Component(a.logger, "assemble")),
	}
	if len(pc.RequiredComponents) > 0 {
		opts = append(opts, assemble.WithRequired(pc.RequiredComponents...))
	}
	return assemble.New(opts...)
}
