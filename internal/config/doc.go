// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for the
// RetroHub setup tool.
//
// # Key Types
//
//   - Config: top-level configuration
//   - ProfilerConfig: hardware thresholds and the install gate
//   - InstallConfig: stage weights and progress pacing
//   - PackageConfig: archive assembly settings
//
// # Configuration Precedence
//
//   - Environment variables (RETROHUB_*)
//   - $XDG_CONFIG_HOME/retrohub/setup.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	weights := cfg.Install.Weights
package config
