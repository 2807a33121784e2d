// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/retrohub-setup/internal/detect"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setup.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Install.Weights.Sum())
	assert.Equal(t, []detect.Attribute{detect.AttrCPU, detect.AttrGPU, detect.AttrRAM}, cfg.GateAttributes())
}

func TestLoadFromPath_PartialOverride(t *testing.T) {
	path := writeConfig(t, `
[profiler.ram]
minimum = 8
recommended = 16

[install]
step_interval_ms = 0
`)
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Profiler.RAM.Minimum)
	assert.Equal(t, 0, cfg.Install.StepIntervalMs)
	// Untouched sections keep their defaults.
	assert.Equal(t, 40, cfg.Profiler.CPU.Minimum)
	assert.Equal(t, 70, cfg.Install.Weights.InstallingComponents)
	assert.Equal(t, "README.txt", cfg.Package.DescriptionFile)
}

func TestLoadFromPath_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[install]\nturbo = true\n")
	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install.turbo")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"weights do not sum", func(c *Config) { c.Install.Weights.Optimizing = 10 }, "install.weights"},
		{"negative weight", func(c *Config) {
			c.Install.Weights.Registering = -5
			c.Install.Weights.Optimizing = 15
		}, "install.weights.registering"},
		{"recommended below minimum", func(c *Config) { c.Profiler.GPU.Recommended = 10 }, "profiler.gpu.recommended"},
		{"unknown gate attribute", func(c *Config) { c.Profiler.GateAttributes = []string{"cpu", "psu"} }, "profiler.gate_attributes"},
		{"increment range", func(c *Config) { c.Install.MaxIncrement = 2 }, "install.max_increment"},
		{"zero min increment", func(c *Config) { c.Install.MinIncrement = 0 }, "install.min_increment"},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
		{"description path", func(c *Config) { c.Package.DescriptionFile = "docs/README.txt" }, "package.description_file"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			var fields []string
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.Contains(t, fields, tc.field)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RETROHUB_CATALOG", "/tmp/catalog.yaml")
	t.Setenv("RETROHUB_TARGET", "/opt/retrohub")
	t.Setenv("RETROHUB_LOG_LEVEL", "debug")
	t.Setenv("RETROHUB_STEP_INTERVAL", "5")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "/tmp/catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, "/opt/retrohub", cfg.Install.DefaultTarget)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Install.StepIntervalMs)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "setup.toml")
	cfg := Default()
	cfg.Profiler.OS.Minimum = 60
	cfg.Package.RequiredComponents = []string{"retrohub.exe"}

	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 60, loaded.Profiler.OS.Minimum)
	assert.Equal(t, []string{"retrohub.exe"}, loaded.Package.RequiredComponents)
}

func TestThresholds_Conversion(t *testing.T) {
	th := Default().Thresholds()
	assert.Equal(t, detect.Threshold{Minimum: 16, Recommended: 32}, th[detect.AttrRAM])
	assert.Len(t, th, 5)
}
