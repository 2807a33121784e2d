// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for the
// RetroHub setup tool.
//
// Configuration file locations (in order of precedence):
//   - RETROHUB_* environment variables
//   - $XDG_CONFIG_HOME/retrohub/setup.toml
//   - Built-in defaults
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/jeranaias/retrohub-setup/internal/detect"
	"github.com/jeranaias/retrohub-setup/internal/logging"
	"github.com/jeranaias/retrohub-setup/internal/util"
)

// configRelPath is resolved against the XDG config directories.
const configRelPath = "retrohub/setup.toml"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete setup configuration.
type Config struct {
	Version string `toml:"version"`

	Catalog  CatalogConfig  `toml:"catalog"`
	Profiler ProfilerConfig `toml:"profiler"`
	Install  InstallConfig  `toml:"install"`
	Package  PackageConfig  `toml:"package"`
	Logging  LoggingConfig  `toml:"logging"`
}

// CatalogConfig selects the component catalog.
type CatalogConfig struct {
	// Path to a TOML or YAML catalog. Empty uses the embedded catalog.
	Path string `toml:"path"`
}

// Threshold is a minimum/recommended score pair for one hardware attribute.
type Threshold struct {
	Minimum     int `toml:"minimum"`
	Recommended int `toml:"recommended"`
}

// ProfilerConfig contains hardware compatibility thresholds.
type ProfilerConfig struct {
	CPU         Threshold `toml:"cpu"`
	GPU         Threshold `toml:"gpu"`
	RAM         Threshold `toml:"ram"`
	GraphicsAPI Threshold `toml:"graphics_api"`
	OS          Threshold `toml:"os"`

	// FallbackScore is assigned to unrecognized CPU/GPU/OS identifiers.
	FallbackScore int `toml:"fallback_score"`
	// GateAttributes must meet their minimum before an install may start.
	GateAttributes []string `toml:"gate_attributes"`
	// ProbeTimeoutSecs bounds hardware probing.
	ProbeTimeoutSecs int `toml:"probe_timeout_secs"`
}

// StageWeights assigns each pipeline stage its share of overall progress.
type StageWeights struct {
	Preparing            int `toml:"preparing"`
	CreatingDirectories  int `toml:"creating_directories"`
	InstallingComponents int `toml:"installing_components"`
	Registering          int `toml:"registering"`
	CreatingShortcuts    int `toml:"creating_shortcuts"`
	Optimizing           int `toml:"optimizing"`
}

// Sum returns the total weight.
func (w StageWeights) Sum() int {
	return w.Preparing + w.CreatingDirectories + w.InstallingComponents +
		w.Registering + w.CreatingShortcuts + w.Optimizing
}

// InstallConfig contains scheduler settings.
type InstallConfig struct {
	// DefaultTarget is the install location offered to the user.
	DefaultTarget string `toml:"default_target"`
	// StepIntervalMs is the delay between progress increments.
	StepIntervalMs int `toml:"step_interval_ms"`
	// MinIncrement and MaxIncrement bound random progress increments.
	MinIncrement int `toml:"min_increment"`
	MaxIncrement int `toml:"max_increment"`
	// CheckDiskSpace enables the free-space check during Preparing.
	CheckDiskSpace bool `toml:"check_disk_space"`

	Weights StageWeights `toml:"weights"`
}

// PackageConfig contains archive assembly settings.
type PackageConfig struct {
	// OutputName is the default archive file name.
	OutputName string `toml:"output_name"`
	// DescriptionFile is the per-folder description file name.
	DescriptionFile string `toml:"description_file"`
	// RequiredComponents must be present in the catalog for assembly to succeed.
	// Empty means the catalog's own required set.
	RequiredComponents []string `toml:"required_components"`
}

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	Level string `toml:"level"`
	// File overrides the XDG state log file; "-" disables file logging.
	File string `toml:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",

		Profiler: ProfilerConfig{
			CPU:              Threshold{Minimum: 40, Recommended: 70},
			GPU:              Threshold{Minimum: 40, Recommended: 70},
			RAM:              Threshold{Minimum: 16, Recommended: 32},
			GraphicsAPI:      Threshold{Minimum: 11, Recommended: 13},
			OS:               Threshold{Minimum: 50, Recommended: 80},
			FallbackScore:    0,
			GateAttributes:   []string{"cpu", "gpu", "ram"},
			ProbeTimeoutSecs: 10,
		},

		Install: InstallConfig{
			DefaultTarget:  defaultTarget(),
			StepIntervalMs: 120,
			MinIncrement:   8,
			MaxIncrement:   25,
			CheckDiskSpace: true,
			Weights: StageWeights{
				Preparing:            5,
				CreatingDirectories:  10,
				InstallingComponents: 70,
				Registering:          5,
				CreatingShortcuts:    5,
				Optimizing:           5,
			},
		},

		Package: PackageConfig{
			OutputName:      "retrohub-package.zip",
			DescriptionFile: "README.txt",
		},

		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

func defaultTarget() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "RetroHub"
	}
	return filepath.Join(home, "RetroHub")
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the XDG config file if one exists, otherwise returns defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := xdg.SearchConfigFile(configRelPath)
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// SetDefaults fills zero-value string fields that have no meaningful zero.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Install.DefaultTarget == "" {
		c.Install.DefaultTarget = defaults.Install.DefaultTarget
	}
	if c.Package.OutputName == "" {
		c.Package.OutputName = defaults.Package.OutputName
	}
	if c.Package.DescriptionFile == "" {
		c.Package.DescriptionFile = defaults.Package.DescriptionFile
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - RETROHUB_CATALOG: overrides catalog.path
//   - RETROHUB_TARGET: overrides install.default_target
//   - RETROHUB_LOG_LEVEL: overrides logging.level
//   - RETROHUB_STEP_INTERVAL: overrides install.step_interval_ms
func (c *Config) ApplyEnvOverrides() {
	if path := os.Getenv("RETROHUB_CATALOG"); path != "" {
		c.Catalog.Path = path
	}
	if target := os.Getenv("RETROHUB_TARGET"); target != "" {
		c.Install.DefaultTarget = target
	}
	if level := os.Getenv("RETROHUB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if interval := os.Getenv("RETROHUB_STEP_INTERVAL"); interval != "" {
		if ms, err := strconv.Atoi(interval); err == nil {
			c.Install.StepIntervalMs = ms
		}
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the XDG config file.
func Save(cfg *Config) error {
	path, err := xdg.ConfigFile(configRelPath)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# RetroHub setup configuration")
	fmt.Fprintln(&buf, "# Generated by retrohub-setup - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	thresholds := []struct {
		field string
		t     Threshold
	}{
		{"profiler.cpu", c.Profiler.CPU},
		{"profiler.gpu", c.Profiler.GPU},
		{"profiler.ram", c.Profiler.RAM},
		{"profiler.graphics_api", c.Profiler.GraphicsAPI},
		{"profiler.os", c.Profiler.OS},
	}
	for _, th := range thresholds {
		if th.t.Minimum < 0 {
			errs = append(errs, ValidationError{Field: th.field + ".minimum", Message: "must not be negative"})
		}
		if th.t.Recommended < th.t.Minimum {
			errs = append(errs, ValidationError{
				Field:   th.field + ".recommended",
				Message: fmt.Sprintf("recommended (%d) is below minimum (%d)", th.t.Recommended, th.t.Minimum),
			})
		}
	}

	for _, name := range c.Profiler.GateAttributes {
		if _, err := detect.ParseAttribute(name); err != nil {
			errs = append(errs, ValidationError{Field: "profiler.gate_attributes", Message: err.Error()})
		}
	}
	if c.Profiler.ProbeTimeoutSecs <= 0 {
		errs = append(errs, ValidationError{Field: "profiler.probe_timeout_secs", Message: "must be positive"})
	}

	w := c.Install.Weights
	for field, v := range map[string]int{
		"preparing":             w.Preparing,
		"creating_directories":  w.CreatingDirectories,
		"installing_components": w.InstallingComponents,
		"registering":           w.Registering,
		"creating_shortcuts":    w.CreatingShortcuts,
		"optimizing":            w.Optimizing,
	} {
		if v < 0 {
			errs = append(errs, ValidationError{Field: "install.weights." + field, Message: "must not be negative"})
		}
	}
	if sum := w.Sum(); sum != 100 {
		errs = append(errs, ValidationError{
			Field:   "install.weights",
			Message: fmt.Sprintf("stage weights must sum to 100, got %d", sum),
		})
	}

	if c.Install.StepIntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "install.step_interval_ms", Message: "must not be negative"})
	}
	if c.Install.MinIncrement < 1 || c.Install.MinIncrement > 100 {
		errs = append(errs, ValidationError{Field: "install.min_increment", Message: "must be between 1 and 100"})
	}
	if c.Install.MaxIncrement < c.Install.MinIncrement || c.Install.MaxIncrement > 100 {
		errs = append(errs, ValidationError{
			Field:   "install.max_increment",
			Message: fmt.Sprintf("must be between min_increment (%d) and 100", c.Install.MinIncrement),
		})
	}

	if strings.ContainsAny(c.Package.DescriptionFile, `/\`) {
		errs = append(errs, ValidationError{Field: "package.description_file", Message: "must be a plain file name"})
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// GateAttributes returns the parsed gate attributes. Call after Validate.
func (c *Config) GateAttributes() []detect.Attribute {
	out := make([]detect.Attribute, 0, len(c.Profiler.GateAttributes))
	for _, name := range c.Profiler.GateAttributes {
		if a, err := detect.ParseAttribute(name); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// Thresholds converts the profiler thresholds for the detect package.
func (c *Config) Thresholds() detect.Thresholds {
	conv := func(t Threshold) detect.Threshold {
		return detect.Threshold{Minimum: t.Minimum, Recommended: t.Recommended}
	}
	return detect.Thresholds{
		detect.AttrCPU:         conv(c.Profiler.CPU),
		detect.AttrGPU:         conv(c.Profiler.GPU),
		detect.AttrRAM:         conv(c.Profiler.RAM),
		detect.AttrGraphicsAPI: conv(c.Profiler.GraphicsAPI),
		detect.AttrOS:          conv(c.Profiler.OS),
	}
}
