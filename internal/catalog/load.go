// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/retrohub-setup/internal/errs"
)

//go:embed default_catalog.toml
var defaultCatalogTOML []byte

// Format is a catalog payload encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension; anything that is not
// .yaml or .yml is treated as TOML.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// record is the on-disk shape of one component.
type record struct {
	Name           string   `toml:"name" yaml:"name"`
	Kind           string   `toml:"kind" yaml:"kind"`
	Version        string   `toml:"version" yaml:"version"`
	SizeBytes      int64    `toml:"size_bytes" yaml:"size_bytes"`
	Required       bool     `toml:"required" yaml:"required"`
	Dependencies   []string `toml:"dependencies" yaml:"dependencies"`
	Classification string   `toml:"classification" yaml:"classification"`
	System         string   `toml:"system" yaml:"system"`
	Description    string   `toml:"description" yaml:"description"`

	// Executable
	Arch      string `toml:"arch" yaml:"arch"`
	Subsystem string `toml:"subsystem" yaml:"subsystem"`
	// Library
	API     string   `toml:"api" yaml:"api"`
	Exports []string `toml:"exports" yaml:"exports"`
	// Data
	Format string `toml:"format" yaml:"format"`
}

type document struct {
	Components []record `toml:"component" yaml:"component"`
}

func (r record) artifact() (Artifact, error) {
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", r.Name, err)
	}
	base := Component{
		Name:           r.Name,
		Version:        r.Version,
		SizeBytes:      r.SizeBytes,
		Required:       r.Required,
		Dependencies:   r.Dependencies,
		Classification: r.Classification,
		System:         r.System,
		Description:    r.Description,
	}
	switch kind {
	case KindExecutable:
		return Executable{Component: base, Arch: r.Arch, Subsystem: r.Subsystem}, nil
	case KindLibrary:
		return Library{Component: base, API: r.API, Exports: r.Exports}, nil
	default:
		return Data{Component: base, Format: r.Format}, nil
	}
}

// Parse decodes a catalog payload and builds the catalog.
func Parse(data []byte, format Format) (*Catalog, error) {
	var doc document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errs.Wrap(err, errs.KindInvalid, "failed to decode YAML catalog")
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, errs.Wrap(err, errs.KindInvalid, "failed to decode TOML catalog")
		}
	default:
		return nil, errs.Newf(errs.KindInvalid, "unsupported catalog format %q", format)
	}

	artifacts := make([]Artifact, 0, len(doc.Components))
	for _, r := range doc.Components {
		a, err := r.artifact()
		if err != nil {
			return nil, errs.Wrap(err, errs.KindInvalid, "invalid catalog entry")
		}
		artifacts = append(artifacts, a)
	}
	return New(artifacts...)
}

// Load reads a catalog file, choosing the decoder by extension.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindInvalid, "failed to read catalog file")
	}
	cat, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalogTOML, FormatTOML)
}

// LoadOrDefault loads path, or the embedded catalog when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}
