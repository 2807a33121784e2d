// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// KIND
// =============================================================================

// Kind is the artifact category of a component.
type Kind int

const (
	// KindExecutable is a launchable program.
	KindExecutable Kind = iota
	// KindLibrary is a shared library loaded by an executable.
	KindLibrary
	// KindData is any non-code payload: BIOS images, configs, shaders, themes.
	KindData
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindExecutable:
		return "executable"
	case KindLibrary:
		return "library"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// ParseKind parses "executable", "library" or "data" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "executable", "exe":
		return KindExecutable, nil
	case "library", "lib":
		return KindLibrary, nil
	case "data":
		return KindData, nil
	default:
		return 0, fmt.Errorf("unknown component kind %q", s)
	}
}

// =============================================================================
// COMPONENT
// =============================================================================

// Component is the contract shared by every artifact variant.
type Component struct {
	// Name is the unique catalog key, also used as the file name in packages.
	Name string
	// Version of the artifact.
	Version string
	// SizeBytes is the declared payload size.
	SizeBytes int64
	// Required components must be part of every valid selection.
	Required bool
	// Dependencies are the names of components this one needs.
	Dependencies []string
	// Classification is a free-form hint such as "graphics", "audio", "bios", "shader".
	Classification string
	// System is the emulated system identifier for per-system runtimes ("psx", "snes").
	System string
	// Description is a one-line human summary.
	Description string
}

func (c Component) clone() Component {
	c.Dependencies = append([]string(nil), c.Dependencies...)
	return c
}

// Artifact is a catalog entry. The set of implementations is closed:
// Executable, Library and Data.
type Artifact interface {
	// Base returns a copy of the shared component fields.
	Base() Component
	// Kind reports the variant.
	Kind() Kind
	// Metadata returns the descriptive key/value pairs written alongside the payload.
	Metadata() map[string]string

	cloneArtifact() Artifact
}

func baseMetadata(c Component, k Kind) map[string]string {
	md := map[string]string{
		"name":     c.Name,
		"kind":     k.String(),
		"size":     strconv.FormatInt(c.SizeBytes, 10),
		"required": strconv.FormatBool(c.Required),
	}
	if c.Version != "" {
		md["version"] = c.Version
	}
	if c.Classification != "" {
		md["classification"] = c.Classification
	}
	if c.System != "" {
		md["system"] = c.System
	}
	if len(c.Dependencies) > 0 {
		md["dependencies"] = strings.Join(c.Dependencies, ",")
	}
	return md
}

// Executable is a launchable program.
type Executable struct {
	Component
	// Arch is the target architecture, e.g. "x86_64".
	Arch string
	// Subsystem is "gui" or "console".
	Subsystem string
}

func (e Executable) Base() Component { return e.Component.clone() }
func (e Executable) Kind() Kind      { return KindExecutable }

func (e Executable) Metadata() map[string]string {
	md := baseMetadata(e.Component, KindExecutable)
	if e.Arch != "" {
		md["arch"] = e.Arch
	}
	if e.Subsystem != "" {
		md["subsystem"] = e.Subsystem
	}
	return md
}

func (e Executable) cloneArtifact() Artifact {
	e.Component = e.Component.clone()
	return e
}

// Library is a shared library.
type Library struct {
	Component
	// API names the interface the library implements, e.g. "vulkan" or "libretro".
	API string
	// Exports lists exported entry points.
	Exports []string
}

func (l Library) Base() Component { return l.Component.clone() }
func (l Library) Kind() Kind      { return KindLibrary }

func (l Library) Metadata() map[string]string {
	md := baseMetadata(l.Component, KindLibrary)
	if l.API != "" {
		md["api"] = l.API
	}
	if len(l.Exports) > 0 {
		md["exports"] = strings.Join(l.Exports, ",")
	}
	return md
}

func (l Library) cloneArtifact() Artifact {
	l.Component = l.Component.clone()
	l.Exports = append([]string(nil), l.Exports...)
	return l
}

// Data is a non-code payload.
type Data struct {
	Component
	// Format is the payload format, e.g. "bin", "json", "slangp".
	Format string
}

func (d Data) Base() Component { return d.Component.clone() }
func (d Data) Kind() Kind      { return KindData }

func (d Data) Metadata() map[string]string {
	md := baseMetadata(d.Component, KindData)
	if d.Format != "" {
		md["format"] = d.Format
	}
	return md
}

func (d Data) cloneArtifact() Artifact {
	d.Component = d.Component.clone()
	return d
}
