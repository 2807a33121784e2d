// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assemble

import (
	"path"
	"regexp"
	"strings"

	"github.com/jeranaias/retrohub-setup/internal/catalog"
)

// =============================================================================
// SCAFFOLD
// =============================================================================

// Scaffold is the fixed folder set present in every package.
var Scaffold = []string{
	"cores",
	"cores/bios",
	"cores/systems",
	"configs",
	"shaders",
	"themes",
	"docs",
	"input_profiles",
	"patches",
	"updates",
}

// Folders created on demand by the classification rules.
const (
	dirRenderers = "cores/renderers"
	dirAudio     = "cores/audio"
	dirSystems   = "cores/systems"
)

// folderSummaries describe the scaffold and on-demand folders.
var folderSummaries = map[string]string{
	"":               "RetroHub package root. Frontend executables live here.",
	"cores":          "Shared runtime libraries used by every emulation core.",
	"cores/bios":     "System firmware images required by some cores.",
	"cores/systems":  "Per-system emulation cores, one folder per system.",
	dirRenderers:     "Video backends. The frontend picks one at startup.",
	dirAudio:         "Audio output backends.",
	"configs":        "Frontend and core configuration files.",
	"shaders":        "Post-processing shader presets.",
	"themes":         "Frontend themes.",
	"docs":           "User documentation.",
	"input_profiles": "Controller and keyboard mappings.",
	"patches":        "Compatibility fixes applied at load time.",
	"updates":        "Update channel definitions and the updater's data.",
}

// =============================================================================
// CLASSIFICATION RULES
// =============================================================================

// Rule places matching artifacts into a directory.
type Rule struct {
	Name  string
	Match func(a catalog.Artifact) bool
	// Dir returns the slash-separated directory, "" for the package root.
	Dir func(a catalog.Artifact) string
}

var (
	biosPattern     = regexp.MustCompile(`(?i)bios`)
	graphicsPattern = regexp.MustCompile(`(?i)d3d|\bdx\d*\b|opengl|\bgl\b|vulkan|render|video|gfx|graphics`)
	audioPattern    = regexp.MustCompile(`(?i)audio|sound|xaudio|openal|sdl_mixer`)
	systemCleaner   = regexp.MustCompile(`[^a-z0-9_-]+`)
)

// dataDirs maps data classifications to their folder.
var dataDirs = map[string]string{
	"config": "configs",
	"shader": "shaders",
	"theme":  "themes",
	"doc":    "docs",
	"input":  "input_profiles",
	"patch":  "patches",
	"update": "updates",
}

// dataExtensions is consulted when a data component has no known classification.
var dataExtensions = map[string]string{
	".cfg":    "configs",
	".ini":    "configs",
	".slangp": "shaders",
	".glslp":  "shaders",
	".md":     "docs",
	".txt":    "docs",
	".ips":    "patches",
	".bps":    "patches",
}

func fixed(dir string) func(catalog.Artifact) string {
	return func(catalog.Artifact) string { return dir }
}

func isLibrary(a catalog.Artifact) bool { return a.Kind() == catalog.KindLibrary }

// hint is the text the name-pattern rules match against.
func hint(a catalog.Artifact) string {
	b := a.Base()
	return b.Classification + " " + b.Name
}

// SystemDir returns the per-system folder for a system identifier.
func SystemDir(system string) string {
	s := systemCleaner.ReplaceAllString(strings.ToLower(strings.TrimSpace(system)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "unknown"
	}
	return path.Join(dirSystems, s)
}

// DefaultRules returns the built-in rules. The first matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "bios",
			Match: func(a catalog.Artifact) bool {
				b := a.Base()
				return strings.EqualFold(b.Classification, "bios") ||
					(a.Kind() == catalog.KindData && biosPattern.MatchString(b.Name))
			},
			Dir: fixed("cores/bios"),
		},
		{
			Name:  "system",
			Match: func(a catalog.Artifact) bool { return a.Base().System != "" },
			Dir:   func(a catalog.Artifact) string { return SystemDir(a.Base().System) },
		},
		{
			Name:  "graphics",
			Match: func(a catalog.Artifact) bool { return isLibrary(a) && graphicsPattern.MatchString(hint(a)) },
			Dir:   fixed(dirRenderers),
		},
		{
			Name:  "audio",
			Match: func(a catalog.Artifact) bool { return isLibrary(a) && audioPattern.MatchString(hint(a)) },
			Dir:   fixed(dirAudio),
		},
		{
			Name:  "library",
			Match: isLibrary,
			Dir:   fixed("cores"),
		},
		{
			Name:  "executable",
			Match: func(a catalog.Artifact) bool { return a.Kind() == catalog.KindExecutable },
			Dir:   fixed(""),
		},
		{
			Name:  "data",
			Match: func(a catalog.Artifact) bool { return a.Kind() == catalog.KindData },
			Dir:   dataDir,
		},
	}
}

func dataDir(a catalog.Artifact) string {
	b := a.Base()
	if dir, ok := dataDirs[strings.ToLower(b.Classification)]; ok {
		return dir
	}
	if dir, ok := dataExtensions[strings.ToLower(path.Ext(b.Name))]; ok {
		return dir
	}
	return "configs"
}

// Classify returns the directory for a using rules, and the rule name.
// Unmatched artifacts go to the package root.
func Classify(a catalog.Artifact, rules []Rule) (dir, rule string) {
	for _, r := range rules {
		if r.Match(a) {
			return r.Dir(a), r.Name
		}
	}
	return "", ""
}
