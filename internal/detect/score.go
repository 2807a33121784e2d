// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"regexp"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// =============================================================================
// PERFORMANCE: Pre-compiled regex (compiled once at startup)
// =============================================================================

var versionRegex = regexp.MustCompile(`\d+(?:\.\d+){0,2}`)

// scoreRule maps a model-name pattern to a capability score.
type scoreRule struct {
	pattern *regexp.Regexp
	score   int
}

func rule(pattern string, score int) scoreRule {
	return scoreRule{pattern: regexp.MustCompile(`(?i)` + pattern), score: score}
}

// cpuScores is ordered; the first matching pattern wins.
var cpuScores = []scoreRule{
	rule(`threadripper|ryzen\s*9|i9-\d|core\s*ultra\s*9|apple\s*m[1-4]\s*(max|ultra)`, 95),
	rule(`ryzen\s*7|i7-\d|core\s*ultra\s*7|apple\s*m[2-4]`, 80),
	rule(`ryzen\s*5|i5-\d|core\s*ultra\s*5|apple\s*m1`, 65),
	rule(`ryzen\s*3|i3-\d|xeon`, 45),
	rule(`pentium|celeron|athlon|atom`, 25),
}

// gpuScores is ordered; the first matching pattern wins.
var gpuScores = []scoreRule{
	rule(`rtx\s*(40|50)\d0|rx\s*7[89]00`, 95),
	rule(`rtx\s*30\d0|rx\s*(6[89]00|7[67]00)`, 85),
	rule(`rtx\s*20\d0|rx\s*6[67]00|arc\s*a7`, 75),
	rule(`gtx\s*16\d0|rx\s*(5[67]00|6[45]00)|arc\s*a[35]|apple\s*m[1-4]`, 60),
	rule(`gtx\s*10[5-8]0|rx\s*(4[78]0|5[58]0)`, 50),
	rule(`radeon\s*(vega|graphics)|iris\s*xe`, 40),
	rule(`gtx\s*9\d0|uhd\s*graphics|hd\s*graphics`, 25),
}

// osScores is ordered; the first matching pattern wins.
var osScores = []scoreRule{
	rule(`windows\s*11`, 100),
	rule(`windows\s*10`, 80),
	rule(`linux|ubuntu|debian|fedora|arch|mint`, 85),
	rule(`darwin|macos|mac\s*os`, 70),
	rule(`windows\s*(7|8)`, 20),
}

// Scorer turns raw attribute values into scores.
type Scorer struct {
	// FallbackScore is used for identifiers no table entry recognizes.
	FallbackScore int
}

// lookup scans an ordered table and falls back to FallbackScore.
func (s Scorer) lookup(table []scoreRule, value string) int {
	for _, r := range table {
		if r.pattern.MatchString(value) {
			return r.score
		}
	}
	return s.FallbackScore
}

// Score returns the score for raw's value of attr and whether the value was detected.
func (s Scorer) Score(attr Attribute, raw RawAttributes) (int, bool) {
	switch attr {
	case AttrCPU:
		if raw.CPUModel == "" {
			return 0, false
		}
		return s.lookup(cpuScores, raw.CPUModel), true
	case AttrGPU:
		if raw.GPUModel == "" {
			return 0, false
		}
		return s.lookup(gpuScores, raw.GPUModel), true
	case AttrRAM:
		if raw.MemoryBytes == 0 {
			return 0, false
		}
		return memoryGB(raw.MemoryBytes), true
	case AttrGraphicsAPI:
		if raw.GraphicsAPI == "" {
			return 0, false
		}
		return s.graphicsAPIScore(raw.GraphicsAPI), true
	case AttrOS:
		if raw.OS == "" {
			return 0, false
		}
		return s.lookup(osScores, raw.OS), true
	}
	return 0, false
}

// memoryGB rounds bytes to whole GiB. Machines report slightly less than the
// nominal size, so 15.8 GiB counts as 16.
func memoryGB(b uint64) int {
	const gib = 1 << 30
	return int((b + gib/2) / gib)
}

// graphicsAPIScore encodes a version as major*10+minor, so Vulkan 1.3 scores 13.
func (s Scorer) graphicsAPIScore(value string) int {
	raw := versionRegex.FindString(value)
	if raw == "" {
		return s.FallbackScore
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return s.FallbackScore
	}
	minor := int(v.Minor())
	if minor > 9 {
		minor = 9
	}
	return int(v.Major())*10 + minor
}

// ValueString formats a raw value for display.
func ValueString(attr Attribute, raw RawAttributes) string {
	switch attr {
	case AttrCPU:
		return raw.CPUModel
	case AttrGPU:
		return raw.GPUModel
	case AttrRAM:
		if raw.MemoryBytes == 0 {
			return ""
		}
		return strconv.Itoa(memoryGB(raw.MemoryBytes)) + " GB"
	case AttrGraphicsAPI:
		if raw.GraphicsAPI == "" {
			return ""
		}
		return "Vulkan " + raw.GraphicsAPI
	case AttrOS:
		return raw.OS
	}
	return ""
}
