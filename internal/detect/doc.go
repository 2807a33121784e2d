// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect provides the hardware profiler used to gate installation.
//
// A Probe reports raw values (CPU and GPU model strings, memory size, OS
// string, Vulkan version). The Profiler scores each value through ordered
// lookup tables, compares the score with minimum and recommended thresholds
// and produces a Report. Unrecognized identifiers receive the fallback score
// and therefore fail the minimum rather than failing detection.
//
// # Key Types
//
//   - Attribute: CPU, GPU, RAM, Graphics API, OS
//   - Probe: source of RawAttributes (SystemProbe, StaticProbe, ProbeFunc)
//   - Profiler: runs the probe and remembers the last Report
//   - Report: per-attribute results, critical issues and recommendations
//
// # Usage
//
//	p := detect.NewProfiler(detect.SystemProbe{})
//	report := p.Detect(ctx)
//	if !report.OverallCompatible {
//		for _, issue := range report.CriticalIssues {
//			fmt.Println(issue)
//		}
//	}
package detect
