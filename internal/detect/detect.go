// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detect provides hardware probing utilities for RetroHub setup.
//
// Supported probes:
//   - CPU model, memory and OS via gopsutil
//   - GPU model via nvidia-smi, lspci (Linux), system_profiler (macOS), CIM (Windows)
//   - Vulkan version via vulkaninfo
package detect

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// probeTimeout is the default timeout for hardware probing.
// CANCELLATION: Context enables timeout and cancellation
const probeTimeout = 10 * time.Second

// =============================================================================
// ATTRIBUTES
// =============================================================================

// Attribute is one tracked hardware property.
type Attribute int

const (
	// AttrCPU is the processor model.
	AttrCPU Attribute = iota
	// AttrGPU is the graphics adapter model.
	AttrGPU
	// AttrRAM is installed system memory.
	AttrRAM
	// AttrGraphicsAPI is the highest supported Vulkan version.
	AttrGraphicsAPI
	// AttrOS is the operating system.
	AttrOS
)

// Attributes lists every tracked attribute in report order.
var Attributes = []Attribute{AttrCPU, AttrGPU, AttrRAM, AttrGraphicsAPI, AttrOS}

// String returns the string representation of the attribute.
func (a Attribute) String() string {
	switch a {
	case AttrCPU:
		return "CPU"
	case AttrGPU:
		return "GPU"
	case AttrRAM:
		return "RAM"
	case AttrGraphicsAPI:
		return "Graphics API"
	case AttrOS:
		return "OS"
	default:
		return "Unknown"
	}
}

// Key returns the configuration key for the attribute.
func (a Attribute) Key() string {
	switch a {
	case AttrCPU:
		return "cpu"
	case AttrGPU:
		return "gpu"
	case AttrRAM:
		return "ram"
	case AttrGraphicsAPI:
		return "graphics_api"
	case AttrOS:
		return "os"
	default:
		return "unknown"
	}
}

// ParseAttribute parses a configuration key such as "ram" or "graphics_api".
func ParseAttribute(s string) (Attribute, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, a := range Attributes {
		if a.Key() == key || strings.ToLower(a.String()) == key {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown hardware attribute %q", s)
}

// =============================================================================
// PROBES
// =============================================================================

// RawAttributes are the unscored values reported by a probe.
// Empty strings and zero memory mean "not detected".
type RawAttributes struct {
	CPUModel    string
	GPUModel    string
	MemoryBytes uint64
	OS          string
	// GraphicsAPI is a version string such as "1.3.250".
	GraphicsAPI string
}

// Probe reads raw hardware attributes.
type Probe interface {
	Probe(ctx context.Context) (RawAttributes, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) (RawAttributes, error)

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context) (RawAttributes, error) { return f(ctx) }

// StaticProbe always reports the same values.
type StaticProbe RawAttributes

// Probe returns the static values.
func (s StaticProbe) Probe(context.Context) (RawAttributes, error) { return RawAttributes(s), nil }

// runCommand is abstracted for testing.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// SystemProbe inspects the running machine.
type SystemProbe struct{}

// Probe gathers what it can. It returns an error only when nothing could be read.
func (SystemProbe) Probe(ctx context.Context) (RawAttributes, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	var raw RawAttributes
	var errs []error

	if infos, err := cpu.InfoWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cpu: %w", err))
	} else if len(infos) > 0 {
		raw.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	} else {
		raw.MemoryBytes = vm.Total
	}

	if info, err := host.InfoWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("host: %w", err))
	} else {
		raw.OS = strings.TrimSpace(strings.Join([]string{info.OS, info.Platform, info.PlatformVersion}, " "))
	}

	raw.GPUModel = detectGPUModel(ctx)
	raw.GraphicsAPI = detectVulkanVersion(ctx)

	if raw == (RawAttributes{}) && len(errs) > 0 {
		return raw, errors.Join(errs...)
	}
	return raw, nil
}

// =============================================================================
// GPU DETECTION
// =============================================================================

// detectGPUModel tries vendor tools first, then the platform's device listing.
func detectGPUModel(ctx context.Context) string {
	for _, path := range nvidiaSmiPaths() {
		out, err := runCommand(ctx, path, "--query-gpu=name", "--format=csv,noheader")
		if err == nil {
			if name := parseNvidiaSmi(string(out)); name != "" {
				return name
			}
		}
		select {
		case <-ctx.Done():
			return ""
		default:
		}
	}

	switch runtime.GOOS {
	case "linux":
		if out, err := runCommand(ctx, "lspci"); err == nil {
			return parseLspci(string(out))
		}
	case "darwin":
		if out, err := runCommand(ctx, "system_profiler", "SPDisplaysDataType"); err == nil {
			return parseSystemProfiler(string(out))
		}
	case "windows":
		out, err := runCommand(ctx, "powershell", "-NoProfile", "-Command",
			`Get-CimInstance Win32_VideoController | Select-Object -First 1 -ExpandProperty Name`)
		if err == nil {
			return strings.TrimSpace(string(out))
		}
	}
	return ""
}

// nvidiaSmiPaths returns possible paths for nvidia-smi based on OS.
func nvidiaSmiPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{
			"nvidia-smi",
			`C:\Windows\System32\nvidia-smi.exe`,
			`C:\Program Files\NVIDIA Corporation\NVSMI\nvidia-smi.exe`,
		}
	}
	return []string{"nvidia-smi"}
}

// parseNvidiaSmi returns the first adapter name from nvidia-smi CSV output.
func parseNvidiaSmi(out string) string {
	line := strings.TrimSpace(strings.Split(strings.TrimSpace(out), "\n")[0])
	if line == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToUpper(line), "NVIDIA") {
		line = "NVIDIA " + line
	}
	return line
}

// parseLspci returns the first VGA/3D controller description.
func parseLspci(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "VGA compatible controller") && !strings.Contains(line, "3D controller") {
			continue
		}
		parts := strings.SplitN(line, ": ", 2)
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

// parseSystemProfiler returns the first "Chipset Model" value.
func parseSystemProfiler(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Chipset Model:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "Chipset Model:"))
		}
	}
	return ""
}

// =============================================================================
// GRAPHICS API DETECTION
// =============================================================================

// detectVulkanVersion asks vulkaninfo for the instance version.
func detectVulkanVersion(ctx context.Context) string {
	out, err := runCommand(ctx, "vulkaninfo", "--summary")
	if err != nil {
		return ""
	}
	return parseVulkanInfo(string(out))
}

// parseVulkanInfo extracts the version from "Vulkan Instance Version: 1.3.250"
// or "apiVersion = 1.3.250" lines.
func parseVulkanInfo(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"Vulkan Instance Version:", "apiVersion"} {
			if !strings.HasPrefix(line, prefix) {
				continue
			}
			rest := strings.TrimPrefix(line, prefix)
			rest = strings.TrimLeft(rest, " =:")
			if v := versionRegex.FindString(rest); v != "" {
				return v
			}
		}
	}
	return ""
}
