// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/retrohub-setup/internal/errs"
)

func lib(name string, required bool, deps ...string) Library {
	return Library{Component: Component{Name: name, SizeBytes: 1024, Required: required, Dependencies: deps}}
}

// =============================================================================
// CONSTRUCTION TESTS
// =============================================================================

func TestNew_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name      string
		artifacts []Artifact
	}{
		{"empty name", []Artifact{lib("", true)}},
		{"path name", []Artifact{lib("cores/a.dll", true)}},
		{"duplicate", []Artifact{lib("a", true), lib("a", false)}},
		{"unknown dependency", []Artifact{lib("a", true, "ghost")}},
		{"negative size", []Artifact{Data{Component: Component{Name: "d", SizeBytes: -1}}}},
		{"self loop", []Artifact{lib("a", true, "a")}},
		{"indirect cycle", []Artifact{lib("a", true, "b"), lib("b", true, "c"), lib("c", true, "a")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.artifacts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrInvalid))
		})
	}
}

func TestNew_CycleErrorNamesPath(t *testing.T) {
	_, err := New(lib("a", true, "b"), lib("b", true, "a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestCatalog_IsImmutable(t *testing.T) {
	deps := []string{"a"}
	cat, err := New(lib("a", true), lib("b", true, deps...))
	require.NoError(t, err)

	deps[0] = "mutated"
	got, err := cat.DependenciesOf("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	got[0] = "mutated-again"
	again, _ := cat.DependenciesOf("b")
	assert.Equal(t, []string{"a"}, again)
}

// =============================================================================
// QUERY TESTS
// =============================================================================

func TestCatalog_Queries(t *testing.T) {
	cat, err := New(
		lib("core", true),
		lib("video", true, "core"),
		lib("psx", false, "core", "video", "bios"),
		Data{Component: Component{Name: "bios", SizeBytes: 10}},
	)
	require.NoError(t, err)

	assert.Equal(t, 4, cat.Len())
	assert.Equal(t, []string{"core", "video", "psx", "bios"}, cat.Names())
	assert.Equal(t, []string{"core", "video"}, cat.RequiredNames())
	assert.Len(t, cat.Required(), 2)

	a, ok := cat.Get("bios")
	require.True(t, ok)
	assert.Equal(t, KindData, a.Kind())

	_, ok = cat.Get("missing")
	assert.False(t, ok)

	direct, err := cat.DependenciesOf("psx")
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "video", "bios"}, direct)

	closure, err := cat.TransitiveDependenciesOf("psx")
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "video", "bios"}, closure)

	_, err = cat.TransitiveDependenciesOf("nope")
	assert.True(t, errors.Is(err, errs.ErrInvalid))
}

func TestCatalog_TransitiveDependencies_Deep(t *testing.T) {
	cat, err := New(lib("a", false), lib("b", false, "a"), lib("c", false, "b"), lib("d", false, "c", "a"))
	require.NoError(t, err)

	closure, err := cat.TransitiveDependenciesOf("d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, closure)
}

func TestCatalog_TotalSizeAndSystems(t *testing.T) {
	cat, err := New(
		Library{Component: Component{Name: "nes", SizeBytes: 100, System: "nes"}},
		Library{Component: Component{Name: "snes", SizeBytes: 200, System: "snes"}},
		Library{Component: Component{Name: "nes-hd", SizeBytes: 50, System: "nes"}},
	)
	require.NoError(t, err)

	assert.Equal(t, int64(300), cat.TotalSize([]string{"nes", "snes", "nes", "unknown"}))
	assert.Equal(t, []string{"nes", "snes"}, cat.Systems())
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate_MissingRequiredDependency(t *testing.T) {
	cat, err := New(lib("A", true), lib("B", true, "A"))
	require.NoError(t, err)

	v := cat.Validate([]string{"B"})
	assert.False(t, v.IsValid)
	assert.Equal(t, []string{"A"}, v.Missing)
	assert.True(t, errors.Is(v.Err(), errs.ErrMissingDependency))
}

func TestValidate_Properties(t *testing.T) {
	cat, err := New(lib("a", true), lib("b", true), lib("c", false), lib("d", true))
	require.NoError(t, err)

	tests := []struct {
		selected []string
		valid    bool
		missing  []string
	}{
		{[]string{"a", "b", "d"}, true, nil},
		{[]string{"a", "b", "c", "d"}, true, nil},
		{[]string{"c"}, false, []string{"a", "b", "d"}},
		{[]string{"d", "a"}, false, []string{"b"}},
		{nil, false, []string{"a", "b", "d"}},
	}

	for _, tc := range tests {
		v := cat.Validate(tc.selected)
		assert.Equal(t, tc.valid, v.IsValid, "selected=%v", tc.selected)
		assert.Equal(t, tc.missing, v.Missing, "selected=%v", tc.selected)
		assert.Equal(t, len(v.Missing) == 0, v.IsValid)
		if tc.valid {
			assert.NoError(t, v.Err())
		}
	}
}

func TestValidate_ReportsUnknownNames(t *testing.T) {
	cat, err := New(lib("core-nes.dll", true))
	require.NoError(t, err)

	v := cat.Validate([]string{"core-nes.dll", "core-nse.dll"})
	assert.True(t, v.IsValid)
	assert.Equal(t, []string{"core-nse.dll"}, v.Unknown)
	assert.Equal(t, "core-nes.dll", cat.Suggest("core-nse.dll"))
	assert.Equal(t, "", cat.Suggest("completely-different"))
}

func TestClosureGaps(t *testing.T) {
	cat, err := New(lib("core", true), lib("video", false, "core"), lib("psx", false, "core", "video"))
	require.NoError(t, err)

	gaps := cat.ClosureGaps([]string{"psx", "core"})
	require.Len(t, gaps, 1)
	assert.Equal(t, Gap{Component: "psx", Missing: []string{"video"}}, gaps[0])

	assert.Empty(t, cat.ClosureGaps([]string{"core", "video", "psx"}))
}

func TestResolve(t *testing.T) {
	cat, err := New(
		lib("app", true, "core"),
		lib("core", true),
		lib("psx", false, "bios", "core"),
		Data{Component: Component{Name: "bios"}},
		lib("n64", false, "core"),
	)
	require.NoError(t, err)

	got, err := cat.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "app"}, got)

	got, err = cat.Resolve([]string{"psx"})
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "app", "bios", "psx"}, got)
	assert.True(t, cat.Validate(got).IsValid)
	assert.Empty(t, cat.ClosureGaps(got))

	_, err = cat.Resolve([]string{"psz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "psx"`)
}

// =============================================================================
// LOADER TESTS
// =============================================================================

func TestDefault_LoadsEmbeddedCatalog(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	assert.Greater(t, cat.Len(), 10)
	assert.NotEmpty(t, cat.RequiredNames())

	exe, ok := cat.Get("retrohub.exe")
	require.True(t, ok)
	require.Equal(t, KindExecutable, exe.Kind())
	assert.Equal(t, "gui", exe.(Executable).Subsystem)

	resolved, err := cat.Resolve(nil)
	require.NoError(t, err)
	assert.True(t, cat.Validate(resolved).IsValid)
	assert.Empty(t, cat.ClosureGaps(resolved))
}

func TestParse_TOMLAndYAMLAgree(t *testing.T) {
	tomlData := `
[[component]]
name = "core.dll"
kind = "library"
size_bytes = 100
required = true
api = "libretro"

[[component]]
name = "bios.bin"
kind = "data"
size_bytes = 10
dependencies = ["core.dll"]
classification = "bios"
format = "bin"
`
	yamlData := `
component:
  - name: core.dll
    kind: library
    size_bytes: 100
    required: true
    api: libretro
  - name: bios.bin
    kind: data
    size_bytes: 10
    dependencies: [core.dll]
    classification: bios
    format: bin
`
	fromTOML, err := Parse([]byte(tomlData), FormatTOML)
	require.NoError(t, err)
	fromYAML, err := Parse([]byte(yamlData), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, fromTOML.All(), fromYAML.All())
}

func TestParse_BadKind(t *testing.T) {
	_, err := Parse([]byte("[[component]]\nname = \"x\"\nkind = \"firmware\"\n"), FormatTOML)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalid))
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yml")
	require.NoError(t, os.WriteFile(path, []byte("component:\n  - name: a\n    kind: data\n    required: true\n"), 0644))

	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cat.RequiredNames())

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestArtifact_Metadata(t *testing.T) {
	lib := Library{
		Component: Component{Name: "vk.dll", Version: "1.3", SizeBytes: 42, Required: true, Classification: "graphics"},
		API:       "vulkan",
		Exports:   []string{"init", "present"},
	}
	md := lib.Metadata()
	assert.Equal(t, "library", md["kind"])
	assert.Equal(t, "42", md["size"])
	assert.Equal(t, "vulkan", md["api"])
	assert.Equal(t, "init,present", md["exports"])
	assert.Equal(t, "true", md["required"])
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"executable": KindExecutable, "LIB": KindLibrary, " data ": KindData} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, "unknown", Kind(9).String())
}
