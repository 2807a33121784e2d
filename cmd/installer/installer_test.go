// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/retrohub-setup/internal/config"
	"github.com/jeranaias/retrohub-setup/internal/errs"
	"github.com/jeranaias/retrohub-setup/internal/install"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Install.StepIntervalMs = 0
	cfg.Install.CheckDiskSpace = false
	cfg.Logging.File = "-"
	return cfg
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "setup.toml")
	require.NoError(t, config.SaveTOML(testConfig(), path))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", path, "--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

// =============================================================================
// EXIT CODE TESTS
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{errs.New(errs.KindInvalid, "bad"), ExitUsageError},
		{errs.New(errs.KindHardwareIncompatible, "slow"), ExitHardwareError},
		{errs.Missing("gone", []string{"a"}), ExitMissingError},
		{errs.ComponentFailed("a", errors.New("x")), ExitInstallError},
		{errs.New(errs.KindArchiveAssemblyFailed, "zip"), ExitAssemblyError},
		{errs.New(errs.KindCancelled, "stop"), ExitCancelled},
		{fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "f", Message: "m"}}), ExitConfigError},
		{fmt.Errorf("wrapped: %w", errs.New(errs.KindMissingDependency, "x")), ExitMissingError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, exitCode(tc.err), "%v", tc.err)
	}
}

func TestDescribeError_ListsMissing(t *testing.T) {
	err := &errs.Error{
		Kind:    errs.KindMissingDependency,
		Reason:  "selection is incomplete",
		Missing: []string{"core.dll", "sdl2.dll"},
	}
	assert.Contains(t, describeError(err), "missing: core.dll, sdl2.dll")

	// Names already in the reason are not repeated.
	msg := describeError(errs.Missing("gone", []string{"core.dll"}))
	assert.Equal(t, 1, strings.Count(msg, "core.dll"))
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestCatalogCommand(t *testing.T) {
	out, err := runCLI(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "retrohub.exe")
	assert.Contains(t, out, "components")

	out, err = runCLI(t, "catalog", "--deps", "retrohub.exe")
	require.NoError(t, err)
	assert.Contains(t, out, "retrohub-core.dll")

	_, err = runCLI(t, "catalog", "--deps", "retrohub.ex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "retrohub.exe"?`)
}

func TestValidateCommand(t *testing.T) {
	out, err := runCLI(t, "validate", "retrohub.exe", "retrohub.ex")
	require.Error(t, err)
	assert.Equal(t, ExitMissingError, exitCode(err))
	assert.Contains(t, out, `did you mean "retrohub.exe"?`)
	assert.Contains(t, out, "missing required component retrohub-core.dll")
}

func TestValidateCommand_Complete(t *testing.T) {
	a, err := newApp(testConfig(), zerolog.Nop(), nil)
	require.NoError(t, err)
	names, err := a.catalog.Resolve(nil)
	require.NoError(t, err)

	out, err := runCLI(t, append([]string{"validate"}, names...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Selection is complete.")
}

func TestDetectCommand_Simulated(t *testing.T) {
	out, err := runCLI(t, "detect", "--simulate", "--json")
	require.NoError(t, err)

	var view reportView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.True(t, view.OverallCompatible)
	assert.Empty(t, view.CriticalIssues)
	require.Len(t, view.Attributes, 5)
	assert.Equal(t, "cpu", view.Attributes[0].Attribute)
}

func TestInstallCommand_Text(t *testing.T) {
	target := filepath.Join(t.TempDir(), "RetroHub")
	out, err := runCLI(t, "install", "--text", "--simulate", "--yes",
		"--target", target, "--with", "core-psx.dll")
	require.NoError(t, err)
	assert.Contains(t, out, "SYSTEM REQUIREMENTS CHECK")
	assert.Contains(t, out, "[100%] Installation complete")
	assert.Contains(t, out, "INSTALLATION COMPLETE!")
	assert.Contains(t, out, target)
}

func TestInstallCommand_UnknownOptional(t *testing.T) {
	_, err := runCLI(t, "install", "--text", "--simulate", "--yes",
		"--target", t.TempDir(), "--with", "core-ps2.dll")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, exitCode(err))
}

func TestAssembleCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pkg.zip")
	stdout, err := runCLI(t, "assemble", "--out", out, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Package written to")

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["retrohub.exe"])
	assert.True(t, names["manifest.json"])
	assert.True(t, names["cores/bios/README.txt"])
}

// =============================================================================
// TUI MODEL TESTS
// =============================================================================

func newTestInstaller(t *testing.T) *Installer {
	t.Helper()
	a, err := newApp(testConfig(), zerolog.Nop(), nil)
	require.NoError(t, err)
	p := a.profiler(true)
	report := p.Detect(context.Background())
	sched, err := a.scheduler(p)
	require.NoError(t, err)
	return NewInstaller(context.Background(), a, sched, report,
		installOptions{target: t.TempDir(), with: []string{"core-psx.dll"}})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInstaller_RunsToCompletion(t *testing.T) {
	m := newTestInstaller(t)
	assert.Contains(t, m.View(), "All requirements met!")

	m.Update(key("enter"))
	require.Equal(t, PhaseSelect, m.phase)
	assert.Contains(t, m.View(), "[x] core-psx.dll")

	_, cmd := m.Update(key("enter"))
	require.Equal(t, PhaseInstalling, m.phase)
	require.NotNil(t, cmd)

	m.Update(cmd())
	assert.Equal(t, PhaseComplete, m.phase)
	assert.NoError(t, m.err)
	assert.Contains(t, m.View(), "Installation Complete!")
	assert.Contains(t, m.View(), "PSX")
	assert.Equal(t, install.StageCompleted, m.sess.Stage())
}

func TestInstaller_ToggleOptional(t *testing.T) {
	m := newTestInstaller(t)
	m.Update(key("enter"))

	before, err := m.selection()
	require.NoError(t, err)
	for idx, c := range m.choices {
		if c.name == "core-psx.dll" {
			m.cursor = idx
		}
	}
	m.Update(key(" "))
	after, err := m.selection()
	require.NoError(t, err)
	// bios-psx.bin goes with it, being optional and needed only by core-psx.
	assert.Len(t, after, len(before)-2)
	assert.Contains(t, before, "bios-psx.bin")
	assert.NotContains(t, after, "bios-psx.bin")
}

func TestInstaller_QuitCancelsSession(t *testing.T) {
	m := newTestInstaller(t)
	m.Update(key("enter"))
	m.Update(key("enter"))
	require.NotNil(t, m.sess)

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.True(t, m.sess.Cancelled())
	assert.Equal(t, install.StageCancelled, m.sess.Stage())
	assert.Equal(t, ExitCancelled, exitCode(m.err))
}

func TestInstaller_HookMessages(t *testing.T) {
	m := newTestInstaller(t)
	m.Update(progressMsg{overall: 42, label: "Installing components: core"})
	assert.Equal(t, 42, m.overall)
	m.Update(hookErrorMsg{reason: "core failed"})
	assert.Equal(t, []string{"core failed"}, m.errors)
}
