// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInvalid, "Invalid"},
		{KindHardwareIncompatible, "HardwareIncompatible"},
		{KindMissingDependency, "MissingDependency"},
		{KindComponentInstallFailed, "ComponentInstallFailed"},
		{KindArchiveAssemblyFailed, "ArchiveAssemblyFailed"},
		{KindSessionActive, "SessionActive"},
		{KindCancelled, "Cancelled"},
		{Kind(99), "Unknown"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.kind.String())
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := New(KindHardwareIncompatible, "RAM below minimum")
	wrapped := fmt.Errorf("start session: %w", err)

	assert.True(t, errors.Is(wrapped, ErrHardwareIncompatible))
	assert.False(t, errors.Is(wrapped, ErrMissingDependency))
	assert.Equal(t, KindHardwareIncompatible, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, KindArchiveAssemblyFailed, "write archive")

	assert.Equal(t, "ArchiveAssemblyFailed: write archive: disk full", err.Error())
	assert.Equal(t, "write archive: disk full", Reason(err))
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, Wrap(nil, KindInvalid, "nothing"))
}

func TestMissing(t *testing.T) {
	err := Missing("", []string{"bios-psx", "core-psx"})

	require.Equal(t, []string{"bios-psx", "core-psx"}, MissingOf(err))
	assert.Contains(t, err.Error(), "bios-psx, core-psx")
	assert.True(t, errors.Is(err, ErrMissingDependency))
}

func TestComponentFailed(t *testing.T) {
	err := ComponentFailed("shader-pack", errors.New("checksum mismatch"))

	assert.Equal(t, "shader-pack", err.Component)
	assert.True(t, errors.Is(err, ErrComponentInstallFailed))
	assert.Equal(t, "component shader-pack failed to install: checksum mismatch", Reason(err))
}
