// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errs defines the failure taxonomy shared by the setup core.
//
// Every failure raised by the profiler gate, the dependency validator,
// the scheduler and the package assembler is an *Error carrying one Kind.
// Callers branch on the kind with errors.Is against the sentinel values:
//
//	if errors.Is(err, errs.ErrMissingDependency) {
//		fmt.Println("missing:", errs.MissingOf(err))
//	}
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate here.
	KindUnknown Kind = iota
	// KindInvalid marks bad input: configuration, catalog payloads, arguments.
	KindInvalid
	// KindHardwareIncompatible is fatal to a session before it starts.
	KindHardwareIncompatible
	// KindMissingDependency blocks a stage transition until the selection is fixed.
	KindMissingDependency
	// KindComponentInstallFailed is local to one component and retryable.
	KindComponentInstallFailed
	// KindArchiveAssemblyFailed is returned by the assembler; the whole call may be retried.
	KindArchiveAssemblyFailed
	// KindSessionActive is returned when a second session is started on a busy scheduler.
	KindSessionActive
	// KindCancelled is returned by a session run that was cancelled.
	KindCancelled
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "Invalid"
	case KindHardwareIncompatible:
		return "HardwareIncompatible"
	case KindMissingDependency:
		return "MissingDependency"
	case KindComponentInstallFailed:
		return "ComponentInstallFailed"
	case KindArchiveAssemblyFailed:
		return "ArchiveAssemblyFailed"
	case KindSessionActive:
		return "SessionActive"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. They compare by kind only.
var (
	ErrInvalid                = &Error{Kind: KindInvalid}
	ErrHardwareIncompatible   = &Error{Kind: KindHardwareIncompatible}
	ErrMissingDependency      = &Error{Kind: KindMissingDependency}
	ErrComponentInstallFailed = &Error{Kind: KindComponentInstallFailed}
	ErrArchiveAssemblyFailed  = &Error{Kind: KindArchiveAssemblyFailed}
	ErrSessionActive          = &Error{Kind: KindSessionActive}
	ErrCancelled              = &Error{Kind: KindCancelled}
)

// Error is a classified failure with a human-readable reason.
type Error struct {
	Kind Kind
	// Reason is shown to the user as-is.
	Reason string
	// Component names the component involved, if any.
	Component string
	// Missing lists absent component names for KindMissingDependency.
	Missing []string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Newf creates an error of the given kind with a formatted reason.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. It returns nil when err is nil.
func Wrap(err error, kind Kind, reason string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Missing builds a KindMissingDependency error listing the absent names.
func Missing(reason string, names []string) *Error {
	missing := append([]string(nil), names...)
	if reason == "" {
		reason = "missing required components"
	}
	return &Error{
		Kind:    KindMissingDependency,
		Reason:  fmt.Sprintf("%s: %s", reason, strings.Join(missing, ", ")),
		Missing: missing,
	}
}

// ComponentFailed builds a KindComponentInstallFailed error for one component.
func ComponentFailed(component string, err error) *Error {
	return &Error{
		Kind:      KindComponentInstallFailed,
		Reason:    fmt.Sprintf("component %s failed to install", component),
		Component: component,
		Err:       err,
	}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MissingOf returns the missing component names carried by err.
func MissingOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Missing
	}
	return nil
}

// Reason returns the human-readable reason of err, falling back to err.Error().
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Reason != "" {
		if e.Err != nil {
			return e.Reason + ": " + e.Err.Error()
		}
		return e.Reason
	}
	return err.Error()
}
