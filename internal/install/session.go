// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package install

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// =============================================================================
// COMPONENT STATUS
// =============================================================================

// Status is the installation state of one selected component.
type Status int

const (
	// StatusPending means not yet attempted, or blocked by a dependency.
	StatusPending Status = iota
	// StatusInstalling means increments are being applied.
	StatusInstalling
	// StatusCompleted means the component reached 100.
	StatusCompleted
	// StatusError means the worker failed; the component can be retried.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInstalling:
		return "installing"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ComponentState is the runtime view of one selected component.
type ComponentState struct {
	Name     string
	Status   Status
	Progress int
	// Err is the last failure reason, if any.
	Err string
}

// =============================================================================
// HOOKS
// =============================================================================

// Hooks receive session events. All fields are optional. Hooks run on the
// goroutine driving the session; they may call Session.Cancel and
// Session.Snapshot but must not start another run of the same session.
type Hooks struct {
	// OnProgress receives overall progress (0..100) and the current stage label.
	OnProgress func(overall int, label string)
	// OnComponentProgress receives the index into Session.Selected and its progress.
	OnComponentProgress func(index, progress int)
	// OnComplete fires at most once, only for a session that was not cancelled.
	OnComplete func()
	// OnError receives a human-readable reason for every failure.
	OnError func(reason string)
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one installation attempt. It is created by Scheduler.NewSession,
// mutated only by the Scheduler, and discarded on completion, cancellation
// or Scheduler.Reset.
type Session struct {
	// ID is a unique identifier for this session
	ID string

	// Target is the install location
	Target string

	// CreatedAt is when the session was created
	CreatedAt time.Time

	owner *Scheduler
	hooks Hooks

	// mu protects the fields below
	mu         sync.Mutex
	stage      Stage
	overall    int
	components []ComponentState
	installed  map[string]bool
	running    bool
	completed  bool
	stop       context.CancelFunc

	cancelled atomic.Bool

	// hookMu serializes hook calls with Cancel so that no hook starts after
	// Cancel returns. inHook lets a hook cancel its own session.
	hookMu sync.Mutex
	inHook atomic.Bool
}

func newSession(id, target string, selected []string, hooks Hooks, owner *Scheduler) *Session {
	s := &Session{
		ID:        id,
		Target:    target,
		CreatedAt: time.Now(),
		owner:     owner,
		hooks:     hooks,
		installed: make(map[string]bool, len(selected)),
	}
	s.setSelection(selected)
	return s
}

// setSelection replaces the selection (must be called with lock held or before sharing).
func (s *Session) setSelection(selected []string) {
	s.components = make([]ComponentState, len(selected))
	for i, name := range selected {
		s.components[i] = ComponentState{Name: name, Status: StatusPending}
	}
}

// Selected returns the selected component names in installation order.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.components))
	for i, c := range s.components {
		out[i] = c.Name
	}
	return out
}

// Stage returns the current stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// OverallProgress returns the overall progress (0..100).
func (s *Session) OverallProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overall
}

// Cancelled reports whether the session was cancelled.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// Cancel sets the cancellation flag. A running session stops at its next
// suspension point; an idle or held session moves to Cancelled immediately.
// After Cancel returns no hook fires for this session. Cancel on a finished
// session does nothing.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.stage.Terminal() || s.cancelled.Load() {
		s.mu.Unlock()
		return
	}
	s.cancelled.Store(true)
	stop := s.stop
	running := s.running
	if !running {
		s.interruptLocked()
	}
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if !running && s.owner != nil {
		s.owner.release(s)
	}
	if !s.inHook.Load() {
		s.hookMu.Lock()
		//nolint:staticcheck // waits for an in-flight hook to return
		s.hookMu.Unlock()
	}
}

// interruptLocked moves the session to Cancelled (must be called with lock held).
func (s *Session) interruptLocked() {
	for i := range s.components {
		if s.components[i].Status == StatusInstalling {
			s.components[i].Status = StatusPending
		}
	}
	s.stage = StageCancelled
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID              string
	Target          string
	Stage           Stage
	OverallProgress int
	Cancelled       bool
	Running         bool
	Components      []ComponentState
	// Installed lists completed components in selection order.
	Installed []string
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:              s.ID,
		Target:          s.Target,
		Stage:           s.stage,
		OverallProgress: s.overall,
		Cancelled:       s.cancelled.Load(),
		Running:         s.running,
		Components:      append([]ComponentState(nil), s.components...),
	}
	for _, c := range s.components {
		if s.installed[c.Name] {
			snap.Installed = append(snap.Installed, c.Name)
		}
	}
	return snap
}

// =============================================================================
// INTERNAL STATE CHANGES
// =============================================================================

// transition changes the stage, validating the move.
func (s *Session) transition(to Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !isValidTransition(s.stage, to) {
		return fmt.Errorf("invalid stage transition from %s to %s", s.stage, to)
	}
	s.stage = to
	return nil
}

func (s *Session) component(i int) ComponentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.components[i]
}

func (s *Session) setComponent(i int, status Status, progress int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.components[i]
	c.Status = status
	c.Progress = progress
	c.Err = reason
	if status == StatusCompleted {
		s.installed[c.Name] = true
	}
}

func (s *Session) isInstalled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installed[name]
}

func (s *Session) installedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.components {
		if s.installed[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

// progressSum returns the summed component progress and the component count.
func (s *Session) progressSum() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := 0
	for _, c := range s.components {
		sum += c.Progress
	}
	return sum, len(s.components)
}

// fire runs fn unless the session is cancelled. It reports whether fn ran.
func (s *Session) fire(fn func()) bool {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	if s.cancelled.Load() {
		return false
	}
	s.inHook.Store(true)
	defer s.inHook.Store(false)
	fn()
	return true
}

// emitProgress records overall progress, clamped to be non-decreasing and at
// most 100, and notifies OnProgress.
func (s *Session) emitProgress(overall int, label string) {
	if s.cancelled.Load() {
		return
	}
	s.mu.Lock()
	if overall < s.overall {
		overall = s.overall
	}
	if overall > 100 {
		overall = 100
	}
	s.overall = overall
	s.mu.Unlock()

	if s.hooks.OnProgress != nil {
		s.fire(func() { s.hooks.OnProgress(overall, label) })
	}
}

func (s *Session) emitComponent(index, progress int) {
	if s.hooks.OnComponentProgress != nil {
		s.fire(func() { s.hooks.OnComponentProgress(index, progress) })
	}
}

func (s *Session) emitError(reason string) {
	if s.hooks.OnError != nil {
		s.fire(func() { s.hooks.OnError(reason) })
	}
}

// emitComplete fires OnComplete at most once.
func (s *Session) emitComplete() {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	s.completed = true
	s.mu.Unlock()

	if s.hooks.OnComplete != nil {
		s.fire(s.hooks.OnComplete)
	}
}
