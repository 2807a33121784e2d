// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package install

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/retrohub-setup/internal/catalog"
	"github.com/jeranaias/retrohub-setup/internal/detect"
	"github.com/jeranaias/retrohub-setup/internal/errs"
	"github.com/jeranaias/retrohub-setup/internal/util"
)

// DefaultStepInterval is the pause between progress increments.
const DefaultStepInterval = 120 * time.Millisecond

// ReportSource provides the last hardware report. *detect.Profiler satisfies it.
type ReportSource interface {
	Last() (detect.Report, bool)
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Scheduler drives installation sessions through the stage pipeline.
// At most one session is active at a time.
type Scheduler struct {
	catalog  *catalog.Catalog
	profiler ReportSource
	gate     []detect.Attribute
	weights  Weights
	progress ProgressGenerator
	pacer    Pacer
	worker   Worker
	space    SpaceChecker
	logger   zerolog.Logger

	mu     sync.Mutex
	active *Session
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithGate sets the attributes that must meet their minimum before a session starts.
func WithGate(attrs ...detect.Attribute) Option {
	return func(s *Scheduler) { s.gate = append([]detect.Attribute(nil), attrs...) }
}

// WithWeights sets the stage weights.
func WithWeights(w Weights) Option {
	return func(s *Scheduler) { s.weights = w }
}

// WithProgress sets the progress generator.
func WithProgress(g ProgressGenerator) Option {
	return func(s *Scheduler) { s.progress = g }
}

// WithPacer sets the pacer used at every suspension point.
func WithPacer(p Pacer) Option {
	return func(s *Scheduler) { s.pacer = p }
}

// WithWorker sets the per-increment worker.
func WithWorker(w Worker) Option {
	return func(s *Scheduler) { s.worker = w }
}

// WithSpaceChecker sets the free space check run while Preparing. Nil disables it.
func WithSpaceChecker(c SpaceChecker) Option {
	return func(s *Scheduler) { s.space = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler creates a scheduler over cat, gated by profiler.
func NewScheduler(cat *catalog.Catalog, profiler ReportSource, opts ...Option) (*Scheduler, error) {
	if cat == nil {
		return nil, errs.New(errs.KindInvalid, "scheduler requires a catalog")
	}
	if profiler == nil {
		return nil, errs.New(errs.KindInvalid, "scheduler requires a hardware report source")
	}

	s := &Scheduler{
		catalog:  cat,
		profiler: profiler,
		gate:     []detect.Attribute{detect.AttrCPU, detect.AttrGPU, detect.AttrRAM},
		weights:  DefaultWeights(),
		progress: RandomIncrements{Min: 8, Max: 25},
		pacer:    NewRatePacer(DefaultStepInterval),
		worker:   PlaceholderWorker{},
		space:    DiskSpace{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.weights.Validate(); err != nil {
		return nil, err
	}
	if s.progress == nil {
		s.progress = RandomIncrements{Min: 8, Max: 25}
	}
	if s.pacer == nil {
		s.pacer = NoDelay{}
	}
	if s.worker == nil {
		s.worker = PlaceholderWorker{}
	}
	return s, nil
}

// Catalog returns the catalog the scheduler installs from.
func (s *Scheduler) Catalog() *catalog.Catalog { return s.catalog }

// Active returns the active session, or nil.
func (s *Scheduler) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Scheduler) release(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == sess {
		s.active = nil
	}
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// NewSession creates the active session. It fails with ErrSessionActive while
// another session is active; that session must be cancelled or reset first.
func (s *Scheduler) NewSession(selected []string, target string, hooks Hooks) (*Session, error) {
	if strings.TrimSpace(target) == "" {
		return nil, errs.New(errs.KindInvalid, "installation target is empty")
	}
	names, err := s.normalize(selected)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, errs.Newf(errs.KindSessionActive,
			"session %s is still active; cancel or reset it first", s.active.ID)
	}

	sess := newSession(uuid.New().String(), target, names, hooks, s)
	s.active = sess
	s.logger.Debug().
		Str("session", sess.ID).
		Str("target", target).
		Strs("components", names).
		Msg("Session created")
	return sess, nil
}

// Reselect replaces the selection of a session that has not started.
func (s *Scheduler) Reselect(sess *Session, selected []string) error {
	if err := s.owns(sess); err != nil {
		return err
	}
	names, err := s.normalize(selected)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.running || sess.stage != StageIdle {
		return errs.Newf(errs.KindInvalid, "cannot change the selection of a session in stage %s", sess.stage)
	}
	sess.setSelection(names)
	return nil
}

// Reset discards sess. A running session is cancelled and stops at its next
// suspension point. The scheduler is free for a new session on return.
func (s *Scheduler) Reset(sess *Session) {
	if sess == nil {
		return
	}
	sess.Cancel()
	s.release(sess)
	s.logger.Debug().Str("session", sess.ID).Msg("Session reset")
}

// normalize removes duplicates, rejects unknown names and orders the
// selection so dependencies come before their dependents. The order of
// otherwise unrelated components is preserved.
func (s *Scheduler) normalize(selected []string) ([]string, error) {
	in := make(map[string]bool, len(selected))
	var unique []string
	for _, name := range selected {
		if in[name] {
			continue
		}
		if _, err := s.catalog.DependenciesOf(name); err != nil {
			return nil, err
		}
		in[name] = true
		unique = append(unique, name)
	}

	placed := make(map[string]bool, len(unique))
	out := make([]string, 0, len(unique))
	var place func(name string)
	place = func(name string) {
		if placed[name] {
			return
		}
		placed[name] = true
		deps, _ := s.catalog.DependenciesOf(name)
		for _, d := range deps {
			if in[d] {
				place(d)
			}
		}
		out = append(out, name)
	}
	for _, name := range unique {
		place(name)
	}
	return out, nil
}

func (s *Scheduler) owns(sess *Session) error {
	if sess == nil || sess.owner != s {
		return errs.New(errs.KindInvalid, "session does not belong to this scheduler")
	}
	return nil
}

// begin marks sess running. It returns a context that Session.Cancel ends.
func (s *Scheduler) begin(ctx context.Context, sess *Session, op string, allowed ...Stage) (context.Context, error) {
	if err := s.owns(sess); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	switch {
	case sess.running:
		return nil, errs.Newf(errs.KindInvalid, "session %s is already running", sess.ID)
	case sess.cancelled.Load() || sess.stage == StageCancelled:
		return nil, errs.New(errs.KindCancelled, "session was cancelled")
	case !slices.Contains(allowed, sess.stage):
		return nil, errs.Newf(errs.KindInvalid, "cannot %s a session in stage %s", op, sess.stage)
	}

	runCtx, stop := context.WithCancel(ctx)
	sess.running = true
	sess.stop = stop
	return runCtx, nil
}

// end clears the running mark and frees the scheduler after a terminal stage.
func (s *Scheduler) end(sess *Session) {
	sess.mu.Lock()
	stop := sess.stop
	sess.stop = nil
	sess.running = false
	terminal := sess.stage.Terminal()
	sess.mu.Unlock()

	if stop != nil {
		stop()
	}
	if terminal {
		s.release(sess)
	}
}

// =============================================================================
// RUNNING
// =============================================================================

// Run drives sess from Idle to Completed. It blocks until the session
// completes, is cancelled, fails or holds.
//
// Errors:
//   - HardwareIncompatible: the last hardware report fails the gate; stage Error.
//   - MissingDependency: the selection is incomplete (stage stays Idle), or
//     required components failed to install (stage holds at InstallingComponents).
//   - Cancelled: Session.Cancel was called or ctx ended; stage Cancelled.
//
// A failed optional component does not block the pipeline; it is reported
// through OnError and left in StatusError.
func (s *Scheduler) Run(ctx context.Context, sess *Session) error {
	runCtx, err := s.begin(ctx, sess, "run", StageIdle)
	if err != nil {
		return err
	}
	defer s.end(sess)

	if err := s.preflight(sess); err != nil {
		return err
	}
	return s.runFrom(runCtx, sess, StagePreparing)
}

// Resume continues a session held at InstallingComponents: it attempts every
// still-pending component, re-checks the required set and runs the remaining
// stages. A session left Idle by an incomplete selection is started from the
// preflight.
func (s *Scheduler) Resume(ctx context.Context, sess *Session) error {
	runCtx, err := s.begin(ctx, sess, "resume", StageIdle, StageInstallingComponents)
	if err != nil {
		return err
	}
	defer s.end(sess)

	if sess.Stage() == StageIdle {
		if err := s.preflight(sess); err != nil {
			return err
		}
		return s.runFrom(runCtx, sess, StagePreparing)
	}
	return s.runFrom(runCtx, sess, StageInstallingComponents)
}

// RetryComponent re-installs the component at index from 0. The session must
// be held at InstallingComponents and the component's dependencies must be
// installed. It does not advance the pipeline; call Resume for that.
func (s *Scheduler) RetryComponent(ctx context.Context, sess *Session, index int) error {
	runCtx, err := s.begin(ctx, sess, "retry a component of", StageInstallingComponents)
	if err != nil {
		return err
	}
	defer s.end(sess)

	sess.mu.Lock()
	count := len(sess.components)
	sess.mu.Unlock()
	if index < 0 || index >= count {
		return errs.Newf(errs.KindInvalid, "component index %d out of range [0, %d)", index, count)
	}
	if c := sess.component(index); c.Status == StatusCompleted {
		return errs.Newf(errs.KindInvalid, "component %s is already installed", c.Name)
	}

	s.logger.Info().Str("session", sess.ID).Int("index", index).Msg("Retrying component")
	return s.installOne(runCtx, sess, index)
}

// preflight runs the hardware gate and the selection check before Preparing.
func (s *Scheduler) preflight(sess *Session) error {
	report, ok := s.profiler.Last()
	if !ok {
		return s.fail(sess, errs.New(errs.KindHardwareIncompatible, "hardware has not been profiled"))
	}
	if ok, failing := report.Meets(s.gate...); !ok {
		return s.fail(sess, gateError(report, failing))
	}

	selected := sess.Selected()
	if missing := s.missingFrom(selected); len(missing) > 0 {
		err := errs.Missing("selection is missing required components", missing)
		s.logger.Warn().Str("session", sess.ID).Strs("missing", missing).Msg("Selection incomplete")
		sess.emitError(errs.Reason(err))
		return err
	}
	return nil
}

// missingFrom returns required components absent from names plus dependencies
// of names absent from names, without duplicates.
func (s *Scheduler) missingFrom(names []string) []string {
	v := s.catalog.Validate(names)
	missing := append([]string(nil), v.Missing...)
	for _, gap := range s.catalog.ClosureGaps(names) {
		for _, dep := range gap.Missing {
			if !slices.Contains(missing, dep) {
				missing = append(missing, dep)
			}
		}
	}
	return missing
}

func gateError(report detect.Report, failing []detect.Attribute) error {
	var details []string
	for _, attr := range failing {
		prefix := attr.String() + ":"
		found := false
		for _, issue := range report.CriticalIssues {
			if strings.HasPrefix(issue, prefix) {
				details = append(details, issue)
				found = true
			}
		}
		if !found {
			details = append(details, attr.String()+": below minimum")
		}
	}
	return errs.New(errs.KindHardwareIncompatible,
		"hardware does not meet minimum requirements ("+strings.Join(details, "; ")+")")
}

// fail moves sess to Error and reports err.
func (s *Scheduler) fail(sess *Session, err error) error {
	if terr := sess.transition(StageError); terr != nil {
		s.logger.Error().Err(terr).Str("session", sess.ID).Msg("Stage transition rejected")
	}
	s.logger.Error().Err(err).Str("session", sess.ID).Msg("Installation failed")
	sess.emitError(errs.Reason(err))
	return err
}

// abort moves sess to Cancelled.
func (s *Scheduler) abort(sess *Session) error {
	sess.cancelled.Store(true)
	sess.mu.Lock()
	stage := sess.stage
	if !stage.Terminal() {
		sess.interruptLocked()
	}
	sess.mu.Unlock()

	s.logger.Info().Str("session", sess.ID).Str("stage", stage.String()).Msg("Installation cancelled")
	return errs.New(errs.KindCancelled, "installation cancelled during "+stage.String())
}

// checkpoint is the cancellation check at every suspension point.
func (s *Scheduler) checkpoint(ctx context.Context, sess *Session) error {
	if sess.cancelled.Load() || ctx.Err() != nil {
		return s.abort(sess)
	}
	return nil
}

// pause waits on the pacer, then checks for cancellation.
func (s *Scheduler) pause(ctx context.Context, sess *Session) error {
	if err := s.pacer.Wait(ctx); err != nil {
		return s.abort(sess)
	}
	return s.checkpoint(ctx, sess)
}

// runFrom executes the pipeline starting at from, then completes.
func (s *Scheduler) runFrom(ctx context.Context, sess *Session, from Stage) error {
	for _, stage := range pipeline {
		if stage < from {
			continue
		}
		if err := s.runStage(ctx, sess, stage); err != nil {
			return err
		}
	}

	if err := s.checkpoint(ctx, sess); err != nil {
		return err
	}
	if err := sess.transition(StageCompleted); err != nil {
		return s.fail(sess, err)
	}
	sess.emitProgress(100, StageCompleted.Label())
	sess.emitComplete()
	s.logger.Info().
		Str("session", sess.ID).
		Int("components", len(sess.installedNames())).
		Msg("Installation complete")
	return nil
}

func (s *Scheduler) runStage(ctx context.Context, sess *Session, stage Stage) error {
	if err := s.checkpoint(ctx, sess); err != nil {
		return err
	}
	if err := sess.transition(stage); err != nil {
		return s.fail(sess, err)
	}
	s.logger.Debug().Str("session", sess.ID).Str("stage", stage.String()).Msg("Stage started")
	sess.emitProgress(s.weights.Start(stage), stage.Label())

	switch stage {
	case StagePreparing:
		if err := s.prepare(sess); err != nil {
			return err
		}
	case StageInstallingComponents:
		return s.installComponents(ctx, sess)
	}
	return s.pause(ctx, sess)
}

// prepare checks free space at the target.
func (s *Scheduler) prepare(sess *Session) error {
	if s.space == nil {
		return nil
	}
	need := uint64(s.catalog.TotalSize(sess.Selected()))
	free, err := s.space.FreeSpace(sess.Target)
	if err != nil {
		s.logger.Warn().Err(err).Str("target", sess.Target).Msg("Could not check free disk space")
		return nil
	}
	if free < need {
		return s.fail(sess, errs.Newf(errs.KindHardwareIncompatible,
			"insufficient disk space at %s: %s required, %s available",
			sess.Target, util.FormatBytes(int64(need)), util.FormatBytes(int64(free))))
	}
	return nil
}

// installComponents installs every pending component and then requires the
// installed set to cover the required components.
func (s *Scheduler) installComponents(ctx context.Context, sess *Session) error {
	_, count := sess.progressSum()
	for i := 0; i < count; i++ {
		if st := sess.component(i).Status; st == StatusCompleted || st == StatusError {
			continue
		}
		if err := s.installOne(ctx, sess, i); errs.KindOf(err) == errs.KindCancelled {
			return err
		}
	}

	if err := s.checkpoint(ctx, sess); err != nil {
		return err
	}
	// With no components the stage contributes its whole weight at once.
	sess.emitProgress(s.componentOverall(sess), StageInstallingComponents.Label())

	if missing := s.missingFrom(sess.installedNames()); len(missing) > 0 {
		err := errs.Missing("holding installation: required components are not installed", missing)
		s.logger.Warn().Str("session", sess.ID).Strs("missing", missing).Msg("Installation holding")
		sess.emitError(errs.Reason(err))
		return err
	}
	return s.pause(ctx, sess)
}

// componentOverall maps summed component progress into the stage's weight.
func (s *Scheduler) componentOverall(sess *Session) int {
	sum, n := sess.progressSum()
	if n == 0 {
		return s.weights.Overall(StageInstallingComponents, 1)
	}
	return s.weights.Overall(StageInstallingComponents, float64(sum)/float64(100*n))
}

// installOne applies increments to component i until it reaches 100.
func (s *Scheduler) installOne(ctx context.Context, sess *Session, i int) error {
	state := sess.component(i)
	artifact, ok := s.catalog.Get(state.Name)
	if !ok {
		return errs.Newf(errs.KindInvalid, "component %s is not in the catalog", state.Name)
	}

	var blockers []string
	for _, dep := range artifact.Base().Dependencies {
		if !sess.isInstalled(dep) {
			blockers = append(blockers, dep)
		}
	}
	if len(blockers) > 0 {
		err := errs.Missing(fmt.Sprintf("%s is blocked by dependencies that are not installed", state.Name), blockers)
		err.Component = state.Name
		sess.setComponent(i, StatusPending, 0, errs.Reason(err))
		s.logger.Warn().Str("component", state.Name).Strs("blocked_by", blockers).Msg("Component blocked")
		sess.emitError(errs.Reason(err))
		return err
	}

	if err := s.checkpoint(ctx, sess); err != nil {
		return err
	}
	sess.setComponent(i, StatusInstalling, 0, "")
	sess.emitComponent(i, 0)
	label := StageInstallingComponents.Label() + ": " + state.Name

	progress := 0
	for progress < 100 {
		if err := s.pause(ctx, sess); err != nil {
			return err
		}
		next := advance(s.progress, progress)

		werr := s.worker.Install(ctx, artifact, next)
		// The increment in flight has finished; cancellation takes effect here.
		if err := s.checkpoint(ctx, sess); err != nil {
			return err
		}
		if werr != nil {
			ferr := errs.ComponentFailed(state.Name, werr)
			sess.setComponent(i, StatusError, progress, errs.Reason(ferr))
			s.logger.Error().Err(werr).Str("component", state.Name).Int("progress", progress).Msg("Component failed")
			sess.emitError(errs.Reason(ferr))
			return ferr
		}

		progress = next
		status := StatusInstalling
		if progress == 100 {
			status = StatusCompleted
		}
		sess.setComponent(i, status, progress, "")
		sess.emitComponent(i, progress)
		sess.emitProgress(s.componentOverall(sess), label)
	}

	s.logger.Debug().Str("component", state.Name).Msg("Component installed")
	return nil
}
