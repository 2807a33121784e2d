// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package install

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/retrohub-setup/internal/catalog"
	"github.com/jeranaias/retrohub-setup/internal/detect"
	"github.com/jeranaias/retrohub-setup/internal/errs"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type staticReport struct {
	report detect.Report
	ok     bool
}

func (s staticReport) Last() (detect.Report, bool) { return s.report, s.ok }

func passingReport() staticReport {
	raw := detect.RawAttributes{
		CPUModel:    "AMD Ryzen 7 5800X",
		GPUModel:    "NVIDIA GeForce RTX 3070",
		MemoryBytes: 32 << 30,
		OS:          "linux ubuntu 24.04",
		GraphicsAPI: "1.3.275",
	}
	return staticReport{report: detect.Evaluate(raw, detect.DefaultThresholds(), detect.Scorer{}), ok: true}
}

func lib(name string, required bool, deps ...string) catalog.Artifact {
	return catalog.Library{Component: catalog.Component{
		Name:         name,
		SizeBytes:    1024,
		Required:     required,
		Dependencies: deps,
	}}
}

func threeRequired(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(lib("alpha.dll", true), lib("beta.dll", true), lib("gamma.dll", true))
	require.NoError(t, err)
	return cat
}

func newTestScheduler(t *testing.T, cat *catalog.Catalog, opts ...Option) *Scheduler {
	t.Helper()
	base := []Option{
		WithPacer(NoDelay{}),
		WithProgress(FixedStep(25)),
		WithSpaceChecker(nil),
	}
	s, err := NewScheduler(cat, passingReport(), append(base, opts...)...)
	require.NoError(t, err)
	return s
}

// recorder collects hook events. It is safe for concurrent use.
type recorder struct {
	mu        sync.Mutex
	overall   []int
	labels    []string
	component map[int][]int
	errors    []string
	completes int
}

func newRecorder() *recorder {
	return &recorder{component: map[int][]int{}}
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnProgress: func(p int, label string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.overall = append(r.overall, p)
			r.labels = append(r.labels, label)
		},
		OnComponentProgress: func(i, p int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.component[i] = append(r.component[i], p)
		},
		OnError: func(reason string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, reason)
		},
		OnComplete: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completes++
		},
	}
}

func (r *recorder) events() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.overall) + len(r.errors) + r.completes
	for _, v := range r.component {
		n += len(v)
	}
	return n
}

func assertNonDecreasing(t *testing.T, values []int) {
	t.Helper()
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "progress decreased at event %d: %v", i, values)
	}
	for _, v := range values {
		assert.LessOrEqual(t, v, 100)
	}
}

// =============================================================================
// RUN TESTS
// =============================================================================

func TestRun_ThreeRequiredComponents(t *testing.T) {
	sched := newTestScheduler(t, threeRequired(t))
	rec := newRecorder()

	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), rec.hooks())
	require.NoError(t, err)
	require.NoError(t, sched.Run(context.Background(), sess))

	snap := sess.Snapshot()
	assert.Equal(t, StageCompleted, snap.Stage)
	assert.Equal(t, 100, snap.OverallProgress)
	assert.Len(t, snap.Installed, 3)
	for _, c := range snap.Components {
		assert.Equal(t, StatusCompleted, c.Status, c.Name)
		assert.Equal(t, 100, c.Progress, c.Name)
	}

	assertNonDecreasing(t, rec.overall)
	assert.Equal(t, 100, rec.overall[len(rec.overall)-1])
	assert.Equal(t, 1, rec.completes)
	assert.Empty(t, rec.errors)
	for i := 0; i < 3; i++ {
		assert.Equal(t, []int{0, 25, 50, 75, 100}, rec.component[i])
	}
	assert.Contains(t, rec.overall, 15)
	assert.Contains(t, rec.overall, 85)
	assert.Contains(t, rec.labels, "Installing components: beta.dll")

	assert.Nil(t, sched.Active(), "completed session is discarded")
}

func TestRun_RandomIncrementsReachHundred(t *testing.T) {
	sched := newTestScheduler(t, threeRequired(t), WithProgress(RandomIncrements{Min: 8, Max: 25}))
	rec := newRecorder()

	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, "/opt/retrohub", rec.hooks())
	require.NoError(t, err)
	require.NoError(t, sched.Run(context.Background(), sess))

	assertNonDecreasing(t, rec.overall)
	assert.Equal(t, 100, sess.OverallProgress())
	for i := 0; i < 3; i++ {
		values := rec.component[i]
		for j := 1; j < len(values); j++ {
			assert.Greater(t, values[j], values[j-1])
		}
		assert.Equal(t, 100, values[len(values)-1])
	}
}

func TestRun_CancelAfterFirstComponent(t *testing.T) {
	sched := newTestScheduler(t, threeRequired(t))
	rec := newRecorder()

	var sess *Session
	cancelledAt := -1
	hooks := rec.hooks()
	onComponent := hooks.OnComponentProgress
	hooks.OnComponentProgress = func(i, p int) {
		onComponent(i, p)
		if i == 0 && p == 100 {
			sess.Cancel()
			cancelledAt = rec.events()
		}
	}

	var err error
	sess, err = sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), hooks)
	require.NoError(t, err)

	err = sched.Run(context.Background(), sess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrCancelled))

	snap := sess.Snapshot()
	assert.Equal(t, StageCancelled, snap.Stage)
	assert.True(t, snap.Cancelled)
	assert.Equal(t, StatusCompleted, snap.Components[0].Status)
	assert.NotEqual(t, StatusCompleted, snap.Components[1].Status)
	assert.NotEqual(t, StatusCompleted, snap.Components[2].Status)

	assert.Equal(t, cancelledAt, rec.events(), "no events after cancellation")
	assert.Zero(t, rec.completes)
	assert.Nil(t, sched.Active())
}

type blockingPacer struct {
	waits   int
	after   int
	entered chan struct{}
	once    sync.Once
}

func (p *blockingPacer) Wait(ctx context.Context) error {
	p.waits++
	if p.waits <= p.after {
		return ctx.Err()
	}
	p.once.Do(func() { close(p.entered) })
	<-ctx.Done()
	return ctx.Err()
}

func TestRun_CancelFromAnotherGoroutine(t *testing.T) {
	pacer := &blockingPacer{after: 4, entered: make(chan struct{})}
	sched := newTestScheduler(t, threeRequired(t), WithPacer(pacer))
	rec := newRecorder()

	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), rec.hooks())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- sched.Run(context.Background(), sess) }()

	select {
	case <-pacer.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("pacer never blocked")
	}
	sess.Cancel()
	seen := rec.events()

	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	assert.True(t, errors.Is(err, errs.ErrCancelled))
	assert.Equal(t, seen, rec.events())
	assert.Equal(t, StageCancelled, sess.Stage())
}

func TestRun_ContextCancellation(t *testing.T) {
	sched := newTestScheduler(t, threeRequired(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newRecorder()
	hooks := rec.hooks()
	hooks.OnComponentProgress = func(i, p int) {
		if i == 1 && p == 50 {
			cancel()
		}
	}

	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), hooks)
	require.NoError(t, err)

	err = sched.Run(ctx, sess)
	assert.Equal(t, errs.KindCancelled, errs.KindOf(err))
	snap := sess.Snapshot()
	assert.Equal(t, StageCancelled, snap.Stage)
	assert.Equal(t, StatusPending, snap.Components[1].Status)
	assert.Equal(t, 50, snap.Components[1].Progress, "progress is frozen")
	assert.Zero(t, rec.completes)
}

// =============================================================================
// PREFLIGHT TESTS
// =============================================================================

func TestRun_HardwareGate(t *testing.T) {
	raw := detect.RawAttributes{
		CPUModel:    "AMD Ryzen 7 5800X",
		GPUModel:    "NVIDIA GeForce RTX 3070",
		MemoryBytes: 8 << 30,
		OS:          "linux",
		GraphicsAPI: "1.3",
	}
	weak := staticReport{report: detect.Evaluate(raw, detect.DefaultThresholds(), detect.Scorer{}), ok: true}

	sched, err := NewScheduler(threeRequired(t), weak, WithPacer(NoDelay{}), WithSpaceChecker(nil))
	require.NoError(t, err)
	rec := newRecorder()

	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), rec.hooks())
	require.NoError(t, err)

	err = sched.Run(context.Background(), sess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrHardwareIncompatible))
	assert.Contains(t, err.Error(), "RAM: 8 GB detected, 16 GB required")

	assert.Equal(t, StageError, sess.Stage())
	assert.Empty(t, rec.overall, "state machine never starts")
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "RAM")
	assert.Nil(t, sched.Active())
}

func TestRun_GateIgnoresNonGateAttributes(t *testing.T) {
	raw := detect.RawAttributes{
		CPUModel:    "AMD Ryzen 7 5800X",
		GPUModel:    "NVIDIA GeForce RTX 3070",
		MemoryBytes: 32 << 30,
		OS:          "plan9",
	}
	report := staticReport{report: detect.Evaluate(raw, detect.DefaultThresholds(), detect.Scorer{}), ok: true}
	require.False(t, report.report.OverallCompatible)

	sched, err := NewScheduler(threeRequired(t), report, WithPacer(NoDelay{}), WithSpaceChecker(nil))
	require.NoError(t, err)
	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), Hooks{})
	require.NoError(t, err)
	assert.NoError(t, sched.Run(context.Background(), sess))
}

func TestRun_NotProfiled(t *testing.T) {
	sched, err := NewScheduler(threeRequired(t), staticReport{}, WithPacer(NoDelay{}))
	require.NoError(t, err)
	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), Hooks{})
	require.NoError(t, err)

	err = sched.Run(context.Background(), sess)
	assert.Equal(t, errs.KindHardwareIncompatible, errs.KindOf(err))
}

func TestRun_IncompleteSelectionStaysIdle(t *testing.T) {
	sched := newTestScheduler(t, threeRequired(t))
	rec := newRecorder()

	sess, err := sched.NewSession([]string{"alpha.dll"}, t.TempDir(), rec.hooks())
	require.NoError(t, err)

	err = sched.Run(context.Background(), sess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMissingDependency))
	assert.Equal(t, []string{"beta.dll", "gamma.dll"}, errs.MissingOf(err))
	assert.Equal(t, StageIdle, sess.Stage())
	assert.Empty(t, rec.overall)
	assert.Len(t, rec.errors, 1)
	assert.Same(t, sess, sched.Active(), "session stays active for a corrected selection")

	require.NoError(t, sched.Reselect(sess, []string{"alpha.dll", "beta.dll", "gamma.dll"}))
	require.NoError(t, sched.Run(context.Background(), sess))
	assert.Equal(t, StageCompleted, sess.Stage())
}

func TestRun_SelectionMissingDependency(t *testing.T) {
	cat, err := catalog.New(lib("core.dll", true), lib("extra.dll", false, "helper.dll"), lib("helper.dll", false))
	require.NoError(t, err)
	sched := newTestScheduler(t, cat)

	sess, err := sched.NewSession([]string{"core.dll", "extra.dll"}, t.TempDir(), Hooks{})
	require.NoError(t, err)

	err = sched.Run(context.Background(), sess)
	assert.Equal(t, []string{"helper.dll"}, errs.MissingOf(err))
}

func TestRun_DiskSpace(t *testing.T) {
	rec := newRecorder()
	sched := newTestScheduler(t, threeRequired(t),
		WithSpaceChecker(SpaceFunc(func(string) (uint64, error) { return 100, nil })))

	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), rec.hooks())
	require.NoError(t, err)

	err = sched.Run(context.Background(), sess)
	assert.Equal(t, errs.KindHardwareIncompatible, errs.KindOf(err))
	assert.Contains(t, err.Error(), "insufficient disk space")
	assert.Equal(t, StageError, sess.Stage())
	assert.Equal(t, []int{0}, rec.overall, "fails inside Preparing")
}

func TestRun_DiskSpaceCheckErrorIsNotFatal(t *testing.T) {
	sched := newTestScheduler(t, threeRequired(t),
		WithSpaceChecker(SpaceFunc(func(string) (uint64, error) { return 0, errors.New("statfs failed") })))

	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), Hooks{})
	require.NoError(t, err)
	assert.NoError(t, sched.Run(context.Background(), sess))
}

func TestDiskSpace_NearestAncestor(t *testing.T) {
	free, err := DiskSpace{}.FreeSpace(t.TempDir() + "/not/yet/created")
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))
}

// =============================================================================
// SESSION LIFECYCLE TESTS
// =============================================================================

func TestNewSession_SingleActive(t *testing.T) {
	sched := newTestScheduler(t, threeRequired(t))

	first, err := sched.NewSession([]string{"alpha.dll"}, "/tmp/a", Hooks{})
	require.NoError(t, err)

	_, err = sched.NewSession([]string{"alpha.dll"}, "/tmp/b", Hooks{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSessionActive))

	first.Cancel()
	assert.Equal(t, StageCancelled, first.Stage())
	assert.Nil(t, sched.Active())

	second, err := sched.NewSession([]string{"alpha.dll"}, "/tmp/b", Hooks{})
	require.NoError(t, err)
	sched.Reset(second)
	assert.Nil(t, sched.Active())

	_, err = sched.NewSession([]string{"alpha.dll"}, "/tmp/c", Hooks{})
	assert.NoError(t, err)

	assert.Equal(t, errs.KindCancelled, errs.KindOf(sched.Run(context.Background(), first)))
}

func TestNewSession_Validation(t *testing.T) {
	cat, err := catalog.New(lib("core.dll", true), lib("plugin.dll", false, "core.dll"))
	require.NoError(t, err)
	sched := newTestScheduler(t, cat)

	_, err = sched.NewSession([]string{"core.dll"}, "  ", Hooks{})
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))

	_, err = sched.NewSession([]string{"core.dl"}, "/tmp/x", Hooks{})
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))
	assert.Contains(t, err.Error(), `did you mean "core.dll"`)

	sess, err := sched.NewSession([]string{"plugin.dll", "core.dll", "plugin.dll"}, "/tmp/x", Hooks{})
	require.NoError(t, err)
	assert.Equal(t, []string{"core.dll", "plugin.dll"}, sess.Selected(), "deduplicated, dependencies first")
	assert.NotEmpty(t, sess.ID)
}

func TestRun_RejectsForeignAndRunningSessions(t *testing.T) {
	a := newTestScheduler(t, threeRequired(t))
	b := newTestScheduler(t, threeRequired(t))

	sess, err := a.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, "/tmp/x", Hooks{})
	require.NoError(t, err)
	assert.Equal(t, errs.KindInvalid, errs.KindOf(b.Run(context.Background(), sess)))

	require.NoError(t, a.Run(context.Background(), sess))
	assert.Equal(t, errs.KindInvalid, errs.KindOf(a.Run(context.Background(), sess)), "completed session cannot rerun")
}

// =============================================================================
// FAILURE AND RETRY TESTS
// =============================================================================

// flakyWorker fails each listed component once when it reaches failAt.
type flakyWorker struct {
	mu     sync.Mutex
	failAt int
	fail   map[string]int
}

func (w *flakyWorker) Install(_ context.Context, a catalog.Artifact, progress int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	name := a.Base().Name
	if w.fail[name] > 0 && progress >= w.failAt {
		w.fail[name]--
		return errors.New("checksum mismatch")
	}
	return nil
}

func TestRun_ComponentErrorRetryResume(t *testing.T) {
	worker := &flakyWorker{failAt: 50, fail: map[string]int{"beta.dll": 1}}
	sched := newTestScheduler(t, threeRequired(t), WithWorker(worker))
	rec := newRecorder()

	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), rec.hooks())
	require.NoError(t, err)

	err = sched.Run(context.Background(), sess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMissingDependency))
	assert.Equal(t, []string{"beta.dll"}, errs.MissingOf(err))

	snap := sess.Snapshot()
	assert.Equal(t, StageInstallingComponents, snap.Stage, "holds at the current stage")
	assert.Equal(t, StatusCompleted, snap.Components[0].Status)
	assert.Equal(t, StatusError, snap.Components[1].Status)
	assert.Equal(t, 25, snap.Components[1].Progress, "progress frozen at last good increment")
	assert.Contains(t, snap.Components[1].Err, "checksum mismatch")
	assert.Equal(t, StatusCompleted, snap.Components[2].Status, "independent components still run")
	require.NotEmpty(t, rec.errors)
	assert.Contains(t, rec.errors[0], "beta.dll")
	assert.Same(t, sess, sched.Active())

	assert.Equal(t, errs.KindInvalid, errs.KindOf(sched.RetryComponent(context.Background(), sess, 0)), "completed component")
	assert.Equal(t, errs.KindInvalid, errs.KindOf(sched.RetryComponent(context.Background(), sess, 9)))

	require.NoError(t, sched.RetryComponent(context.Background(), sess, 1))
	assert.Equal(t, StatusCompleted, sess.Snapshot().Components[1].Status)
	assert.Equal(t, []int{0, 25, 0, 25, 50, 75, 100}, rec.component[1], "retry restarts at 0")
	assert.Equal(t, StageInstallingComponents, sess.Stage(), "retry does not advance the pipeline")

	require.NoError(t, sched.Resume(context.Background(), sess))
	assert.Equal(t, StageCompleted, sess.Stage())
	assert.Equal(t, 1, rec.completes)
	assertNonDecreasing(t, rec.overall)
	assert.Equal(t, 100, sess.OverallProgress())
	assert.Nil(t, sched.Active())
}

func TestRun_DependencyBlockedComponent(t *testing.T) {
	cat, err := catalog.New(lib("core.dll", true), lib("ui.dll", true, "core.dll"))
	require.NoError(t, err)
	worker := &flakyWorker{failAt: 1, fail: map[string]int{"core.dll": 1}}
	sched := newTestScheduler(t, cat, WithWorker(worker))
	rec := newRecorder()

	sess, err := sched.NewSession([]string{"ui.dll", "core.dll"}, t.TempDir(), rec.hooks())
	require.NoError(t, err)

	err = sched.Run(context.Background(), sess)
	assert.ElementsMatch(t, []string{"core.dll", "ui.dll"}, errs.MissingOf(err))

	snap := sess.Snapshot()
	assert.Equal(t, "core.dll", snap.Components[0].Name)
	assert.Equal(t, StatusError, snap.Components[0].Status)
	assert.Equal(t, StatusPending, snap.Components[1].Status, "dependent is not attempted")
	assert.Empty(t, rec.component[1])
	require.GreaterOrEqual(t, len(rec.errors), 2)
	assert.Contains(t, rec.errors[1], "ui.dll is blocked")
	assert.Contains(t, rec.errors[1], "core.dll")

	err = sched.RetryComponent(context.Background(), sess, 1)
	assert.Equal(t, errs.KindMissingDependency, errs.KindOf(err))

	require.NoError(t, sched.RetryComponent(context.Background(), sess, 0))
	require.NoError(t, sched.Resume(context.Background(), sess))
	assert.Equal(t, []string{"core.dll", "ui.dll"}, sess.Snapshot().Installed)
	assert.Equal(t, 1, rec.completes)
}

func TestRun_OptionalFailureDoesNotBlock(t *testing.T) {
	cat, err := catalog.New(lib("core.dll", true), lib("shader.slangp", false))
	require.NoError(t, err)
	worker := &flakyWorker{failAt: 1, fail: map[string]int{"shader.slangp": 1}}
	sched := newTestScheduler(t, cat, WithWorker(worker))
	rec := newRecorder()

	sess, err := sched.NewSession([]string{"core.dll", "shader.slangp"}, t.TempDir(), rec.hooks())
	require.NoError(t, err)

	require.NoError(t, sched.Run(context.Background(), sess))
	snap := sess.Snapshot()
	assert.Equal(t, StageCompleted, snap.Stage)
	assert.Equal(t, StatusError, snap.Components[1].Status)
	assert.Equal(t, []string{"core.dll"}, snap.Installed)
	assert.Len(t, rec.errors, 1)
	assert.Equal(t, 1, rec.completes)
}

func TestRun_HooksMayInspectSession(t *testing.T) {
	sched := newTestScheduler(t, threeRequired(t))
	var sess *Session
	var stages []Stage
	hooks := Hooks{OnProgress: func(int, string) { stages = append(stages, sess.Snapshot().Stage) }}

	var err error
	sess, err = sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), hooks)
	require.NoError(t, err)
	require.NoError(t, sched.Run(context.Background(), sess))

	assert.Equal(t, StagePreparing, stages[0])
	assert.Equal(t, StageCompleted, stages[len(stages)-1])
}

func TestNewScheduler_Validation(t *testing.T) {
	_, err := NewScheduler(nil, passingReport())
	assert.Error(t, err)

	_, err = NewScheduler(threeRequired(t), nil)
	assert.Error(t, err)

	_, err = NewScheduler(threeRequired(t), passingReport(), WithWeights(Weights{Preparing: 50}))
	assert.Equal(t, errs.KindInvalid, errs.KindOf(err))
}

func TestComponentOverall_FollowsStageWeights(t *testing.T) {
	w := Weights{Preparing: 10, CreatingDirectories: 10, InstallingComponents: 60,
		Registering: 10, CreatingShortcuts: 5, Optimizing: 5}
	sched := newTestScheduler(t, threeRequired(t), WithWeights(w))
	sess, err := sched.NewSession([]string{"alpha.dll", "beta.dll", "gamma.dll"}, t.TempDir(), Hooks{})
	require.NoError(t, err)

	assert.Equal(t, 20, sched.componentOverall(sess))

	sess.setComponent(0, StatusCompleted, 100, "")
	sess.setComponent(1, StatusInstalling, 50, "")
	assert.Equal(t, 50, sched.componentOverall(sess))
	assert.Equal(t, w.Overall(StageInstallingComponents, 0.5), sched.componentOverall(sess))

	sess.setComponent(1, StatusCompleted, 100, "")
	sess.setComponent(2, StatusCompleted, 100, "")
	assert.Equal(t, 80, sched.componentOverall(sess))
}
