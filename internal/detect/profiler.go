// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package detect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

// Threshold is the minimum and recommended score for one attribute.
type Threshold struct {
	Minimum     int
	Recommended int
}

// Thresholds maps every attribute to its threshold.
type Thresholds map[Attribute]Threshold

// DefaultThresholds returns the built-in thresholds.
// RAM is in GB; the graphics API is Vulkan major*10+minor.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AttrCPU:         {Minimum: 40, Recommended: 70},
		AttrGPU:         {Minimum: 40, Recommended: 70},
		AttrRAM:         {Minimum: 16, Recommended: 32},
		AttrGraphicsAPI: {Minimum: 11, Recommended: 13},
		AttrOS:          {Minimum: 50, Recommended: 80},
	}
}

// =============================================================================
// REPORT
// =============================================================================

// AttributeResult is the verdict for one attribute.
type AttributeResult struct {
	Attribute        Attribute
	Value            string
	Score            int
	Detected         bool
	MeetsMinimum     bool
	MeetsRecommended bool
}

// Report is a compatibility verdict.
// OverallCompatible is always equal to len(CriticalIssues) == 0.
type Report struct {
	Attributes        map[Attribute]AttributeResult
	OverallCompatible bool
	CriticalIssues    []string
	Recommendations   []string
	DetectedAt        time.Time
	// ProbeError is set when the probe failed outright.
	ProbeError string
}

// Scores returns the per-attribute scores.
func (r Report) Scores() map[Attribute]int {
	out := make(map[Attribute]int, len(r.Attributes))
	for a, res := range r.Attributes {
		out[a] = res.Score
	}
	return out
}

// MeetsMinimum returns the per-attribute minimum verdicts.
func (r Report) MeetsMinimum() map[Attribute]bool {
	out := make(map[Attribute]bool, len(r.Attributes))
	for a, res := range r.Attributes {
		out[a] = res.MeetsMinimum
	}
	return out
}

// Meets reports whether every given attribute meets its minimum, and lists the ones that do not.
func (r Report) Meets(attrs ...Attribute) (bool, []Attribute) {
	var failing []Attribute
	for _, a := range attrs {
		if res, ok := r.Attributes[a]; !ok || !res.MeetsMinimum {
			failing = append(failing, a)
		}
	}
	return len(failing) == 0, failing
}

func (r Report) clone() Report {
	out := r
	out.Attributes = make(map[Attribute]AttributeResult, len(r.Attributes))
	for a, res := range r.Attributes {
		out.Attributes[a] = res
	}
	out.CriticalIssues = append([]string(nil), r.CriticalIssues...)
	out.Recommendations = append([]string(nil), r.Recommendations...)
	return out
}

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluate scores raw against thresholds. It is a pure function.
func Evaluate(raw RawAttributes, thresholds Thresholds, scorer Scorer) Report {
	report := Report{Attributes: make(map[Attribute]AttributeResult, len(Attributes))}

	for _, attr := range Attributes {
		th := thresholds[attr]
		score, detected := scorer.Score(attr, raw)
		res := AttributeResult{
			Attribute: attr,
			Value:     ValueString(attr, raw),
			Score:     score,
			Detected:  detected,
		}
		res.MeetsMinimum = detected && score >= th.Minimum
		res.MeetsRecommended = res.MeetsMinimum && score >= th.Recommended
		report.Attributes[attr] = res

		switch {
		case !detected:
			report.CriticalIssues = append(report.CriticalIssues, fmt.Sprintf("%s: could not be detected", attr))
		case !res.MeetsMinimum:
			report.CriticalIssues = append(report.CriticalIssues, criticalMessage(res, th))
		case !res.MeetsRecommended:
			report.Recommendations = append(report.Recommendations, recommendationMessage(res, th))
		}
	}

	report.OverallCompatible = len(report.CriticalIssues) == 0
	return report
}

// undetectedReport marks every attribute as not detected.
func undetectedReport(reason string) Report {
	report := Report{
		Attributes: make(map[Attribute]AttributeResult, len(Attributes)),
		ProbeError: reason,
	}
	for _, attr := range Attributes {
		report.Attributes[attr] = AttributeResult{Attribute: attr}
		report.CriticalIssues = append(report.CriticalIssues, fmt.Sprintf("%s: could not be detected (%s)", attr, reason))
	}
	report.OverallCompatible = false
	return report
}

func criticalMessage(res AttributeResult, th Threshold) string {
	switch res.Attribute {
	case AttrRAM:
		return fmt.Sprintf("RAM: %d GB detected, %d GB required", res.Score, th.Minimum)
	case AttrGraphicsAPI:
		return fmt.Sprintf("Graphics API: %s detected, Vulkan %s required", res.Value, apiVersion(th.Minimum))
	default:
		return fmt.Sprintf("%s: %s scores %d, minimum is %d", res.Attribute, res.Value, res.Score, th.Minimum)
	}
}

func recommendationMessage(res AttributeResult, th Threshold) string {
	switch res.Attribute {
	case AttrRAM:
		return fmt.Sprintf("RAM: %d GB meets minimum; %d GB recommended", res.Score, th.Recommended)
	case AttrGraphicsAPI:
		return fmt.Sprintf("Graphics API: %s meets minimum; Vulkan %s recommended", res.Value, apiVersion(th.Recommended))
	default:
		return fmt.Sprintf("%s: %s meets minimum; %d+ recommended", res.Attribute, res.Value, th.Recommended)
	}
}

func apiVersion(score int) string {
	return fmt.Sprintf("%d.%d", score/10, score%10)
}

// =============================================================================
// PROFILER
// =============================================================================

// Profiler runs a probe and keeps the last report.
type Profiler struct {
	probe      Probe
	thresholds Thresholds
	scorer     Scorer
	timeout    time.Duration
	logger     zerolog.Logger
	now        func() time.Time

	mu   sync.RWMutex
	last *Report
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithThresholds overrides the default thresholds. Attributes absent from t keep their defaults.
func WithThresholds(t Thresholds) Option {
	return func(p *Profiler) {
		for a, th := range t {
			p.thresholds[a] = th
		}
	}
}

// WithFallbackScore sets the score given to unrecognized identifiers.
func WithFallbackScore(score int) Option {
	return func(p *Profiler) { p.scorer.FallbackScore = score }
}

// WithTimeout bounds a single Detect call.
func WithTimeout(d time.Duration) Option {
	return func(p *Profiler) { p.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Profiler) { p.logger = l }
}

// WithClock sets the time source used for DetectedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) { p.now = now }
}

// NewProfiler creates a profiler around probe.
func NewProfiler(probe Probe, opts ...Option) *Profiler {
	p := &Profiler{
		probe:      probe,
		thresholds: DefaultThresholds(),
		timeout:    probeTimeout,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Thresholds returns a copy of the active thresholds.
func (p *Profiler) Thresholds() Thresholds {
	out := make(Thresholds, len(p.thresholds))
	for a, th := range p.thresholds {
		out[a] = th
	}
	return out
}

// Detect probes the hardware and scores it. It never fails: a probe error
// or panic yields a report with every attribute undetected.
func (p *Profiler) Detect(ctx context.Context) Report {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw, err := p.safeProbe(ctx)

	var report Report
	if err != nil {
		p.logger.Warn().Err(err).Msg("Hardware probe failed")
		report = undetectedReport(err.Error())
	} else {
		report = Evaluate(raw, p.thresholds, p.scorer)
	}
	report.DetectedAt = p.now()

	p.logger.Info().
		Bool("compatible", report.OverallCompatible).
		Int("critical", len(report.CriticalIssues)).
		Int("recommendations", len(report.Recommendations)).
		Msg("Hardware profiled")

	p.mu.Lock()
	stored := report.clone()
	p.last = &stored
	p.mu.Unlock()

	return report
}

func (p *Profiler) safeProbe(ctx context.Context) (raw RawAttributes, err error) {
	if p.probe == nil {
		return raw, fmt.Errorf("no hardware probe configured")
	}
	defer func() {
		if r := recover(); r != nil {
			raw = RawAttributes{}
			err = fmt.Errorf("hardware probe panicked: %v", r)
		}
	}()
	return p.probe.Probe(ctx)
}

// Last returns the most recent report.
func (p *Profiler) Last() (Report, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Report{}, false
	}
	return p.last.clone(), true
}
