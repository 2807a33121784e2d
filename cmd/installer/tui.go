// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/retrohub-setup/internal/catalog"
	"github.com/jeranaias/retrohub-setup/internal/detect"
	"github.com/jeranaias/retrohub-setup/internal/errs"
	"github.com/jeranaias/retrohub-setup/internal/install"
	"github.com/jeranaias/retrohub-setup/internal/util"
)

// =============================================================================
// ASCII ART
// =============================================================================

const logo = `
    ____      _             _   _       _
   |  _ \ ___| |_ _ __ ___ | | | |_   _| |__
   | |_) / _ \ __| '__/ _ \| |_| | | | | '_ \
   |  _ <  __/ |_| | | (_) |  _  | |_| | |_) |
   |_| \_\___|\__|_|  \___/|_| |_|\__,_|_.__/
`

const tagline = "Every system. One frontend."

// =============================================================================
// INSTALLER MODEL
// =============================================================================

// Phase represents the current installer screen
type Phase int

const (
	PhaseWelcome Phase = iota
	PhaseSelect
	PhaseInstalling
	PhaseHeld
	PhaseComplete
	PhaseFailed
)

// Messages from the scheduler hooks and the run goroutine.
type (
	progressMsg struct {
		overall int
		label   string
	}
	componentMsg struct {
		index    int
		progress int
	}
	hookErrorMsg struct{ reason string }
	completeMsg  struct{}
	runDoneMsg   struct{ err error }
	cancelledMsg struct{}
)

// choice is one optional component on the selection screen.
type choice struct {
	name        string
	description string
	size        int64
	selected    bool
}

// Installer is the interactive installer model.
type Installer struct {
	ctx    context.Context
	app    *app
	report detect.Report
	target string

	sched    *install.Scheduler
	sess     *install.Session
	send     func(tea.Msg)
	selected []string

	phase    Phase
	width    int
	height   int
	spinner  spinner.Model
	progress progress.Model

	choices []choice
	cursor  int

	overall    int
	label      string
	components []install.ComponentState
	errors     []string
	err        error
	cancelling bool
}

// NewInstaller creates the model. send delivers hook events to the running
// program; it is set once the program exists.
func NewInstaller(ctx context.Context, a *app, sched *install.Scheduler, report detect.Report, opts installOptions) *Installer {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(brandPrimary)

	i := &Installer{
		ctx:      ctx,
		app:      a,
		report:   report,
		target:   opts.target,
		sched:    sched,
		phase:    PhaseWelcome,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		send:     func(tea.Msg) {},
	}

	preselected := make(map[string]bool, len(opts.with))
	for _, name := range opts.with {
		preselected[name] = true
	}
	for _, name := range optionalNames(a.catalog) {
		art, _ := a.catalog.Get(name)
		b := art.Base()
		i.choices = append(i.choices, choice{
			name:        name,
			description: b.Description,
			size:        b.SizeBytes,
			selected:    preselected[name],
		})
	}
	return i
}

// Init initializes the installer
func (i *Installer) Init() tea.Cmd {
	return i.spinner.Tick
}

// hooks forwards session events to the program.
func (i *Installer) hooks() install.Hooks {
	return install.Hooks{
		OnProgress:          func(overall int, label string) { i.send(progressMsg{overall, label}) },
		OnComponentProgress: func(index, p int) { i.send(componentMsg{index, p}) },
		OnError:             func(reason string) { i.send(hookErrorMsg{reason}) },
		OnComplete:          func() { i.send(completeMsg{}) },
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages
func (i *Installer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return i.handleKey(msg)

	case tea.WindowSizeMsg:
		i.width = msg.Width
		i.height = msg.Height
		progressWidth := msg.Width - 20
		if progressWidth < 20 {
			progressWidth = 20
		}
		if progressWidth > 100 {
			progressWidth = 100
		}
		i.progress.Width = progressWidth
		return i, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		i.spinner, cmd = i.spinner.Update(msg)
		return i, cmd

	case progress.FrameMsg:
		progressModel, cmd := i.progress.Update(msg)
		i.progress = progressModel.(progress.Model)
		return i, cmd

	case progressMsg:
		i.overall = msg.overall
		i.label = msg.label
		i.refresh()
		return i, i.progress.SetPercent(float64(msg.overall) / 100)

	case componentMsg:
		i.refresh()
		return i, nil

	case hookErrorMsg:
		i.errors = append(i.errors, msg.reason)
		i.refresh()
		return i, nil

	case completeMsg:
		return i, nil

	case runDoneMsg:
		i.refresh()
		i.err = msg.err
		switch {
		case msg.err == nil:
			i.phase = PhaseComplete
		case held(i.sess, msg.err):
			i.phase = PhaseHeld
		default:
			i.phase = PhaseFailed
		}
		return i, nil

	case cancelledMsg:
		i.err = errs.New(errs.KindCancelled, "installation cancelled")
		return i, tea.Quit
	}

	return i, nil
}

func (i *Installer) refresh() {
	if i.sess != nil {
		i.components = i.sess.Snapshot().Components
	}
}

// handleKey processes key presses
func (i *Installer) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return i, i.quit()

	case "up", "k":
		if i.phase == PhaseSelect && i.cursor > 0 {
			i.cursor--
		}
		return i, nil

	case "down", "j":
		if i.phase == PhaseSelect && i.cursor < len(i.choices)-1 {
			i.cursor++
		}
		return i, nil

	case " ":
		if i.phase == PhaseSelect && len(i.choices) > 0 {
			i.choices[i.cursor].selected = !i.choices[i.cursor].selected
		}
		return i, nil

	case "r":
		if i.phase == PhaseHeld {
			i.phase = PhaseInstalling
			i.errors = nil
			return i, i.runCmd(func(ctx context.Context) error { return retryHeld(ctx, i.sched, i.sess) })
		}
		return i, nil

	case "enter":
		return i.handleSelect()
	}

	return i, nil
}

// quit cancels a live session off the event loop, since Cancel waits for
// in-flight hooks and those hooks wait for this loop.
func (i *Installer) quit() tea.Cmd {
	if i.sess == nil || i.phase == PhaseComplete || i.phase == PhaseFailed {
		return tea.Quit
	}
	if i.cancelling {
		return nil
	}
	i.cancelling = true
	sess := i.sess
	return func() tea.Msg {
		sess.Cancel()
		return cancelledMsg{}
	}
}

// handleSelect processes selection/enter
func (i *Installer) handleSelect() (tea.Model, tea.Cmd) {
	switch i.phase {
	case PhaseWelcome:
		i.phase = PhaseSelect
		return i, nil

	case PhaseSelect:
		return i, i.start()

	case PhaseHeld:
		i.phase = PhaseInstalling
		return i, i.runCmd(func(ctx context.Context) error { return i.sched.Resume(ctx, i.sess) })

	case PhaseComplete, PhaseFailed:
		return i, tea.Quit
	}
	return i, nil
}

// selection resolves the required set plus the checked optional components.
func (i *Installer) selection() ([]string, error) {
	var with []string
	for _, c := range i.choices {
		if c.selected {
			with = append(with, c.name)
		}
	}
	return i.app.catalog.Resolve(with)
}

func (i *Installer) start() tea.Cmd {
	names, err := i.selection()
	if err != nil {
		i.err = err
		i.phase = PhaseFailed
		return nil
	}
	sess, err := i.sched.NewSession(names, i.target, i.hooks())
	if err != nil {
		i.err = err
		i.phase = PhaseFailed
		return nil
	}
	i.sess = sess
	i.selected = names
	i.phase = PhaseInstalling
	i.refresh()
	return i.runCmd(func(ctx context.Context) error { return i.sched.Run(ctx, sess) })
}

// runCmd runs a blocking scheduler call on a command goroutine.
func (i *Installer) runCmd(run func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return runDoneMsg{err: run(i.ctx)}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the installer
func (i *Installer) View() string {
	switch i.phase {
	case PhaseWelcome:
		return i.viewWelcome()
	case PhaseSelect:
		return i.viewSelect()
	case PhaseInstalling, PhaseHeld:
		return i.viewInstalling()
	case PhaseComplete:
		return i.viewComplete()
	case PhaseFailed:
		return i.viewFailed()
	}
	return ""
}

func (i *Installer) viewWelcome() string {
	var s strings.Builder

	s.WriteString(lipgloss.NewStyle().Foreground(brandPrimary).Bold(true).Render(logo))
	s.WriteString("\n")
	s.WriteString(dimStyle.Italic(true).Render("    " + tagline))
	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render(fmt.Sprintf("    Version %s", version)))
	s.WriteString("\n\n")

	s.WriteString(titleStyle.Render("  System Requirements Check"))
	s.WriteString("\n")
	for _, attr := range detect.Attributes {
		res := i.report.Attributes[attr]
		icon, style := "[OK]", successStyle
		switch {
		case !res.MeetsMinimum:
			icon, style = "[FAIL]", errorStyle
		case !res.MeetsRecommended:
			icon, style = "[!!]", warningStyle
		}
		value := res.Value
		if !res.Detected {
			value = "not detected"
		}
		s.WriteString(fmt.Sprintf("  %s %s", style.Render(util.PadRight(icon, 6)), util.PadRight(attr.String(), 12)))
		s.WriteString(dimStyle.Render(" - " + util.TruncateWidth(value, 48)))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	if i.report.OverallCompatible {
		s.WriteString(successStyle.Render("  All requirements met!"))
	} else {
		for _, issue := range i.report.CriticalIssues {
			s.WriteString(errorStyle.Render("  " + issue))
			s.WriteString("\n")
		}
		s.WriteString(warningStyle.Render("  Installation will be refused on this machine"))
	}
	s.WriteString("\n\n")

	s.WriteString(highlightStyle.Render("  Press ENTER to continue"))
	s.WriteString(dimStyle.Render("  |  Press Q to quit"))
	return i.center(s.String())
}

func (i *Installer) viewSelect() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("  Choose Optional Components"))
	s.WriteString("\n")
	s.WriteString(dimStyle.Render("  Required components and dependencies are always installed."))
	s.WriteString("\n\n")

	if len(i.choices) == 0 {
		s.WriteString(dimStyle.Render("  No optional components in this catalog."))
		s.WriteString("\n")
	}
	for idx, c := range i.choices {
		cursor := "  "
		if idx == i.cursor {
			cursor = "> "
		}
		box := "[ ]"
		if c.selected {
			box = "[x]"
		}
		line := fmt.Sprintf("  %s%s %s %s", cursor, box, util.PadRight(c.name, 24), util.PadRight(util.FormatBytes(c.size), 9))
		if idx == i.cursor {
			s.WriteString(highlightStyle.Render(line))
		} else {
			s.WriteString(line)
		}
		s.WriteString(dimStyle.Render(" " + c.description))
		s.WriteString("\n")
	}

	names, err := i.selection()
	s.WriteString("\n")
	if err == nil {
		s.WriteString(dimStyle.Render(fmt.Sprintf("  %d components, %s, into %s",
			len(names), util.FormatBytes(i.app.catalog.TotalSize(names)), i.target)))
		s.WriteString("\n\n")
	}
	s.WriteString(dimStyle.Render("  Up/Down to move  |  Space to toggle  |  Enter to install"))
	return i.center(s.String())
}

func (i *Installer) viewInstalling() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("  Installing RetroHub"))
	s.WriteString("\n")

	label := i.label
	if label == "" {
		label = install.StagePreparing.Label()
	}
	if i.phase == PhaseInstalling {
		s.WriteString(fmt.Sprintf("  %s %s\n\n", i.spinner.View(), label))
	} else {
		s.WriteString(warningStyle.Render("  Installation is waiting on failed components") + "\n\n")
	}
	s.WriteString("  " + i.progress.View() + "\n\n")

	var list strings.Builder
	for _, c := range i.components {
		icon, style := "[ ]", dimStyle
		switch c.Status {
		case install.StatusInstalling:
			icon, style = "[..]", highlightStyle
		case install.StatusCompleted:
			icon, style = "[OK]", successStyle
		case install.StatusError:
			icon, style = "[FAIL]", errorStyle
		}
		list.WriteString(fmt.Sprintf("%s %s %3d%%\n", style.Render(util.PadRight(icon, 6)), util.PadRight(c.Name, 24), c.Progress))
	}
	s.WriteString(boxStyle.Render(strings.TrimRight(list.String(), "\n")))
	s.WriteString("\n")

	for _, reason := range i.errors {
		s.WriteString(errorStyle.Render("  " + reason))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	switch {
	case i.cancelling:
		s.WriteString(warningStyle.Render("  Cancelling..."))
	case i.phase == PhaseHeld:
		s.WriteString(highlightStyle.Render("  Press R to retry failed components"))
		s.WriteString(dimStyle.Render("  |  ENTER to continue  |  Q to cancel"))
	default:
		s.WriteString(dimStyle.Render("  Press Q to cancel"))
	}
	return i.center(s.String())
}

func (i *Installer) viewComplete() string {
	var s strings.Builder

	successArt := `
    +------------------------------------------+
    |                                          |
    |      *** Installation Complete! ***      |
    |                                          |
    +------------------------------------------+
`
	s.WriteString(successStyle.Render(successArt))
	s.WriteString("\n")

	installed := 0
	var size int64
	for _, c := range i.components {
		if c.Status == install.StatusCompleted {
			installed++
			if art, ok := i.app.catalog.Get(c.Name); ok {
				size += art.Base().SizeBytes
			}
		}
	}
	s.WriteString(fmt.Sprintf("  %d components (%s) installed into\n", installed, util.FormatBytes(size)))
	s.WriteString(highlightStyle.Render("  "+i.target) + "\n\n")
	s.WriteString(systemsLine(i.app.catalog, i.selected))
	s.WriteString(dimStyle.Render("  Press ENTER to close"))
	return i.center(s.String())
}

// systemsLine lists the emulated systems covered by names.
func systemsLine(cat *catalog.Catalog, names []string) string {
	seen := map[string]bool{}
	var systems []string
	for _, name := range names {
		if art, ok := cat.Get(name); ok {
			if sys := art.Base().System; sys != "" && !seen[sys] {
				seen[sys] = true
				systems = append(systems, strings.ToUpper(sys))
			}
		}
	}
	if len(systems) == 0 {
		return ""
	}
	return dimStyle.Render("  Systems ready: "+strings.Join(systems, ", ")) + "\n\n"
}

func (i *Installer) viewFailed() string {
	var s strings.Builder
	s.WriteString(errorStyle.Render("  Installation failed"))
	s.WriteString("\n\n")
	if i.err != nil {
		s.WriteString(boxStyle.Render(describeError(i.err)))
		s.WriteString("\n\n")
	}
	s.WriteString(dimStyle.Render("  Press ENTER to close"))
	return i.center(s.String())
}

// center centers content on screen
func (i *Installer) center(content string) string {
	if i.width == 0 || i.height == 0 {
		return content
	}

	lines := strings.Split(content, "\n")
	topPadding := (i.height - len(lines)) / 3
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}

// =============================================================================
// ENTRY POINT
// =============================================================================

func runTUI(ctx context.Context, a *app, opts installOptions) error {
	p := a.profiler(opts.simulate)
	report := p.Detect(ctx)

	sched, err := a.scheduler(p)
	if err != nil {
		return err
	}

	model := NewInstaller(ctx, a, sched, report, opts)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.send = program.Send

	final, err := program.Run()
	if model.sess != nil {
		sched.Reset(model.sess)
	}
	if err != nil {
		if ctx.Err() != nil {
			return errs.Wrap(ctx.Err(), errs.KindCancelled, "installation cancelled")
		}
		return fmt.Errorf("error running installer: %w", err)
	}
	if m, ok := final.(*Installer); ok && m.err != nil && m.phase != PhaseComplete {
		return m.err
	}
	return nil
}
