// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/retrohub-setup/internal/catalog"
	"github.com/jeranaias/retrohub-setup/internal/errs"
	"github.com/jeranaias/retrohub-setup/internal/install"
	"github.com/jeranaias/retrohub-setup/internal/util"
)

const rule = "--------------------------------------------------------------------------------"

// =============================================================================
// SHARED INSTALL FLOW
// =============================================================================

// optionalNames lists the components a user may add, in catalog order.
func optionalNames(cat *catalog.Catalog) []string {
	var out []string
	for _, a := range cat.All() {
		if b := a.Base(); !b.Required {
			out = append(out, b.Name)
		}
	}
	return out
}

// parseNames splits a comma or space separated list.
func parseNames(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

// retryHeld retries every failed component of a held session, then resumes it.
func retryHeld(ctx context.Context, sched *install.Scheduler, sess *install.Session) error {
	for i, c := range sess.Snapshot().Components {
		if c.Status != install.StatusError {
			continue
		}
		if err := sched.RetryComponent(ctx, sess, i); err != nil && errs.KindOf(err) != errs.KindComponentInstallFailed {
			return err
		}
	}
	return sched.Resume(ctx, sess)
}

// held reports whether err left sess waiting at InstallingComponents.
func held(sess *install.Session, err error) bool {
	return err != nil && sess.Stage() == install.StageInstallingComponents && !sess.Cancelled()
}

// =============================================================================
// TEXT MODE INSTALLER (Copy/Paste Friendly)
// =============================================================================

// prompter reads answers through liner, or returns defaults when prompting is off.
type prompter struct {
	line *liner.State
}

func newPrompter(enabled bool, completions []string) *prompter {
	if !enabled {
		return &prompter{}
	}
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		fields := parseNames(input)
		prefix := ""
		last := ""
		if len(fields) > 0 && !strings.HasSuffix(input, " ") && !strings.HasSuffix(input, ",") {
			last = fields[len(fields)-1]
			prefix = strings.TrimSuffix(input, last)
		} else {
			prefix = input
		}
		var out []string
		for _, name := range completions {
			if strings.HasPrefix(name, last) {
				out = append(out, prefix+name)
			}
		}
		return out
	})
	return &prompter{line: line}
}

func (p *prompter) close() {
	if p.line != nil {
		p.line.Close()
	}
}

// ask prompts with def pre-filled. EOF keeps def; Ctrl-C cancels.
func (p *prompter) ask(prompt, def string) (string, error) {
	if p.line == nil {
		return def, nil
	}
	answer, err := p.line.PromptWithSuggestion(prompt, def, -1)
	switch {
	case errors.Is(err, liner.ErrPromptAborted):
		return "", errs.New(errs.KindCancelled, "installation cancelled")
	case errors.Is(err, io.EOF):
		return def, nil
	case err != nil:
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// confirm asks a yes/no question, defaulting to yes.
func (p *prompter) confirm(prompt string) (bool, error) {
	answer, err := p.ask(prompt+" [Y/n]: ", "")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "" || answer == "y" || answer == "yes", nil
}

func runText(ctx context.Context, cmd *cobra.Command, a *app, opts installOptions) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", len(rule)))
	fmt.Fprintln(out, "                              RETROHUB INSTALLER")
	fmt.Fprintln(out, strings.Repeat("=", len(rule)))
	fmt.Fprintln(out)

	optional := optionalNames(a.catalog)
	ask := newPrompter(!opts.yes, optional)
	defer ask.close()

	// Hardware
	section(out, "SYSTEM REQUIREMENTS CHECK")
	p := a.profiler(opts.simulate)
	report := p.Detect(ctx)
	fmt.Fprint(out, formatReport(newReportView(report, p.Thresholds())))
	fmt.Fprintln(out)

	// Selection
	section(out, "COMPONENTS")
	target, err := ask.ask("Install location: ", opts.target)
	if err != nil {
		return err
	}
	if target == "" {
		target = opts.target
	}

	with := opts.with
	if len(with) == 0 && len(optional) > 0 && ask.line != nil {
		fmt.Fprintln(out, "Optional components:")
		for _, name := range optional {
			art, _ := a.catalog.Get(name)
			fmt.Fprintf(out, "  %s  %s\n", util.PadRight(name, 24), dimStyle.Render(art.Base().Description))
		}
		answer, err := ask.ask("Add (comma separated, Tab completes, Enter for none): ", "")
		if err != nil {
			return err
		}
		with = parseNames(answer)
	}

	selection, err := a.catalog.Resolve(with)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n  %d components, %s, into %s\n\n",
		len(selection), util.FormatBytes(a.catalog.TotalSize(selection)), target)

	sched, err := a.scheduler(p)
	if err != nil {
		return err
	}

	// Install
	section(out, "INSTALLING")
	lastLabel := ""
	hooks := install.Hooks{
		OnProgress: func(overall int, label string) {
			if label != lastLabel || overall == 100 {
				fmt.Fprintf(out, "  [%3d%%] %s\n", overall, label)
				lastLabel = label
			}
		},
		OnError: func(reason string) {
			fmt.Fprintln(out, errorStyle.Render("  [FAIL] ")+reason)
		},
		OnComplete: func() {
			fmt.Fprintln(out, successStyle.Render("  [OK] ")+"all components installed")
		},
	}
	sess, err := sched.NewSession(selection, target, hooks)
	if err != nil {
		return err
	}
	defer sched.Reset(sess)

	err = sched.Run(ctx, sess)
	for held(sess, err) {
		again, perr := ask.confirm("Retry the failed components?")
		if perr != nil {
			return perr
		}
		if !again || ask.line == nil {
			return err
		}
		err = retryHeld(ctx, sched, sess)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", len(rule)))
	fmt.Fprintln(out, "                         INSTALLATION COMPLETE!")
	fmt.Fprintln(out, strings.Repeat("=", len(rule)))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "RetroHub is installed in %s\n\n", target)
	return nil
}

func section(out io.Writer, title string) {
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, center(title, len(rule)))
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
}

func center(s string, width int) string {
	pad := (width - util.StringWidth(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
