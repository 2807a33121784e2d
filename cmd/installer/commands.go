// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/retrohub-setup/internal/assemble"
	"github.com/jeranaias/retrohub-setup/internal/catalog"
	"github.com/jeranaias/retrohub-setup/internal/config"
	"github.com/jeranaias/retrohub-setup/internal/detect"
	"github.com/jeranaias/retrohub-setup/internal/errs"
	"github.com/jeranaias/retrohub-setup/internal/logging"
	"github.com/jeranaias/retrohub-setup/internal/util"
)

// cli carries the global flags and the app built from them.
type cli struct {
	configPath  string
	catalogPath string
	logLevel    string
	logFile     string
	noColor     bool

	app *app
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "retrohub-setup",
		Short: "Install RetroHub and build its offline package",
		Long: `retrohub-setup checks this machine against RetroHub's hardware
requirements, installs the selected components and assembles the
offline distribution package.`,
		Version:           version,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				c.app.close()
			}
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "configuration file (default: XDG config retrohub/setup.toml)")
	flags.StringVar(&c.catalogPath, "catalog", "", "component catalog, TOML or YAML (default: built-in)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&c.logFile, "log-file", "", `log file path, "-" for none`)
	flags.BoolVar(&c.noColor, "no-color", false, "disable colour output")

	rootCmd.AddCommand(
		c.newDetectCmd(),
		c.newCatalogCmd(),
		c.newValidateCmd(),
		c.newInstallCmd(),
		c.newAssembleCmd(),
		c.newConfigCmd(),
	)
	return rootCmd
}

// setup loads configuration, applies flag overrides and builds the app.
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	applyColorProfile(c.noColor)

	var cfg *config.Config
	var err error
	if c.configPath != "" {
		cfg, err = config.LoadFromPath(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if c.catalogPath != "" {
		cfg.Catalog.Path = c.catalogPath
	}
	if c.logLevel != "" {
		if _, err := logging.ParseLevel(c.logLevel); err != nil {
			return errs.Wrap(err, errs.KindInvalid, "bad --log-level")
		}
		cfg.Logging.Level = c.logLevel
	}
	if c.logFile != "" {
		cfg.Logging.File = c.logFile
	}

	logger, closeLog, err := logging.Setup(logging.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		NoColor: !colorEnabled(),
	})
	if err != nil {
		return err
	}
	logger.Debug().Str("command", cmd.Name()).Msg("Command started")

	a, err := newApp(cfg, logger, closeLog)
	if err != nil {
		_ = closeLog()
		return err
	}
	c.app = a
	return nil
}

// signalContext is cancelled on interrupt.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

// =============================================================================
// DETECT
// =============================================================================

type attributeView struct {
	Attribute        string `json:"attribute"`
	Value            string `json:"value"`
	Score            int    `json:"score"`
	Detected         bool   `json:"detected"`
	Minimum          int    `json:"minimum"`
	Recommended      int    `json:"recommended"`
	MeetsMinimum     bool   `json:"meets_minimum"`
	MeetsRecommended bool   `json:"meets_recommended"`
}

type reportView struct {
	OverallCompatible bool            `json:"overall_compatible"`
	Attributes        []attributeView `json:"attributes"`
	CriticalIssues    []string        `json:"critical_issues"`
	Recommendations   []string        `json:"recommendations"`
	DetectedAt        string          `json:"detected_at"`
	ProbeError        string          `json:"probe_error,omitempty"`
}

func newReportView(r detect.Report, th detect.Thresholds) reportView {
	v := reportView{
		OverallCompatible: r.OverallCompatible,
		CriticalIssues:    append([]string{}, r.CriticalIssues...),
		Recommendations:   append([]string{}, r.Recommendations...),
		DetectedAt:        r.DetectedAt.Format("2006-01-02T15:04:05Z07:00"),
		ProbeError:        r.ProbeError,
	}
	for _, attr := range detect.Attributes {
		res := r.Attributes[attr]
		v.Attributes = append(v.Attributes, attributeView{
			Attribute:        attr.Key(),
			Value:            res.Value,
			Score:            res.Score,
			Detected:         res.Detected,
			Minimum:          th[attr].Minimum,
			Recommended:      th[attr].Recommended,
			MeetsMinimum:     res.MeetsMinimum,
			MeetsRecommended: res.MeetsRecommended,
		})
	}
	return v
}

func (c *cli) newDetectCmd() *cobra.Command {
	var jsonOut, simulate bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Profile this machine against the hardware requirements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			p := c.app.profiler(simulate)
			report := p.Detect(ctx)
			view := newReportView(report, p.Thresholds())

			if jsonOut {
				data, err := json.MarshalIndent(view, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				fmt.Fprint(cmd.OutOrStdout(), formatReport(view))
			}

			if !report.OverallCompatible {
				return errs.Newf(errs.KindHardwareIncompatible,
					"%d critical issue(s) found", len(report.CriticalIssues))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "report simulated hardware instead of probing")
	return cmd
}

func formatReport(v reportView) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("System Requirements Check") + "\n")

	rows := [][]string{{"", "Attribute", "Value", "Score", "Minimum", "Recommended"}}
	for _, a := range v.Attributes {
		icon := "[OK]"
		switch {
		case !a.MeetsMinimum:
			icon = "[FAIL]"
		case !a.MeetsRecommended:
			icon = "[!!]"
		}
		value := a.Value
		if !a.Detected {
			value = "not detected"
		}
		rows = append(rows, []string{
			icon, a.Attribute, util.TruncateWidth(value, 40),
			strconv.Itoa(a.Score), strconv.Itoa(a.Minimum), strconv.Itoa(a.Recommended),
		})
	}
	b.WriteString(table(rows) + "\n")

	for _, issue := range v.CriticalIssues {
		b.WriteString(errorStyle.Render("  [FAIL] ") + issue + "\n")
	}
	for _, rec := range v.Recommendations {
		b.WriteString(warningStyle.Render("  [!!] ") + rec + "\n")
	}
	if v.OverallCompatible {
		b.WriteString(successStyle.Render("  This machine can run RetroHub.") + "\n")
	}
	return b.String()
}

// =============================================================================
// CATALOG
// =============================================================================

func (c *cli) newCatalogCmd() *cobra.Command {
	var deps string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the installable components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := c.app.catalog
			out := cmd.OutOrStdout()

			if deps != "" {
				direct, err := cat.DependenciesOf(deps)
				if err != nil {
					return err
				}
				all, err := cat.TransitiveDependenciesOf(deps)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", highlightStyle.Render(deps))
				fmt.Fprintf(out, "  direct:     %s\n", joinOrNone(direct))
				fmt.Fprintf(out, "  transitive: %s\n", joinOrNone(all))
				return nil
			}

			fmt.Fprint(out, formatCatalog(cat))
			return nil
		},
	}
	cmd.Flags().StringVar(&deps, "deps", "", "show the dependencies of one component")
	return cmd
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func formatCatalog(cat *catalog.Catalog) string {
	rows := [][]string{{"Name", "Kind", "Version", "Size", "Required", "Description"}}
	for _, a := range cat.All() {
		b := a.Base()
		required := ""
		if b.Required {
			required = "yes"
		}
		rows = append(rows, []string{
			b.Name, a.Kind().String(), b.Version, util.FormatBytes(b.SizeBytes), required,
			util.TruncateWidth(b.Description, 40),
		})
	}

	var s strings.Builder
	s.WriteString(table(rows))
	required := cat.RequiredNames()
	s.WriteString(dimStyle.Render(fmt.Sprintf("\n  %d components, %d required (%s)",
		cat.Len(), len(required), util.FormatBytes(cat.TotalSize(required)))) + "\n")
	if systems := cat.Systems(); len(systems) > 0 {
		s.WriteString(dimStyle.Render("  systems: "+strings.Join(systems, ", ")) + "\n")
	}
	return s.String()
}

// =============================================================================
// VALIDATE
// =============================================================================

func (c *cli) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate NAME...",
		Short: "Check that a selection covers every required component",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateSelection(cmd, c.app.catalog, args)
		},
	}
}

func validateSelection(cmd *cobra.Command, cat *catalog.Catalog, selected []string) error {
	out := cmd.OutOrStdout()
	v := cat.Validate(selected)

	for _, name := range v.Unknown {
		line := warningStyle.Render("  [!!] ") + "unknown component " + strconv.Quote(name)
		if s := cat.Suggest(name); s != "" {
			line += dimStyle.Render(" (did you mean " + strconv.Quote(s) + "?)")
		}
		fmt.Fprintln(out, line)
	}
	for _, name := range v.Missing {
		fmt.Fprintln(out, errorStyle.Render("  [FAIL] ")+"missing required component "+name)
	}

	gaps := cat.ClosureGaps(selected)
	var missingDeps []string
	for _, g := range gaps {
		fmt.Fprintf(out, "%s%s needs %s\n", errorStyle.Render("  [FAIL] "), g.Component, strings.Join(g.Missing, ", "))
		missingDeps = append(missingDeps, g.Missing...)
	}

	if err := v.Err(); err != nil {
		return err
	}
	if len(missingDeps) > 0 {
		sort.Strings(missingDeps)
		return errs.Missing("selection is missing dependencies", compactStrings(missingDeps))
	}
	fmt.Fprintln(out, successStyle.Render("  Selection is complete."))
	return nil
}

// compactStrings removes adjacent duplicates from a sorted slice.
func compactStrings(in []string) []string {
	out := in[:0]
	for i, s := range in {
		if i == 0 || s != in[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// INSTALL
// =============================================================================

type installOptions struct {
	target   string
	with     []string
	text     bool
	simulate bool
	yes      bool
}

func (c *cli) newInstallCmd() *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install RetroHub",
		Long: `Install the required components plus any optional ones given with --with.
Dependencies are added automatically. The interactive installer is used
on a terminal; --text forces the line-based installer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			if opts.target == "" {
				opts.target = c.app.cfg.Install.DefaultTarget
			}
			if !opts.text && isTerminal() {
				return runTUI(ctx, c.app, opts)
			}
			return runText(ctx, cmd, c.app, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.target, "target", "", "install location (default from config)")
	flags.StringSliceVar(&opts.with, "with", nil, "optional components to add")
	flags.BoolVar(&opts.text, "text", false, "use the line-based installer")
	flags.BoolVar(&opts.simulate, "simulate", false, "use simulated hardware instead of probing")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "do not prompt")
	return cmd
}

// =============================================================================
// ASSEMBLE
// =============================================================================

func (c *cli) newAssembleCmd() *cobra.Command {
	var out string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Build the offline distribution package",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			if out == "" {
				out = c.app.cfg.Package.OutputName
			}
			done := logging.LogOperationStart(c.app.logger, "assemble")
			m, err := c.app.assembler().AssembleFile(ctx, c.app.catalog, out)
			done()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return errs.Wrap(err, errs.KindCancelled, "assembly cancelled")
				}
				return err
			}

			if !quiet {
				fmt.Fprint(cmd.OutOrStdout(), renderMarkdown(assemble.Summary(m)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Package written to ")+out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default from config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the package summary")
	return cmd
}

// =============================================================================
// CONFIG
// =============================================================================

func (c *cli) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialise the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := toml.NewEncoder(&buf).Encode(c.app.cfg); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), buf.String())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the XDG config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(config.Default()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Configuration written."))
			return nil
		},
	})
	return cmd
}
