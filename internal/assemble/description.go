// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assemble

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jeranaias/retrohub-setup/internal/util"
)

// Casers are stateful, so each call builds its own.
func title(s string) string { return cases.Title(language.English).String(s) }
func upper(s string) string { return cases.Upper(language.English).String(s) }

// folderTitle returns the heading of a folder's description file.
func folderTitle(dir string) string {
	if dir == "" {
		return "RetroHub Package"
	}
	if parent := path.Dir(dir); parent == dirSystems {
		return upper(path.Base(dir)) + " System"
	}
	return title(strings.ReplaceAll(path.Base(dir), "_", " "))
}

// folderSummary returns the one-paragraph summary of a folder.
func folderSummary(dir string) string {
	if s, ok := folderSummaries[dir]; ok {
		return s
	}
	if path.Dir(dir) == dirSystems {
		return "Emulation core and runtime files for the " + upper(path.Base(dir)) + " system."
	}
	return "Package contents."
}

// describe renders the description file for d. Entries are listed in name
// order; the description file itself is not listed.
func describe(d *Dir, self string) []byte {
	heading := folderTitle(d.Path)

	var b strings.Builder
	b.WriteString(heading + "\n")
	b.WriteString(strings.Repeat("=", util.StringWidth(heading)) + "\n\n")
	b.WriteString(folderSummary(d.Path) + "\n")

	var names []string
	var details []string
	for _, sub := range d.Dirs {
		names = append(names, sub.Name+"/")
		details = append(details, folderTitle(sub.Path))
	}
	for _, f := range d.Files {
		if f.Name == self {
			continue
		}
		detail := util.FormatBytes(f.Size)
		if f.Kind == FileIndex {
			detail = "Package index"
		}
		if desc := f.Metadata["description"]; desc != "" {
			detail += "  " + desc
		}
		names = append(names, f.Name)
		details = append(details, detail)
	}
	if len(names) == 0 {
		return []byte(b.String())
	}

	width := 0
	for _, n := range names {
		if w := util.StringWidth(n); w > width {
			width = w
		}
	}
	b.WriteString("\nContents:\n")
	for i, n := range names {
		b.WriteString("  " + util.PadRight(n, width) + "  " + details[i] + "\n")
	}
	return []byte(b.String())
}
